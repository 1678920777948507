// README: Entry point; loads config, wires services, starts the HTTP server and the pending-assignment sweeper.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/xtinaharwell/wild-wash-api/internal/config"
	"github.com/xtinaharwell/wild-wash-api/internal/events"
	httptransport "github.com/xtinaharwell/wild-wash-api/internal/http"
	"github.com/xtinaharwell/wild-wash-api/internal/infra"
	"github.com/xtinaharwell/wild-wash-api/internal/logger"
	"github.com/xtinaharwell/wild-wash-api/internal/maps"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/location"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/notify"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/order"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/position"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/pricing"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/users"
	"github.com/xtinaharwell/wild-wash-api/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := telemetry.Setup("wildwash-api", log)
	defer func() { _ = shutdownTracing(context.Background()) }()

	if cfg.Firebase.ProjectID == "" {
		log.Fatal("WILDWASH_FIREBASE_PROJECT_ID is required")
	}
	fb, err := infra.NewFirebase(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile, cfg.Firebase.FCMEnabled)
	if err != nil {
		log.Fatal("firebase init", zap.Error(err))
	}

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal("database", zap.Error(err))
	}
	defer dbPool.Close()

	userStore := users.NewStore(dbPool)

	var geocoder location.Geocoder
	if cfg.Maps.APIKey != "" {
		g, err := maps.NewGeocoder(cfg.Maps.APIKey, "ke")
		if err != nil {
			log.Warn("geocoding disabled", zap.Error(err))
		} else {
			geocoder = g
		}
	}
	locationSvc := location.NewService(location.NewStore(dbPool), geocoder, location.FirstActive{}, log.Named("location"))

	pricingSvc := pricing.NewService(pricing.NewStore(dbPool), cfg.Pricing.PerKg, cfg.Pricing.Currency)

	notifyStore := notify.NewStore(dbPool)
	dispatchDeps := notify.DispatcherDeps{
		Sink:        notifyStore,
		CountryCode: cfg.SMS.CountryCode,
		Log:         log.Named("notify"),
	}
	if cfg.SMS.APIKey != "" {
		dispatchDeps.SMS = notify.NewAfricasTalking(notify.AfricasTalkingConfig{
			Username: cfg.SMS.Username,
			APIKey:   cfg.SMS.APIKey,
			SenderID: cfg.SMS.SenderID,
			Endpoint: cfg.SMS.Endpoint,
		})
	} else {
		log.Warn("WILDWASH_SMS_API_KEY not set; SMS will only be logged")
		dispatchDeps.SMS = notify.NewLogSender(log.Named("sms"))
	}
	if fb.Messaging != nil {
		dispatchDeps.Pusher = notify.NewFCMPusher(fb.Messaging)
	}
	var geoIndex position.GeoIndex
	if cfg.Redis.Addr != "" {
		redisClient := infra.NewRedis(cfg.Redis.Addr)
		defer func() { _ = redisClient.Close() }()
		dispatchDeps.Guard = notify.NewRedisGuard(redisClient, cfg.Notify.DedupeTTL)
		geoIndex = position.NewRedisGeo(redisClient)
	}
	positionSvc := position.NewService(position.NewStore(dbPool), geoIndex, log.Named("position"))

	orderDeps := order.Deps{
		Repo:      order.NewStore(dbPool),
		Users:     userStore,
		Locations: locationSvc,
		Pricing:   pricingSvc,
		Notifier:  notify.NewDispatcher(dispatchDeps),
		Log:       log.Named("order"),
	}
	if w := infra.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic); w != nil {
		defer func() { _ = w.Close() }()
		orderDeps.Publisher = events.NewKafkaPublisher(w, log.Named("events"))
	}
	orderSvc := order.NewService(orderDeps)

	if cfg.Assignment.SweepSeconds > 0 {
		go orderSvc.RunPendingSweeper(ctx, time.Duration(cfg.Assignment.SweepSeconds)*time.Second, cfg.Assignment.SweepBatch)
	}

	server := httptransport.NewServer(cfg.HTTP.Addr, httptransport.RouterDeps{
		Orders:    orderSvc,
		Locations: locationSvc,
		Positions: positionSvc,
		Inbox:     notifyStore,
		Verifier:  fb.Verifier,
		Users:     userStore,
		Log:       log.Named("http"),
	})
	if err := server.Run(ctx); err != nil {
		log.Fatal("http server", zap.Error(err))
	}
}
