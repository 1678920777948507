// README: Operator CLI; runs one pending-assignment sweep or prints one order's assignment state.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/xtinaharwell/wild-wash-api/internal/config"
	"github.com/xtinaharwell/wild-wash-api/internal/events"
	"github.com/xtinaharwell/wild-wash-api/internal/infra"
	"github.com/xtinaharwell/wild-wash-api/internal/logger"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/location"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/notify"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/order"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/pricing"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/users"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	var (
		limit   int
		orderID string
		quiet   bool
	)
	flag.IntVar(&limit, "limit", cfg.Assignment.SweepBatch, "Maximum orders to sweep")
	flag.StringVar(&orderID, "order", "", "Print the assignment state of one order (id or WW- code) instead of sweeping")
	flag.BoolVar(&quiet, "no-notify", false, "Assign without sending notifications")
	flag.Parse()

	log := logger.New(cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		log.Fatal("database", zap.Error(err))
	}
	defer dbPool.Close()

	deps := order.Deps{
		Repo:      order.NewStore(dbPool),
		Users:     users.NewStore(dbPool),
		Locations: location.NewService(location.NewStore(dbPool), nil, location.FirstActive{}, log.Named("location")),
		Pricing:   pricing.NewService(pricing.NewStore(dbPool), cfg.Pricing.PerKg, cfg.Pricing.Currency),
		Log:       log.Named("order"),
	}
	if !quiet {
		deps.Notifier = newDispatcher(cfg, notify.NewStore(dbPool), log)
	}
	if w := infra.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic); w != nil {
		defer func() { _ = w.Close() }()
		deps.Publisher = events.NewKafkaPublisher(w, log.Named("events"))
	}
	svc := order.NewService(deps)

	if orderID != "" {
		inspection, err := svc.InspectRef(ctx, orderID)
		if err != nil {
			log.Fatal("inspect", zap.Error(err))
		}
		printJSON(inspection)
		return
	}

	res, err := svc.SweepPending(ctx, limit)
	if err != nil {
		log.Fatal("sweep", zap.Error(err))
	}
	printJSON(res)
}

func newDispatcher(cfg config.Config, sink notify.Sink, log *zap.Logger) *notify.Dispatcher {
	d := notify.DispatcherDeps{Sink: sink, CountryCode: cfg.SMS.CountryCode, Log: log.Named("notify")}
	if cfg.SMS.APIKey != "" {
		d.SMS = notify.NewAfricasTalking(notify.AfricasTalkingConfig{
			Username: cfg.SMS.Username,
			APIKey:   cfg.SMS.APIKey,
			SenderID: cfg.SMS.SenderID,
			Endpoint: cfg.SMS.Endpoint,
		})
	} else {
		d.SMS = notify.NewLogSender(log.Named("sms"))
	}
	if cfg.Redis.Addr != "" {
		d.Guard = notify.NewRedisGuard(infra.NewRedis(cfg.Redis.Addr), cfg.Notify.DedupeTTL)
	}
	return notify.NewDispatcher(d)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
