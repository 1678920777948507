// README: HTTP router registration.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/xtinaharwell/wild-wash-api/internal/http/handlers"
	"github.com/xtinaharwell/wild-wash-api/internal/http/middleware"
	"github.com/xtinaharwell/wild-wash-api/internal/infra"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/location"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/order"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/position"
)

type RouterDeps struct {
	Orders    *order.Service
	Locations *location.Service
	Positions *position.Service
	Inbox     handlers.Inbox
	Verifier  infra.TokenVerifier
	Users     middleware.UserLookup
	Log       *zap.Logger
}

func NewRouter(d RouterDeps) *gin.Engine {
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	r := gin.New()
	r.Use(middleware.Recovery(d.Log), middleware.Logging(d.Log))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	var riderHandler *handlers.RiderHandler
	if d.Positions != nil {
		riderHandler = handlers.NewRiderHandler(d.Positions)
		r.GET("/api/riders/locations/latest", riderHandler.Latest)
	}

	api := r.Group("/api", middleware.Auth(d.Verifier, d.Users))

	orderHandler := handlers.NewOrderHandler(d.Orders)
	api.POST("/orders", orderHandler.Create)
	api.POST("/orders/manual", orderHandler.CreateManual)
	api.POST("/orders/claim", orderHandler.Claim)
	api.GET("/orders", orderHandler.List)
	api.GET("/orders/unassigned", orderHandler.Unassigned)
	api.GET("/orders/mine", orderHandler.Mine)
	api.GET("/orders/:id", orderHandler.Get)
	api.GET("/orders/:id/events", orderHandler.Events)
	api.PATCH("/orders/:id/status", orderHandler.UpdateStatus)
	api.POST("/orders/:id/assign", orderHandler.Assign)

	locationHandler := handlers.NewLocationHandler(d.Locations)
	api.GET("/locations", locationHandler.List)
	api.POST("/locations", locationHandler.Create)
	api.PATCH("/locations/:id", locationHandler.SetActive)

	if riderHandler != nil {
		api.POST("/riders/locations", riderHandler.Record)
		api.GET("/riders/locations", riderHandler.History)
		api.GET("/riders/nearby", riderHandler.Nearby)
	}

	if d.Inbox != nil {
		notificationHandler := handlers.NewNotificationHandler(d.Inbox)
		api.GET("/notifications", notificationHandler.List)
		api.POST("/notifications/:id/read", notificationHandler.MarkRead)
	}
	return r
}
