// README: Order handlers: creation, status transitions, projections and the claim queue.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xtinaharwell/wild-wash-api/internal/http/middleware"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/order"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/users"
	"github.com/xtinaharwell/wild-wash-api/internal/types"
)

type OrderHandler struct {
	order *order.Service
}

func NewOrderHandler(svc *order.Service) *OrderHandler {
	return &OrderHandler{order: svc}
}

type createOrderReq struct {
	Service        string    `json:"service"`
	PickupAddress  string    `json:"pickup_address"`
	DropoffAddress string    `json:"dropoff_address"`
	DropOffType    string    `json:"drop_off_type"`
	Urgency        int       `json:"urgency"`
	LocationID     *types.ID `json:"location_id"`
	WeightKg       *float64  `json:"weight_kg"`
	Quantity       int       `json:"quantity"`
	Description    string    `json:"description"`
}

type createManualReq struct {
	createOrderReq
	CustomerID    *types.ID `json:"customer_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerPhone string    `json:"customer_phone"`
}

func (r createOrderReq) command(typ order.Type, actor *users.User) order.CreateCommand {
	return order.CreateCommand{
		Type:           typ,
		DropOffType:    order.DropOffType(r.DropOffType),
		Actor:          actor,
		Service:        r.Service,
		PickupAddress:  r.PickupAddress,
		DropoffAddress: r.DropoffAddress,
		Urgency:        r.Urgency,
		LocationID:     r.LocationID,
		WeightKg:       r.WeightKg,
		Quantity:       r.Quantity,
		Description:    r.Description,
	}
}

// Create places an online order for the caller.
func (h *OrderHandler) Create(c *gin.Context) {
	var req createOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	o, err := h.order.Create(c.Request.Context(), req.command(order.TypeOnline, middleware.Caller(c)))
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, o)
}

// CreateManual opens a walk-in or phone order on behalf of a customer.
func (h *OrderHandler) CreateManual(c *gin.Context) {
	var req createManualReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	cmd := req.command(order.TypeManual, middleware.Caller(c))
	cmd.CustomerID = req.CustomerID
	cmd.CustomerName = req.CustomerName
	cmd.CustomerPhone = req.CustomerPhone
	o, err := h.order.Create(c.Request.Context(), cmd)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, o)
}

func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	o, err := h.order.Get(c.Request.Context(), middleware.Caller(c), id)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

func (h *OrderHandler) Events(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	evs, err := h.order.Events(c.Request.Context(), middleware.Caller(c), id)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	if evs == nil {
		evs = []order.Event{}
	}
	writeJSON(c, http.StatusOK, map[string]any{"events": evs})
}

type updateStatusReq struct {
	Status         string   `json:"status"`
	Quantity       *int     `json:"quantity"`
	WeightKg       *float64 `json:"weight_kg"`
	Description    *string  `json:"description"`
	ActualPrice    *int64   `json:"actual_price"`
	DeliveredAt    *string  `json:"delivered_at"`
	DropoffAddress *string  `json:"dropoff_address"`
}

// UpdateStatus applies a transition plus detail edits. A delivered_at that does
// not parse as RFC 3339 fails the request with 400 rather than being dropped.
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateStatusReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	cmd := order.UpdateCommand{
		OrderID:        id,
		Actor:          middleware.Caller(c),
		Status:         req.Status,
		Quantity:       req.Quantity,
		WeightKg:       req.WeightKg,
		Description:    req.Description,
		ActualPrice:    req.ActualPrice,
		DropoffAddress: req.DropoffAddress,
	}
	if req.DeliveredAt != nil && *req.DeliveredAt != "" {
		at, err := time.Parse(time.RFC3339, *req.DeliveredAt)
		if err != nil {
			writeError(c, http.StatusBadRequest, "delivered_at must be RFC 3339")
			return
		}
		cmd.DeliveredAt = &at
	}
	o, err := h.order.UpdateStatus(c.Request.Context(), cmd)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

// List returns orders at a location; location-scoped staff get their own location.
func (h *OrderHandler) List(c *gin.Context) {
	loc, ok := queryID(c, "location_id")
	if !ok {
		return
	}
	list, err := h.order.ListForLocation(c.Request.Context(), middleware.Caller(c), loc)
	writeOrders(c, list, err)
}

func (h *OrderHandler) Unassigned(c *gin.Context) {
	list, err := h.order.ListUnassigned(c.Request.Context(), middleware.Caller(c), c.Query("status"))
	writeOrders(c, list, err)
}

// Mine is the caller's work list or, for customers, their own orders.
func (h *OrderHandler) Mine(c *gin.Context) {
	list, err := h.order.ListForWorker(c.Request.Context(), middleware.Caller(c))
	writeOrders(c, list, err)
}

type claimReq struct {
	Kind string `json:"kind"`
}

// Claim takes the next order from the caller's queue (washers by default).
func (h *OrderHandler) Claim(c *gin.Context) {
	var req claimReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}
	kind := users.KindWasher
	if req.Kind != "" {
		k, err := users.ParseKind(req.Kind)
		if err != nil {
			writeOrderError(c, err)
			return
		}
		kind = k
	}
	o, err := h.order.ClaimNext(c.Request.Context(), middleware.Caller(c), kind)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, o)
}

type assignReq struct {
	Kind string `json:"kind"`
}

// Assign pushes a rider (default) or a folder onto the order.
func (h *OrderHandler) Assign(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req assignReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}
	kind := users.KindRider
	if req.Kind != "" {
		k, err := users.ParseKind(req.Kind)
		if err != nil {
			writeOrderError(c, err)
			return
		}
		kind = k
	}
	o, worker, err := h.order.AssignWorker(c.Request.Context(), middleware.Caller(c), id, kind)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"order": o, "worker": worker})
}

func writeOrders(c *gin.Context, list []order.Order, err error) {
	if err != nil {
		writeOrderError(c, err)
		return
	}
	if list == nil {
		list = []order.Order{}
	}
	writeJSON(c, http.StatusOK, map[string]any{"orders": list})
}
