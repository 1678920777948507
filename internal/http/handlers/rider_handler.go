// README: Rider position handlers: riders push fixes, the latest fixes are public.
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xtinaharwell/wild-wash-api/internal/http/middleware"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/position"
)

type RiderHandler struct {
	position *position.Service
}

func NewRiderHandler(svc *position.Service) *RiderHandler {
	return &RiderHandler{position: svc}
}

type recordFixReq struct {
	Latitude   *float64   `json:"latitude"`
	Longitude  *float64   `json:"longitude"`
	Accuracy   *float64   `json:"accuracy"`
	Heading    *float64   `json:"heading"`
	Speed      *float64   `json:"speed"`
	RecordedAt *time.Time `json:"recorded_at"`
}

func (h *RiderHandler) Record(c *gin.Context) {
	var req recordFixReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		writeError(c, http.StatusBadRequest, "latitude and longitude are required")
		return
	}
	f, err := h.position.Record(c.Request.Context(), middleware.Caller(c), position.Update{
		Lat:        *req.Latitude,
		Lng:        *req.Longitude,
		Accuracy:   req.Accuracy,
		Heading:    req.Heading,
		Speed:      req.Speed,
		RecordedAt: req.RecordedAt,
	})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, f)
}

func (h *RiderHandler) History(c *gin.Context) {
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.position.History(c.Request.Context(), middleware.Caller(c), limit)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	if list == nil {
		list = []position.Fix{}
	}
	writeJSON(c, http.StatusOK, map[string]any{"locations": list})
}

// Latest needs no caller; it is mounted outside the auth group.
func (h *RiderHandler) Latest(c *gin.Context) {
	list, err := h.position.Latest(c.Request.Context())
	if err != nil {
		writeOrderError(c, err)
		return
	}
	if list == nil {
		list = []position.Fix{}
	}
	writeJSON(c, http.StatusOK, map[string]any{"locations": list})
}

func (h *RiderHandler) Nearby(c *gin.Context) {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		writeError(c, http.StatusBadRequest, "lat and lng are required")
		return
	}
	var radius float64
	if raw := c.Query("radius_km"); raw != "" {
		r, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			writeError(c, http.StatusBadRequest, "invalid radius_km")
			return
		}
		radius = r
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.position.Nearby(c.Request.Context(), lat, lng, radius, limit)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	if list == nil {
		list = []position.Nearby{}
	}
	writeJSON(c, http.StatusOK, map[string]any{"riders": list})
}
