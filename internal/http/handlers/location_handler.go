// README: Location handlers. Anyone signed in may list; admins manage.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xtinaharwell/wild-wash-api/internal/http/middleware"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/location"
)

type LocationHandler struct {
	location *location.Service
}

func NewLocationHandler(svc *location.Service) *LocationHandler {
	return &LocationHandler{location: svc}
}

func (h *LocationHandler) List(c *gin.Context) {
	activeOnly := c.Query("all") != "true"
	list, err := h.location.List(c.Request.Context(), activeOnly)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	if list == nil {
		list = []location.Location{}
	}
	writeJSON(c, http.StatusOK, map[string]any{"locations": list})
}

type createLocationReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (h *LocationHandler) Create(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	var req createLocationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	l, err := h.location.Create(c.Request.Context(), location.CreateCommand{Name: req.Name, Description: req.Description})
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, l)
}

type setActiveReq struct {
	Active *bool `json:"is_active"`
}

func (h *LocationHandler) SetActive(c *gin.Context) {
	if !requireAdmin(c) {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req setActiveReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Active == nil {
		writeError(c, http.StatusBadRequest, "is_active is required")
		return
	}
	l, err := h.location.SetActive(c.Request.Context(), id, *req.Active)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, l)
}

func requireAdmin(c *gin.Context) bool {
	if !middleware.IsAdmin(c) {
		writeError(c, http.StatusForbidden, "forbidden: admin role required")
		return false
	}
	return true
}
