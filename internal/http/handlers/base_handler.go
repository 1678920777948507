// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xtinaharwell/wild-wash-api/internal/modules/location"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/notify"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/order"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/position"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/users"
	"github.com/xtinaharwell/wild-wash-api/internal/types"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

// writeOrderError maps module sentinels to status codes. Wrapped messages
// carry detail for 4xx; anything unknown is logged and hidden.
func writeOrderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, order.ErrBadRequest), errors.Is(err, location.ErrBadRequest),
		errors.Is(err, users.ErrInvalidKind), errors.Is(err, types.ErrInvalidID),
		errors.Is(err, position.ErrBadRequest):
		writeError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, order.ErrPermissionDenied), errors.Is(err, position.ErrPermissionDenied):
		writeError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, order.ErrNotFound), errors.Is(err, location.ErrNotFound),
		errors.Is(err, users.ErrNotFound), errors.Is(err, notify.ErrNotFound):
		writeError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, order.ErrConflict), errors.Is(err, order.ErrQueueEmpty),
		errors.Is(err, location.ErrDuplicateName):
		writeError(c, http.StatusConflict, err.Error())
	default:
		_ = c.Error(err)
		zap.L().Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}

func pathID(c *gin.Context) (types.ID, bool) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func queryID(c *gin.Context, key string) (*types.ID, bool) {
	raw := c.Query(key)
	if raw == "" {
		return nil, true
	}
	id, err := types.ParseID(raw)
	if err != nil {
		writeError(c, http.StatusBadRequest, "invalid "+key)
		return nil, false
	}
	return &id, true
}
