package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/xtinaharwell/wild-wash-api/internal/http/middleware"
	"github.com/xtinaharwell/wild-wash-api/internal/modules/notify"
	"github.com/xtinaharwell/wild-wash-api/internal/types"
)

// Inbox is the read side of in-app notifications.
type Inbox interface {
	ListForUser(ctx context.Context, userID types.ID, unreadOnly bool, limit int) ([]notify.Notification, error)
	MarkRead(ctx context.Context, userID, id types.ID) error
}

type NotificationHandler struct {
	inbox Inbox
}

func NewNotificationHandler(inbox Inbox) *NotificationHandler {
	return &NotificationHandler{inbox: inbox}
}

func (h *NotificationHandler) List(c *gin.Context) {
	u := middleware.Caller(c)
	if u == nil {
		writeError(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	list, err := h.inbox.ListForUser(c.Request.Context(), u.ID, c.Query("unread") == "true", limit)
	if err != nil {
		writeOrderError(c, err)
		return
	}
	if list == nil {
		list = []notify.Notification{}
	}
	writeJSON(c, http.StatusOK, map[string]any{"notifications": list})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	u := middleware.Caller(c)
	if u == nil {
		writeError(c, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.inbox.MarkRead(c.Request.Context(), u.ID, id); err != nil {
		writeOrderError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"status": "ok"})
}
