package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/local-services-booking/internal/middleware"
	"github.com/iliyamo/local-services-booking/internal/model"
	"github.com/iliyamo/local-services-booking/internal/repository"
)

// NotificationStore reads and acknowledges notifications.
type NotificationStore interface {
	ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, id, userID uuid.UUID) error
}

// MessageStore reads conversation threads.
type MessageStore interface {
	ListByConversation(ctx context.Context, conversationID, participant uuid.UUID) ([]model.Message, error)
}

// InboxHandler serves the caller's notifications and booking conversations.
type InboxHandler struct {
	notifications NotificationStore
	messages      MessageStore
}

// NewInboxHandler constructs an InboxHandler. Both stores must be non-nil.
func NewInboxHandler(n NotificationStore, m MessageStore) *InboxHandler {
	if n == nil || m == nil {
		panic("nil store passed to NewInboxHandler")
	}
	return &InboxHandler{notifications: n, messages: m}
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// ListNotifications handles GET /v1/notifications?unread=true&limit=N.
func (h *InboxHandler) ListNotifications(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	limit := defaultListLimit
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		limit = min(n, maxListLimit)
	}
	unread := c.QueryParam("unread") == "true"

	items, err := h.notifications.ListByUser(c.Request().Context(), uid, unread, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// MarkRead handles PATCH /v1/notifications/:id/read.
func (h *InboxHandler) MarkRead(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid notification id"})
	}
	if err := h.notifications.MarkRead(c.Request().Context(), id, uid); err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "notification not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ListMessages handles GET /v1/conversations/:id/messages. Only messages
// the caller sent or received are returned.
func (h *InboxHandler) ListMessages(c echo.Context) error {
	uid, ok := middleware.UserID(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid conversation id"})
	}
	items, err := h.messages.ListByConversation(c.Request().Context(), id, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}
