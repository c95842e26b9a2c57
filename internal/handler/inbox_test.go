package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/local-services-booking/internal/middleware"
	"github.com/iliyamo/local-services-booking/internal/model"
	"github.com/iliyamo/local-services-booking/internal/repository"
)

type memInbox struct {
	user    uuid.UUID
	unread  bool
	limit   int
	marked  uuid.UUID
	partner uuid.UUID
}

func (m *memInbox) ListByUser(_ context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]model.Notification, error) {
	m.user, m.unread, m.limit = userID, unreadOnly, limit
	return []model.Notification{{ID: uuid.New(), UserID: userID, Title: "Booking Update"}}, nil
}

func (m *memInbox) MarkRead(_ context.Context, id, _ uuid.UUID) error {
	if id == uuid.Nil {
		return repository.ErrNotificationNotFound
	}
	m.marked = id
	return nil
}

func (m *memInbox) ListByConversation(_ context.Context, _, participant uuid.UUID) ([]model.Message, error) {
	m.partner = participant
	return []model.Message{}, nil
}

func TestInboxRoutes(t *testing.T) {
	uid := uuid.New()
	store := &memInbox{}
	h := NewInboxHandler(store, store)
	e := newTestEcho()
	g := e.Group("/v1", asUser(uid, middleware.RoleCustomer))
	g.GET("/notifications", h.ListNotifications)
	g.PATCH("/notifications/:id/read", h.MarkRead)
	g.GET("/conversations/:id/messages", h.ListMessages)

	serve := func(method, path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
		return rec
	}

	rec := serve(http.MethodGet, "/v1/notifications?unread=true&limit=500")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Booking Update")
	assert.Equal(t, uid, store.user)
	assert.True(t, store.unread)
	assert.Equal(t, maxListLimit, store.limit)

	assert.Equal(t, http.StatusBadRequest, serve(http.MethodGet, "/v1/notifications?limit=0").Code)

	nid := uuid.New()
	assert.Equal(t, http.StatusNoContent, serve(http.MethodPatch, "/v1/notifications/"+nid.String()+"/read").Code)
	assert.Equal(t, nid, store.marked)
	assert.Equal(t, http.StatusNotFound, serve(http.MethodPatch, "/v1/notifications/"+uuid.Nil.String()+"/read").Code)

	rec = serve(http.MethodGet, "/v1/conversations/"+uuid.NewString()+"/messages")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())
	assert.Equal(t, uid, store.partner)
}
