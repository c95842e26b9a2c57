package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/local-services-booking/internal/booking"
	"github.com/iliyamo/local-services-booking/internal/middleware"
	"github.com/iliyamo/local-services-booking/internal/model"
	"github.com/iliyamo/local-services-booking/internal/repository"
)

type fakeTransitioner struct {
	got booking.TransitionInput
	res *booking.TransitionResult
	err error
}

func (f *fakeTransitioner) Transition(_ context.Context, in booking.TransitionInput) (*booking.TransitionResult, error) {
	f.got = in
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return f.res, f.err
}

func (f *fakeTransitioner) GetFor(_ context.Context, id uuid.UUID, _ booking.Actor) (*model.BookingRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &model.BookingRequest{ID: id, Status: model.StatusPending}, nil
}

func asUser(uid uuid.UUID, role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(middleware.CtxUserID, uid.String())
			c.Set(middleware.CtxRole, role)
			return next(c)
		}
	}
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewRequestValidator()
	return e
}

func patch(t *testing.T, e *echo.Echo, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPatch, "/bookings", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec, out
}

func TestUpdateStatusSuccess(t *testing.T) {
	id := uuid.New()
	uid := uuid.New()
	svc := &fakeTransitioner{res: &booking.TransitionResult{
		Booking: &model.BookingRequest{ID: id, Status: model.StatusCancelled, RefundStatus: model.RefundProcessed},
		Refund:  &booking.RefundOutcome{Success: true, RefundID: "re_1", AmountCents: 4500},
	}}
	e := newTestEcho()
	e.PATCH("/bookings", NewBookingHandler(svc, nil).UpdateStatus, asUser(uid, middleware.RoleBusiness))

	rec, out := patch(t, e, `{"bookingId":"`+id.String()+`","status":"cancelled","cancelledBy":"business","cancellationReason":" double-booked "}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "cancelled", out["booking"].(map[string]any)["status"])
	assert.Equal(t, "re_1", out["refund"].(map[string]any)["refundId"])

	assert.Equal(t, id, svc.got.BookingID)
	assert.Equal(t, model.CancelledByBusiness, svc.got.CancelledBy)
	assert.Equal(t, "double-booked", svc.got.CancellationReason)
	require.NotNil(t, svc.got.Actor)
	assert.Equal(t, uid, svc.got.Actor.UserID)
	assert.Equal(t, middleware.RoleBusiness, svc.got.Actor.Role)
}

func TestUpdateStatusNullRefund(t *testing.T) {
	id := uuid.New()
	svc := &fakeTransitioner{res: &booking.TransitionResult{Booking: &model.BookingRequest{ID: id, Status: model.StatusAccepted}}}
	e := newTestEcho()
	e.PATCH("/bookings", NewBookingHandler(svc, nil).UpdateStatus, asUser(uuid.New(), middleware.RoleAdmin))

	rec, out := patch(t, e, `{"bookingId":"`+id.String()+`","status":"accepted"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	v, present := out["refund"]
	assert.True(t, present)
	assert.Nil(t, v)
}

func TestUpdateStatusErrors(t *testing.T) {
	id := uuid.New().String()
	cases := []struct {
		name string
		body string
		err  error
		code int
		msg  string
	}{
		{"missing fields", `{}`, nil, http.StatusBadRequest, "bookingId and status are required"},
		{"missing status", `{"bookingId":"` + id + `"}`, nil, http.StatusBadRequest, "bookingId and status are required"},
		{"invalid status", `{"bookingId":"` + id + `","status":"archived"}`, nil, http.StatusBadRequest, "invalid status"},
		{"invalid party", `{"bookingId":"` + id + `","status":"cancelled","cancelledBy":"admin"}`, nil, http.StatusBadRequest, "invalid cancelledBy"},
		{"bad id", `{"bookingId":"B1","status":"accepted"}`, nil, http.StatusBadRequest, "invalid bookingId"},
		{"bad json", `{`, nil, http.StatusBadRequest, "invalid request body"},
		{"not found", `{"bookingId":"` + id + `","status":"accepted"}`, repository.ErrBookingNotFound, http.StatusNotFound, "booking not found"},
		{"forbidden", `{"bookingId":"` + id + `","status":"accepted"}`, booking.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"conflict", `{"bookingId":"` + id + `","status":"accepted"}`, booking.ErrTransitionNotAllowed, http.StatusConflict, booking.ErrTransitionNotAllowed.Error()},
		{"persistence", `{"bookingId":"` + id + `","status":"accepted"}`, errors.New("db down"), http.StatusInternalServerError, "failed to update booking"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEcho()
			e.PATCH("/bookings", NewBookingHandler(&fakeTransitioner{err: tc.err}, nil).UpdateStatus, asUser(uuid.New(), middleware.RoleAdmin))
			rec, out := patch(t, e, tc.body)
			assert.Equal(t, tc.code, rec.Code)
			assert.Equal(t, tc.msg, out["error"])
		})
	}
}

func TestGetBooking(t *testing.T) {
	e := newTestEcho()
	svc := &fakeTransitioner{}
	e.GET("/bookings/:id", NewBookingHandler(svc, nil).Get, asUser(uuid.New(), middleware.RoleCustomer))

	id := uuid.New()
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bookings/"+id.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), id.String())

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bookings/nope", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	svc.err = booking.ErrForbidden
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/bookings/"+id.String(), nil))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUpdateStatusWithoutIdentity(t *testing.T) {
	e := newTestEcho()
	e.PATCH("/bookings", NewBookingHandler(&fakeTransitioner{}, nil).UpdateStatus)
	rec, _ := patch(t, e, `{"bookingId":"`+uuid.NewString()+`","status":"accepted"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
