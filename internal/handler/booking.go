package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/local-services-booking/internal/booking"
	"github.com/iliyamo/local-services-booking/internal/middleware"
	"github.com/iliyamo/local-services-booking/internal/model"
	"github.com/iliyamo/local-services-booking/internal/repository"
)

// StatusTransitioner is the booking service as seen by the HTTP layer.
type StatusTransitioner interface {
	Transition(ctx context.Context, in booking.TransitionInput) (*booking.TransitionResult, error)
	GetFor(ctx context.Context, id uuid.UUID, actor booking.Actor) (*model.BookingRequest, error)
}

// BookingHandler serves booking status changes.
type BookingHandler struct {
	svc    StatusTransitioner
	logger logrus.FieldLogger
}

// NewBookingHandler constructs a BookingHandler. svc must be non-nil.
func NewBookingHandler(svc StatusTransitioner, logger logrus.FieldLogger) *BookingHandler {
	if svc == nil {
		panic("nil service passed to NewBookingHandler")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &BookingHandler{svc: svc, logger: logger}
}

type updateStatusRequest struct {
	BookingID          string `json:"bookingId" validate:"required"`
	Status             string `json:"status" validate:"required"`
	ResponseMessage    string `json:"responseMessage" validate:"max=2000"`
	CancelledBy        string `json:"cancelledBy" validate:"omitempty,oneof=customer business"`
	CancellationReason string `json:"cancellationReason" validate:"max=1000"`
}

// UpdateStatus handles PATCH /bookings. The body names the booking, the
// target status and optional response and cancellation details. It
// returns {success, booking, refund}; refund is null when no refund was
// attempted.
func (h *BookingHandler) UpdateStatus(c echo.Context) error {
	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	req.BookingID = strings.TrimSpace(req.BookingID)
	req.Status = strings.TrimSpace(req.Status)
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": validationMessage(err)})
	}
	id, err := uuid.Parse(req.BookingID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid bookingId"})
	}
	actor, ok := actorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}

	res, err := h.svc.Transition(c.Request().Context(), booking.TransitionInput{
		BookingID:          id,
		Status:             model.BookingStatus(req.Status),
		ResponseMessage:    strings.TrimSpace(req.ResponseMessage),
		CancelledBy:        model.CancelParty(req.CancelledBy),
		CancellationReason: strings.TrimSpace(req.CancellationReason),
		Actor:              &actor,
	})
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"booking": res.Booking,
		"refund":  res.Refund,
	})
}

// Get handles GET /bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid booking id"})
	}
	actor, ok := actorFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	b, err := h.svc.GetFor(c.Request().Context(), id, actor)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(http.StatusOK, b)
}

func (h *BookingHandler) writeError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, booking.ErrInvalidStatus):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status"})
	case errors.Is(err, booking.ErrInvalidCancelParty):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid cancelledBy"})
	case errors.Is(err, repository.ErrBookingNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "booking not found"})
	case errors.Is(err, booking.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, booking.ErrTransitionNotAllowed):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	}
	h.logger.WithError(err).WithField("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).Error("booking request failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update booking"})
}

func validationMessage(err error) string {
	field, tag := firstInvalid(err)
	switch {
	case tag == "required" && (field == "BookingID" || field == "Status"):
		return "bookingId and status are required"
	case field == "CancelledBy":
		return "invalid cancelledBy"
	case field == "ResponseMessage":
		return "responseMessage is too long"
	case field == "CancellationReason":
		return "cancellationReason is too long"
	}
	return "invalid request"
}

func actorFrom(c echo.Context) (booking.Actor, bool) {
	uid, ok := middleware.UserID(c)
	if !ok {
		return booking.Actor{}, false
	}
	return booking.Actor{UserID: uid, Role: middleware.Role(c)}, true
}
