package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/local-services-booking/internal/payment"
)

// RefundHandler exposes the processor refund to sibling services.
type RefundHandler struct {
	refunder payment.Refunder
	logger   logrus.FieldLogger
}

// NewRefundHandler constructs a RefundHandler. refunder must be non-nil.
func NewRefundHandler(refunder payment.Refunder, logger logrus.FieldLogger) *RefundHandler {
	if refunder == nil {
		panic("nil refunder passed to NewRefundHandler")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RefundHandler{refunder: refunder, logger: logger}
}

// Create handles POST /stripe/refund. Callers authenticate with the
// internal secret. Processor failures answer 502 with success=false.
func (h *RefundHandler) Create(c echo.Context) error {
	var req payment.RefundRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "invalid request body"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"success": false, "error": "bookingId, paymentReference and idempotencyKey are required"})
	}
	res, err := h.refunder.Refund(c.Request().Context(), req)
	if err != nil {
		h.logger.WithError(err).WithField("booking_id", req.BookingID).Warn("internal refund failed")
		return c.JSON(http.StatusBadGateway, echo.Map{"success": false, "error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "refundId": res.RefundID, "status": res.Status})
}
