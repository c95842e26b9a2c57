// Package payment talks to the payment processor. Refunds are requested
// either through the internal refund endpoint (Client) or straight against
// Stripe (StripeProcessor); both satisfy Refunder.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ReasonRequestedByCustomer is the refund reason of customer cancellations.
const ReasonRequestedByCustomer = "requested_by_customer"

// ErrRefundRejected is returned when the processor answered but did not
// accept the refund.
var ErrRefundRejected = errors.New("refund rejected by processor")

// RefundRequest asks for a full refund of one payment.
type RefundRequest struct {
	BookingID          string `json:"bookingId" validate:"required"`
	PaymentReference   string `json:"paymentReference" validate:"required"`
	ConnectedAccountID string `json:"connectedAccountId,omitempty"`
	AmountCents        int64  `json:"amountCents,omitempty" validate:"gte=0"`
	IdempotencyKey     string `json:"idempotencyKey" validate:"required"`
	Reason             string `json:"reason,omitempty" validate:"omitempty,oneof=requested_by_customer duplicate"`
}

// RefundResult is the processor's answer to an accepted refund.
type RefundResult struct {
	RefundID string `json:"refundId"`
	Status   string `json:"status"`
}

// Refunder performs refunds.
type Refunder interface {
	Refund(ctx context.Context, req RefundRequest) (*RefundResult, error)
}

// IdempotencyKey derives the processor idempotency key of a booking refund.
// Every attempt for the same booking reuses it so a replay can never issue
// a second refund.
func IdempotencyKey(bookingID string) string {
	return "booking-refund-" + bookingID
}

// IsPaymentIntent reports whether ref names a PaymentIntent rather than a
// Charge.
func IsPaymentIntent(ref string) bool {
	return strings.HasPrefix(ref, "pi_")
}

func rejected(status, detail string) error {
	if detail == "" {
		return fmt.Errorf("%w: status %s", ErrRefundRejected, status)
	}
	return fmt.Errorf("%w: status %s: %s", ErrRefundRejected, status, detail)
}
