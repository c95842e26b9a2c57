package model

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the state of a payment attempt.
type PaymentStatus string

const (
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Payment is the single payment attempt recorded for a booking.
// ProcessorRef holds the Stripe charge (ch_) or payment intent (pi_) id.
type Payment struct {
	ID           uuid.UUID     `json:"id"`
	BookingID    uuid.UUID     `json:"booking_id"`
	ProcessorRef string        `json:"processor_ref"`
	AmountCents  int64         `json:"amount_cents"`
	Currency     string        `json:"currency"`
	Status       PaymentStatus `json:"status"`
	PaidAt       *time.Time    `json:"paid_at,omitempty"`
}

// Business is the subset of the businesses table needed to address its owner.
type Business struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
	Name    string
}

// BusinessStripeAccount links a business to its Stripe Connect account.
type BusinessStripeAccount struct {
	BusinessID      uuid.UUID
	StripeAccountID string
	ChargesEnabled  bool
}
