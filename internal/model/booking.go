package model

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus is the lifecycle state of a booking request.
type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusAccepted  BookingStatus = "accepted"
	StatusDeclined  BookingStatus = "declined"
	StatusCompleted BookingStatus = "completed"
	StatusCancelled BookingStatus = "cancelled"
)

// IsTarget reports whether s may be requested through a status change.
// pending is the creation state and is never a valid target.
func (s BookingStatus) IsTarget() bool {
	switch s {
	case StatusAccepted, StatusDeclined, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// CancelParty identifies who initiated a cancellation.
type CancelParty string

const (
	CancelledByCustomer CancelParty = "customer"
	CancelledByBusiness CancelParty = "business"
)

// Valid reports whether p is a known party.
func (p CancelParty) Valid() bool {
	return p == CancelledByCustomer || p == CancelledByBusiness
}

// RefundStatus tracks the refund attached to a cancelled booking.
type RefundStatus string

const (
	RefundNone      RefundStatus = "none"
	RefundPending   RefundStatus = "pending"
	RefundProcessed RefundStatus = "processed"
	RefundFailed    RefundStatus = "failed"
)

// BookingRequest mirrors a row of booking_requests joined with the name of
// the booked service.
//
// Fields:
//
//	ID                 – booking_requests.id
//	CustomerID         – user who requested the service
//	BusinessID         – business providing the service
//	ServiceID          – booked service
//	ServiceName        – services.name, empty when the service row is gone
//	RequestedAt        – requested date and time of the service
//	TotalCostCents     – total charged to the customer, in pence
//	PlatformFeeCents   – marketplace fee included in the total, in pence
//	Status             – lifecycle status
//	ResponseMessage    – business response attached to accept/decline
//	CancelledBy        – who cancelled (cancelled bookings only)
//	CancellationReason – free text reason for the cancellation
//	CancelledAt        – when the cancellation was recorded
//	RefundStatus       – refund progress, none unless cancelled with payment
//	RefundID           – processor refund reference once processed
type BookingRequest struct {
	ID                 uuid.UUID     `json:"id"`
	CustomerID         uuid.UUID     `json:"customer_id"`
	BusinessID         uuid.UUID     `json:"business_id"`
	ServiceID          uuid.UUID     `json:"service_id"`
	ServiceName        string        `json:"service_name"`
	RequestedAt        time.Time     `json:"requested_at"`
	TotalCostCents     int64         `json:"total_cost_cents"`
	PlatformFeeCents   int64         `json:"platform_fee_cents"`
	Status             BookingStatus `json:"status"`
	ResponseMessage    *string       `json:"response_message,omitempty"`
	CancelledBy        *CancelParty  `json:"cancelled_by,omitempty"`
	CancellationReason *string       `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time    `json:"cancelled_at,omitempty"`
	RefundStatus       RefundStatus  `json:"refund_status"`
	RefundID           *string       `json:"refund_id,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// StatusChange is the mandatory write of a transition: the new status plus
// cancellation metadata when the target is cancelled.
type StatusChange struct {
	BookingID          uuid.UUID
	Status             BookingStatus
	CancelledBy        *CancelParty
	CancellationReason *string
	CancelledAt        *time.Time
}
