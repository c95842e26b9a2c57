package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// OutboxKindStatusChanged is written alongside every booking status change.
const OutboxKindStatusChanged = "booking.status_changed"

// OutboxStatus is the processing state of an outbox row.
type OutboxStatus string

const (
	OutboxPending   OutboxStatus = "pending"
	OutboxCompleted OutboxStatus = "completed"
	OutboxDead      OutboxStatus = "dead"
)

// OutboxEvent mirrors the outbox_events table. Payload is the JSON encoded
// TransitionEvent for booking.status_changed rows.
type OutboxEvent struct {
	ID           uuid.UUID
	AggregateID  uuid.UUID
	Kind         string
	Payload      json.RawMessage
	Status       OutboxStatus
	Attempts     int
	LastError    *string
	CreatedAt    time.Time
	DispatchedAt *time.Time
	CompletedAt  *time.Time
}

// TransitionEvent describes one accepted status change. It carries
// everything needed to replay the side effects of that change.
type TransitionEvent struct {
	TransitionID       uuid.UUID     `json:"transition_id"`
	BookingID          uuid.UUID     `json:"booking_id"`
	Status             BookingStatus `json:"status"`
	ResponseMessage    string        `json:"response_message,omitempty"`
	CancelledBy        CancelParty   `json:"cancelled_by,omitempty"`
	CancellationReason string        `json:"cancellation_reason,omitempty"`
	OccurredAt         time.Time     `json:"occurred_at"`
}
