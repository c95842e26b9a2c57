package model

import (
	"time"

	"github.com/google/uuid"
)

// Notification type tags written by the booking flow.
const (
	NotifBookingAccepted              = "booking_accepted"
	NotifBookingDeclined              = "booking_declined"
	NotifBookingCompleted             = "booking_completed"
	NotifBookingCancelled             = "booking_cancelled"
	NotifBookingCancellationConfirmed = "booking_cancellation_confirmed"
)

// MessageTypeBookingResponse tags a business reply to a booking request.
const MessageTypeBookingResponse = "booking_response"

// Notification is a user-facing alert. Rows are never updated by the
// booking flow; only the read flag changes afterwards.
type Notification struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// Message is one entry of a customer/business conversation thread. Booking
// responses use the booking id as ConversationID.
type Message struct {
	ID             uuid.UUID `json:"id"`
	SenderID       uuid.UUID `json:"sender_id"`
	RecipientID    uuid.UUID `json:"recipient_id"`
	BusinessID     uuid.UUID `json:"business_id"`
	Subject        string    `json:"subject"`
	Body           string    `json:"body"`
	Type           string    `json:"type"`
	Urgent         bool      `json:"urgent"`
	Read           bool      `json:"read"`
	ConversationID uuid.UUID `json:"conversation_id"`
	CreatedAt      time.Time `json:"created_at"`
}
