// Package queue moves outbox notifications over RabbitMQ: the relay
// publishes one message per due outbox event and the consumer hands each
// delivery to the re-drive worker.
package queue

// SideEffectMessage points a consumer at an outbox event. The event row is
// the source of truth; the message carries only its identity.
type SideEffectMessage struct {
	EventID   string `json:"eventId"`
	BookingID string `json:"bookingId"`
	Kind      string `json:"kind"`
}
