// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// booking service and the handlers to tell a missing row apart from a
// database failure.
package repository

import "errors"

// ErrBookingNotFound is returned when no booking_requests row matches the
// requested id. Handlers translate it into an HTTP 404 response.
var ErrBookingNotFound = errors.New("booking not found")

// ErrPaymentNotFound is returned when a booking has no payment row. The
// refund trigger treats it as "nothing to refund".
var ErrPaymentNotFound = errors.New("payment not found")

// ErrBusinessNotFound is returned when a business id does not resolve.
var ErrBusinessNotFound = errors.New("business not found")

// ErrStripeAccountNotFound is returned when a business has no connected
// Stripe account. Refunds then go through the platform account.
var ErrStripeAccountNotFound = errors.New("stripe account not found")

// ErrNotificationNotFound is returned when a notification does not exist
// or belongs to another user.
var ErrNotificationNotFound = errors.New("notification not found")

// ErrOutboxEventNotFound is returned when an outbox id does not resolve.
var ErrOutboxEventNotFound = errors.New("outbox event not found")
