package booking

import "errors"

var (
	// ErrInvalidStatus is returned for a target status outside
	// accepted, declined, completed and cancelled.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidCancelParty is returned for a cancelledBy value other than
	// customer or business.
	ErrInvalidCancelParty = errors.New("invalid cancelledBy")
	// ErrTransitionNotAllowed is returned in strict mode when the current
	// status does not allow the requested one.
	ErrTransitionNotAllowed = errors.New("status transition not allowed")
)

// ErrForbidden is returned when the acting user may not touch the booking.
var ErrForbidden = errors.New("not allowed to modify this booking")
