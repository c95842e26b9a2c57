package booking

import "github.com/iliyamo/local-services-booking/internal/model"

var allowedTransitions = map[model.BookingStatus][]model.BookingStatus{
	model.StatusPending:  {model.StatusAccepted, model.StatusDeclined, model.StatusCancelled},
	model.StatusAccepted: {model.StatusCompleted, model.StatusCancelled},
}

// CanTransition reports whether from may move to to under the strict
// transition table. declined, completed and cancelled are terminal.
func CanTransition(from, to model.BookingStatus) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
