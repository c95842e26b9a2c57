package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/iliyamo/local-services-booking/internal/model"
	"github.com/iliyamo/local-services-booking/internal/repository"
)

// Actor roles.
const (
	ActorCustomer = "customer"
	ActorBusiness = "business"
	ActorAdmin    = "admin"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID uuid.UUID
	Role   string
}

// authorize checks that actor may see b and, when target is non-empty,
// move it to target. Customers may only cancel their own bookings;
// businesses act on bookings of the businesses they own.
func (s *Service) authorize(ctx context.Context, actor *Actor, b *model.BookingRequest, target model.BookingStatus) error {
	if actor == nil || actor.Role == ActorAdmin {
		return nil
	}
	switch actor.Role {
	case ActorCustomer:
		if b.CustomerID != actor.UserID {
			return ErrForbidden
		}
		if target != "" && target != model.StatusCancelled {
			return ErrForbidden
		}
		return nil
	case ActorBusiness:
		biz, err := s.businesses.GetByID(ctx, b.BusinessID)
		if errors.Is(err, repository.ErrBusinessNotFound) {
			// a booking whose business row is gone has no owner
			return ErrForbidden
		}
		if err != nil {
			return fmt.Errorf("load business: %w", err)
		}
		if biz.OwnerID != actor.UserID {
			return ErrForbidden
		}
		return nil
	}
	return ErrForbidden
}

// GetFor returns a booking visible to actor.
func (s *Service) GetFor(ctx context.Context, id uuid.UUID, actor Actor) (*model.BookingRequest, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, &actor, b, ""); err != nil {
		return nil, err
	}
	return b, nil
}

// cancelPartyFor resolves who a cancellation is recorded against.
// Customers and businesses always cancel as themselves; admins and internal
// callers may name either party or none.
func cancelPartyFor(actor *Actor, requested model.CancelParty) (model.CancelParty, error) {
	own := defaultCancelParty(actor)
	if own == "" {
		return requested, nil
	}
	if requested != "" && requested != own {
		return "", ErrForbidden
	}
	return own, nil
}

func defaultCancelParty(actor *Actor) model.CancelParty {
	if actor == nil {
		return ""
	}
	switch actor.Role {
	case ActorCustomer:
		return model.CancelledByCustomer
	case ActorBusiness:
		return model.CancelledByBusiness
	}
	return ""
}
