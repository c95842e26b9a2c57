package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/iliyamo/local-services-booking/internal/model"
)

// BusinessRepo resolves business owners and their connected Stripe accounts.
type BusinessRepo struct {
	db *sql.DB
}

// NewBusinessRepo returns a new BusinessRepo bound to the given database.
func NewBusinessRepo(db *sql.DB) *BusinessRepo { return &BusinessRepo{db: db} }

// GetByID returns the business with its owning user.
func (r *BusinessRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Business, error) {
	const q = `SELECT id, owner_id, name FROM businesses WHERE id = ? LIMIT 1`
	var b model.Business
	err := r.db.QueryRowContext(ctx, q, id.String()).Scan(&b.ID, &b.OwnerID, &b.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBusinessNotFound
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// GetStripeAccount returns the Connect account of a business, or
// ErrStripeAccountNotFound when the business never connected one.
func (r *BusinessRepo) GetStripeAccount(ctx context.Context, businessID uuid.UUID) (*model.BusinessStripeAccount, error) {
	const q = `SELECT business_id, stripe_account_id, charges_enabled
	           FROM business_stripe_accounts WHERE business_id = ? LIMIT 1`
	var a model.BusinessStripeAccount
	err := r.db.QueryRowContext(ctx, q, businessID.String()).Scan(&a.BusinessID, &a.StripeAccountID, &a.ChargesEnabled)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrStripeAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}
