package payment

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/refund"
)

// RefundAPI is the subset of the Stripe refund client used here.
type RefundAPI interface {
	New(params *stripe.RefundParams) (*stripe.Refund, error)
}

// StripeProcessor issues refunds through the Stripe Refunds API. Connect
// refunds are scoped to the business account with the Stripe-Account header.
type StripeProcessor struct {
	api    RefundAPI
	logger logrus.FieldLogger
}

// NewStripeProcessor builds a processor bound to the platform secret key.
func NewStripeProcessor(secretKey string, logger logrus.FieldLogger) *StripeProcessor {
	api := &refund.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey}
	return NewStripeProcessorWithAPI(api, logger)
}

// NewStripeProcessorWithAPI is NewStripeProcessor with an explicit client.
func NewStripeProcessorWithAPI(api RefundAPI, logger logrus.FieldLogger) *StripeProcessor {
	if api == nil {
		panic("nil refund api")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &StripeProcessor{api: api, logger: logger}
}

// Refund requests a refund of req.PaymentReference. A zero AmountCents
// refunds the full charge.
func (p *StripeProcessor) Refund(ctx context.Context, req RefundRequest) (*RefundResult, error) {
	params := &stripe.RefundParams{}
	params.Context = ctx
	if IsPaymentIntent(req.PaymentReference) {
		params.PaymentIntent = stripe.String(req.PaymentReference)
	} else {
		params.Charge = stripe.String(req.PaymentReference)
	}
	if req.AmountCents > 0 {
		params.Amount = stripe.Int64(req.AmountCents)
	}
	if req.Reason != "" {
		params.Reason = stripe.String(req.Reason)
	}
	if req.IdempotencyKey != "" {
		params.SetIdempotencyKey(req.IdempotencyKey)
	}
	if req.ConnectedAccountID != "" {
		params.SetStripeAccount(req.ConnectedAccountID)
	}
	if req.BookingID != "" {
		params.AddMetadata("booking_id", req.BookingID)
	}

	log := p.logger.WithFields(logrus.Fields{
		"booking_id":        req.BookingID,
		"connected_account": req.ConnectedAccountID != "",
	})
	r, err := p.api.New(params)
	if err != nil {
		log.WithError(err).Warn("stripe refund failed")
		return nil, fmt.Errorf("stripe refund: %w", err)
	}
	switch r.Status {
	case stripe.RefundStatusFailed, stripe.RefundStatusCanceled:
		log.WithField("refund_id", r.ID).Warn("stripe refund not accepted")
		return nil, rejected(string(r.Status), string(r.FailureReason))
	}
	log.WithField("refund_id", r.ID).Info("stripe refund created")
	return &RefundResult{RefundID: r.ID, Status: string(r.Status)}, nil
}
