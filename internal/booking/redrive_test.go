package booking

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/local-services-booking/internal/model"
)

func TestRedriveReplaysMissingSideEffectsOnce(t *testing.T) {
	f := newFixture(false)
	id := f.addBooking(model.StatusPending)
	f.store.failNotifications = errBoom

	_, err := f.svc.Transition(context.Background(), TransitionInput{
		BookingID:          id,
		Status:             model.StatusCancelled,
		CancelledBy:        model.CancelledByBusiness,
		CancellationReason: "closed",
	})
	require.NoError(t, err)
	assert.Empty(t, f.store.notifications)
	ev := f.onlyOutbox()
	require.Equal(t, model.OutboxPending, ev.Status)

	var te model.TransitionEvent
	require.NoError(t, json.Unmarshal(ev.Payload, &te))

	f.store.failNotifications = nil
	require.NoError(t, f.svc.Redrive(context.Background(), te))
	require.NoError(t, f.svc.Redrive(context.Background(), te))

	assert.Len(t, f.store.notificationsFor(f.customer), 1)
	assert.Len(t, f.store.notificationsFor(f.owner), 1)
}

func TestRedriveResumesPendingRefundWithSameKey(t *testing.T) {
	f := newFixture(false)
	id := f.addBooking(model.StatusPending)
	f.addPayment(id, model.PaymentSucceeded, 2000)
	f.store.failRefundStatus[model.RefundProcessed] = errBoom

	res, err := f.svc.Transition(context.Background(), TransitionInput{BookingID: id, Status: model.StatusCancelled})
	require.NoError(t, err)
	assert.True(t, res.Refund.Success)
	assert.Equal(t, model.RefundPending, f.store.booking(id).RefundStatus)

	var te model.TransitionEvent
	require.NoError(t, json.Unmarshal(f.onlyOutbox().Payload, &te))

	f.store.failRefundStatus = map[model.RefundStatus]error{}
	require.NoError(t, f.svc.Redrive(context.Background(), te))

	assert.Equal(t, model.RefundProcessed, f.store.booking(id).RefundStatus)
	// the payment was already marked refunded, so no second processor call
	assert.Equal(t, 1, f.refunder.callCount())
	assert.Len(t, f.store.notificationsFor(f.customer), 1)
}

func TestRedriveStartsRefundThatNeverRan(t *testing.T) {
	f := newFixture(false)
	id := f.addBooking(model.StatusCancelled)
	f.addPayment(id, model.PaymentSucceeded, 1500)

	te := model.TransitionEvent{TransitionID: uuid.New(), BookingID: id, Status: model.StatusCancelled}
	require.NoError(t, f.svc.Redrive(context.Background(), te))

	assert.Equal(t, 1, f.refunder.callCount())
	assert.Equal(t, model.RefundProcessed, f.store.booking(id).RefundStatus)
	notes := f.store.notificationsFor(f.customer)
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0].Message, "£15.00")
}

func TestRedriveSkipsSupersededTransition(t *testing.T) {
	f := newFixture(false)
	id := f.addBooking(model.StatusAccepted)
	f.addPayment(id, model.PaymentSucceeded, 1500)

	te := model.TransitionEvent{TransitionID: uuid.New(), BookingID: id, Status: model.StatusCancelled}
	require.NoError(t, f.svc.Redrive(context.Background(), te))
	assert.Zero(t, f.refunder.callCount())
	assert.Empty(t, f.store.notifications)
}

func TestResumeRefund(t *testing.T) {
	f := newFixture(false)
	id := f.addBooking(model.StatusCancelled)
	f.store.bookings[id].RefundStatus = model.RefundPending
	f.addPayment(id, model.PaymentSucceeded, 999)

	out, err := f.svc.ResumeRefund(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.True(t, out.Success)
	assert.Equal(t, "booking-refund-"+id.String(), f.refunder.calls[0].IdempotencyKey)
	assert.Equal(t, model.RefundProcessed, f.store.booking(id).RefundStatus)

	out, err = f.svc.ResumeRefund(context.Background(), id)
	require.NoError(t, err)
	assert.Nil(t, out)
	assert.Equal(t, 1, f.refunder.callCount())
}

func TestResumeRefundWithoutPaymentMarksFailed(t *testing.T) {
	f := newFixture(false)
	id := f.addBooking(model.StatusCancelled)
	f.store.bookings[id].RefundStatus = model.RefundPending

	out, err := f.svc.ResumeRefund(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, model.RefundFailed, f.store.booking(id).RefundStatus)
	assert.Zero(t, f.refunder.callCount())
}
