package booking

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/local-services-booking/internal/model"
	"github.com/iliyamo/local-services-booking/internal/payment"
	"github.com/iliyamo/local-services-booking/internal/repository"
)

var errBoom = errors.New("boom")

type store struct {
	mu            sync.Mutex
	bookings      map[uuid.UUID]*model.BookingRequest
	payments      map[uuid.UUID]*model.Payment
	businesses    map[uuid.UUID]*model.Business
	accounts      map[uuid.UUID]*model.BusinessStripeAccount
	notifications map[uuid.UUID]model.Notification
	messages      map[uuid.UUID]model.Message
	outbox        map[uuid.UUID]*model.OutboxEvent

	failCommit        error
	failResponse      error
	failNotifications error
	failMessages      error
	failRefundStatus  map[model.RefundStatus]error
}

func newStore() *store {
	return &store{
		bookings:         map[uuid.UUID]*model.BookingRequest{},
		payments:         map[uuid.UUID]*model.Payment{},
		businesses:       map[uuid.UUID]*model.Business{},
		accounts:         map[uuid.UUID]*model.BusinessStripeAccount{},
		notifications:    map[uuid.UUID]model.Notification{},
		messages:         map[uuid.UUID]model.Message{},
		outbox:           map[uuid.UUID]*model.OutboxEvent{},
		failRefundStatus: map[model.RefundStatus]error{},
	}
}

func (s *store) GetByID(_ context.Context, id uuid.UUID) (*model.BookingRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, repository.ErrBookingNotFound
	}
	cp := *b
	return &cp, nil
}

func (s *store) CommitTransition(_ context.Context, ch model.StatusChange, ev *model.OutboxEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failCommit != nil {
		return s.failCommit
	}
	b := s.bookings[ch.BookingID]
	b.Status = ch.Status
	if ch.Status == model.StatusCancelled {
		b.CancelledBy = ch.CancelledBy
		b.CancellationReason = ch.CancellationReason
		b.CancelledAt = ch.CancelledAt
	}
	cp := *ev
	s.outbox[ev.ID] = &cp
	return nil
}

func (s *store) SetResponseMessage(_ context.Context, id uuid.UUID, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failResponse != nil {
		return s.failResponse
	}
	s.bookings[id].ResponseMessage = &msg
	return nil
}

func (s *store) SetRefundStatus(_ context.Context, id uuid.UUID, status model.RefundStatus, refundID *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failRefundStatus[status]; err != nil {
		return err
	}
	b := s.bookings[id]
	b.RefundStatus = status
	if refundID != nil {
		v := *refundID
		b.RefundID = &v
	}
	return nil
}

func (s *store) booking(id uuid.UUID) model.BookingRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.bookings[id]
}

func (s *store) notificationsFor(user uuid.UUID) []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Notification
	for _, n := range s.notifications {
		if n.UserID == user {
			out = append(out, n)
		}
	}
	return out
}

func (s *store) messageList() []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Message
	for _, m := range s.messages {
		out = append(out, m)
	}
	return out
}

type paymentStore struct{ s *store }

func (p paymentStore) GetByBookingID(_ context.Context, bookingID uuid.UUID) (*model.Payment, error) {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	pay, ok := p.s.payments[bookingID]
	if !ok {
		return nil, repository.ErrPaymentNotFound
	}
	cp := *pay
	return &cp, nil
}

func (p paymentStore) MarkRefunded(_ context.Context, paymentID uuid.UUID) error {
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	for _, pay := range p.s.payments {
		if pay.ID == paymentID {
			pay.Status = model.PaymentRefunded
		}
	}
	return nil
}

type businessStore struct{ s *store }

func (b businessStore) GetByID(_ context.Context, id uuid.UUID) (*model.Business, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	biz, ok := b.s.businesses[id]
	if !ok {
		return nil, repository.ErrBusinessNotFound
	}
	cp := *biz
	return &cp, nil
}

func (b businessStore) GetStripeAccount(_ context.Context, id uuid.UUID) (*model.BusinessStripeAccount, error) {
	b.s.mu.Lock()
	defer b.s.mu.Unlock()
	a, ok := b.s.accounts[id]
	if !ok {
		return nil, repository.ErrStripeAccountNotFound
	}
	cp := *a
	return &cp, nil
}

type notificationStore struct{ s *store }

func (n notificationStore) Insert(_ context.Context, notif *model.Notification) error {
	n.s.mu.Lock()
	defer n.s.mu.Unlock()
	if n.s.failNotifications != nil {
		return n.s.failNotifications
	}
	if _, dup := n.s.notifications[notif.ID]; !dup {
		n.s.notifications[notif.ID] = *notif
	}
	return nil
}

type messageStore struct{ s *store }

func (m messageStore) Insert(_ context.Context, msg *model.Message) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if m.s.failMessages != nil {
		return m.s.failMessages
	}
	if _, dup := m.s.messages[msg.ID]; !dup {
		m.s.messages[msg.ID] = *msg
	}
	return nil
}

type outboxStore struct{ s *store }

func (o outboxStore) MarkCompleted(_ context.Context, id uuid.UUID) error {
	o.s.mu.Lock()
	defer o.s.mu.Unlock()
	if ev, ok := o.s.outbox[id]; ok {
		ev.Status = model.OutboxCompleted
	}
	return nil
}

type memLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	acquired []string
}

func (l *memLocker) Acquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	l.acquired = append(l.acquired, key)
	return true, nil
}

func (l *memLocker) Release(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}

func (l *memLocker) isHeld(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[key]
}

type fakeRefunder struct {
	mu     sync.Mutex
	calls  []payment.RefundRequest
	err    error
	seen   map[string]string
	during func(req payment.RefundRequest)
}

func (f *fakeRefunder) Refund(_ context.Context, req payment.RefundRequest) (*payment.RefundResult, error) {
	if f.during != nil {
		f.during(req)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	if f.seen == nil {
		f.seen = map[string]string{}
	}
	id, ok := f.seen[req.IdempotencyKey]
	if !ok {
		id = "re_" + req.BookingID[:8]
		f.seen[req.IdempotencyKey] = id
	}
	return &payment.RefundResult{RefundID: id, Status: "succeeded"}, nil
}

func (f *fakeRefunder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fixture struct {
	store    *store
	refunder *fakeRefunder
	locker   *memLocker
	svc      *Service

	customer uuid.UUID
	owner    uuid.UUID
	business uuid.UUID
}

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newFixture(strict bool) *fixture {
	st := newStore()
	f := &fixture{
		store:    st,
		refunder: &fakeRefunder{},
		locker:   &memLocker{},
		customer: uuid.New(),
		owner:    uuid.New(),
		business: uuid.New(),
	}
	st.businesses[f.business] = &model.Business{ID: f.business, OwnerID: f.owner, Name: "Shine Cleaners"}
	f.svc = NewService(Deps{
		Bookings:          st,
		Payments:          paymentStore{st},
		Businesses:        businessStore{st},
		Notifications:     notificationStore{st},
		Messages:          messageStore{st},
		Outbox:            outboxStore{st},
		Refunder:          f.refunder,
		Locker:            f.locker,
		StrictTransitions: strict,
		Now:               func() time.Time { return fixedNow },
	})
	return f
}

func (f *fixture) addBooking(status model.BookingStatus) uuid.UUID {
	id := uuid.New()
	f.store.bookings[id] = &model.BookingRequest{
		ID:             id,
		CustomerID:     f.customer,
		BusinessID:     f.business,
		ServiceID:      uuid.New(),
		ServiceName:    "Deep Clean",
		TotalCostCents: 4500,
		Status:         status,
		RefundStatus:   model.RefundNone,
	}
	return id
}

func (f *fixture) addPayment(bookingID uuid.UUID, status model.PaymentStatus, pence int64) {
	f.store.payments[bookingID] = &model.Payment{
		ID:           uuid.New(),
		BookingID:    bookingID,
		ProcessorRef: "ch_" + bookingID.String()[:8],
		AmountCents:  pence,
		Currency:     "gbp",
		Status:       status,
	}
}

func (f *fixture) onlyOutbox() *model.OutboxEvent {
	f.store.mu.Lock()
	defer f.store.mu.Unlock()
	for _, ev := range f.store.outbox {
		return ev
	}
	return nil
}
