package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/local-services-booking/internal/model"
)

var outboxCols = []string{"id", "aggregate_id", "kind", "payload", "status", "attempts", "last_error", "created_at", "dispatched_at", "completed_at"}

func TestOutboxListDue(t *testing.T) {
	db, mock := newMock(t)
	cutoff := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	id := uuid.New()

	mock.ExpectQuery(regexp.QuoteMeta("WHERE status = 'pending' AND created_at < ? AND (dispatched_at IS NULL OR dispatched_at < ?)")).
		WithArgs(cutoff, cutoff, 50).
		WillReturnRows(sqlmock.NewRows(outboxCols).
			AddRow(id.String(), uuid.NewString(), model.OutboxKindStatusChanged, []byte(`{"status":"accepted"}`),
				"pending", 2, "notify: timeout", cutoff.Add(-time.Hour), cutoff.Add(-time.Minute), nil))

	out, err := NewOutboxRepo(db).ListDue(context.Background(), cutoff, 50)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, id, out[0].ID)
	assert.Equal(t, 2, out[0].Attempts)
	require.NotNil(t, out[0].LastError)
	assert.Equal(t, "notify: timeout", *out[0].LastError)
	assert.NotNil(t, out[0].DispatchedAt)
	assert.Nil(t, out[0].CompletedAt)
	assert.JSONEq(t, `{"status":"accepted"}`, string(out[0].Payload))
}

func TestOutboxGetByIDNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("FROM outbox_events WHERE id = ?").WillReturnRows(sqlmock.NewRows(outboxCols))

	_, err := NewOutboxRepo(db).GetByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrOutboxEventNotFound)
}

func TestOutboxStateUpdates(t *testing.T) {
	db, mock := newMock(t)
	repo := NewOutboxRepo(db)
	id := uuid.New()
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("SET attempts = attempts + 1")).WithArgs(id.String()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET last_error = ?")).WithArgs("boom", id.String()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'completed'")).WithArgs(id.String()).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("SET status = 'dead'")).WithArgs(id.String()).WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.MarkDispatched(ctx, id))
	require.NoError(t, repo.MarkFailed(ctx, id, "boom"))
	require.NoError(t, repo.MarkCompleted(ctx, id))
	require.NoError(t, repo.MarkDead(ctx, id))
	assert.NoError(t, mock.ExpectationsWereMet())
}
