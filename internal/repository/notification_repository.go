package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/local-services-booking/internal/model"
)

// NotificationRepo stores user notifications.
type NotificationRepo struct {
	db *sql.DB
}

// NewNotificationRepo returns a new NotificationRepo bound to the given database.
func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

// Insert writes a notification. The id is chosen by the caller; inserting
// the same id twice is a no-op so replays never duplicate alerts.
func (r *NotificationRepo) Insert(ctx context.Context, n *model.Notification) error {
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	const q = `INSERT IGNORE INTO notifications (id, user_id, type, title, message, is_read, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		n.ID.String(), n.UserID.String(), n.Type, n.Title, n.Message, n.Read, n.CreatedAt.UTC())
	return err
}

// ListByUser returns the newest notifications of a user.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit int) ([]model.Notification, error) {
	q := `SELECT id, user_id, type, title, message, is_read, created_at FROM notifications WHERE user_id = ?`
	if unreadOnly {
		q += ` AND is_read = FALSE`
	}
	q += ` ORDER BY created_at DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, userID.String(), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Notification, 0)
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead flags a notification owned by userID as read.
// ErrNotificationNotFound is returned when no such row exists.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	const q = `UPDATE notifications SET is_read = TRUE WHERE id = ? AND user_id = ?`
	res, err := r.db.ExecContext(ctx, q, id.String(), userID.String())
	if err != nil {
		return err
	}
	// clientFoundRows=true in the DSN makes this count matched rows
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
