package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/local-services-booking/internal/model"
)

// MessageRepo stores conversation messages between customers and businesses.
type MessageRepo struct {
	db *sql.DB
}

// NewMessageRepo returns a new MessageRepo bound to the given database.
func NewMessageRepo(db *sql.DB) *MessageRepo { return &MessageRepo{db: db} }

// Insert writes a message with a caller chosen id. Duplicate ids are ignored.
func (r *MessageRepo) Insert(ctx context.Context, m *model.Message) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	const q = `INSERT IGNORE INTO messages
	           (id, sender_id, recipient_id, business_id, subject, body, type, is_urgent, is_read, conversation_id, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, q,
		m.ID.String(), m.SenderID.String(), m.RecipientID.String(), m.BusinessID.String(),
		m.Subject, m.Body, m.Type, m.Urgent, m.Read, m.ConversationID.String(), m.CreatedAt.UTC())
	return err
}

// ListByConversation returns the messages of a thread that participant sent
// or received, oldest first.
func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID, participant uuid.UUID) ([]model.Message, error) {
	const q = `SELECT id, sender_id, recipient_id, business_id, subject, body, type, is_urgent, is_read, conversation_id, created_at
	           FROM messages
	           WHERE conversation_id = ? AND (sender_id = ? OR recipient_id = ?)
	           ORDER BY created_at ASC`
	rows, err := r.db.QueryContext(ctx, q, conversationID.String(), participant.String(), participant.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Message, 0)
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.BusinessID, &m.Subject, &m.Body,
			&m.Type, &m.Urgent, &m.Read, &m.ConversationID, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
