package repository

import (
	"context"
	"database/sql"

	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/entity"
)

// OutboxRepository manages durable notification rows. Rows are written
// in-transaction by the other repositories; the dispatcher drains them here.
type OutboxRepository struct {
	db *sql.DB
}

func NewOutboxRepository(db *sql.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Insert writes a standalone notification outside any ongoing transaction.
func (r *OutboxRepository) Insert(ctx context.Context, n *entity.Notification) error {
	query := `INSERT INTO outbox_notifications (type, ref_table, ref_id, title, detail, status, attempts, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, NOW())`
	_, err := r.db.ExecContext(ctx, query, n.Type, n.RefTable, n.RefID, n.Title, n.Detail, entity.NotificationPending)
	return err
}

// FetchPending returns up to limit undelivered notifications, oldest first.
// Failed rows are retried too: delivery is at least once.
func (r *OutboxRepository) FetchPending(ctx context.Context, limit int) ([]entity.Notification, error) {
	query := `SELECT id, type, ref_table, ref_id, title, detail, status, attempts, created_at, sent_at
		FROM outbox_notifications WHERE status IN (?, ?) ORDER BY id LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, entity.NotificationPending, entity.NotificationFailed, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []entity.Notification
	for rows.Next() {
		var n entity.Notification
		var sentAt sql.NullTime
		if err := rows.Scan(&n.ID, &n.Type, &n.RefTable, &n.RefID, &n.Title, &n.Detail, &n.Status, &n.Attempts, &n.CreatedAt, &sentAt); err != nil {
			return nil, err
		}
		if sentAt.Valid {
			n.SentAt = &sentAt.Time
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *OutboxRepository) MarkSent(ctx context.Context, id int) error {
	query := `UPDATE outbox_notifications SET status = ?, sent_at = NOW(), attempts = attempts + 1 WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, entity.NotificationSent, id)
	return err
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id int) error {
	query := `UPDATE outbox_notifications SET status = ?, attempts = attempts + 1 WHERE id = ?`
	_, err := r.db.ExecContext(ctx, query, entity.NotificationFailed, id)
	return err
}
