// Package repository implements the persistence store over MySQL. Multi-step
// mutations run inside repository-owned transactions so partial application
// is impossible; callers never see a half-applied state change.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/entity"
)

var (
	ErrClientNotFound  = errors.New("client not found")
	ErrProductNotFound = errors.New("product not found")
	ErrCartNotFound    = errors.New("cart not found")
	ErrCartNotActive   = errors.New("cart is not active")
	ErrQuoteNotFound   = errors.New("quote not found")
	ErrQuoteDuplicate  = errors.New("duplicate quote within dedup window")
	ErrOrderNotFound   = errors.New("order not found")
	ErrPaymentNotFound = errors.New("payment not found")
)

// insertNotificationTx writes an outbox row inside an ongoing transaction.
// The notification sink is callable both in-transaction (here) and
// standalone (OutboxRepository.Insert).
func insertNotificationTx(ctx context.Context, tx *sql.Tx, n *entity.Notification) error {
	if n == nil {
		return nil
	}
	query := `INSERT INTO outbox_notifications (type, ref_table, ref_id, title, detail, status, attempts, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, NOW())`
	_, err := tx.ExecContext(ctx, query, n.Type, n.RefTable, n.RefID, n.Title, n.Detail, entity.NotificationPending)
	if err != nil {
		return fmt.Errorf("insert outbox notification: %w", err)
	}
	return nil
}

func marshalAudit(ring []map[string]any) ([]byte, error) {
	if ring == nil {
		ring = []map[string]any{}
	}
	return json.Marshal(ring)
}

func unmarshalAudit(raw []byte) []map[string]any {
	if len(raw) == 0 {
		return nil
	}
	var ring []map[string]any
	if err := json.Unmarshal(raw, &ring); err != nil {
		return nil
	}
	return ring
}
