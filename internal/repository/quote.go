package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/entity"
)

type QuoteRepository struct {
	db *sql.DB
}

func NewQuoteRepository(db *sql.DB) *QuoteRepository {
	return &QuoteRepository{db: db}
}

// Create persists the quote with its frozen item snapshots. Two-phase code
// stamp: the row is inserted with a temp code, then the final human code
// COT-%06d is stamped from the store-assigned correlativo inside the same
// transaction. The dedup window is re-checked here with a locking read on the
// fingerprint index range, so two simultaneous identical submissions
// serialize on the gap lock and the loser sees the winner's row.
func (r *QuoteRepository) Create(ctx context.Context, q *entity.Quote, dedupSince time.Time) (*entity.Quote, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	var dupID int
	err = tx.QueryRowContext(ctx, `SELECT id FROM quotes WHERE fingerprint = ? AND created_at >= ? ORDER BY id DESC LIMIT 1 FOR UPDATE`,
		q.Fingerprint, dedupSince).Scan(&dupID)
	if err == nil {
		tx.Rollback()
		return nil, ErrQuoteDuplicate
	}
	if !errors.Is(err, sql.ErrNoRows) {
		tx.Rollback()
		return nil, err
	}

	meta, err := json.Marshal(q.Metadata)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	tempCode := "TMP-" + uuid.NewString()
	insert := `INSERT INTO quotes (codigo, cliente_id, contact_nombre, contact_email, contact_telefono, estado, fingerprint, metadata, subtotal_net, iva, total, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())`
	res, err := tx.ExecContext(ctx, insert, tempCode, q.ClienteID, q.Contact.Nombre, q.Contact.Email, q.Contact.Telefono,
		entity.QuoteStatusNew, q.Fingerprint, meta, q.SubtotalNet, q.IVA, q.Total)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	quoteID, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	codigo := fmt.Sprintf("%s-%06d", entity.QuoteCodePrefix, quoteID)
	_, err = tx.ExecContext(ctx, `UPDATE quotes SET codigo = ? WHERE id = ?`, codigo, quoteID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	itemQuery := `INSERT INTO quote_items (quote_id, product_id, nombre, cantidad, unit_net, subtotal_net, iva_amount, total) VALUES `
	var values []interface{}
	for _, it := range q.Items {
		itemQuery += "(?, ?, ?, ?, ?, ?, ?, ?),"
		values = append(values, quoteID, it.ProductID, it.Nombre, it.Cantidad, it.UnitNet, it.SubtotalNet, it.IVAAmount, it.Total)
	}
	itemQuery = itemQuery[:len(itemQuery)-1]

	_, err = tx.ExecContext(ctx, itemQuery, values...)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, int(quoteID))
}

func (r *QuoteRepository) GetByID(ctx context.Context, id int) (*entity.Quote, error) {
	query := `SELECT id, codigo, cliente_id, contact_nombre, contact_email, contact_telefono, estado, fingerprint, metadata, subtotal_net, iva, total, created_at, updated_at
		FROM quotes WHERE id = ?`

	q := &entity.Quote{}
	var meta []byte
	err := r.db.QueryRowContext(ctx, query, id).Scan(&q.ID, &q.Codigo, &q.ClienteID, &q.Contact.Nombre, &q.Contact.Email, &q.Contact.Telefono,
		&q.Estado, &q.Fingerprint, &meta, &q.SubtotalNet, &q.IVA, &q.Total, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuoteNotFound
		}
		return nil, err
	}
	q.Correlativo = q.ID
	if len(meta) > 0 {
		json.Unmarshal(meta, &q.Metadata)
	}

	itemQuery := `SELECT id, quote_id, product_id, nombre, cantidad, unit_net, subtotal_net, iva_amount, total
		FROM quote_items WHERE quote_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, itemQuery, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it entity.QuoteItem
		if err := rows.Scan(&it.ID, &it.QuoteID, &it.ProductID, &it.Nombre, &it.Cantidad, &it.UnitNet, &it.SubtotalNet, &it.IVAAmount, &it.Total); err != nil {
			return nil, err
		}
		q.Items = append(q.Items, it)
	}
	return q, rows.Err()
}

// FindRecentByFingerprint returns the newest quote with the given
// fingerprint inserted at or after since, or nil when there is none.
func (r *QuoteRepository) FindRecentByFingerprint(ctx context.Context, fingerprint string, since time.Time) (*entity.Quote, error) {
	query := `SELECT id FROM quotes WHERE fingerprint = ? AND created_at >= ? ORDER BY id DESC LIMIT 1`

	var id int
	err := r.db.QueryRowContext(ctx, query, fingerprint, since).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// ConvertToCart atomically carries the quote's frozen snapshots into the
// target cart, moves the quote to EN_REVISION, touches the cart timestamp and
// writes the outbox notification, all in one transaction.
func (r *QuoteRepository) ConvertToCart(ctx context.Context, quote *entity.Quote, cartID int, notif *entity.Notification) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	var cartEstado entity.CartStatus
	err = tx.QueryRowContext(ctx, `SELECT estado FROM carts WHERE id = ? FOR UPDATE`, cartID).Scan(&cartEstado)
	if err != nil {
		tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCartNotFound
		}
		return err
	}
	if cartEstado != entity.CartStatusActive {
		tx.Rollback()
		return ErrCartNotActive
	}

	for _, it := range quote.Items {
		if err := upsertFrozenItemTx(ctx, tx, cartID, it); err != nil {
			tx.Rollback()
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `UPDATE quotes SET estado = ?, updated_at = NOW() WHERE id = ?`, entity.QuoteStatusInReview, quote.ID)
	if err != nil {
		tx.Rollback()
		return err
	}

	_, err = tx.ExecContext(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = ?`, cartID)
	if err != nil {
		tx.Rollback()
		return err
	}

	if err := insertNotificationTx(ctx, tx, notif); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// CountLinkedOrders reports how many orders reference the quote. Payments
// hang off orders, so a zero count means no money has moved.
func (r *QuoteRepository) CountLinkedOrders(ctx context.Context, quoteID int) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE quote_id = ?`, quoteID).Scan(&n)
	return n, err
}

// SoftCancel closes the quote while preserving its audit trail: the
// cancellation metadata is merged into the existing metadata, never
// overwriting it wholesale.
func (r *QuoteRepository) SoftCancel(ctx context.Context, quoteID int, meta map[string]any) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	var raw []byte
	err = tx.QueryRowContext(ctx, `SELECT metadata FROM quotes WHERE id = ? FOR UPDATE`, quoteID).Scan(&raw)
	if err != nil {
		tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return ErrQuoteNotFound
		}
		return err
	}

	existing := map[string]any{}
	if len(raw) > 0 {
		json.Unmarshal(raw, &existing)
	}
	for k, v := range meta {
		existing[k] = v
	}
	merged, err := json.Marshal(existing)
	if err != nil {
		tx.Rollback()
		return err
	}

	_, err = tx.ExecContext(ctx, `UPDATE quotes SET estado = ?, metadata = ?, updated_at = NOW() WHERE id = ?`,
		entity.QuoteStatusClosed, merged, quoteID)
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// HardDelete removes the quote and its items. Only legal when nothing links
// to it; the service layer enforces that precondition.
func (r *QuoteRepository) HardDelete(ctx context.Context, quoteID int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM quote_items WHERE quote_id = ?`, quoteID)
	if err != nil {
		tx.Rollback()
		return err
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM quotes WHERE id = ?`, quoteID)
	if err != nil {
		tx.Rollback()
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		tx.Rollback()
		return ErrQuoteNotFound
	}

	return tx.Commit()
}
