package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/entity"
)

type PaymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) GetByID(ctx context.Context, id int) (*entity.Payment, error) {
	return r.getOne(ctx, `WHERE id = ?`, id)
}

func (r *PaymentRepository) GetByReference(ctx context.Context, referencia string) (*entity.Payment, error) {
	return r.getOne(ctx, `WHERE referencia = ?`, referencia)
}

// GetPendingByOrderProvider returns the in-flight payment for the
// (order, provider) pair, or nil when none exists. The idempotent-create
// rule reuses this row instead of opening a duplicate remote transaction.
func (r *PaymentRepository) GetPendingByOrderProvider(ctx context.Context, orderID int, provider entity.PaymentProvider) (*entity.Payment, error) {
	p, err := r.getOne(ctx, `WHERE order_id = ? AND provider = ? AND estado = ? ORDER BY id DESC LIMIT 1`,
		orderID, provider, entity.PaymentStatusPending)
	if errors.Is(err, ErrPaymentNotFound) {
		return nil, nil
	}
	return p, err
}

// CreatePending opens a payment attempt while holding a lock on the order
// row, so concurrent creators for the same order serialize here. The pending
// re-check runs under that lock; when a row already exists it is returned and
// open is never called. Only the winner invokes open, which performs the
// remote provider call, so at most one remote transaction is opened per
// (order, provider) while a PENDIENTE row exists.
func (r *PaymentRepository) CreatePending(ctx context.Context, orderID int, provider entity.PaymentProvider, open func(ctx context.Context) (*entity.Payment, error)) (*entity.Payment, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	var lockedID int
	err = tx.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = ? FOR UPDATE`, orderID).Scan(&lockedID)
	if err != nil {
		tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	var existingID int
	err = tx.QueryRowContext(ctx, `SELECT id FROM payments WHERE order_id = ? AND provider = ? AND estado = ? ORDER BY id DESC LIMIT 1`,
		orderID, provider, entity.PaymentStatusPending).Scan(&existingID)
	if err == nil {
		tx.Rollback()
		return r.GetByID(ctx, existingID)
	}
	if !errors.Is(err, sql.ErrNoRows) {
		tx.Rollback()
		return nil, err
	}

	p, err := open(ctx)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	payload, err := marshalAudit(p.GatewayPayload)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	query := `INSERT INTO payments (order_id, provider, estado, monto, referencia, redirect_url, gateway_payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, NOW(), NOW())`
	res, err := tx.ExecContext(ctx, query, orderID, provider, entity.PaymentStatusPending, p.Monto, p.Referencia, p.RedirectURL, payload)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, int(id))
}

// ApplyEvent runs the idempotent webhook/reconciliation rule as one
// transaction: the payment row is locked, the monotonicity guard decides the
// next state, the audit ring is appended, and exactly when the state moves
// into CONFIRMADO the linked order flips to PAGADO and the notification is
// queued. The previous-vs-new comparison happens inside the same transaction
// that writes the row, so provider at-least-once retries can never
// double-trigger the downstream effects. Returns the updated payment and
// whether this call performed the confirming transition.
func (r *PaymentRepository) ApplyEvent(ctx context.Context, paymentID int, incoming entity.PaymentStatus, event map[string]any, notif *entity.Notification) (*entity.Payment, bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}

	query := `SELECT id, order_id, provider, estado, monto, referencia, redirect_url, gateway_payload, created_at, updated_at
		FROM payments WHERE id = ? FOR UPDATE`

	p := &entity.Payment{}
	var payload []byte
	err = tx.QueryRowContext(ctx, query, paymentID).Scan(&p.ID, &p.OrderID, &p.Provider, &p.Estado, &p.Monto, &p.Referencia, &p.RedirectURL, &payload, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		tx.Rollback()
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, ErrPaymentNotFound
		}
		return nil, false, err
	}
	p.GatewayPayload = unmarshalAudit(payload)

	prev := p.Estado
	next := entity.NextPaymentState(prev, incoming)
	p.GatewayPayload = entity.AppendAudit(p.GatewayPayload, event)

	merged, err := marshalAudit(p.GatewayPayload)
	if err != nil {
		tx.Rollback()
		return nil, false, err
	}

	_, err = tx.ExecContext(ctx, `UPDATE payments SET estado = ?, gateway_payload = ?, updated_at = NOW() WHERE id = ?`,
		next, merged, paymentID)
	if err != nil {
		tx.Rollback()
		return nil, false, err
	}

	confirmedNow := next == entity.PaymentStatusConfirmed && prev != entity.PaymentStatusConfirmed
	if confirmedNow {
		_, err = tx.ExecContext(ctx, `UPDATE orders SET estado = ?, updated_at = NOW() WHERE id = ?`,
			entity.OrderStatusPaid, p.OrderID)
		if err != nil {
			tx.Rollback()
			return nil, false, err
		}
		if err := insertNotificationTx(ctx, tx, notif); err != nil {
			tx.Rollback()
			return nil, false, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, false, err
	}

	p.Estado = next
	return p, confirmedNow, nil
}

func (r *PaymentRepository) getOne(ctx context.Context, where string, args ...interface{}) (*entity.Payment, error) {
	query := `SELECT id, order_id, provider, estado, monto, referencia, redirect_url, gateway_payload, created_at, updated_at
		FROM payments ` + where

	p := &entity.Payment{}
	var payload []byte
	err := r.db.QueryRowContext(ctx, query, args...).Scan(&p.ID, &p.OrderID, &p.Provider, &p.Estado, &p.Monto, &p.Referencia, &p.RedirectURL, &payload, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	p.GatewayPayload = unmarshalAudit(payload)
	return p, nil
}
