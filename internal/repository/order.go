package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/entity"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create commits the order in one transaction: insert with a temp code,
// stamp ECP-%06d from the assigned correlativo, batch-insert the frozen item
// snapshots, register the resolved despacho as the client's new primary
// address, flip the source cart to CONVERTIDO when promoting one, and write
// the outbox notification. Totals were computed by the caller and are never
// recomputed afterward.
func (r *OrderRepository) Create(ctx context.Context, o *entity.Order, fromCartID *int, notif *entity.Notification) (*entity.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	if fromCartID != nil {
		res, err := tx.ExecContext(ctx, `UPDATE carts SET estado = ?, updated_at = NOW() WHERE id = ? AND estado = ?`,
			entity.CartStatusConverted, *fromCartID, entity.CartStatusActive)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			tx.Rollback()
			return nil, ErrCartNotActive
		}
	}

	tempCode := "TMP-" + uuid.NewString()
	insert := `INSERT INTO orders (codigo, cliente_id, quote_id, estado, despacho_nombre, despacho_telefono, despacho_email, despacho_direccion, despacho_comuna, despacho_region, despacho_notas, subtotal_net, iva, total, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())`
	res, err := tx.ExecContext(ctx, insert, tempCode, o.ClienteID, o.QuoteID, entity.OrderStatusCreated,
		o.Despacho.Nombre, o.Despacho.Telefono, o.Despacho.Email, o.Despacho.Direccion, o.Despacho.Comuna, o.Despacho.Region, o.Despacho.Notas,
		o.SubtotalNet, o.IVA, o.Total)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	orderID, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	codigo := fmt.Sprintf("%s-%06d", entity.OrderCodePrefix, orderID)
	_, err = tx.ExecContext(ctx, `UPDATE orders SET codigo = ? WHERE id = ?`, codigo, orderID)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	itemQuery := `INSERT INTO order_items (order_id, product_id, nombre, cantidad, unit_net, subtotal_net, iva_amount, total) VALUES `
	var values []interface{}
	for _, it := range o.Items {
		itemQuery += "(?, ?, ?, ?, ?, ?, ?, ?),"
		values = append(values, orderID, it.ProductID, it.Nombre, it.Cantidad, it.UnitNet, it.SubtotalNet, it.IVAAmount, it.Total)
	}
	itemQuery = itemQuery[:len(itemQuery)-1]

	_, err = tx.ExecContext(ctx, itemQuery, values...)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if o.ClienteID != nil {
		_, err = tx.ExecContext(ctx, `UPDATE client_addresses SET is_primary = 0 WHERE client_id = ?`, *o.ClienteID)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		addr := `INSERT INTO client_addresses (client_id, nombre, telefono, email, direccion, comuna, region, notas, is_primary)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, 1)`
		_, err = tx.ExecContext(ctx, addr, *o.ClienteID, o.Despacho.Nombre, o.Despacho.Telefono, o.Despacho.Email,
			o.Despacho.Direccion, o.Despacho.Comuna, o.Despacho.Region, o.Despacho.Notas)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
	}

	if notif != nil {
		notif.RefID = int(orderID)
		notif.Detail = fmt.Sprintf("%s %s", notif.Detail, codigo)
	}
	if err := insertNotificationTx(ctx, tx, notif); err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return r.GetByID(ctx, int(orderID))
}

func (r *OrderRepository) GetByID(ctx context.Context, id int) (*entity.Order, error) {
	query := `SELECT id, codigo, cliente_id, quote_id, estado, despacho_nombre, despacho_telefono, despacho_email, despacho_direccion, despacho_comuna, despacho_region, despacho_notas, subtotal_net, iva, total, created_at, updated_at
		FROM orders WHERE id = ?`

	o := &entity.Order{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&o.ID, &o.Codigo, &o.ClienteID, &o.QuoteID, &o.Estado,
		&o.Despacho.Nombre, &o.Despacho.Telefono, &o.Despacho.Email, &o.Despacho.Direccion, &o.Despacho.Comuna, &o.Despacho.Region, &o.Despacho.Notas,
		&o.SubtotalNet, &o.IVA, &o.Total, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	o.Correlativo = o.ID

	itemQuery := `SELECT id, order_id, product_id, nombre, cantidad, unit_net, subtotal_net, iva_amount, total
		FROM order_items WHERE order_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, itemQuery, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it entity.OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Nombre, &it.Cantidad, &it.UnitNet, &it.SubtotalNet, &it.IVAAmount, &it.Total); err != nil {
			return nil, err
		}
		o.Items = append(o.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	payQuery := `SELECT id, order_id, provider, estado, monto, referencia, redirect_url, gateway_payload, created_at, updated_at
		FROM payments WHERE order_id = ? ORDER BY id`
	payRows, err := r.db.QueryContext(ctx, payQuery, id)
	if err != nil {
		return nil, err
	}
	defer payRows.Close()

	for payRows.Next() {
		var p entity.Payment
		var payload []byte
		if err := payRows.Scan(&p.ID, &p.OrderID, &p.Provider, &p.Estado, &p.Monto, &p.Referencia, &p.RedirectURL, &payload, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.GatewayPayload = unmarshalAudit(payload)
		o.Payments = append(o.Payments, p)
	}
	return o, payRows.Err()
}
