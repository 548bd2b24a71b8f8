package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/entity"
)

type CartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) *CartRepository {
	return &CartRepository{db: db}
}

func (r *CartRepository) GetByID(ctx context.Context, id int) (*entity.Cart, error) {
	query := `SELECT id, cliente_id, estado, created_at, updated_at FROM carts WHERE id = ?`

	c := &entity.Cart{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.ClienteID, &c.Estado, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartNotFound
		}
		return nil, err
	}

	items, err := r.loadItems(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Items = items
	return c, nil
}

// GetActiveByClient returns the client's single ACTIVO cart, or nil when the
// client has none.
func (r *CartRepository) GetActiveByClient(ctx context.Context, clienteID int) (*entity.Cart, error) {
	query := `SELECT id FROM carts WHERE cliente_id = ? AND estado = ? ORDER BY id DESC LIMIT 1`

	var id int
	err := r.db.QueryRowContext(ctx, query, clienteID, entity.CartStatusActive).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *CartRepository) Create(ctx context.Context, clienteID *int) (*entity.Cart, error) {
	query := `INSERT INTO carts (cliente_id, estado, created_at, updated_at) VALUES (?, ?, NOW(), NOW())`

	res, err := r.db.ExecContext(ctx, query, clienteID, entity.CartStatusActive)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, int(id))
}

// MergeItem applies one add/set mutation as a single atomic unit: the cart
// row and any existing line are locked, the final quantity is computed, the
// price callback reprices the line at that quantity, and the result is
// upserted. Concurrent same-product adds serialize on the row locks instead
// of losing updates.
func (r *CartRepository) MergeItem(ctx context.Context, cartID, productID, qty int, replace bool, price func(totalQty int) (entity.CartItem, error)) error {
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

	var existingQty int
	err = tx.QueryRowContext(ctx, `SELECT cantidad FROM cart_items WHERE cart_id = ? AND product_id = ? FOR UPDATE`, cartID, productID).Scan(&existingQty)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		tx.Rollback()
		return err
	}

	totalQty := qty
	if !replace {
		totalQty += existingQty
	}

	item, err := price(totalQty)
	if err != nil {
		tx.Rollback()
		return err
	}

	upsert := `INSERT INTO cart_items (cart_id, product_id, nombre, cantidad, unit_net, subtotal_net, iva_amount, total)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			nombre = VALUES(nombre),
			cantidad = VALUES(cantidad),
			unit_net = VALUES(unit_net),
			subtotal_net = VALUES(subtotal_net),
			iva_amount = VALUES(iva_amount),
			total = VALUES(total)`
	_, err = tx.ExecContext(ctx, upsert, cartID, productID, item.Nombre, item.Cantidad, item.UnitNet, item.SubtotalNet, item.IVAAmount, item.Total)
	if err != nil {
		tx.Rollback()
		return err
	}

	_, err = tx.ExecContext(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = ?`, cartID)
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// upsertFrozenItemTx writes a frozen quote snapshot line into the cart inside
// an ongoing transaction. Intentionally no repricing: the frozen values
// propagate verbatim, overwriting any live line for the same product.
func upsertFrozenItemTx(ctx context.Context, tx *sql.Tx, cartID int, it entity.QuoteItem) error {
	upsert := `INSERT INTO cart_items (cart_id, product_id, nombre, cantidad, unit_net, subtotal_net, iva_amount, total)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			nombre = VALUES(nombre),
			cantidad = VALUES(cantidad),
			unit_net = VALUES(unit_net),
			subtotal_net = VALUES(subtotal_net),
			iva_amount = VALUES(iva_amount),
			total = VALUES(total)`
	_, err := tx.ExecContext(ctx, upsert, cartID, it.ProductID, it.Nombre, it.Cantidad, it.UnitNet, it.SubtotalNet, it.IVAAmount, it.Total)
	return err
}

func (r *CartRepository) RemoveItem(ctx context.Context, cartID, productID int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := lockCartTx(ctx, tx, cartID); err != nil {
		tx.Rollback()
		return err
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = ? AND product_id = ?`, cartID, productID)
	if err != nil {
		tx.Rollback()
		return err
	}

	_, err = tx.ExecContext(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = ?`, cartID)
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

func (r *CartRepository) Clear(ctx context.Context, cartID int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := lockCartTx(ctx, tx, cartID); err != nil {
		tx.Rollback()
		return err
	}

	_, err = tx.ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = ?`, cartID)
	if err != nil {
		tx.Rollback()
		return err
	}

	_, err = tx.ExecContext(ctx, `UPDATE carts SET updated_at = NOW() WHERE id = ?`, cartID)
	if err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// lockCartTx is the existence check for cart mutations. The affected-rows
// count of the timestamp touch cannot serve that purpose: the driver reports
// changed rows, and NOW() at DATETIME resolution does not change within the
// same second.
func lockCartTx(ctx context.Context, tx *sql.Tx, cartID int) error {
	var id int
	err := tx.QueryRowContext(ctx, `SELECT id FROM carts WHERE id = ? FOR UPDATE`, cartID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrCartNotFound
	}
	return err
}

func (r *CartRepository) loadItems(ctx context.Context, cartID int) ([]entity.CartItem, error) {
	query := `SELECT id, cart_id, product_id, nombre, cantidad, unit_net, subtotal_net, iva_amount, total
		FROM cart_items WHERE cart_id = ? ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []entity.CartItem
	for rows.Next() {
		var it entity.CartItem
		if err := rows.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Nombre, &it.Cantidad, &it.UnitNet, &it.SubtotalNet, &it.IVAAmount, &it.Total); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}
