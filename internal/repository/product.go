package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/entity"
)

// ProductRepository is the catalog lookup boundary. Read-only: products are
// an external snapshot source, never mutated here.
type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) FindByID(ctx context.Context, id int) (*entity.Product, error) {
	query := `SELECT id, sku, nombre, list_price, discounted_price, stock FROM products WHERE id = ?`

	p := &entity.Product{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.SKU, &p.Nombre, &p.ListPrice, &p.DiscountedPrice, &p.Stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return p, nil
}

// FindManyByIDs returns the products that exist, keyed by id. Missing ids are
// simply absent from the map; callers decide whether absence is an error.
func (r *ProductRepository) FindManyByIDs(ctx context.Context, ids []int) (map[int]entity.Product, error) {
	if len(ids) == 0 {
		return map[int]entity.Product{}, nil
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	query := `SELECT id, sku, nombre, list_price, discounted_price, stock FROM products WHERE id IN (` + placeholders + `)`

	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := make(map[int]entity.Product, len(ids))
	for rows.Next() {
		var p entity.Product
		if err := rows.Scan(&p.ID, &p.SKU, &p.Nombre, &p.ListPrice, &p.DiscountedPrice, &p.Stock); err != nil {
			return nil, err
		}
		found[p.ID] = p
	}
	return found, rows.Err()
}
