package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/entity"
)

type ClientRepository struct {
	db *sql.DB
}

func NewClientRepository(db *sql.DB) *ClientRepository {
	return &ClientRepository{db: db}
}

func (r *ClientRepository) GetByID(ctx context.Context, id int) (*entity.Client, error) {
	query := `SELECT id, nombre, email, telefono FROM clients WHERE id = ?`

	c := &entity.Client{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.Nombre, &c.Email, &c.Telefono)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}
	return c, nil
}

// GetPrimaryAddress returns the client's current primary shipping address,
// or nil when none is registered.
func (r *ClientRepository) GetPrimaryAddress(ctx context.Context, clientID int) (*entity.Despacho, error) {
	query := `SELECT nombre, telefono, email, direccion, comuna, region, notas
		FROM client_addresses WHERE client_id = ? AND is_primary = 1 LIMIT 1`

	d := &entity.Despacho{}
	err := r.db.QueryRowContext(ctx, query, clientID).Scan(&d.Nombre, &d.Telefono, &d.Email, &d.Direccion, &d.Comuna, &d.Region, &d.Notas)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return d, nil
}
