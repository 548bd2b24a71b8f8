// Package migrations creates the schema on startup.
package migrations

import (
	"database/sql"
	"fmt"
)

var tables = []string{
	`CREATE TABLE IF NOT EXISTS clients (
		id INT AUTO_INCREMENT PRIMARY KEY,
		nombre VARCHAR(140) NOT NULL,
		email VARCHAR(140) NOT NULL,
		telefono VARCHAR(50) NOT NULL DEFAULT ''
	);`,
	`CREATE TABLE IF NOT EXISTS client_addresses (
		id INT AUTO_INCREMENT PRIMARY KEY,
		client_id INT NOT NULL,
		nombre VARCHAR(140) NOT NULL,
		telefono VARCHAR(50) NOT NULL,
		email VARCHAR(140) NOT NULL,
		direccion VARCHAR(255) NOT NULL,
		comuna VARCHAR(80) NOT NULL,
		region VARCHAR(80) NOT NULL,
		notas TEXT,
		is_primary TINYINT NOT NULL DEFAULT 0,
		INDEX idx_addresses_client (client_id, is_primary),
		FOREIGN KEY (client_id) REFERENCES clients(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS products (
		id INT AUTO_INCREMENT PRIMARY KEY,
		sku VARCHAR(120) NOT NULL,
		nombre VARCHAR(180) NOT NULL,
		list_price BIGINT NOT NULL,
		discounted_price BIGINT NOT NULL DEFAULT 0,
		stock INT NOT NULL DEFAULT 0
	);`,
	`CREATE TABLE IF NOT EXISTS carts (
		id INT AUTO_INCREMENT PRIMARY KEY,
		cliente_id INT NULL,
		estado VARCHAR(20) NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		INDEX idx_carts_cliente (cliente_id, estado)
	);`,
	`CREATE TABLE IF NOT EXISTS cart_items (
		id INT AUTO_INCREMENT PRIMARY KEY,
		cart_id INT NOT NULL,
		product_id INT NOT NULL,
		nombre VARCHAR(180) NOT NULL,
		cantidad INT NOT NULL,
		unit_net BIGINT NOT NULL,
		subtotal_net BIGINT NOT NULL,
		iva_amount BIGINT NOT NULL,
		total BIGINT NOT NULL,
		UNIQUE KEY uq_cart_product (cart_id, product_id),
		FOREIGN KEY (cart_id) REFERENCES carts(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS quotes (
		id INT AUTO_INCREMENT PRIMARY KEY,
		codigo VARCHAR(60) NOT NULL,
		cliente_id INT NULL,
		contact_nombre VARCHAR(140) NOT NULL,
		contact_email VARCHAR(140) NOT NULL,
		contact_telefono VARCHAR(50) NOT NULL DEFAULT '',
		estado VARCHAR(20) NOT NULL,
		fingerprint CHAR(64) NOT NULL,
		metadata JSON,
		subtotal_net BIGINT NOT NULL,
		iva BIGINT NOT NULL,
		total BIGINT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		INDEX idx_quotes_fingerprint (fingerprint, created_at)
	);`,
	`CREATE TABLE IF NOT EXISTS quote_items (
		id INT AUTO_INCREMENT PRIMARY KEY,
		quote_id INT NOT NULL,
		product_id INT NOT NULL,
		nombre VARCHAR(180) NOT NULL,
		cantidad INT NOT NULL,
		unit_net BIGINT NOT NULL,
		subtotal_net BIGINT NOT NULL,
		iva_amount BIGINT NOT NULL,
		total BIGINT NOT NULL,
		FOREIGN KEY (quote_id) REFERENCES quotes(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS orders (
		id INT AUTO_INCREMENT PRIMARY KEY,
		codigo VARCHAR(60) NOT NULL,
		cliente_id INT NULL,
		quote_id INT NULL,
		estado VARCHAR(20) NOT NULL,
		despacho_nombre VARCHAR(140) NOT NULL,
		despacho_telefono VARCHAR(50) NOT NULL,
		despacho_email VARCHAR(140) NOT NULL,
		despacho_direccion VARCHAR(255) NOT NULL,
		despacho_comuna VARCHAR(80) NOT NULL,
		despacho_region VARCHAR(80) NOT NULL,
		despacho_notas TEXT,
		subtotal_net BIGINT NOT NULL,
		iva BIGINT NOT NULL,
		total BIGINT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		INDEX idx_orders_quote (quote_id)
	);`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id INT AUTO_INCREMENT PRIMARY KEY,
		order_id INT NOT NULL,
		product_id INT NOT NULL,
		nombre VARCHAR(180) NOT NULL,
		cantidad INT NOT NULL,
		unit_net BIGINT NOT NULL,
		subtotal_net BIGINT NOT NULL,
		iva_amount BIGINT NOT NULL,
		total BIGINT NOT NULL,
		FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE
	);`,
	`CREATE TABLE IF NOT EXISTS payments (
		id INT AUTO_INCREMENT PRIMARY KEY,
		order_id INT NOT NULL,
		provider VARCHAR(20) NOT NULL,
		estado VARCHAR(20) NOT NULL,
		monto BIGINT NOT NULL,
		referencia VARCHAR(140) NOT NULL,
		redirect_url VARCHAR(500) NOT NULL DEFAULT '',
		gateway_payload JSON,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		INDEX idx_payments_order_provider (order_id, provider, estado),
		INDEX idx_payments_referencia (referencia),
		FOREIGN KEY (order_id) REFERENCES orders(id)
	);`,
	`CREATE TABLE IF NOT EXISTS outbox_notifications (
		id INT AUTO_INCREMENT PRIMARY KEY,
		type VARCHAR(40) NOT NULL,
		ref_table VARCHAR(40) NOT NULL,
		ref_id INT NOT NULL,
		title VARCHAR(180) NOT NULL,
		detail TEXT,
		status VARCHAR(20) NOT NULL,
		attempts INT NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		sent_at DATETIME NULL,
		INDEX idx_outbox_status (status, id)
	);`,
}

// Run creates every table in dependency order.
func Run(db *sql.DB) error {
	for _, ddl := range tables {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
