package entity

import "time"

type CartStatus string

const (
	CartStatusActive    CartStatus = "ACTIVO"
	CartStatusConverted CartStatus = "CONVERTIDO"
)

// CartItem is a live basket line. Its price fields are recomputed from the
// current catalog price on every mutation, never trusted from storage.
type CartItem struct {
	ID          int    `json:"id"`
	CartID      int    `json:"cart_id"`
	ProductID   int    `json:"product_id"`
	Nombre      string `json:"nombre"`
	Cantidad    int    `json:"cantidad"`
	UnitNet     int64  `json:"unit_net"`
	SubtotalNet int64  `json:"subtotal_net"`
	IVAAmount   int64  `json:"iva_amount"`
	Total       int64  `json:"total"`
}

type Cart struct {
	ID        int        `json:"id"`
	ClienteID *int       `json:"cliente_id,omitempty"`
	Estado    CartStatus `json:"estado"`
	Items     []CartItem `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartTotals are always derived from the live items, never stored.
type CartTotals struct {
	SubtotalNet int64 `json:"subtotal_net"`
	IVA         int64 `json:"iva"`
	Total       int64 `json:"total"`
}

// Totals sums the already-rounded line amounts.
func (c *Cart) Totals() CartTotals {
	var t CartTotals
	for _, it := range c.Items {
		t.SubtotalNet += it.SubtotalNet
		t.IVA += it.IVAAmount
		t.Total += it.Total
	}
	return t
}
