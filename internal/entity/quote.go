package entity

import "time"

type QuoteStatus string

const (
	QuoteStatusNew      QuoteStatus = "NUEVA"
	QuoteStatusInReview QuoteStatus = "EN_REVISION"
	QuoteStatusClosed   QuoteStatus = "CERRADA"
)

// QuoteCodePrefix builds the human code COT-000123 from the correlativo.
const QuoteCodePrefix = "COT"

type QuoteContact struct {
	Nombre   string `json:"nombre"`
	Email    string `json:"email"`
	Telefono string `json:"telefono"`
}

// QuoteItem carries the price snapshot frozen at quote creation. Conversion
// to a cart propagates these values untouched.
type QuoteItem struct {
	ID          int    `json:"id"`
	QuoteID     int    `json:"quote_id"`
	ProductID   int    `json:"product_id"`
	Nombre      string `json:"nombre"`
	Cantidad    int    `json:"cantidad"`
	UnitNet     int64  `json:"unit_net"`
	SubtotalNet int64  `json:"subtotal_net"`
	IVAAmount   int64  `json:"iva_amount"`
	Total       int64  `json:"total"`
}

type Quote struct {
	ID          int            `json:"id"`
	Correlativo int            `json:"correlativo"`
	Codigo      string         `json:"codigo"`
	ClienteID   *int           `json:"cliente_id,omitempty"`
	Contact     QuoteContact   `json:"contact"`
	Estado      QuoteStatus    `json:"estado"`
	Items       []QuoteItem    `json:"items"`
	Fingerprint string         `json:"-"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	SubtotalNet int64          `json:"subtotal_net"`
	IVA         int64          `json:"iva"`
	Total       int64          `json:"total"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
