package entity

import "time"

type OrderStatus string

const (
	OrderStatusCreated OrderStatus = "CREADO"
	OrderStatusPaid    OrderStatus = "PAGADO"
)

// OrderCodePrefix builds the human code ECP-000123 from the correlativo.
const OrderCodePrefix = "ECP"

// Despacho is the shipping destination attached to an order. The six
// required fields must all be present before an order can be committed.
type Despacho struct {
	Nombre    string `json:"nombre"`
	Telefono  string `json:"telefono"`
	Email     string `json:"email"`
	Direccion string `json:"direccion"`
	Comuna    string `json:"comuna"`
	Region    string `json:"region"`
	Notas     string `json:"notas,omitempty"`
}

// MissingFields lists the required despacho fields that are empty.
func (d Despacho) MissingFields() []string {
	var missing []string
	required := []struct {
		name  string
		value string
	}{
		{"nombre", d.Nombre},
		{"telefono", d.Telefono},
		{"email", d.Email},
		{"direccion", d.Direccion},
		{"comuna", d.Comuna},
		{"region", d.Region},
	}
	for _, f := range required {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// OrderItem is a frozen price snapshot: computed once at order creation and
// immutable afterward.
type OrderItem struct {
	ID          int    `json:"id"`
	OrderID     int    `json:"order_id"`
	ProductID   int    `json:"product_id"`
	Nombre      string `json:"nombre"`
	Cantidad    int    `json:"cantidad"`
	UnitNet     int64  `json:"unit_net"`
	SubtotalNet int64  `json:"subtotal_net"`
	IVAAmount   int64  `json:"iva_amount"`
	Total       int64  `json:"total"`
}

type Order struct {
	ID          int         `json:"id"`
	Correlativo int         `json:"correlativo"`
	Codigo      string      `json:"codigo"`
	ClienteID   *int        `json:"cliente_id,omitempty"`
	QuoteID     *int        `json:"quote_id,omitempty"`
	Estado      OrderStatus `json:"estado"`
	Items       []OrderItem `json:"items"`
	Despacho    Despacho    `json:"despacho"`
	SubtotalNet int64       `json:"subtotal_net"`
	IVA         int64       `json:"iva"`
	Total       int64       `json:"total"`
	Payments    []Payment   `json:"payments,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}
