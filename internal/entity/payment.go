package entity

import "time"

type PaymentProvider string

const (
	ProviderTransbank   PaymentProvider = "TRANSBANK"
	ProviderStripe      PaymentProvider = "STRIPE"
	ProviderMercadoPago PaymentProvider = "MERCADOPAGO"
	ProviderKlap        PaymentProvider = "KLAP"
	ProviderApplePayDev PaymentProvider = "APPLEPAY_DEV"
	ProviderOther       PaymentProvider = "OTRO"
)

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "PENDIENTE"
	PaymentStatusConfirmed PaymentStatus = "CONFIRMADO"
	PaymentStatusRejected  PaymentStatus = "RECHAZADO"
	PaymentStatusRefunded  PaymentStatus = "REEMBOLSADO"
)

// AuditRingSize bounds the per-payment gateway payload history.
const AuditRingSize = 50

// Payment is one payment attempt against an order. Estado only ever moves
// through NextPaymentState, inside the repository transaction that writes it.
type Payment struct {
	ID             int              `json:"id"`
	OrderID        int              `json:"order_id"`
	Provider       PaymentProvider  `json:"provider"`
	Estado         PaymentStatus    `json:"estado"`
	Monto          int64            `json:"monto"`
	Referencia     string           `json:"referencia"`
	RedirectURL    string           `json:"redirect_url,omitempty"`
	GatewayPayload []map[string]any `json:"gateway_payload,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// NextPaymentState is the monotonicity guard. Providers redeliver webhooks
// out of order and at least once; this rule is the sole defense:
//   - REEMBOLSADO is final.
//   - CONFIRMADO ignores PENDIENTE/RECHAZADO, accepts REEMBOLSADO.
//   - REEMBOLSADO is only reachable from CONFIRMADO.
//   - Otherwise the incoming state is adopted.
func NextPaymentState(current, incoming PaymentStatus) PaymentStatus {
	switch current {
	case PaymentStatusRefunded:
		return PaymentStatusRefunded
	case PaymentStatusConfirmed:
		if incoming == PaymentStatusRefunded {
			return PaymentStatusRefunded
		}
		return PaymentStatusConfirmed
	default:
		if incoming == PaymentStatusRefunded {
			return current
		}
		return incoming
	}
}

// AppendAudit appends one gateway event to the payload ring, keeping only the
// most recent AuditRingSize entries. The ring is append-only audit data:
// events are never replaced, only aged out.
func AppendAudit(ring []map[string]any, event map[string]any) []map[string]any {
	if event == nil {
		return ring
	}
	ring = append(ring, event)
	if len(ring) > AuditRingSize {
		ring = ring[len(ring)-AuditRingSize:]
	}
	return ring
}
