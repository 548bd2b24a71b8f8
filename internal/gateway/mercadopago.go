package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/apperr"
	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/entity"
)

// MercadoPago implements the preference-redirect protocol: Create builds a
// line-item preference from the order's frozen snapshots and redirects the
// buyer to its init_point; status arrives via webhook notifications that
// reference a remote payment id.
type MercadoPago struct {
	baseURL     string
	accessToken string
	client      *http.Client
}

func NewMercadoPago(baseURL, accessToken string) *MercadoPago {
	return &MercadoPago{
		baseURL:     baseURL,
		accessToken: accessToken,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (m *MercadoPago) Provider() entity.PaymentProvider { return entity.ProviderMercadoPago }

func (m *MercadoPago) Create(ctx context.Context, order *entity.Order) (*CreateResult, error) {
	items := make([]map[string]any, 0, len(order.Items))
	for _, it := range order.Items {
		if it.Cantidad <= 0 {
			return nil, apperr.Validation(fmt.Sprintf("non-positive quantity %d for product %d", it.Cantidad, it.ProductID))
		}
		// The remote API wants a unit price, the snapshot stores the frozen
		// line total: divide and round to 2 decimals.
		unit := decimal.NewFromInt(it.Total).Div(decimal.NewFromInt(int64(it.Cantidad))).Round(2)
		items = append(items, map[string]any{
			"title":       it.Nombre,
			"quantity":    it.Cantidad,
			"unit_price":  unit.InexactFloat64(),
			"currency_id": "CLP",
		})
	}

	// external_reference is generated here and stored as the local payment
	// reference: webhooks echo it back, closing the lookup loop.
	externalRef := fmt.Sprintf("MP-%d-%s", order.ID, uuid.NewString()[:8])

	payload, _ := json.Marshal(map[string]any{
		"items":              items,
		"external_reference": externalRef,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/checkout/preferences", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	m.setAuth(req)

	body, err := doJSON(m.client, req)
	if err != nil {
		return nil, err
	}

	initPoint := stringField(body, "init_point")
	if stringField(body, "id") == "" || initPoint == "" {
		return nil, apperr.Upstream("mercadopago response missing preference id/init_point", map[string]any{"response": body})
	}

	return &CreateResult{Reference: externalRef, RedirectURL: initPoint, Raw: body}, nil
}

// ParseWebhook resolves the notification's payment id against the remote API
// and normalizes its status. The webhook body itself carries no state worth
// trusting.
func (m *MercadoPago) ParseWebhook(ctx context.Context, rawBody []byte, signatureHeader string) (*Event, error) {
	var notif struct {
		Type string `json:"type"`
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rawBody, &notif); err != nil {
		return nil, apperr.Validation("malformed mercadopago webhook payload")
	}
	if notif.Type != "payment" || notif.Data.ID == "" {
		return nil, apperr.Validation("unsupported mercadopago webhook type")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/v1/payments/"+notif.Data.ID, nil)
	if err != nil {
		return nil, err
	}
	m.setAuth(req)

	body, err := doJSON(m.client, req)
	if err != nil {
		return nil, err
	}

	externalRef := stringField(body, "external_reference")
	if externalRef == "" {
		return nil, apperr.Upstream("mercadopago payment missing external_reference", map[string]any{"response": body})
	}

	return &Event{Reference: externalRef, Status: mapMPStatus(stringField(body, "status")), Raw: body}, nil
}

func (m *MercadoPago) Status(ctx context.Context, reference string) (*Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/v1/payments/search?external_reference="+reference, nil)
	if err != nil {
		return nil, err
	}
	m.setAuth(req)

	body, err := doJSON(m.client, req)
	if err != nil {
		return nil, err
	}

	results, _ := body["results"].([]any)
	if len(results) == 0 {
		return &Event{Reference: reference, Status: entity.PaymentStatusPending, Raw: body}, nil
	}
	latest, _ := results[0].(map[string]any)
	return &Event{Reference: reference, Status: mapMPStatus(stringField(latest, "status")), Raw: body}, nil
}

func mapMPStatus(remote string) entity.PaymentStatus {
	switch remote {
	case "approved":
		return entity.PaymentStatusConfirmed
	case "rejected", "cancelled":
		return entity.PaymentStatusRejected
	case "refunded", "charged_back":
		return entity.PaymentStatusRefunded
	default:
		return entity.PaymentStatusPending
	}
}

func (m *MercadoPago) setAuth(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+m.accessToken)
	req.Header.Set("Content-Type", "application/json")
}
