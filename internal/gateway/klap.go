package gateway

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/apperr"
	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/entity"
)

// MockBypassSignature requests webhook signature bypass. Honored only when
// mock mode is active outside production.
const MockBypassSignature = "mock-bypass"

// Klap implements the order-plus-signed-webhook protocol, the strictest of
// the four: every webhook carries a sha256(referenceId+remoteOrderId+apiKey)
// hex digest that must match before anything else happens.
type Klap struct {
	baseURL  string
	apiKey   string
	mockMode bool
	env      string
	client   *http.Client
}

// NewKlap builds the adapter. mockMode fabricates remote references without
// any network call; it is refused outright in production.
func NewKlap(baseURL, apiKey string, mockMode bool, env string) *Klap {
	return &Klap{
		baseURL:  baseURL,
		apiKey:   apiKey,
		mockMode: mockMode,
		env:      env,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (k *Klap) Provider() entity.PaymentProvider { return entity.ProviderKlap }

func (k *Klap) mockActive() bool {
	return k.mockMode && k.env != "production"
}

func (k *Klap) Create(ctx context.Context, order *entity.Order) (*CreateResult, error) {
	if k.mockActive() {
		ref := "KLAP-MOCK-" + uuid.NewString()
		return &CreateResult{
			Reference:   ref,
			RedirectURL: "https://sandbox.klap.invalid/pay/" + ref,
			Raw:         map[string]any{"mock": true, "reference": ref},
		}, nil
	}

	payload, _ := json.Marshal(map[string]any{
		"amount":   order.Total,
		"currency": "CLP",
		"order":    order.Codigo,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.baseURL+"/orders", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	k.setAuth(req)

	body, err := doJSON(k.client, req)
	if err != nil {
		return nil, err
	}

	ref := stringField(body, "reference_id")
	if ref == "" {
		ref = stringField(body, "id")
	}
	if ref == "" {
		return nil, apperr.Upstream("klap response missing reference", map[string]any{"response": body})
	}

	return &CreateResult{Reference: ref, RedirectURL: stringField(body, "payment_url"), Raw: body}, nil
}

// ParseWebhook verifies the digest in constant time before reading status.
// Unknown or ambiguous remote statuses normalize to PENDIENTE; success is
// never assumed.
func (k *Klap) ParseWebhook(ctx context.Context, rawBody []byte, signatureHeader string) (*Event, error) {
	var payload struct {
		ReferenceID string `json:"reference_id"`
		OrderID     string `json:"order_id"`
		Status      string `json:"status"`
	}
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, apperr.Validation("malformed klap webhook payload")
	}
	if payload.ReferenceID == "" || payload.OrderID == "" {
		return nil, apperr.Validation("klap webhook missing reference_id/order_id")
	}

	bypass := signatureHeader == MockBypassSignature && k.mockActive()
	if !bypass {
		expected := KlapSignature(payload.ReferenceID, payload.OrderID, k.apiKey)
		if subtle.ConstantTimeCompare([]byte(expected), []byte(signatureHeader)) != 1 {
			return nil, apperr.Unauthorized("invalid klap webhook signature")
		}
	}

	var raw map[string]any
	json.Unmarshal(rawBody, &raw)

	return &Event{Reference: payload.ReferenceID, Status: mapKlapStatus(payload.Status), Raw: raw}, nil
}

func (k *Klap) Status(ctx context.Context, reference string) (*Event, error) {
	if k.mockActive() {
		return &Event{Reference: reference, Status: entity.PaymentStatusPending, Raw: map[string]any{"mock": true}}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.baseURL+"/orders/"+reference, nil)
	if err != nil {
		return nil, err
	}
	k.setAuth(req)

	body, err := doJSON(k.client, req)
	if err != nil {
		return nil, err
	}
	return &Event{Reference: reference, Status: mapKlapStatus(stringField(body, "status")), Raw: body}, nil
}

// KlapSignature is the provider's webhook digest:
// sha256(referenceId + remoteOrderId + sharedApiKey) hex encoded.
func KlapSignature(referenceID, remoteOrderID, apiKey string) string {
	sum := sha256.Sum256([]byte(referenceID + remoteOrderID + apiKey))
	return hex.EncodeToString(sum[:])
}

func mapKlapStatus(remote string) entity.PaymentStatus {
	switch remote {
	case "PAID", "COMPLETED":
		return entity.PaymentStatusConfirmed
	case "REJECTED", "FAILED", "CANCELLED":
		return entity.PaymentStatusRejected
	case "REFUNDED":
		return entity.PaymentStatusRefunded
	default:
		return entity.PaymentStatusPending
	}
}

func (k *Klap) setAuth(req *http.Request) {
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", k.apiKey))
	req.Header.Set("Content-Type", "application/json")
}
