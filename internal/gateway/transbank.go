package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/apperr"
	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/entity"
)

// Webpay API limits.
const (
	tbkMaxBuyOrderLen = 26
	tbkMaxSessionLen  = 61
)

// Transbank implements the redirect-commit protocol: Create opens a Webpay
// transaction and returns its redirect URL; the buyer returns with a token
// that Commit exchanges for the final authorization result.
type Transbank struct {
	baseURL      string
	commerceCode string
	apiKey       string
	returnURL    string
	client       *http.Client
}

func NewTransbank(baseURL, commerceCode, apiKey, returnURL string) *Transbank {
	return &Transbank{
		baseURL:      baseURL,
		commerceCode: commerceCode,
		apiKey:       apiKey,
		returnURL:    returnURL,
		client:       &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *Transbank) Provider() entity.PaymentProvider { return entity.ProviderTransbank }

func (t *Transbank) Create(ctx context.Context, order *entity.Order) (*CreateResult, error) {
	buyOrder := truncate(fmt.Sprintf("O-%d-%d", order.ID, time.Now().Unix()), tbkMaxBuyOrderLen)
	sessionID := truncate(fmt.Sprintf("S-%d-%d", order.ID, time.Now().UnixNano()), tbkMaxSessionLen)

	payload, _ := json.Marshal(map[string]any{
		"buy_order":  buyOrder,
		"session_id": sessionID,
		"amount":     order.Total,
		"return_url": t.returnURL,
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/rswebpaytransaction/api/webpay/v1.2/transactions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	t.setAuth(req)

	body, err := doJSON(t.client, req)
	if err != nil {
		return nil, err
	}

	token := stringField(body, "token")
	url := stringField(body, "url")
	if token == "" || url == "" {
		return nil, apperr.Upstream("transbank response missing token/url", map[string]any{"response": body})
	}

	return &CreateResult{Reference: token, RedirectURL: url + "?token_ws=" + token, Raw: body}, nil
}

// Commit exchanges the returned token for the final authorization result.
// Only AUTHORIZED confirms; everything else rejects.
func (t *Transbank) Commit(ctx context.Context, token string) (*Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, t.baseURL+"/rswebpaytransaction/api/webpay/v1.2/transactions/"+token, nil)
	if err != nil {
		return nil, err
	}
	t.setAuth(req)

	body, err := doJSON(t.client, req)
	if err != nil {
		return nil, err
	}

	return &Event{Reference: token, Status: t.mapStatus(stringField(body, "status")), Raw: body}, nil
}

// ParseWebhook: Webpay does not deliver webhooks; the commit call is the
// only inbound channel.
func (t *Transbank) ParseWebhook(ctx context.Context, rawBody []byte, signatureHeader string) (*Event, error) {
	return nil, apperr.Validation("transbank does not deliver webhooks; use commit")
}

func (t *Transbank) Status(ctx context.Context, reference string) (*Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL+"/rswebpaytransaction/api/webpay/v1.2/transactions/"+reference, nil)
	if err != nil {
		return nil, err
	}
	t.setAuth(req)

	body, err := doJSON(t.client, req)
	if err != nil {
		return nil, err
	}
	return &Event{Reference: reference, Status: t.mapStatus(stringField(body, "status")), Raw: body}, nil
}

func (t *Transbank) mapStatus(remote string) entity.PaymentStatus {
	switch remote {
	case "AUTHORIZED":
		return entity.PaymentStatusConfirmed
	case "INITIALIZED":
		return entity.PaymentStatusPending
	case "REVERSED", "NULLIFIED":
		return entity.PaymentStatusRefunded
	default:
		return entity.PaymentStatusRejected
	}
}

func (t *Transbank) setAuth(req *http.Request) {
	req.Header.Set("Tbk-Api-Key-Id", t.commerceCode)
	req.Header.Set("Tbk-Api-Key-Secret", t.apiKey)
	req.Header.Set("Content-Type", "application/json")
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
