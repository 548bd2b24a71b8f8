package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/apperr"
	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/entity"
)

// Stripe implements the intent-plus-webhook protocol: Create opens a payment
// intent for the exact server-trusted order total; confirmation arrives via a
// signed webhook, with a synchronous status poll as the fallback path.
type Stripe struct {
	baseURL       string
	secretKey     string
	webhookSecret string
	client        *http.Client
}

func NewStripe(baseURL, secretKey, webhookSecret string) *Stripe {
	return &Stripe{
		baseURL:       baseURL,
		secretKey:     secretKey,
		webhookSecret: webhookSecret,
		client:        &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *Stripe) Provider() entity.PaymentProvider { return entity.ProviderStripe }

func (s *Stripe) Create(ctx context.Context, order *entity.Order) (*CreateResult, error) {
	form := url.Values{}
	form.Set("amount", fmt.Sprintf("%d", order.Total))
	form.Set("currency", "clp")
	form.Set("metadata[order_codigo]", order.Codigo)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, err := doJSON(s.client, req)
	if err != nil {
		return nil, err
	}

	intentID := stringField(body, "id")
	if intentID == "" {
		return nil, apperr.Upstream("stripe response missing intent id", map[string]any{"response": body})
	}

	return &CreateResult{Reference: intentID, Raw: body}, nil
}

// ParseWebhook verifies the Stripe-Signature header over the raw body before
// reading anything out of the payload.
func (s *Stripe) ParseWebhook(ctx context.Context, rawBody []byte, signatureHeader string) (*Event, error) {
	if err := s.verifySignature(rawBody, signatureHeader); err != nil {
		return nil, err
	}

	var event struct {
		Type string `json:"type"`
		Data struct {
			Object map[string]any `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, apperr.Validation("malformed stripe webhook payload")
	}

	intentID := stringField(event.Data.Object, "id")
	if intentID == "" {
		return nil, apperr.Validation("stripe webhook missing intent id")
	}

	var status entity.PaymentStatus
	switch event.Type {
	case "payment_intent.succeeded":
		status = entity.PaymentStatusConfirmed
	case "payment_intent.payment_failed", "payment_intent.canceled":
		status = entity.PaymentStatusRejected
	case "charge.refunded":
		status = entity.PaymentStatusRefunded
	default:
		status = entity.PaymentStatusPending
	}

	return &Event{Reference: intentID, Status: status, Raw: map[string]any{"type": event.Type, "object": event.Data.Object}}, nil
}

func (s *Stripe) Status(ctx context.Context, reference string) (*Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/v1/payment_intents/"+reference, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.secretKey)

	body, err := doJSON(s.client, req)
	if err != nil {
		return nil, err
	}

	var status entity.PaymentStatus
	switch stringField(body, "status") {
	case "succeeded":
		status = entity.PaymentStatusConfirmed
	case "canceled":
		status = entity.PaymentStatusRejected
	default:
		status = entity.PaymentStatusPending
	}
	return &Event{Reference: reference, Status: status, Raw: body}, nil
}

// verifySignature checks the v1 scheme: HMAC-SHA256 of "<t>.<body>" with the
// shared webhook secret, compared in constant time.
func (s *Stripe) verifySignature(rawBody []byte, header string) error {
	var ts, sig string
	for _, part := range strings.Split(header, ",") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch kv[0] {
		case "t":
			ts = kv[1]
		case "v1":
			sig = kv[1]
		}
	}
	if ts == "" || sig == "" {
		return apperr.Validation("malformed stripe signature header")
	}

	mac := hmac.New(sha256.New, []byte(s.webhookSecret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return apperr.Unauthorized("invalid stripe webhook signature")
	}
	return nil
}
