package gateway

import (
	"context"

	"github.com/google/uuid"

	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/apperr"
	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/entity"
)

// Manual covers providers with no remote integration (bank transfer, the
// ApplePay dev stub, OTRO): a PENDIENTE payment is recorded locally and an
// operator confirms or rejects it explicitly.
type Manual struct {
	provider entity.PaymentProvider
}

func NewManual(provider entity.PaymentProvider) *Manual {
	return &Manual{provider: provider}
}

func (m *Manual) Provider() entity.PaymentProvider { return m.provider }

func (m *Manual) Create(ctx context.Context, order *entity.Order) (*CreateResult, error) {
	ref := "MANUAL-" + uuid.NewString()
	return &CreateResult{
		Reference: ref,
		Raw:       map[string]any{"manual": true, "order": order.Codigo},
	}, nil
}

func (m *Manual) ParseWebhook(ctx context.Context, rawBody []byte, signatureHeader string) (*Event, error) {
	return nil, apperr.Validation("manual provider does not deliver webhooks")
}

// Status has no remote to consult; the caller falls back to local state.
func (m *Manual) Status(ctx context.Context, reference string) (*Event, error) {
	return nil, apperr.Validation("manual provider has no remote status")
}
