// Package gateway normalizes four heterogeneous payment provider protocols
// into one contract. Adapters translate remote statuses into the domain's
// payment states. Adapters never touch storage; the service layer owns all
// mutation behind the monotonicity guard.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/apperr"
	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/entity"
)

// CreateResult is the normalized outcome of opening a remote transaction.
// Raw is the provider response stored verbatim for audit.
type CreateResult struct {
	Reference   string
	RedirectURL string
	Raw         map[string]any
}

// Event is a normalized inbound status event (webhook, poll or commit).
// Reference identifies the local payment; Raw is appended to its audit ring.
type Event struct {
	Reference string
	Status    entity.PaymentStatus
	Raw       map[string]any
}

// Gateway is the uniform per-provider contract.
type Gateway interface {
	Provider() entity.PaymentProvider
	// Create opens a remote transaction for the order's server-trusted total.
	Create(ctx context.Context, order *entity.Order) (*CreateResult, error)
	// ParseWebhook verifies the inbound payload BEFORE any mutation can
	// happen and normalizes it. Signature failures return Unauthorized.
	ParseWebhook(ctx context.Context, rawBody []byte, signatureHeader string) (*Event, error)
	// Status polls the remote state for a stored reference.
	Status(ctx context.Context, reference string) (*Event, error)
}

// Committer is implemented by redirect-commit providers whose payments are
// finalized by an explicit synchronous commit call (Transbank).
type Committer interface {
	Commit(ctx context.Context, token string) (*Event, error)
}

// Registry maps providers to their adapters.
type Registry map[entity.PaymentProvider]Gateway

func (r Registry) Get(p entity.PaymentProvider) (Gateway, error) {
	gw, ok := r[p]
	if !ok {
		return nil, apperr.Validation(fmt.Sprintf("unknown payment provider %q", p))
	}
	return gw, nil
}

// doJSON performs one provider HTTP call and decodes the JSON response into a
// generic map so the raw payload can be audited verbatim.
func doJSON(client *http.Client, req *http.Request) (map[string]any, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, apperr.Upstream(fmt.Sprintf("provider call failed: %v", err))
	}
	defer resp.Body.Close()

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, apperr.Upstream(fmt.Sprintf("malformed provider response: %v", err))
	}
	if resp.StatusCode >= 400 {
		return nil, apperr.Upstream(fmt.Sprintf("provider returned status %d", resp.StatusCode), map[string]any{"response": body})
	}
	return body, nil
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
