package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/apperr"
	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/entity"
	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/pricing"
	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/repository"
)

// QuoteService manages request-for-price records with frozen pricing and the
// anti-abuse guard in front of them.
type QuoteService struct {
	quotes   QuoteStore
	products ProductStore
	cartSvc  *CartService
	guard    abuseGuard

	ivaPct      int
	dedupWindow time.Duration
	rateWindow  time.Duration
	rateMax     int
}

func NewQuoteService(quotes QuoteStore, products ProductStore, cartSvc *CartService, guard abuseGuard, ivaPct int, dedupWindow, rateWindow time.Duration, rateMax int) *QuoteService {
	return &QuoteService{
		quotes:      quotes,
		products:    products,
		cartSvc:     cartSvc,
		guard:       guard,
		ivaPct:      ivaPct,
		dedupWindow: dedupWindow,
		rateWindow:  rateWindow,
		rateMax:     rateMax,
	}
}

type QuoteItemInput struct {
	ProductID int `json:"product_id"`
	Cantidad  int `json:"cantidad"`
}

type CreateQuoteInput struct {
	ClienteID *int                `json:"cliente_id,omitempty"`
	Contact   entity.QuoteContact `json:"contact"`
	Items     []QuoteItemInput    `json:"items"`
	Metadata  map[string]any      `json:"metadata,omitempty"`
	ClientIP  string              `json:"-"`
	UserAgent string              `json:"-"`
}

// CreateQuote resolves every product price once (frozen), guarded by the
// fingerprint dedup window and the per-IP / per-fingerprint rate limits.
func (s *QuoteService) CreateQuote(ctx context.Context, in CreateQuoteInput) (*entity.Quote, error) {
	if len(in.Items) == 0 {
		return nil, apperr.Validation("quote requires at least one item")
	}
	for _, it := range in.Items {
		if it.Cantidad <= 0 {
			return nil, apperr.Validation(fmt.Sprintf("quantity must be positive for product %d", it.ProductID))
		}
	}

	fingerprint := quoteFingerprint(in.Contact, in.Items)

	if err := s.checkRateLimits(ctx, fingerprint, in.ClientIP, in.UserAgent); err != nil {
		return nil, err
	}

	dedupSince := time.Now().Add(-s.dedupWindow)
	existing, err := s.quotes.FindRecentByFingerprint(ctx, fingerprint, dedupSince)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, duplicateQuoteConflict(existing)
	}

	ids := make([]int, 0, len(in.Items))
	for _, it := range in.Items {
		ids = append(ids, it.ProductID)
	}
	found, err := s.products.FindManyByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	var missing []int
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, apperr.NotFound("products not found", map[string]any{"missing_product_ids": missing})
	}

	quote := &entity.Quote{
		ClienteID:   in.ClienteID,
		Contact:     in.Contact,
		Estado:      entity.QuoteStatusNew,
		Fingerprint: fingerprint,
		Metadata:    in.Metadata,
	}
	var lines []pricing.LineTotals
	for _, it := range in.Items {
		product := found[it.ProductID]
		lt := pricing.PriceItem(&product, it.Cantidad, s.ivaPct)
		lines = append(lines, lt)
		quote.Items = append(quote.Items, entity.QuoteItem{
			ProductID:   it.ProductID,
			Nombre:      product.Nombre,
			Cantidad:    it.Cantidad,
			UnitNet:     lt.UnitNet,
			SubtotalNet: lt.SubtotalNet,
			IVAAmount:   lt.IVAAmount,
			Total:       lt.Total,
		})
	}
	totals := pricing.Sum(lines...)
	quote.SubtotalNet = totals.SubtotalNet
	quote.IVA = totals.IVA
	quote.Total = totals.Total

	// The pre-check above is only a fast path; the store re-checks the
	// window inside the insert transaction, which is what closes the race
	// between two identical simultaneous submissions.
	created, err := s.quotes.Create(ctx, quote, dedupSince)
	if err != nil {
		if errors.Is(err, repository.ErrQuoteDuplicate) {
			if winner, ferr := s.quotes.FindRecentByFingerprint(ctx, fingerprint, dedupSince); ferr == nil && winner != nil {
				return nil, duplicateQuoteConflict(winner)
			}
			return nil, apperr.Conflict("duplicate quote within dedup window")
		}
		logger.Error().Err(err).Msg("Error creating quote")
		return nil, err
	}
	return created, nil
}

func duplicateQuoteConflict(existing *entity.Quote) error {
	return apperr.Conflict("duplicate quote within dedup window", map[string]any{
		"existing_quote_id": existing.ID,
		"codigo":            existing.Codigo,
	})
}

func (s *QuoteService) GetQuote(ctx context.Context, id int) (*entity.Quote, error) {
	q, err := s.quotes.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrQuoteNotFound) {
			return nil, apperr.NotFound("quote not found", map[string]any{"quote_id": id})
		}
		return nil, err
	}
	return q, nil
}

// ConvertToCart carries the quote's frozen snapshots into the target cart,
// intentionally NOT repriced from the current catalog, and moves the quote
// to EN_REVISION.
func (s *QuoteService) ConvertToCart(ctx context.Context, quoteID int) (*entity.Cart, error) {
	quote, err := s.GetQuote(ctx, quoteID)
	if err != nil {
		return nil, err
	}
	if quote.Estado == entity.QuoteStatusClosed {
		return nil, apperr.Conflict("quote is closed", map[string]any{"quote_id": quoteID})
	}

	cart, err := s.cartSvc.GetOrCreateActiveCart(ctx, quote.ClienteID)
	if err != nil {
		return nil, err
	}

	notif := &entity.Notification{
		Type:     "QUOTE_CONVERTED",
		RefTable: "quotes",
		RefID:    quote.ID,
		Title:    "Cotización convertida",
		Detail:   fmt.Sprintf("Cotización %s convertida al carro %d", quote.Codigo, cart.ID),
	}
	if err := s.quotes.ConvertToCart(ctx, quote, cart.ID, notif); err != nil {
		return nil, translateCartErr(err, cart.ID)
	}

	return s.cartSvc.GetCart(ctx, cart.ID)
}

// CancelOrDelete hard-deletes a quote nothing links to yet; once an order or
// payment exists the quote is soft-cancelled instead, merging cancellation
// metadata so the audit trail survives.
func (s *QuoteService) CancelOrDelete(ctx context.Context, quoteID int, reason, actorID string) error {
	quote, err := s.GetQuote(ctx, quoteID)
	if err != nil {
		return err
	}
	if quote.Estado == entity.QuoteStatusClosed {
		return apperr.Conflict("quote already closed", map[string]any{"quote_id": quoteID})
	}

	linked, err := s.quotes.CountLinkedOrders(ctx, quoteID)
	if err != nil {
		return err
	}
	if linked == 0 {
		return s.quotes.HardDelete(ctx, quoteID)
	}

	return s.quotes.SoftCancel(ctx, quoteID, map[string]any{
		"cancelledAt": time.Now().UTC().Format(time.RFC3339),
		"reason":      reason,
		"actorId":     actorID,
	})
}

// checkRateLimits enforces the per-IP and per-fingerprint counters. Only
// hashes are used as keys; raw IP and user agent are never stored. A guard
// outage fails open with a warning, preferring availability over strictness.
func (s *QuoteService) checkRateLimits(ctx context.Context, fingerprint, clientIP, userAgent string) error {
	second := fingerprint
	if second == "" {
		second = hashToken(userAgent)
	}
	keys := []string{
		"quote:rl:ip:" + hashToken(clientIP),
		"quote:rl:fp:" + second,
	}
	for _, key := range keys {
		ok, err := s.guard.Allow(ctx, key, s.rateWindow, s.rateMax)
		if err != nil {
			logger.Warn().Err(err).Msg("Rate limit guard unavailable, allowing request")
			continue
		}
		if !ok {
			return apperr.RateLimited("quote rate limit exceeded")
		}
	}
	return nil
}

// quoteFingerprint hashes the normalized contact plus the sorted
// "productId:qty" list. Identical submissions collide by construction.
func quoteFingerprint(contact entity.QuoteContact, items []QuoteItemInput) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%d:%d", it.ProductID, it.Cantidad))
	}
	sort.Strings(parts)

	normalized := strings.ToLower(strings.TrimSpace(contact.Email)) + "|" +
		strings.ToLower(strings.TrimSpace(contact.Nombre)) + "|" +
		strings.TrimSpace(contact.Telefono) + "|" +
		strings.Join(parts, ",")
	return hashToken(normalized)
}
