package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/apperr"
	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/entity"
	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/gateway"
	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/repository"
)

// DefaultStatusTimeout bounds the synchronous remote status poll. On timeout
// the last-known local state is returned instead of blocking the caller.
const DefaultStatusTimeout = 6 * time.Second

// PaymentService drives payment attempts through the gateway abstraction.
// Every inbound status event (webhook, poll or commit) funnels through
// applyEvent, where the monotonicity guard lives.
type PaymentService struct {
	payments      PaymentStore
	orders        OrderStore
	gateways      gateway.Registry
	statusTimeout time.Duration
}

func NewPaymentService(payments PaymentStore, orders OrderStore, gateways gateway.Registry, statusTimeout time.Duration) *PaymentService {
	if statusTimeout <= 0 {
		statusTimeout = DefaultStatusTimeout
	}
	return &PaymentService{
		payments:      payments,
		orders:        orders,
		gateways:      gateways,
		statusTimeout: statusTimeout,
	}
}

// CreatePayment opens a payment attempt against a payable order. Retrying
// before any webhook arrives is idempotent: the existing PENDIENTE payment
// for (order, provider) is returned with its stored reference and redirect,
// no duplicate remote transaction is opened. The fast path below is only an
// optimization; the authoritative pending check runs inside
// CreatePending's transaction under the order row lock, so concurrent
// creators serialize there and exactly one opens a remote transaction.
func (s *PaymentService) CreatePayment(ctx context.Context, orderID int, provider entity.PaymentProvider, declaredAmount *int64) (*entity.Payment, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, apperr.NotFound("order not found", map[string]any{"order_id": orderID})
		}
		return nil, err
	}

	if order.Estado != entity.OrderStatusCreated {
		return nil, apperr.Conflict("order is not payable", map[string]any{"order_id": orderID, "estado": order.Estado})
	}
	if order.Total <= 0 || len(order.Items) == 0 {
		return nil, apperr.Conflict("order has no payable total", map[string]any{"order_id": orderID})
	}
	// The client never dictates the amount; a declared amount is only
	// accepted when it matches the server-trusted order total.
	if declaredAmount != nil && *declaredAmount != order.Total {
		return nil, apperr.Conflict("amount mismatch", map[string]any{
			"declared": *declaredAmount,
			"expected": order.Total,
		})
	}

	existing, err := s.payments.GetPendingByOrderProvider(ctx, orderID, provider)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	gw, err := s.gateways.Get(provider)
	if err != nil {
		return nil, err
	}

	payment, err := s.payments.CreatePending(ctx, orderID, provider, func(ctx context.Context) (*entity.Payment, error) {
		res, err := gw.Create(ctx, order)
		if err != nil {
			logger.Error().Err(err).Msgf("Error creating remote payment for order %d via %s", orderID, provider)
			return nil, err
		}
		return &entity.Payment{
			OrderID:        orderID,
			Provider:       provider,
			Estado:         entity.PaymentStatusPending,
			Monto:          order.Total,
			Referencia:     res.Reference,
			RedirectURL:    res.RedirectURL,
			GatewayPayload: entity.AppendAudit(nil, res.Raw),
		}, nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, apperr.NotFound("order not found", map[string]any{"order_id": orderID})
		}
		return nil, err
	}
	return payment, nil
}

// Confirm finalizes a payment synchronously: redirect-commit providers
// exchange the returned token for the authorization result; manual providers
// treat this as the explicit operator confirmation.
func (s *PaymentService) Confirm(ctx context.Context, referencia string) (*entity.Payment, error) {
	payment, err := s.getByReference(ctx, referencia)
	if err != nil {
		return nil, err
	}

	gw, err := s.gateways.Get(payment.Provider)
	if err != nil {
		return nil, err
	}

	var event *gateway.Event
	if committer, ok := gw.(gateway.Committer); ok {
		event, err = committer.Commit(ctx, referencia)
		if err != nil {
			return nil, err
		}
	} else {
		event = &gateway.Event{
			Reference: referencia,
			Status:    entity.PaymentStatusConfirmed,
			Raw:       map[string]any{"actor": "operator", "action": "confirm"},
		}
	}

	return s.applyEvent(ctx, payment, event)
}

// Reject is the operator rejection for manual providers.
func (s *PaymentService) Reject(ctx context.Context, referencia string) (*entity.Payment, error) {
	payment, err := s.getByReference(ctx, referencia)
	if err != nil {
		return nil, err
	}

	gw, err := s.gateways.Get(payment.Provider)
	if err != nil {
		return nil, err
	}
	if _, ok := gw.(gateway.Committer); ok {
		return nil, apperr.Validation("provider result comes from commit, not operator action")
	}

	event := &gateway.Event{
		Reference: referencia,
		Status:    entity.PaymentStatusRejected,
		Raw:       map[string]any{"actor": "operator", "action": "reject"},
	}
	return s.applyEvent(ctx, payment, event)
}

// Webhook verifies and normalizes an inbound provider event, then applies it
// through the guard. Verification failures surface before any state is read
// or written, so a bad signature can never mutate anything. Providers resend
// on non-2xx, which is safe: the whole path is idempotent.
func (s *PaymentService) Webhook(ctx context.Context, provider entity.PaymentProvider, rawBody []byte, signatureHeader string) (*entity.Payment, error) {
	gw, err := s.gateways.Get(provider)
	if err != nil {
		return nil, err
	}

	event, err := gw.ParseWebhook(ctx, rawBody, signatureHeader)
	if err != nil {
		return nil, err
	}

	payment, err := s.getByReference(ctx, event.Reference)
	if err != nil {
		return nil, err
	}
	return s.applyEvent(ctx, payment, event)
}

// Status polls the remote state with a bounded timeout, falling back to the
// last-known local state instead of blocking or failing the caller.
func (s *PaymentService) Status(ctx context.Context, referencia string) (*entity.Payment, error) {
	payment, err := s.getByReference(ctx, referencia)
	if err != nil {
		return nil, err
	}

	gw, err := s.gateways.Get(payment.Provider)
	if err != nil {
		return nil, err
	}

	pollCtx, cancel := context.WithTimeout(ctx, s.statusTimeout)
	defer cancel()

	event, err := gw.Status(pollCtx, payment.Referencia)
	if err != nil {
		logger.Warn().Err(err).Msgf("Status poll failed for payment %s, returning local state", referencia)
		return payment, nil
	}
	return s.applyEvent(ctx, payment, event)
}

func (s *PaymentService) getByReference(ctx context.Context, referencia string) (*entity.Payment, error) {
	payment, err := s.payments.GetByReference(ctx, referencia)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return nil, apperr.NotFound("payment not found", map[string]any{"referencia": referencia})
		}
		return nil, err
	}
	return payment, nil
}

// applyEvent writes the event through the store's guarded transaction. The
// notification only materializes when this call performs the transition into
// CONFIRMADO; its delivery is asynchronous and can never affect the outcome.
func (s *PaymentService) applyEvent(ctx context.Context, payment *entity.Payment, event *gateway.Event) (*entity.Payment, error) {
	notif := &entity.Notification{
		Type:     "PAYMENT_CONFIRMED",
		RefTable: "payments",
		RefID:    payment.ID,
		Title:    "Pago confirmado",
		Detail:   fmt.Sprintf("Pago %s (%s) confirmado para orden %d", payment.Referencia, payment.Provider, payment.OrderID),
	}

	updated, confirmedNow, err := s.payments.ApplyEvent(ctx, payment.ID, event.Status, event.Raw, notif)
	if err != nil {
		if errors.Is(err, repository.ErrPaymentNotFound) {
			return nil, apperr.NotFound("payment not found", map[string]any{"payment_id": payment.ID})
		}
		logger.Error().Err(err).Msgf("Error applying payment event for payment %d", payment.ID)
		return nil, err
	}
	if confirmedNow {
		logger.Info().Msgf("Payment %d confirmed, order %d marked paid", updated.ID, updated.OrderID)
	}
	return updated, nil
}
