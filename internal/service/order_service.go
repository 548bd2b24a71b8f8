package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/apperr"
	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/entity"
	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/pricing"
	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/repository"
)

// OrderService commits purchases: item/price snapshots are frozen at
// creation, the despacho must be fully resolved, and totals are computed once
// and never recomputed afterward.
type OrderService struct {
	orders   OrderStore
	carts    CartStore
	products ProductStore
	clients  ClientStore

	ivaPct        int
	validateStock bool
}

func NewOrderService(orders OrderStore, carts CartStore, products ProductStore, clients ClientStore, ivaPct int, validateStock bool) *OrderService {
	return &OrderService{
		orders:        orders,
		carts:         carts,
		products:      products,
		clients:       clients,
		ivaPct:        ivaPct,
		validateStock: validateStock,
	}
}

type OrderItemInput struct {
	ProductID int `json:"product_id"`
	Cantidad  int `json:"cantidad"`
}

type CreateOrderInput struct {
	ClienteID  *int             `json:"cliente_id,omitempty"`
	QuoteID    *int             `json:"quote_id,omitempty"`
	FromCartID *int             `json:"from_cart_id,omitempty"`
	Items      []OrderItemInput `json:"items,omitempty"`
	Despacho   *entity.Despacho `json:"despacho,omitempty"`
}

// CreateOrder builds and commits an order either from explicit items or by
// promoting a cart (which flips to CONVERTIDO in the same transaction).
// Duplicate product lines merge before pricing; every line is repriced from
// the CURRENT catalog, unlike quote conversion, which keeps frozen values.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*entity.Order, error) {
	lines, err := s.resolveLines(ctx, in)
	if err != nil {
		return nil, err
	}

	despacho, err := s.resolveDespacho(ctx, in)
	if err != nil {
		return nil, err
	}
	if missing := despacho.MissingFields(); len(missing) > 0 {
		return nil, apperr.Validation("incomplete shipping address", map[string]any{"missing_fields": missing})
	}

	ids := make([]int, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.ProductID)
	}
	found, err := s.products.FindManyByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	var missingIDs []int
	for _, id := range ids {
		if _, ok := found[id]; !ok {
			missingIDs = append(missingIDs, id)
		}
	}
	if len(missingIDs) > 0 {
		return nil, apperr.NotFound("products not found", map[string]any{"missing_product_ids": missingIDs})
	}

	order := &entity.Order{
		ClienteID: in.ClienteID,
		QuoteID:   in.QuoteID,
		Estado:    entity.OrderStatusCreated,
		Despacho:  *despacho,
	}
	var priced []pricing.LineTotals
	for _, l := range lines {
		product := found[l.ProductID]
		if s.validateStock && product.Stock < l.Cantidad {
			return nil, apperr.Conflict("insufficient stock", map[string]any{
				"product_id": l.ProductID,
				"available":  product.Stock,
				"requested":  l.Cantidad,
			})
		}
		lt := pricing.PriceItem(&product, l.Cantidad, s.ivaPct)
		priced = append(priced, lt)
		order.Items = append(order.Items, entity.OrderItem{
			ProductID:   l.ProductID,
			Nombre:      product.Nombre,
			Cantidad:    l.Cantidad,
			UnitNet:     lt.UnitNet,
			SubtotalNet: lt.SubtotalNet,
			IVAAmount:   lt.IVAAmount,
			Total:       lt.Total,
		})
	}
	totals := pricing.Sum(priced...)
	order.SubtotalNet = totals.SubtotalNet
	order.IVA = totals.IVA
	order.Total = totals.Total

	notif := &entity.Notification{
		Type:     "ORDER_CREATED",
		RefTable: "orders",
		Title:    "Orden creada",
		Detail:   fmt.Sprintf("Orden por %d CLP con %d líneas", order.Total, len(order.Items)),
	}

	created, err := s.orders.Create(ctx, order, in.FromCartID, notif)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotActive) {
			return nil, apperr.Conflict("cart is not active", map[string]any{"cart_id": in.FromCartID})
		}
		logger.Error().Err(err).Msg("Error creating order")
		return nil, err
	}
	return created, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id int) (*entity.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, apperr.NotFound("order not found", map[string]any{"order_id": id})
		}
		return nil, err
	}
	return order, nil
}

// resolveLines collects (productID, qty) pairs from the cart or the explicit
// payload, merging duplicate product lines by summing quantities.
func (s *OrderService) resolveLines(ctx context.Context, in CreateOrderInput) ([]OrderItemInput, error) {
	var raw []OrderItemInput

	if in.FromCartID != nil {
		cart, err := s.carts.GetByID(ctx, *in.FromCartID)
		if err != nil {
			return nil, translateCartErr(err, *in.FromCartID)
		}
		if cart.Estado != entity.CartStatusActive {
			return nil, apperr.Conflict("cart already converted", map[string]any{"cart_id": cart.ID})
		}
		if len(cart.Items) == 0 {
			return nil, apperr.Validation("cart is empty", map[string]any{"cart_id": cart.ID})
		}
		for _, it := range cart.Items {
			raw = append(raw, OrderItemInput{ProductID: it.ProductID, Cantidad: it.Cantidad})
		}
	} else {
		raw = in.Items
	}

	if len(raw) == 0 {
		return nil, apperr.Validation("order requires at least one item")
	}

	merged := make([]OrderItemInput, 0, len(raw))
	index := map[int]int{}
	for _, l := range raw {
		if l.Cantidad <= 0 {
			return nil, apperr.Validation(fmt.Sprintf("quantity must be positive for product %d", l.ProductID))
		}
		if i, ok := index[l.ProductID]; ok {
			merged[i].Cantidad += l.Cantidad
			continue
		}
		index[l.ProductID] = len(merged)
		merged = append(merged, l)
	}
	return merged, nil
}

// resolveDespacho walks the priority cascade: explicit payload, then the
// client's stored primary address, then the account profile (which lacks a
// street address and will fail validation with the missing fields listed).
func (s *OrderService) resolveDespacho(ctx context.Context, in CreateOrderInput) (*entity.Despacho, error) {
	if in.Despacho != nil {
		return in.Despacho, nil
	}

	if in.ClienteID == nil {
		return &entity.Despacho{}, nil
	}

	client, err := s.clients.GetByID(ctx, *in.ClienteID)
	if err != nil {
		if errors.Is(err, repository.ErrClientNotFound) {
			return nil, apperr.NotFound("client not found", map[string]any{"cliente_id": *in.ClienteID})
		}
		return nil, err
	}

	primary, err := s.clients.GetPrimaryAddress(ctx, *in.ClienteID)
	if err != nil {
		return nil, err
	}
	if primary != nil {
		return primary, nil
	}

	return &entity.Despacho{
		Nombre:   client.Nombre,
		Email:    client.Email,
		Telefono: client.Telefono,
	}, nil
}
