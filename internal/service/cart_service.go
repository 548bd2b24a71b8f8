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

// CartService manages the mutable pre-commitment basket. Line prices are
// recomputed from the current catalog on every mutation; totals are derived
// from live items, never read back from storage.
type CartService struct {
	carts    CartStore
	products ProductStore
	clients  ClientStore
	ivaPct   int
}

func NewCartService(carts CartStore, products ProductStore, clients ClientStore, ivaPct int) *CartService {
	return &CartService{carts: carts, products: products, clients: clients, ivaPct: ivaPct}
}

// GetOrCreateActiveCart returns the client's single ACTIVO cart, creating it
// when missing. Anonymous carts are always newly created.
func (s *CartService) GetOrCreateActiveCart(ctx context.Context, clienteID *int) (*entity.Cart, error) {
	if clienteID == nil {
		return s.carts.Create(ctx, nil)
	}

	if _, err := s.clients.GetByID(ctx, *clienteID); err != nil {
		if errors.Is(err, repository.ErrClientNotFound) {
			return nil, apperr.NotFound("client not found", map[string]any{"cliente_id": *clienteID})
		}
		return nil, err
	}

	cart, err := s.carts.GetActiveByClient(ctx, *clienteID)
	if err != nil {
		return nil, err
	}
	if cart != nil {
		return cart, nil
	}
	return s.carts.Create(ctx, clienteID)
}

// AddItem merges qty into any existing line for the product (sum, not
// replace) and reprices the line from the current catalog price, all inside
// one atomic store operation.
func (s *CartService) AddItem(ctx context.Context, cartID, productID, qty int) (*entity.Cart, error) {
	return s.mutateItem(ctx, cartID, productID, qty, false)
}

// SetItemQuantity reprices like AddItem but replaces the quantity outright.
func (s *CartService) SetItemQuantity(ctx context.Context, cartID, productID, qty int) (*entity.Cart, error) {
	return s.mutateItem(ctx, cartID, productID, qty, true)
}

func (s *CartService) mutateItem(ctx context.Context, cartID, productID, qty int, replace bool) (*entity.Cart, error) {
	if qty <= 0 {
		return nil, apperr.Validation(fmt.Sprintf("quantity must be positive, got %d", qty))
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, apperr.NotFound("product not found", map[string]any{"product_id": productID})
		}
		return nil, err
	}

	err = s.carts.MergeItem(ctx, cartID, productID, qty, replace, func(totalQty int) (entity.CartItem, error) {
		lt := pricing.PriceItem(product, totalQty, s.ivaPct)
		return entity.CartItem{
			CartID:      cartID,
			ProductID:   productID,
			Nombre:      product.Nombre,
			Cantidad:    totalQty,
			UnitNet:     lt.UnitNet,
			SubtotalNet: lt.SubtotalNet,
			IVAAmount:   lt.IVAAmount,
			Total:       lt.Total,
		}, nil
	})
	if err != nil {
		return nil, translateCartErr(err, cartID)
	}

	return s.GetCart(ctx, cartID)
}

func (s *CartService) RemoveItem(ctx context.Context, cartID, productID int) (*entity.Cart, error) {
	if err := s.carts.RemoveItem(ctx, cartID, productID); err != nil {
		return nil, translateCartErr(err, cartID)
	}
	return s.GetCart(ctx, cartID)
}

func (s *CartService) Clear(ctx context.Context, cartID int) (*entity.Cart, error) {
	if err := s.carts.Clear(ctx, cartID); err != nil {
		return nil, translateCartErr(err, cartID)
	}
	return s.GetCart(ctx, cartID)
}

func (s *CartService) GetCart(ctx context.Context, cartID int) (*entity.Cart, error) {
	cart, err := s.carts.GetByID(ctx, cartID)
	if err != nil {
		return nil, translateCartErr(err, cartID)
	}
	return cart, nil
}

func translateCartErr(err error, cartID int) error {
	switch {
	case errors.Is(err, repository.ErrCartNotFound):
		return apperr.NotFound("cart not found", map[string]any{"cart_id": cartID})
	case errors.Is(err, repository.ErrCartNotActive):
		return apperr.Conflict("cart is not active", map[string]any{"cart_id": cartID})
	default:
		return err
	}
}
