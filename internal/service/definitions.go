// Package service orchestrates the cart/quote/order/payment lifecycle over
// the persistence store, the catalog boundary and the payment gateways.
package service

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/entity"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Store interfaces are declared on the consuming side so services can be
// exercised against hand-written fakes.

type ProductStore interface {
	FindByID(ctx context.Context, id int) (*entity.Product, error)
	FindManyByIDs(ctx context.Context, ids []int) (map[int]entity.Product, error)
}

type ClientStore interface {
	GetByID(ctx context.Context, id int) (*entity.Client, error)
	GetPrimaryAddress(ctx context.Context, clientID int) (*entity.Despacho, error)
}

type CartStore interface {
	GetByID(ctx context.Context, id int) (*entity.Cart, error)
	GetActiveByClient(ctx context.Context, clienteID int) (*entity.Cart, error)
	Create(ctx context.Context, clienteID *int) (*entity.Cart, error)
	MergeItem(ctx context.Context, cartID, productID, qty int, replace bool, price func(totalQty int) (entity.CartItem, error)) error
	RemoveItem(ctx context.Context, cartID, productID int) error
	Clear(ctx context.Context, cartID int) error
}

type QuoteStore interface {
	Create(ctx context.Context, q *entity.Quote, dedupSince time.Time) (*entity.Quote, error)
	GetByID(ctx context.Context, id int) (*entity.Quote, error)
	FindRecentByFingerprint(ctx context.Context, fingerprint string, since time.Time) (*entity.Quote, error)
	ConvertToCart(ctx context.Context, quote *entity.Quote, cartID int, notif *entity.Notification) error
	CountLinkedOrders(ctx context.Context, quoteID int) (int, error)
	SoftCancel(ctx context.Context, quoteID int, meta map[string]any) error
	HardDelete(ctx context.Context, quoteID int) error
}

type OrderStore interface {
	Create(ctx context.Context, o *entity.Order, fromCartID *int, notif *entity.Notification) (*entity.Order, error)
	GetByID(ctx context.Context, id int) (*entity.Order, error)
}

type PaymentStore interface {
	GetByID(ctx context.Context, id int) (*entity.Payment, error)
	GetByReference(ctx context.Context, referencia string) (*entity.Payment, error)
	GetPendingByOrderProvider(ctx context.Context, orderID int, provider entity.PaymentProvider) (*entity.Payment, error)
	CreatePending(ctx context.Context, orderID int, provider entity.PaymentProvider, open func(ctx context.Context) (*entity.Payment, error)) (*entity.Payment, error)
	ApplyEvent(ctx context.Context, paymentID int, incoming entity.PaymentStatus, event map[string]any, notif *entity.Notification) (*entity.Payment, bool, error)
}

type OutboxStore interface {
	Insert(ctx context.Context, n *entity.Notification) error
	FetchPending(ctx context.Context, limit int) ([]entity.Notification, error)
	MarkSent(ctx context.Context, id int) error
	MarkFailed(ctx context.Context, id int) error
}
