package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/apperr"
	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/entity"
)

func fullDespacho() *entity.Despacho {
	return &entity.Despacho{
		Nombre:    "Ana",
		Telefono:  "+56911111111",
		Email:     "ana@example.com",
		Direccion: "Av. Siempre Viva 123",
		Comuna:    "Providencia",
		Region:    "Metropolitana",
	}
}

func newOrderFixture(validateStock bool) (*OrderService, *fakeOrderStore, *fakeCartStore, *fakeClientStore) {
	carts := newFakeCartStore()
	orders := newFakeOrderStore(carts)
	products := &fakeProductStore{products: map[int]entity.Product{
		1: {ID: 1, Nombre: "Perno", ListPrice: 1000, Stock: 10},
		2: {ID: 2, Nombre: "Plancha", ListPrice: 5000, Stock: 1},
	}}
	clients := &fakeClientStore{
		clients: map[int]entity.Client{7: {ID: 7, Nombre: "Ana", Email: "ana@example.com", Telefono: "+56911111111"}},
		primary: map[int]*entity.Despacho{},
	}
	return NewOrderService(orders, carts, products, clients, 19, validateStock), orders, carts, clients
}

func TestCreateOrderFromExplicitItems(t *testing.T) {
	svc, orders, _, _ := newOrderFixture(false)

	order, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		Items:    []OrderItemInput{{ProductID: 1, Cantidad: 2}},
		Despacho: fullDespacho(),
	})
	require.NoError(t, err)

	assert.Equal(t, "ECP-000001", order.Codigo)
	assert.Equal(t, entity.OrderStatusCreated, order.Estado)
	assert.Equal(t, int64(2000), order.SubtotalNet)
	assert.Equal(t, int64(380), order.IVA)
	assert.Equal(t, int64(2380), order.Total)
	require.Len(t, orders.notifs, 1)
	assert.Equal(t, "ORDER_CREATED", orders.notifs[0].Type)
	assert.Equal(t, order.ID, orders.notifs[0].RefID)
}

func TestCreateOrderMergesDuplicateLines(t *testing.T) {
	svc, _, _, _ := newOrderFixture(false)

	order, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		Items: []OrderItemInput{
			{ProductID: 1, Cantidad: 2},
			{ProductID: 1, Cantidad: 3},
		},
		Despacho: fullDespacho(),
	})
	require.NoError(t, err)

	require.Len(t, order.Items, 1)
	assert.Equal(t, 5, order.Items[0].Cantidad)
}

func TestCreateOrderFromCartFlipsCart(t *testing.T) {
	svc, _, carts, _ := newOrderFixture(false)
	ctx := context.Background()

	cart, err := carts.Create(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, carts.MergeItem(ctx, cart.ID, 1, 2, false, func(q int) (entity.CartItem, error) {
		return entity.CartItem{CartID: cart.ID, ProductID: 1, Cantidad: q}, nil
	}))

	order, err := svc.CreateOrder(ctx, CreateOrderInput{
		FromCartID: &cart.ID,
		Despacho:   fullDespacho(),
	})
	require.NoError(t, err)

	assert.Equal(t, entity.CartStatusConverted, carts.carts[cart.ID].Estado)
	// Lines are repriced from the current catalog, not copied from the cart.
	assert.Equal(t, int64(1000), order.Items[0].UnitNet)
	assert.Equal(t, int64(2380), order.Total)
}

func TestCreateOrderFromConvertedCartConflicts(t *testing.T) {
	svc, _, carts, _ := newOrderFixture(false)
	ctx := context.Background()

	cart, err := carts.Create(ctx, nil)
	require.NoError(t, err)
	require.NoError(t, carts.MergeItem(ctx, cart.ID, 1, 1, false, func(q int) (entity.CartItem, error) {
		return entity.CartItem{CartID: cart.ID, ProductID: 1, Cantidad: q}, nil
	}))
	carts.carts[cart.ID].Estado = entity.CartStatusConverted

	_, err = svc.CreateOrder(ctx, CreateOrderInput{
		FromCartID: &cart.ID,
		Despacho:   fullDespacho(),
	})

	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestCreateOrderFromEmptyCartRejected(t *testing.T) {
	svc, _, carts, _ := newOrderFixture(false)
	ctx := context.Background()

	cart, err := carts.Create(ctx, nil)
	require.NoError(t, err)

	_, err = svc.CreateOrder(ctx, CreateOrderInput{
		FromCartID: &cart.ID,
		Despacho:   fullDespacho(),
	})

	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

func TestCreateOrderIncompleteDespachoListsFields(t *testing.T) {
	svc, _, _, _ := newOrderFixture(false)

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		Items: []OrderItemInput{{ProductID: 1, Cantidad: 1}},
		Despacho: &entity.Despacho{
			Nombre: "Ana",
			Email:  "ana@example.com",
		},
	})
	require.Error(t, err)

	e := apperr.From(err)
	assert.Equal(t, apperr.KindValidation, e.Kind)
	assert.Equal(t, []string{"telefono", "direccion", "comuna", "region"}, e.Details["missing_fields"])
}

func TestCreateOrderUsesPrimaryAddress(t *testing.T) {
	svc, _, _, clients := newOrderFixture(false)
	clienteID := 7
	clients.primary[7] = fullDespacho()

	order, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		ClienteID: &clienteID,
		Items:     []OrderItemInput{{ProductID: 1, Cantidad: 1}},
	})
	require.NoError(t, err)

	assert.Equal(t, "Av. Siempre Viva 123", order.Despacho.Direccion)
}

func TestCreateOrderProfileFallbackFailsValidation(t *testing.T) {
	svc, _, _, _ := newOrderFixture(false)
	clienteID := 7

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		ClienteID: &clienteID,
		Items:     []OrderItemInput{{ProductID: 1, Cantidad: 1}},
	})
	require.Error(t, err)

	e := apperr.From(err)
	assert.Equal(t, apperr.KindValidation, e.Kind)
	assert.Equal(t, []string{"direccion", "comuna", "region"}, e.Details["missing_fields"])
}

func TestCreateOrderStockValidation(t *testing.T) {
	svc, _, _, _ := newOrderFixture(true)

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		Items:    []OrderItemInput{{ProductID: 2, Cantidad: 5}},
		Despacho: fullDespacho(),
	})
	require.Error(t, err)

	e := apperr.From(err)
	assert.Equal(t, apperr.KindConflict, e.Kind)
	assert.Equal(t, 1, e.Details["available"])
}

func TestCreateOrderUnknownProducts(t *testing.T) {
	svc, _, _, _ := newOrderFixture(false)

	_, err := svc.CreateOrder(context.Background(), CreateOrderInput{
		Items:    []OrderItemInput{{ProductID: 77, Cantidad: 1}},
		Despacho: fullDespacho(),
	})
	require.Error(t, err)

	e := apperr.From(err)
	assert.Equal(t, apperr.KindNotFound, e.Kind)
	assert.Equal(t, []int{77}, e.Details["missing_product_ids"])
}

func TestGetOrderNotFound(t *testing.T) {
	svc, _, _, _ := newOrderFixture(false)

	_, err := svc.GetOrder(context.Background(), 42)

	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))
}
