package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/apperr"
	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/entity"
)

func newQuoteFixture(rateMax int) (*QuoteService, *fakeQuoteStore, *fakeCartStore, *fakeGuard) {
	carts := newFakeCartStore()
	products := &fakeProductStore{products: map[int]entity.Product{
		1: {ID: 1, Nombre: "Perno", ListPrice: 1000},
		2: {ID: 2, Nombre: "Plancha", ListPrice: 5000},
	}}
	clients := &fakeClientStore{clients: map[int]entity.Client{
		7: {ID: 7, Nombre: "Ana", Email: "ana@example.com"},
	}}
	quotes := newFakeQuoteStore(carts)
	guard := newFakeGuard(rateMax)

	cartSvc := NewCartService(carts, products, clients, 19)
	svc := NewQuoteService(quotes, products, cartSvc, guard, 19, 30*time.Minute, 15*time.Minute, rateMax)
	return svc, quotes, carts, guard
}

func quoteInput() CreateQuoteInput {
	return CreateQuoteInput{
		Contact:  entity.QuoteContact{Nombre: "Ana", Email: "ana@example.com", Telefono: "+56911111111"},
		Items:    []QuoteItemInput{{ProductID: 1, Cantidad: 2}},
		ClientIP: "10.0.0.1",
	}
}

func TestCreateQuoteFreezesPrices(t *testing.T) {
	svc, _, _, _ := newQuoteFixture(100)

	quote, err := svc.CreateQuote(context.Background(), quoteInput())
	require.NoError(t, err)

	assert.Equal(t, "COT-000001", quote.Codigo)
	assert.Equal(t, entity.QuoteStatusNew, quote.Estado)
	require.Len(t, quote.Items, 1)
	assert.Equal(t, int64(1000), quote.Items[0].UnitNet)
	assert.Equal(t, int64(2000), quote.SubtotalNet)
	assert.Equal(t, int64(380), quote.IVA)
	assert.Equal(t, int64(2380), quote.Total)
}

func TestCreateQuoteDuplicateWithinWindow(t *testing.T) {
	svc, _, _, _ := newQuoteFixture(100)
	ctx := context.Background()

	first, err := svc.CreateQuote(ctx, quoteInput())
	require.NoError(t, err)

	_, err = svc.CreateQuote(ctx, quoteInput())
	require.Error(t, err)

	e := apperr.From(err)
	assert.Equal(t, apperr.KindConflict, e.Kind)
	assert.Equal(t, first.ID, e.Details["existing_quote_id"])
	assert.Equal(t, first.Codigo, e.Details["codigo"])
}

// Even when the lookup pre-check misses (as it can when two identical
// submissions race), the insert-time window check inside the store still
// rejects the second quote.
func TestCreateQuoteInsertTimeDedup(t *testing.T) {
	svc, quotes, _, _ := newQuoteFixture(100)
	ctx := context.Background()

	_, err := svc.CreateQuote(ctx, quoteInput())
	require.NoError(t, err)

	quotes.searchMisses = true
	_, err = svc.CreateQuote(ctx, quoteInput())
	require.Error(t, err)

	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
	assert.Len(t, quotes.quotes, 1)
}

func TestCreateQuoteDifferentItemsNotDeduped(t *testing.T) {
	svc, _, _, _ := newQuoteFixture(100)
	ctx := context.Background()

	_, err := svc.CreateQuote(ctx, quoteInput())
	require.NoError(t, err)

	in := quoteInput()
	in.Items = []QuoteItemInput{{ProductID: 1, Cantidad: 3}}
	_, err = svc.CreateQuote(ctx, in)

	assert.NoError(t, err)
}

func TestCreateQuoteRateLimited(t *testing.T) {
	svc, _, _, _ := newQuoteFixture(1)
	ctx := context.Background()

	_, err := svc.CreateQuote(ctx, quoteInput())
	require.NoError(t, err)

	in := quoteInput()
	in.Items = []QuoteItemInput{{ProductID: 2, Cantidad: 1}}
	_, err = svc.CreateQuote(ctx, in)
	require.Error(t, err)

	e := apperr.From(err)
	assert.Equal(t, apperr.KindConflict, e.Kind)
	assert.Equal(t, http.StatusTooManyRequests, e.HTTPStatus())
}

func TestCreateQuoteGuardOutageFailsOpen(t *testing.T) {
	svc, _, _, guard := newQuoteFixture(1)
	guard.err = errors.New("redis down")

	_, err := svc.CreateQuote(context.Background(), quoteInput())

	assert.NoError(t, err)
}

func TestCreateQuoteListsAllMissingProducts(t *testing.T) {
	svc, _, _, _ := newQuoteFixture(100)
	in := quoteInput()
	in.Items = []QuoteItemInput{
		{ProductID: 1, Cantidad: 1},
		{ProductID: 90, Cantidad: 1},
		{ProductID: 91, Cantidad: 1},
	}

	_, err := svc.CreateQuote(context.Background(), in)
	require.Error(t, err)

	e := apperr.From(err)
	assert.Equal(t, apperr.KindNotFound, e.Kind)
	assert.Equal(t, []int{90, 91}, e.Details["missing_product_ids"])
}

func TestCreateQuoteRejectsEmptyAndNonPositive(t *testing.T) {
	svc, _, _, _ := newQuoteFixture(100)
	ctx := context.Background()

	in := quoteInput()
	in.Items = nil
	_, err := svc.CreateQuote(ctx, in)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	in = quoteInput()
	in.Items = []QuoteItemInput{{ProductID: 1, Cantidad: -1}}
	_, err = svc.CreateQuote(ctx, in)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))
}

// Conversion must carry the frozen snapshot even after the catalog price
// moved: a line quoted at 5000 stays 5000 in the cart.
func TestConvertToCartKeepsFrozenPrices(t *testing.T) {
	svc, quotes, _, _ := newQuoteFixture(100)
	ctx := context.Background()

	in := quoteInput()
	in.Items = []QuoteItemInput{{ProductID: 2, Cantidad: 1}}
	quote, err := svc.CreateQuote(ctx, in)
	require.NoError(t, err)
	require.Equal(t, int64(5000), quote.Items[0].UnitNet)

	// Catalog price changes after the quote was issued.
	products := svc.products.(*fakeProductStore)
	p := products.products[2]
	p.ListPrice = 9000
	products.products[2] = p

	cart, err := svc.ConvertToCart(ctx, quote.ID)
	require.NoError(t, err)

	require.Len(t, cart.Items, 1)
	assert.Equal(t, int64(5000), cart.Items[0].UnitNet)
	assert.Equal(t, entity.QuoteStatusInReview, quotes.quotes[quote.ID].Estado)
	require.Len(t, quotes.notifs, 1)
	assert.Equal(t, "QUOTE_CONVERTED", quotes.notifs[0].Type)
}

func TestConvertClosedQuoteConflicts(t *testing.T) {
	svc, quotes, _, _ := newQuoteFixture(100)
	ctx := context.Background()

	quote, err := svc.CreateQuote(ctx, quoteInput())
	require.NoError(t, err)
	quotes.quotes[quote.ID].Estado = entity.QuoteStatusClosed

	_, err = svc.ConvertToCart(ctx, quote.ID)

	assert.True(t, apperr.IsKind(err, apperr.KindConflict))
}

func TestCancelUnlinkedQuoteHardDeletes(t *testing.T) {
	svc, quotes, _, _ := newQuoteFixture(100)
	ctx := context.Background()

	quote, err := svc.CreateQuote(ctx, quoteInput())
	require.NoError(t, err)

	require.NoError(t, svc.CancelOrDelete(ctx, quote.ID, "cliente desistió", "op-1"))

	_, ok := quotes.quotes[quote.ID]
	assert.False(t, ok)
}

func TestCancelLinkedQuoteSoftCancels(t *testing.T) {
	svc, quotes, _, _ := newQuoteFixture(100)
	ctx := context.Background()

	quote, err := svc.CreateQuote(ctx, quoteInput())
	require.NoError(t, err)
	quotes.linked[quote.ID] = 1

	require.NoError(t, svc.CancelOrDelete(ctx, quote.ID, "cliente desistió", "op-1"))

	stored := quotes.quotes[quote.ID]
	require.NotNil(t, stored)
	assert.Equal(t, entity.QuoteStatusClosed, stored.Estado)
	assert.Equal(t, "cliente desistió", stored.Metadata["reason"])
	assert.Equal(t, "op-1", stored.Metadata["actorId"])
	assert.NotEmpty(t, stored.Metadata["cancelledAt"])
}
