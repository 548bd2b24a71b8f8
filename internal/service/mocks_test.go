package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/entity"
	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/gateway"
	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/repository"
)

// Hand-written in-memory fakes for the store interfaces. They reproduce the
// observable contracts of the MySQL repositories (sentinel errors, upsert
// merge, guarded payment transitions) without a database.

type fakeProductStore struct {
	products map[int]entity.Product
}

func (f *fakeProductStore) FindByID(_ context.Context, id int) (*entity.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return &p, nil
}

func (f *fakeProductStore) FindManyByIDs(_ context.Context, ids []int) (map[int]entity.Product, error) {
	found := map[int]entity.Product{}
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			found[id] = p
		}
	}
	return found, nil
}

type fakeClientStore struct {
	clients map[int]entity.Client
	primary map[int]*entity.Despacho
}

func (f *fakeClientStore) GetByID(_ context.Context, id int) (*entity.Client, error) {
	cl, ok := f.clients[id]
	if !ok {
		return nil, repository.ErrClientNotFound
	}
	return &cl, nil
}

func (f *fakeClientStore) GetPrimaryAddress(_ context.Context, clientID int) (*entity.Despacho, error) {
	return f.primary[clientID], nil
}

type fakeCartStore struct {
	carts  map[int]*entity.Cart
	nextID int
}

func newFakeCartStore() *fakeCartStore {
	return &fakeCartStore{carts: map[int]*entity.Cart{}, nextID: 1}
}

func (f *fakeCartStore) GetByID(_ context.Context, id int) (*entity.Cart, error) {
	cart, ok := f.carts[id]
	if !ok {
		return nil, repository.ErrCartNotFound
	}
	cp := *cart
	cp.Items = append([]entity.CartItem(nil), cart.Items...)
	return &cp, nil
}

func (f *fakeCartStore) GetActiveByClient(_ context.Context, clienteID int) (*entity.Cart, error) {
	for _, cart := range f.carts {
		if cart.ClienteID != nil && *cart.ClienteID == clienteID && cart.Estado == entity.CartStatusActive {
			return cart, nil
		}
	}
	return nil, nil
}

func (f *fakeCartStore) Create(_ context.Context, clienteID *int) (*entity.Cart, error) {
	cart := &entity.Cart{
		ID:        f.nextID,
		ClienteID: clienteID,
		Estado:    entity.CartStatusActive,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	f.nextID++
	f.carts[cart.ID] = cart
	return cart, nil
}

func (f *fakeCartStore) MergeItem(_ context.Context, cartID, productID, qty int, replace bool, price func(totalQty int) (entity.CartItem, error)) error {
	cart, ok := f.carts[cartID]
	if !ok {
		return repository.ErrCartNotFound
	}
	if cart.Estado != entity.CartStatusActive {
		return repository.ErrCartNotActive
	}

	totalQty := qty
	idx := -1
	for i, it := range cart.Items {
		if it.ProductID == productID {
			idx = i
			if !replace {
				totalQty += it.Cantidad
			}
			break
		}
	}

	item, err := price(totalQty)
	if err != nil {
		return err
	}
	if idx >= 0 {
		cart.Items[idx] = item
	} else {
		cart.Items = append(cart.Items, item)
	}
	return nil
}

func (f *fakeCartStore) RemoveItem(_ context.Context, cartID, productID int) error {
	cart, ok := f.carts[cartID]
	if !ok {
		return repository.ErrCartNotFound
	}
	for i, it := range cart.Items {
		if it.ProductID == productID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeCartStore) Clear(_ context.Context, cartID int) error {
	cart, ok := f.carts[cartID]
	if !ok {
		return repository.ErrCartNotFound
	}
	cart.Items = nil
	return nil
}

type fakeQuoteStore struct {
	quotes map[int]*entity.Quote
	carts  *fakeCartStore
	linked map[int]int
	notifs []entity.Notification
	nextID int

	// searchMisses simulates the pre-check losing a race: lookups return
	// nothing while the insert-time window check still sees stored rows.
	searchMisses bool
}

func newFakeQuoteStore(carts *fakeCartStore) *fakeQuoteStore {
	return &fakeQuoteStore{
		quotes: map[int]*entity.Quote{},
		carts:  carts,
		linked: map[int]int{},
		nextID: 1,
	}
}

func (f *fakeQuoteStore) Create(_ context.Context, q *entity.Quote, dedupSince time.Time) (*entity.Quote, error) {
	for _, existing := range f.quotes {
		if existing.Fingerprint == q.Fingerprint && existing.CreatedAt.After(dedupSince) {
			return nil, repository.ErrQuoteDuplicate
		}
	}

	q.ID = f.nextID
	q.Correlativo = f.nextID
	q.Codigo = fmt.Sprintf("%s-%06d", entity.QuoteCodePrefix, f.nextID)
	q.CreatedAt = time.Now()
	f.nextID++
	f.quotes[q.ID] = q
	return q, nil
}

func (f *fakeQuoteStore) GetByID(_ context.Context, id int) (*entity.Quote, error) {
	q, ok := f.quotes[id]
	if !ok {
		return nil, repository.ErrQuoteNotFound
	}
	return q, nil
}

func (f *fakeQuoteStore) FindRecentByFingerprint(_ context.Context, fingerprint string, since time.Time) (*entity.Quote, error) {
	if f.searchMisses {
		return nil, nil
	}
	for _, q := range f.quotes {
		if q.Fingerprint == fingerprint && q.CreatedAt.After(since) {
			return q, nil
		}
	}
	return nil, nil
}

func (f *fakeQuoteStore) ConvertToCart(_ context.Context, quote *entity.Quote, cartID int, notif *entity.Notification) error {
	cart, ok := f.carts.carts[cartID]
	if !ok {
		return repository.ErrCartNotFound
	}
	if cart.Estado != entity.CartStatusActive {
		return repository.ErrCartNotActive
	}

	for _, qi := range quote.Items {
		item := entity.CartItem{
			CartID:      cartID,
			ProductID:   qi.ProductID,
			Nombre:      qi.Nombre,
			Cantidad:    qi.Cantidad,
			UnitNet:     qi.UnitNet,
			SubtotalNet: qi.SubtotalNet,
			IVAAmount:   qi.IVAAmount,
			Total:       qi.Total,
		}
		replaced := false
		for i, it := range cart.Items {
			if it.ProductID == qi.ProductID {
				cart.Items[i] = item
				replaced = true
				break
			}
		}
		if !replaced {
			cart.Items = append(cart.Items, item)
		}
	}

	f.quotes[quote.ID].Estado = entity.QuoteStatusInReview
	f.notifs = append(f.notifs, *notif)
	return nil
}

func (f *fakeQuoteStore) CountLinkedOrders(_ context.Context, quoteID int) (int, error) {
	return f.linked[quoteID], nil
}

func (f *fakeQuoteStore) SoftCancel(_ context.Context, quoteID int, meta map[string]any) error {
	q, ok := f.quotes[quoteID]
	if !ok {
		return repository.ErrQuoteNotFound
	}
	if q.Metadata == nil {
		q.Metadata = map[string]any{}
	}
	for k, v := range meta {
		q.Metadata[k] = v
	}
	q.Estado = entity.QuoteStatusClosed
	return nil
}

func (f *fakeQuoteStore) HardDelete(_ context.Context, quoteID int) error {
	if _, ok := f.quotes[quoteID]; !ok {
		return repository.ErrQuoteNotFound
	}
	delete(f.quotes, quoteID)
	return nil
}

type fakeOrderStore struct {
	orders map[int]*entity.Order
	carts  *fakeCartStore
	notifs []entity.Notification
	nextID int
}

func newFakeOrderStore(carts *fakeCartStore) *fakeOrderStore {
	return &fakeOrderStore{orders: map[int]*entity.Order{}, carts: carts, nextID: 1}
}

func (f *fakeOrderStore) Create(_ context.Context, o *entity.Order, fromCartID *int, notif *entity.Notification) (*entity.Order, error) {
	if fromCartID != nil {
		cart, ok := f.carts.carts[*fromCartID]
		if !ok || cart.Estado != entity.CartStatusActive {
			return nil, repository.ErrCartNotActive
		}
		cart.Estado = entity.CartStatusConverted
	}

	o.ID = f.nextID
	o.Correlativo = f.nextID
	o.Codigo = fmt.Sprintf("%s-%06d", entity.OrderCodePrefix, f.nextID)
	f.nextID++
	f.orders[o.ID] = o

	notif.RefID = o.ID
	f.notifs = append(f.notifs, *notif)
	return o, nil
}

func (f *fakeOrderStore) GetByID(_ context.Context, id int) (*entity.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return o, nil
}

type fakePaymentStore struct {
	mu       sync.Mutex
	payments map[int]*entity.Payment
	orders   *fakeOrderStore
	notifs   []entity.Notification
	nextID   int
}

func newFakePaymentStore(orders *fakeOrderStore) *fakePaymentStore {
	return &fakePaymentStore{payments: map[int]*entity.Payment{}, orders: orders, nextID: 1}
}

func (f *fakePaymentStore) GetByID(_ context.Context, id int) (*entity.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.payments[id]
	if !ok {
		return nil, repository.ErrPaymentNotFound
	}
	return p, nil
}

func (f *fakePaymentStore) GetByReference(_ context.Context, referencia string) (*entity.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.payments {
		if p.Referencia == referencia {
			return p, nil
		}
	}
	return nil, repository.ErrPaymentNotFound
}

func (f *fakePaymentStore) GetPendingByOrderProvider(_ context.Context, orderID int, provider entity.PaymentProvider) (*entity.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pendingLocked(orderID, provider), nil
}

func (f *fakePaymentStore) pendingLocked(orderID int, provider entity.PaymentProvider) *entity.Payment {
	for _, p := range f.payments {
		if p.OrderID == orderID && p.Provider == provider && p.Estado == entity.PaymentStatusPending {
			return p
		}
	}
	return nil
}

// CreatePending mirrors the repository contract: creation serializes per
// store, the pending re-check runs under the lock, and open only fires for
// the winner.
func (f *fakePaymentStore) CreatePending(ctx context.Context, orderID int, provider entity.PaymentProvider, open func(ctx context.Context) (*entity.Payment, error)) (*entity.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if existing := f.pendingLocked(orderID, provider); existing != nil {
		return existing, nil
	}

	p, err := open(ctx)
	if err != nil {
		return nil, err
	}
	p.ID = f.nextID
	f.nextID++
	f.payments[p.ID] = p
	return p, nil
}

func (f *fakePaymentStore) ApplyEvent(_ context.Context, paymentID int, incoming entity.PaymentStatus, event map[string]any, notif *entity.Notification) (*entity.Payment, bool, error) {
	p, ok := f.payments[paymentID]
	if !ok {
		return nil, false, repository.ErrPaymentNotFound
	}

	next := entity.NextPaymentState(p.Estado, incoming)
	confirmedNow := next == entity.PaymentStatusConfirmed && p.Estado != entity.PaymentStatusConfirmed
	p.Estado = next
	p.GatewayPayload = entity.AppendAudit(p.GatewayPayload, event)

	if confirmedNow {
		if o, ok := f.orders.orders[p.OrderID]; ok {
			o.Estado = entity.OrderStatusPaid
		}
		f.notifs = append(f.notifs, *notif)
	}
	return p, confirmedNow, nil
}

type fakeOutboxStore struct {
	pending []entity.Notification
	sent    []int
	failed  []int
}

func (f *fakeOutboxStore) Insert(_ context.Context, n *entity.Notification) error {
	f.pending = append(f.pending, *n)
	return nil
}

func (f *fakeOutboxStore) FetchPending(_ context.Context, limit int) ([]entity.Notification, error) {
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeOutboxStore) MarkSent(_ context.Context, id int) error {
	f.sent = append(f.sent, id)
	return nil
}

func (f *fakeOutboxStore) MarkFailed(_ context.Context, id int) error {
	f.failed = append(f.failed, id)
	return nil
}

type fakeGuard struct {
	counts map[string]int
	max    int
	err    error
}

func newFakeGuard(max int) *fakeGuard {
	return &fakeGuard{counts: map[string]int{}, max: max}
}

func (f *fakeGuard) Allow(_ context.Context, key string, _ time.Duration, max int) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.counts[key]++
	limit := f.max
	if limit == 0 {
		limit = max
	}
	return f.counts[key] <= limit, nil
}

// fakeGateway scripts the provider side of a payment flow.
type fakeGateway struct {
	mu        sync.Mutex
	provider  entity.PaymentProvider
	createRes *gateway.CreateResult
	createErr error
	event     *gateway.Event
	eventErr  error
	statusErr error
	creates   int
}

func (f *fakeGateway) Provider() entity.PaymentProvider { return f.provider }

func (f *fakeGateway) Create(_ context.Context, _ *entity.Order) (*gateway.CreateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	return f.createRes, f.createErr
}

func (f *fakeGateway) createCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates
}

func (f *fakeGateway) ParseWebhook(_ context.Context, _ []byte, _ string) (*gateway.Event, error) {
	if f.eventErr != nil {
		return nil, f.eventErr
	}
	return f.event, nil
}

func (f *fakeGateway) Status(ctx context.Context, _ string) (*gateway.Event, error) {
	if f.statusErr != nil {
		return nil, f.statusErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return f.event, nil
}

// fakeCommitGateway additionally satisfies gateway.Committer.
type fakeCommitGateway struct {
	fakeGateway
	commitEvent *gateway.Event
	commitErr   error
	commits     int
}

func (f *fakeCommitGateway) Commit(_ context.Context, _ string) (*gateway.Event, error) {
	f.commits++
	return f.commitEvent, f.commitErr
}

type fakeMessageWriter struct {
	messages []kafka.Message
	err      error
}

func (f *fakeMessageWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}
