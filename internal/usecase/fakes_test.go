package usecase

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/phenrril/quickcart/internal/domain"
	"github.com/phenrril/quickcart/internal/events"
)

func product(id string, price, mrp int64) domain.Product {
	return domain.Product{
		ID:    id,
		Name:  "product " + id,
		Price: decimal.NewFromInt(price),
		MRP:   decimal.NewFromInt(mrp),
	}
}

type fakeAuth struct {
	token string
	err   error
	calls atomic.Int32
}

func (f *fakeAuth) Login(context.Context, domain.Credentials) (string, error) {
	f.calls.Add(1)
	return f.token, f.err
}

type fakeProducts struct {
	mu     sync.Mutex
	list   func(q url.Values) (*domain.ProductPage, error)
	facets func(q url.Values) (*domain.Facets, error)
	get    func(id string) (*domain.Product, error)
	lists  []url.Values
	facetQ []url.Values
}

func (f *fakeProducts) ListProducts(_ context.Context, q url.Values) (*domain.ProductPage, error) {
	f.mu.Lock()
	f.lists = append(f.lists, q)
	fn := f.list
	f.mu.Unlock()
	if fn == nil {
		return &domain.ProductPage{TotalPages: 1}, nil
	}
	return fn(q)
}

func (f *fakeProducts) ProductFacets(_ context.Context, q url.Values) (*domain.Facets, error) {
	f.mu.Lock()
	f.facetQ = append(f.facetQ, q)
	fn := f.facets
	f.mu.Unlock()
	if fn == nil {
		return &domain.Facets{}, nil
	}
	return fn(q)
}

func (f *fakeProducts) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	if f.get == nil {
		return nil, domain.ErrNotFound
	}
	return f.get(id)
}

func (f *fakeProducts) listCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lists)
}

func (f *fakeProducts) facetCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.facetQ)
}

type fakeAddresses struct {
	mu       sync.Mutex
	list     []domain.Address
	listErr  error
	writeErr error
	created  []domain.AddressForm
	updated  map[string]domain.AddressForm
	defaults []string
	deleted  []string
}

func (f *fakeAddresses) ListAddresses(context.Context) ([]domain.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.Address(nil), f.list...), nil
}

func (f *fakeAddresses) CreateAddress(_ context.Context, form domain.AddressForm) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.created = append(f.created, form)
	a := domain.Address{ID: "new-" + form.Name, Name: form.Name, City: form.City}
	if form.IsDefault != nil {
		a.IsDefault = *form.IsDefault
	}
	f.list = append(f.list, a)
	return nil
}

func (f *fakeAddresses) UpdateAddress(_ context.Context, id string, form domain.AddressForm) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	if f.updated == nil {
		f.updated = map[string]domain.AddressForm{}
	}
	f.updated[id] = form
	return nil
}

func (f *fakeAddresses) SetDefaultAddress(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.defaults = append(f.defaults, id)
	return nil
}

func (f *fakeAddresses) DeleteAddress(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.writeErr != nil {
		return f.writeErr
	}
	f.deleted = append(f.deleted, id)
	kept := f.list[:0]
	for _, a := range f.list {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	f.list = kept
	return nil
}

type fakeOrders struct {
	orderID  string
	err      error
	order    *domain.Order
	getErr   error
	requests []domain.PlaceOrderRequest
}

func (f *fakeOrders) CreateOrder(_ context.Context, req domain.PlaceOrderRequest) (string, error) {
	f.requests = append(f.requests, req)
	return f.orderID, f.err
}

func (f *fakeOrders) GetOrder(context.Context, string) (*domain.Order, error) {
	return f.order, f.getErr
}

type fakePayments struct {
	key       string
	keyErr    error
	gw        *domain.GatewayOrder
	gwErr     error
	verifyErr error
	verified  []domain.VerifyPaymentRequest
	calls     atomic.Int32
}

func (f *fakePayments) GatewayKey(context.Context) (string, error) {
	f.calls.Add(1)
	return f.key, f.keyErr
}

func (f *fakePayments) CreateGatewayOrder(context.Context, string) (*domain.GatewayOrder, error) {
	f.calls.Add(1)
	return f.gw, f.gwErr
}

func (f *fakePayments) VerifyPayment(_ context.Context, req domain.VerifyPaymentRequest) error {
	f.calls.Add(1)
	f.verified = append(f.verified, req)
	return f.verifyErr
}

type fakeScript struct {
	err   error
	loads atomic.Int32
}

func (f *fakeScript) Load(context.Context) error {
	f.loads.Add(1)
	return f.err
}

func (f *fakeScript) Path() string { return "/assets/gateway-checkout.js" }

// toastLog records every toast published on a bus.
type toastLog struct {
	mu   sync.Mutex
	msgs []events.Toast
}

func recordToasts(b *events.Bus[events.Toast]) *toastLog {
	l := &toastLog{}
	b.Subscribe(func(t events.Toast) {
		l.mu.Lock()
		l.msgs = append(l.msgs, t)
		l.mu.Unlock()
	})
	return l
}

func (l *toastLog) last() events.Toast {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.msgs) == 0 {
		return events.Toast{}
	}
	return l.msgs[len(l.msgs)-1]
}

func (l *toastLog) messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.msgs))
	for i, t := range l.msgs {
		out[i] = t.Message
	}
	return out
}
