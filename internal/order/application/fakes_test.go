package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"

	catalogdomain "github.com/dmehra2102/checkout-service/internal/catalog/domain"
	"github.com/dmehra2102/checkout-service/internal/config"
	"github.com/dmehra2102/checkout-service/internal/order/domain"
	"github.com/dmehra2102/checkout-service/pkg/outbox"
)

type memOrders struct {
	mu        sync.Mutex
	orders    map[string]domain.Order
	events    []outbox.Envelope
	saves     int
	createErr error
}

func newMemOrders() *memOrders {
	return &memOrders{orders: map[string]domain.Order{}}
}

func (m *memOrders) Create(_ context.Context, o domain.Order, event outbox.Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.orders {
		if existing.StripeSessionID == o.StripeSessionID {
			return errors.New("duplicate session id")
		}
		if o.StripePaymentIntent != "" && existing.StripePaymentIntent == o.StripePaymentIntent {
			return errors.New("duplicate payment intent")
		}
	}
	m.orders[o.ID] = o
	m.events = append(m.events, event)
	return nil
}

func (m *memOrders) FindByPaymentIntent(_ context.Context, intentID string) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if intentID != "" && o.StripePaymentIntent == intentID {
			return o, nil
		}
	}
	return domain.Order{}, domain.ErrOrderNotFound
}

func (m *memOrders) FindBySessionID(_ context.Context, sessionID string) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.StripeSessionID == sessionID {
			return o, nil
		}
	}
	return domain.Order{}, domain.ErrOrderNotFound
}

func (m *memOrders) Save(_ context.Context, o domain.Order, events ...outbox.Envelope) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.ID]; !ok {
		return domain.ErrOrderNotFound
	}
	m.orders[o.ID] = o
	m.events = append(m.events, events...)
	m.saves++
	return nil
}

func (m *memOrders) List(_ context.Context) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Order, 0, len(m.orders))
	for _, o := range m.orders {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memOrders) all() []domain.Order {
	out, _ := m.List(context.Background())
	return out
}

type fakeCatalog map[int64]catalogdomain.Product

func (c fakeCatalog) Get(_ context.Context, id int64) (catalogdomain.Product, error) {
	p, ok := c[id]
	if !ok {
		return catalogdomain.Product{}, catalogdomain.ErrProductNotFound
	}
	return p, nil
}

// fakeGateway behaves like current Stripe API versions: sessions are created
// without a payment intent, and paidIntent is attached once the session is
// retrieved after payment.
type fakeGateway struct {
	mu         sync.Mutex
	created    []SessionParams
	sessions   map[string]Session
	createErr  error
	getErr     error
	next       Session
	paidIntent string
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		sessions:   map[string]Session{},
		next:       Session{ID: "cs_123"},
		paidIntent: "pi_123",
	}
}

func (g *fakeGateway) CreateSession(_ context.Context, p SessionParams) (Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return Session{}, g.createErr
	}
	g.created = append(g.created, p)
	paid := g.next
	if paid.PaymentIntent == "" {
		paid.PaymentIntent = g.paidIntent
	}
	g.sessions[g.next.ID] = paid
	return g.next, nil
}

func (g *fakeGateway) RetrieveSession(_ context.Context, id string) (Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.getErr != nil {
		return Session{}, g.getErr
	}
	s, ok := g.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(orders *memOrders, catalog fakeCatalog, gw *fakeGateway) *Service {
	return NewService(discardLogger(), &config.Stripe{SecretKey: "sk_test", Currency: "inr"}, orders, catalog, gw)
}
