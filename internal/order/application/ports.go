package application

import (
	"context"

	catalogdomain "github.com/dmehra2102/checkout-service/internal/catalog/domain"
	"github.com/dmehra2102/checkout-service/internal/order/domain"
	"github.com/dmehra2102/checkout-service/pkg/outbox"
)

// OrderRepository owns the order lifecycle. Create and Save write the
// order row and the given outbox envelopes atomically. Session ids are
// unique, as are payment intents once recorded.
type OrderRepository interface {
	Create(ctx context.Context, o domain.Order, event outbox.Envelope) error
	FindByPaymentIntent(ctx context.Context, intentID string) (domain.Order, error)
	FindBySessionID(ctx context.Context, sessionID string) (domain.Order, error)
	Save(ctx context.Context, o domain.Order, events ...outbox.Envelope) error
	List(ctx context.Context) ([]domain.Order, error)
}

type ProductCatalog interface {
	Get(ctx context.Context, id int64) (catalogdomain.Product, error)
}

// PaymentGateway must return an error wrapping ErrNotFound from
// RetrieveSession when the session id is unknown to the gateway.
type PaymentGateway interface {
	CreateSession(ctx context.Context, p SessionParams) (Session, error)
	RetrieveSession(ctx context.Context, id string) (Session, error)
}

const ModePayment = "payment"

type SessionParams struct {
	CustomerEmail string
	Currency      string
	ProductName   string
	UnitAmount    int64
	Quantity      int64
	Mode          string
	SuccessURL    string
	CancelURL     string
}

// Session mirrors a gateway checkout session. PaymentIntent is empty until
// the buyer has confirmed payment.
type Session struct {
	ID            string
	PaymentIntent string
}
