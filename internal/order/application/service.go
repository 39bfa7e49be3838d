package application

import (
	"context"
	"log/slog"

	"github.com/dmehra2102/checkout-service/internal/config"
	"github.com/dmehra2102/checkout-service/internal/order/domain"
	"github.com/dmehra2102/checkout-service/pkg/outbox"
	"github.com/dmehra2102/checkout-service/pkg/tracing"
	"github.com/google/uuid"
)

const aggregateType = "order"

type Service struct {
	log     *slog.Logger
	cfg     *config.Stripe
	repo    OrderRepository
	catalog ProductCatalog
	gateway PaymentGateway
	newID   func() string
}

func NewService(log *slog.Logger, cfg *config.Stripe, repo OrderRepository, catalog ProductCatalog, gateway PaymentGateway) *Service {
	return &Service{
		log:     log,
		cfg:     cfg,
		repo:    repo,
		catalog: catalog,
		gateway: gateway,
		newID:   uuid.NewString,
	}
}

// ListOrders returns the order history, newest first.
func (s *Service) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return s.repo.List(ctx)
}

func (s *Service) envelope(ctx context.Context, orderID, eventType string, payload []byte) outbox.Envelope {
	return outbox.Envelope{
		AggregateType: aggregateType,
		AggregateID:   orderID,
		Type:          eventType,
		Payload:       payload,
		Headers:       map[string]string{"source": "checkout-service"},
		Traceparent:   tracing.Traceparent(ctx),
	}
}
