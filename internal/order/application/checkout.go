package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	catalogdomain "github.com/dmehra2102/checkout-service/internal/catalog/domain"
	"github.com/dmehra2102/checkout-service/internal/order/domain"
)

type CheckoutRequest struct {
	ProductID int64
	// Email is forwarded to the gateway as supplied by the client.
	Email      string
	SuccessURL string
	CancelURL  string
}

// BeginCheckout opens a gateway session for a single unit of the product and
// records a pending order keyed by the session id. A missing product wins
// over a missing email. If the order cannot be stored the gateway session
// is left orphaned.
func (s *Service) BeginCheckout(ctx context.Context, req CheckoutRequest) (string, error) {
	product, err := s.catalog.Get(ctx, req.ProductID)
	if errors.Is(err, catalogdomain.ErrProductNotFound) {
		return "", fmt.Errorf("%w: product %d", ErrNotFound, req.ProductID)
	}
	if err != nil {
		return "", err
	}

	if strings.TrimSpace(req.Email) == "" {
		return "", fmt.Errorf("%w: email is required", ErrBadRequest)
	}

	amount := product.UnitAmount()
	sess, err := s.gateway.CreateSession(ctx, SessionParams{
		CustomerEmail: req.Email,
		Currency:      s.cfg.Currency,
		ProductName:   product.Name,
		UnitAmount:    amount,
		Quantity:      1,
		Mode:          ModePayment,
		SuccessURL:    req.SuccessURL,
		CancelURL:     req.CancelURL,
	})
	if err != nil {
		return "", fmt.Errorf("%w: create session: %w", ErrGateway, err)
	}
	if sess.ID == "" {
		return "", fmt.Errorf("%w: gateway returned a session without id", ErrGateway)
	}

	order, err := domain.NewOrder(domain.NewOrderParams{
		ID:              s.newID(),
		CustomerEmail:   req.Email,
		ProductID:       product.ID,
		SessionID:       sess.ID,
		PaymentIntentID: sess.PaymentIntent,
		AmountCents:     amount,
	})
	if err != nil {
		s.log.Warn("orphaned gateway session", "session_id", sess.ID, "err", err)
		return "", err
	}

	payload, err := json.Marshal(domain.OrderCreated{
		OrderID:         order.ID,
		CustomerEmail:   order.CustomerEmail,
		ProductID:       order.ProductID,
		SessionID:       order.StripeSessionID,
		PaymentIntentID: order.StripePaymentIntent,
		AmountCents:     order.AmountCents,
	})
	if err != nil {
		return "", err
	}

	if err := s.repo.Create(ctx, order, s.envelope(ctx, order.ID, domain.EventOrderCreated, payload)); err != nil {
		s.log.Warn("orphaned gateway session", "session_id", sess.ID, "payment_intent", sess.PaymentIntent, "err", err)
		return "", err
	}

	s.log.Info("checkout started", "order_id", order.ID, "product_id", product.ID, "session_id", sess.ID, "amount_cents", amount)
	return sess.ID, nil
}
