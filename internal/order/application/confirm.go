package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmehra2102/checkout-service/internal/order/domain"
	"github.com/dmehra2102/checkout-service/pkg/outbox"
)

// ConfirmPayment marks the order behind sessionID as paid. The session id
// arrives on an untrusted redirect, so both the session and its payment
// intent are read back from the gateway rather than from the request.
//
// The order is looked up by payment intent, falling back to the
// gateway-confirmed session id for orders whose intent was not known at
// checkout. Repeated calls re-save the order as paid. OrderPaid is emitted
// only on the first transition.
func (s *Service) ConfirmPayment(ctx context.Context, sessionID string) (domain.Order, error) {
	if sessionID == "" {
		return domain.Order{}, fmt.Errorf("%w: missing session id", ErrNotFound)
	}

	sess, err := s.gateway.RetrieveSession(ctx, sessionID)
	if errors.Is(err, ErrNotFound) {
		return domain.Order{}, err
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("%w: retrieve session: %w", ErrGateway, err)
	}
	if sess.PaymentIntent == "" {
		return domain.Order{}, fmt.Errorf("%w: session %s has no payment intent", ErrNotFound, sessionID)
	}

	order, err := s.findConfirmedOrder(ctx, sess)
	if err != nil {
		return domain.Order{}, err
	}

	var events []outbox.Envelope
	if order.MarkPaid() {
		payload, err := json.Marshal(domain.OrderPaid{
			OrderID:         order.ID,
			SessionID:       order.StripeSessionID,
			PaymentIntentID: order.StripePaymentIntent,
			AmountCents:     order.AmountCents,
		})
		if err != nil {
			return domain.Order{}, err
		}
		events = append(events, s.envelope(ctx, order.ID, domain.EventOrderPaid, payload))
	} else {
		s.log.Info("payment already confirmed", "order_id", order.ID, "session_id", sessionID)
	}

	if err := s.repo.Save(ctx, order, events...); err != nil {
		return domain.Order{}, err
	}

	s.log.Info("payment confirmed", "order_id", order.ID, "session_id", sessionID)
	return order, nil
}

func (s *Service) findConfirmedOrder(ctx context.Context, sess Session) (domain.Order, error) {
	order, err := s.repo.FindByPaymentIntent(ctx, sess.PaymentIntent)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, domain.ErrOrderNotFound) {
		return domain.Order{}, err
	}

	order, err = s.repo.FindBySessionID(ctx, sess.ID)
	if errors.Is(err, domain.ErrOrderNotFound) {
		return domain.Order{}, fmt.Errorf("%w: no order for session %s or payment intent %s", ErrNotFound, sess.ID, sess.PaymentIntent)
	}
	if err != nil {
		return domain.Order{}, err
	}
	if err := order.RecordPaymentIntent(sess.PaymentIntent); err != nil {
		s.log.Warn("payment intent mismatch", "order_id", order.ID, "session_id", sess.ID, "err", err)
		return domain.Order{}, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return order, nil
}
