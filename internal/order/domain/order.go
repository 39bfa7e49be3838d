package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrOrderNotFound = errors.New("order not found")
	ErrInvalidOrder  = errors.New("invalid order")

	ErrPaymentIntentMismatch = errors.New("payment intent mismatch")
)

type Order struct {
	ID                  string
	CustomerEmail       string
	ProductID           int64
	StripeSessionID     string
	StripePaymentIntent string
	AmountCents         int64
	HasPaid             bool
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type NewOrderParams struct {
	ID              string
	CustomerEmail   string
	ProductID       int64
	SessionID       string
	PaymentIntentID string
	AmountCents     int64
}

// NewOrder builds a pending order keyed by its gateway session. The payment
// intent is usually unknown until the buyer pays and may be empty here.
func NewOrder(p NewOrderParams) (Order, error) {
	switch {
	case strings.TrimSpace(p.ID) == "":
		return Order{}, fmt.Errorf("%w: id is required", ErrInvalidOrder)
	case strings.TrimSpace(p.CustomerEmail) == "":
		return Order{}, fmt.Errorf("%w: customer email is required", ErrInvalidOrder)
	case p.ProductID <= 0:
		return Order{}, fmt.Errorf("%w: product id is required", ErrInvalidOrder)
	case strings.TrimSpace(p.SessionID) == "":
		return Order{}, fmt.Errorf("%w: session id is required", ErrInvalidOrder)
	case p.AmountCents <= 0:
		return Order{}, fmt.Errorf("%w: amount must be positive", ErrInvalidOrder)
	}

	now := time.Now().UTC()
	return Order{
		ID:                  p.ID,
		CustomerEmail:       p.CustomerEmail,
		ProductID:           p.ProductID,
		StripeSessionID:     p.SessionID,
		StripePaymentIntent: p.PaymentIntentID,
		AmountCents:         p.AmountCents,
		HasPaid:             false,
		CreatedAt:           now,
		UpdatedAt:           now,
	}, nil
}

// RecordPaymentIntent attaches the gateway payment intent. An order that
// already carries a different intent is left untouched and reported as a
// mismatch.
func (o *Order) RecordPaymentIntent(intentID string) error {
	switch o.StripePaymentIntent {
	case intentID:
		return nil
	case "":
		o.StripePaymentIntent = intentID
		return nil
	default:
		return fmt.Errorf("%w: order %s is bound to payment intent %s", ErrPaymentIntentMismatch, o.ID, o.StripePaymentIntent)
	}
}

// MarkPaid reports whether the order moved from unpaid to paid.
func (o *Order) MarkPaid() bool {
	o.UpdatedAt = time.Now().UTC()
	if o.HasPaid {
		return false
	}
	o.HasPaid = true
	return true
}
