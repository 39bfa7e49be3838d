package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validParams() NewOrderParams {
	return NewOrderParams{
		ID:              "order-1",
		CustomerEmail:   "a@b.com",
		ProductID:       1,
		SessionID:       "cs_test_1",
		PaymentIntentID: "pi_123",
		AmountCents:     999,
	}
}

func TestNewOrderIsPending(t *testing.T) {
	o, err := NewOrder(validParams())
	require.NoError(t, err)

	assert.False(t, o.HasPaid)
	assert.Equal(t, "pi_123", o.StripePaymentIntent)
	assert.Equal(t, "cs_test_1", o.StripeSessionID)
	assert.Equal(t, int64(999), o.AmountCents)
	assert.Equal(t, o.CreatedAt, o.UpdatedAt)
}

func TestNewOrderValidation(t *testing.T) {
	cases := map[string]func(*NewOrderParams){
		"missing id":      func(p *NewOrderParams) { p.ID = "" },
		"missing email":   func(p *NewOrderParams) { p.CustomerEmail = " " },
		"missing product": func(p *NewOrderParams) { p.ProductID = 0 },
		"missing session": func(p *NewOrderParams) { p.SessionID = "" },
		"zero amount":     func(p *NewOrderParams) { p.AmountCents = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := validParams()
			mutate(&p)
			_, err := NewOrder(p)
			assert.ErrorIs(t, err, ErrInvalidOrder)
		})
	}
}

func TestMarkPaidTransitionsOnce(t *testing.T) {
	o, err := NewOrder(validParams())
	require.NoError(t, err)

	assert.True(t, o.MarkPaid())
	assert.True(t, o.HasPaid)

	assert.False(t, o.MarkPaid())
	assert.True(t, o.HasPaid)
}

func TestNewOrderWithoutPaymentIntent(t *testing.T) {
	p := validParams()
	p.PaymentIntentID = ""
	o, err := NewOrder(p)
	require.NoError(t, err)
	assert.Empty(t, o.StripePaymentIntent)
}

func TestRecordPaymentIntent(t *testing.T) {
	p := validParams()
	p.PaymentIntentID = ""
	o, err := NewOrder(p)
	require.NoError(t, err)

	require.NoError(t, o.RecordPaymentIntent("pi_1"))
	assert.Equal(t, "pi_1", o.StripePaymentIntent)
	require.NoError(t, o.RecordPaymentIntent("pi_1"))

	err = o.RecordPaymentIntent("pi_2")
	assert.ErrorIs(t, err, ErrPaymentIntentMismatch)
	assert.Equal(t, "pi_1", o.StripePaymentIntent)
}
