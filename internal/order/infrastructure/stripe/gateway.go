package stripe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/dmehra2102/checkout-service/internal/config"
	"github.com/dmehra2102/checkout-service/internal/order/application"
	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

const paymentMethodCard = "card"

// Gateway talks to Stripe Checkout with its own key and backend so that no
// package-level stripe state is touched.
type Gateway struct {
	log    *slog.Logger
	client session.Client
}

func NewGateway(log *slog.Logger, cfg *config.Stripe) *Gateway {
	backendCfg := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: 30 * time.Second},
		MaxNetworkRetries: stripe.Int64(2),
	}
	if cfg.APIURL != "" {
		backendCfg.URL = stripe.String(cfg.APIURL)
	}
	return &Gateway{
		log: log,
		client: session.Client{
			B:   stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
			Key: cfg.SecretKey,
		},
	}
}

func (g *Gateway) CreateSession(ctx context.Context, p application.SessionParams) (application.Session, error) {
	params := &stripe.CheckoutSessionParams{
		CustomerEmail:      stripe.String(p.CustomerEmail),
		PaymentMethodTypes: stripe.StringSlice([]string{paymentMethodCard}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(p.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(p.ProductName),
					},
					UnitAmount: stripe.Int64(p.UnitAmount),
				},
				Quantity: stripe.Int64(p.Quantity),
			},
		},
		Mode:       stripe.String(p.Mode),
		SuccessURL: stripe.String(p.SuccessURL),
		CancelURL:  stripe.String(p.CancelURL),
	}
	params.Context = ctx

	s, err := g.client.New(params)
	if err != nil {
		g.log.Error("stripe create session failed", "err", err)
		return application.Session{}, err
	}
	return toSession(s), nil
}

func (g *Gateway) RetrieveSession(ctx context.Context, id string) (application.Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	s, err := g.client.Get(id, params)
	if err != nil {
		var serr *stripe.Error
		if errors.As(err, &serr) && (serr.HTTPStatusCode == http.StatusNotFound || serr.Code == stripe.ErrorCodeResourceMissing) {
			return application.Session{}, fmt.Errorf("%w: checkout session %s", application.ErrNotFound, id)
		}
		g.log.Error("stripe retrieve session failed", "session_id", id, "err", err)
		return application.Session{}, err
	}
	return toSession(s), nil
}

func toSession(s *stripe.CheckoutSession) application.Session {
	out := application.Session{ID: s.ID}
	if s.PaymentIntent != nil {
		out.PaymentIntent = s.PaymentIntent.ID
	}
	return out
}
