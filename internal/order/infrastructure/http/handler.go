package http

import (
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmehra2102/checkout-service/internal/order/application"
	"github.com/dmehra2102/checkout-service/internal/order/domain"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SessionPlaceholder is substituted by Stripe with the real session id when
// it redirects the buyer back.
const SessionPlaceholder = "{CHECKOUT_SESSION_ID}"

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type Handler struct {
	log        *slog.Logger
	service    *application.Service
	baseURL    string
	checkoutMW []func(http.Handler) http.Handler
	tracer     trace.Tracer
}

type Option func(*Handler)

// WithCheckoutMiddleware wraps only the checkout endpoint, e.g. with the
// idempotency middleware.
func WithCheckoutMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(h *Handler) { h.checkoutMW = append(h.checkoutMW, mw...) }
}

// NewHandler builds redirect URLs from baseURL, or from the inbound request
// when baseURL is empty.
func NewHandler(log *slog.Logger, service *application.Service, baseURL string, opts ...Option) *Handler {
	h := &Handler{
		log:     log,
		service: service,
		baseURL: baseURL,
		tracer:  otel.Tracer("order-http"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

type checkoutReq struct {
	Email string `json:"email"`
}

type checkoutResp struct {
	SessionID string `json:"sessionId"`
}

type orderResp struct {
	ID                  string    `json:"id"`
	CustomerEmail       string    `json:"customerEmail"`
	ProductID           int64     `json:"productId"`
	StripeSessionID     string    `json:"stripeSessionId"`
	StripePaymentIntent string    `json:"stripePaymentIntent"`
	Amount              int64     `json:"amount"`
	HasPaid             bool      `json:"hasPaid"`
	CreatedAt           time.Time `json:"createdAt"`
}

func (h *Handler) Register(r chi.Router) {
	r.With(h.checkoutMW...).Post("/products/{id}/checkout", h.createCheckoutSession)
	r.Get("/payment/success", h.paymentSuccess)
	r.Get("/payment/failed", h.paymentFailed)
	r.Get("/orders", h.listOrders)
}

func (h *Handler) createCheckoutSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateCheckoutSession")
	defer span.End()

	productID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	span.SetAttributes(attribute.Int64("product.id", productID))

	// An unreadable body is treated as a missing email so that an unknown
	// product still answers 404.
	var req checkoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid checkout body", "product_id", productID, "err", err)
		req = checkoutReq{}
	}

	base, err := h.redirectBase(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sessionID, err := h.service.BeginCheckout(ctx, application.CheckoutRequest{
		ProductID:  productID,
		Email:      req.Email,
		SuccessURL: base + "/payment/success?session_id=" + SessionPlaceholder,
		CancelURL:  base + "/payment/failed",
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "checkout failed")
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, checkoutResp{SessionID: sessionID})
}

// paymentSuccess answers every failure to resolve the order with an empty
// 404, without saying which step failed.
func (h *Handler) paymentSuccess(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ConfirmPayment")
	defer span.End()

	sessionID := r.URL.Query().Get("session_id")
	order, err := h.service.ConfirmPayment(ctx, sessionID)
	switch {
	case errors.Is(err, application.ErrNotFound):
		h.log.Info("payment confirmation rejected", "session_id", sessionID, "err", err)
		w.WriteHeader(http.StatusNotFound)
		return
	case errors.Is(err, application.ErrGateway):
		h.log.Error("payment confirmation gateway error", "session_id", sessionID, "err", err)
		w.WriteHeader(http.StatusBadGateway)
		return
	case err != nil:
		h.log.Error("payment confirmation failed", "session_id", sessionID, "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	span.SetAttributes(attribute.String("order.id", order.ID))
	h.render(w, "payment_success.html", map[string]string{"OrderID": order.ID})
}

func (h *Handler) paymentFailed(w http.ResponseWriter, r *http.Request) {
	h.render(w, "payment_failed.html", nil)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListOrders")
	defer span.End()

	orders, err := h.service.ListOrders(ctx)
	if err != nil {
		h.log.Error("list orders failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	out := make([]orderResp, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResp(o))
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": out})
}

var errInvalidHost = errors.New("invalid host")

// redirectBase falls back to the request when no public base URL is
// configured. X-Forwarded-Proto is honoured only for http and https, and
// the host must be a bare host[:port].
func (h *Handler) redirectBase(r *http.Request) (string, error) {
	if h.baseURL != "" {
		return h.baseURL, nil
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	switch proto := strings.ToLower(strings.TrimSpace(r.Header.Get("X-Forwarded-Proto"))); proto {
	case "http", "https":
		scheme = proto
	}

	u, err := url.Parse(scheme + "://" + r.Host)
	if r.Host == "" || err != nil || u.Host != r.Host || u.User != nil || u.Path != "" || u.RawQuery != "" || u.Fragment != "" {
		return "", errInvalidHost
	}
	return scheme + "://" + r.Host, nil
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, application.ErrBadRequest):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, application.ErrNotFound):
		http.NotFound(w, r)
	case errors.Is(err, application.ErrGateway):
		h.log.Error("payment gateway error", "path", r.URL.Path, "err", err)
		http.Error(w, "payment gateway unavailable", http.StatusBadGateway)
	default:
		h.log.Error("request failed", "path", r.URL.Path, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (h *Handler) render(w http.ResponseWriter, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pages.ExecuteTemplate(w, name, data); err != nil {
		h.log.Error("render failed", "template", name, "err", err)
	}
}

func toOrderResp(o domain.Order) orderResp {
	return orderResp{
		ID:                  o.ID,
		CustomerEmail:       o.CustomerEmail,
		ProductID:           o.ProductID,
		StripeSessionID:     o.StripeSessionID,
		StripePaymentIntent: o.StripePaymentIntent,
		Amount:              o.AmountCents,
		HasPaid:             o.HasPaid,
		CreatedAt:           o.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
