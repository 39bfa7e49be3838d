package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dmehra2102/checkout-service/internal/catalog/application"
	"github.com/dmehra2102/checkout-service/internal/catalog/domain"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Handler struct {
	log            *slog.Logger
	service        *application.Service
	publishableKey string
	tracer         trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service, publishableKey string) *Handler {
	return &Handler{
		log:            log,
		service:        service,
		publishableKey: publishableKey,
		tracer:         otel.Tracer("catalog-http"),
	}
}

type productResp struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	CreatedAt time.Time       `json:"createdAt"`
}

type productDetailResp struct {
	productResp
	StripePublishableKey string `json:"stripePublishableKey"`
}

type createProductReq struct {
	Name  string           `json:"name"`
	Price *decimal.Decimal `json:"price"`
}

// Register mounts the catalog routes on r. Checkout routes under
// /products/{id} are owned by the order handler.
func (h *Handler) Register(r chi.Router) {
	r.Get("/products", h.listProducts)
	r.Post("/products", h.createProduct)
	r.Get("/products/{id}", h.getProduct)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ListProducts")
	defer span.End()

	products, err := h.service.List(ctx)
	if err != nil {
		h.log.Error("list products failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	out := make([]productResp, 0, len(products))
	for _, p := range products {
		out = append(out, toResp(p))
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": out})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetProduct")
	defer span.End()

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	span.SetAttributes(attribute.Int64("product.id", id))

	p, err := h.service.Get(ctx, id)
	if errors.Is(err, domain.ErrProductNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.log.Error("get product failed", "product_id", id, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, productDetailResp{
		productResp:          toResp(p),
		StripePublishableKey: h.publishableKey,
	})
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreateProduct")
	defer span.End()

	var req createProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	if req.Price == nil {
		http.Error(w, "price is required", http.StatusBadRequest)
		return
	}

	p, err := h.service.Create(ctx, req.Name, *req.Price)
	if errors.Is(err, domain.ErrInvalidProduct) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		h.log.Error("create product failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, toResp(p))
}

func toResp(p domain.Product) productResp {
	return productResp{ID: p.ID, Name: p.Name, Price: p.Price, CreatedAt: p.CreatedAt}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
