package server

import (
	"net/http"

	"github.com/dmehra2102/checkout-service/pkg/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

type Registrar interface {
	Register(r chi.Router)
}

func NewRouter(m *metrics.ServerMetrics, gatherer prometheus.Gatherer, handlers ...Registrar) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(m.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler(gatherer))

	for _, h := range handlers {
		h.Register(r)
	}
	return r
}
