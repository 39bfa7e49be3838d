package idempotency

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

const (
	Header         = "Idempotency-Key"
	ReplayedHeader = "Idempotent-Replayed"
)

type Cache interface {
	Key(scope, key string) string
	Reserve(ctx context.Context, key string) (bool, error)
	Complete(ctx context.Context, key string, value []byte) error
	Release(ctx context.Context, key string) error
	Lookup(ctx context.Context, key string) (value []byte, pending bool, found bool, err error)
}

type cachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

func KeyFrom(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(Header))
}

// Middleware replays the first successful response for a repeated
// Idempotency-Key. Requests without the header pass straight through, and
// cache failures fail open.
func Middleware(log *slog.Logger, cache Cache) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := KeyFrom(r)
			if raw == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			key := cache.Key(r.URL.Path, raw)

			value, pending, found, err := cache.Lookup(ctx, key)
			if err != nil {
				log.Error("idempotency lookup failed", "key", key, "err", err)
				next.ServeHTTP(w, r)
				return
			}
			if found {
				if pending {
					http.Error(w, "request with this idempotency key is in progress", http.StatusConflict)
					return
				}
				var cached cachedResponse
				if err := json.Unmarshal(value, &cached); err == nil {
					log.Info("idempotent replay", "key", key)
					replay(w, cached)
					return
				}
				log.Warn("discarding unreadable idempotency entry", "key", key)
				_ = cache.Release(ctx, key)
			}

			reserved, err := cache.Reserve(ctx, key)
			if err != nil {
				log.Error("idempotency reserve failed", "key", key, "err", err)
				next.ServeHTTP(w, r)
				return
			}
			if !reserved {
				http.Error(w, "request with this idempotency key is in progress", http.StatusConflict)
				return
			}

			// the client may be gone by now; the key must still be settled
			settleCtx := context.WithoutCancel(ctx)
			defer func() {
				if rec := recover(); rec != nil {
					if err := cache.Release(settleCtx, key); err != nil {
						log.Error("idempotency release failed", "key", key, "err", err)
					}
					panic(rec)
				}
			}()

			var body bytes.Buffer
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ww.Tee(&body)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			if status < 200 || status >= 300 {
				if err := cache.Release(settleCtx, key); err != nil {
					log.Error("idempotency release failed", "key", key, "err", err)
				}
				return
			}

			payload, err := json.Marshal(cachedResponse{
				Status:      status,
				ContentType: ww.Header().Get("Content-Type"),
				Body:        body.Bytes(),
			})
			if err == nil {
				err = cache.Complete(settleCtx, key, payload)
			}
			if err != nil {
				log.Error("idempotency complete failed", "key", key, "err", err)
			}
		})
	}
}

func replay(w http.ResponseWriter, c cachedResponse) {
	if c.ContentType != "" {
		w.Header().Set("Content-Type", c.ContentType)
	}
	w.Header().Set(ReplayedHeader, "true")
	w.WriteHeader(c.Status)
	_, _ = w.Write(c.Body)
}
