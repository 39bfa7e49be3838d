package shutdown

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServeStopsOnCancel(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, log, srv, time.Second) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestServeReturnsListenError(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := &http.Server{Addr: "256.0.0.1:bad", Handler: http.NotFoundHandler()}

	err := Serve(context.Background(), log, srv, time.Second)
	assert.Error(t, err)
}
