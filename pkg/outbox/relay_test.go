package outbox

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	pending []Event
	sent    []int64
	failed  map[int64]string
}

func (s *fakeStore) LockBatch(_ context.Context, _ string, batchSize int, _ time.Duration) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := min(batchSize, len(s.pending))
	batch := s.pending[:n]
	s.pending = s.pending[n:]
	return batch, nil
}

func (s *fakeStore) MarkSent(_ context.Context, ids []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, ids...)
	return nil
}

func (s *fakeStore) MarkFailed(_ context.Context, id int64, msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed == nil {
		s.failed = map[int64]string{}
	}
	s.failed[id] = msg
	return nil
}

type fakeProducer struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	failOn string
}

func (p *fakeProducer) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, m := range msgs {
		if string(m.Key) == p.failOn {
			return errors.New("broker unavailable")
		}
	}
	p.msgs = append(p.msgs, msgs...)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func headerMap(hs []kafka.Header) map[string]string {
	out := make(map[string]string, len(hs))
	for _, h := range hs {
		out[h.Key] = string(h.Value)
	}
	return out
}

func TestDispatchSetsKeyAndHeaders(t *testing.T) {
	p := &fakeProducer{}
	d := NewDispatcher(discardLogger(), p, "checkout.events")

	err := d.Dispatch(context.Background(), Event{
		ID:          7,
		AggregateID: "order-1",
		Type:        "OrderPaid",
		Payload:     []byte(`{"order_id":"order-1"}`),
		Headers:     map[string]string{"source": "checkout-service"},
		Traceparent: "00-abc-def-01",
	})
	require.NoError(t, err)
	require.Len(t, p.msgs, 1)

	msg := p.msgs[0]
	assert.Equal(t, "checkout.events", msg.Topic)
	assert.Equal(t, "order-1", string(msg.Key))
	h := headerMap(msg.Headers)
	assert.Equal(t, "OrderPaid", h["event_type"])
	assert.Equal(t, "00-abc-def-01", h["traceparent"])
	assert.Equal(t, "checkout-service", h["source"])
}

func TestRelayTickMarksSentAndFailed(t *testing.T) {
	store := &fakeStore{pending: []Event{
		{ID: 1, AggregateID: "a", Type: "OrderCreated"},
		{ID: 2, AggregateID: "b", Type: "OrderCreated"},
		{ID: 3, AggregateID: "c", Type: "OrderPaid"},
	}}
	p := &fakeProducer{failOn: "b"}
	relay := NewRelay(discardLogger(), store, NewDispatcher(discardLogger(), p, "t"), "relay-1")

	n, err := relay.Tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int64{1, 3}, store.sent)
	assert.Contains(t, store.failed[2], "broker unavailable")

	n, err = relay.Tick(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRelayRunStopsOnCancel(t *testing.T) {
	store := &fakeStore{pending: []Event{{ID: 1, AggregateID: "a"}}}
	p := &fakeProducer{}
	relay := NewRelay(discardLogger(), store, NewDispatcher(discardLogger(), p, "t"), "relay-1",
		WithInterval(5*time.Millisecond), WithBatchSize(10))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return len(store.sent) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	assert.NoError(t, <-done)
}
