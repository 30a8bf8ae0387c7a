package kafka

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
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- fakes ---

type recordingWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

type scriptedReader struct {
	msgs      []kafka.Message
	committed []int64
	closed    bool
}

func (r *scriptedReader) FetchMessage(context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		return kafka.Message{}, io.EOF
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *scriptedReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *scriptedReader) Close() error {
	r.closed = true
	return nil
}

type setStore struct {
	ids map[string]bool
	err error
}

func (s *setStore) Contains(_ context.Context, id string) (bool, error) {
	return s.ids[id], s.err
}

func (s *setStore) Add(_ context.Context, id string) error {
	s.ids[id] = true
	return nil
}

func eventMessage(t *testing.T, offset int64, eventType, aggregateID string) kafka.Message {
	t.Helper()
	e, err := NewEvent(eventType, aggregateID, "product", "catalog", map[string]string{"id": aggregateID})
	require.NoError(t, err)
	data, err := e.Marshal()
	require.NoError(t, err)
	return kafka.Message{Topic: "catalog.product.updated", Offset: offset, Value: data}
}

// --- Event ---

func TestNewEvent(t *testing.T) {
	e, err := NewEvent("cart.updated", "guest:1", "cart", "storefront", map[string]int{"count": 2})
	require.NoError(t, err)

	assert.NotEmpty(t, e.EventID)
	assert.Equal(t, 1, e.Version)
	assert.WithinDuration(t, time.Now().UTC(), e.Timestamp, 2*time.Second)

	var data map[string]int
	require.NoError(t, e.UnmarshalData(&data))
	assert.Equal(t, 2, data["count"])
}

func TestNewEvent_UnencodablePayload(t *testing.T) {
	_, err := NewEvent("x", "a", "t", "s", make(chan int))
	assert.Error(t, err)
}

func TestUnmarshalEvent(t *testing.T) {
	e, err := NewEvent("wishlist.updated", "user:1", "wishlist", "storefront", nil)
	require.NoError(t, err)
	e.WithCorrelationID("req-1").WithMetadata("k", "v")

	data, err := e.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalEvent(data)
	require.NoError(t, err)
	assert.Equal(t, e.EventID, got.EventID)
	assert.Equal(t, "req-1", got.CorrelationID)
	assert.Equal(t, "v", got.Metadata["k"])

	_, err = UnmarshalEvent([]byte(`{"event_id":"1"}`))
	assert.Error(t, err, "missing event type")
	_, err = UnmarshalEvent([]byte(`nope`))
	assert.Error(t, err)
}

func TestTopic(t *testing.T) {
	assert.Equal(t, "storefront.cart.updated", Topic("cart", "updated"))
	assert.Equal(t, "storefront.dlq.catalog.product.updated", DLQTopic("catalog.product.updated"))
}

// --- Producer ---

func TestProducer_Publish(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID: traceID, SpanID: spanID, TraceFlags: trace.FlagsSampled,
	}))

	w := &recordingWriter{}
	p := newProducerWithWriter(w, nil, testLogger())

	e, err := NewEvent("cart.cleared", "guest:1", "cart", "storefront", nil)
	require.NoError(t, err)
	e.WithCorrelationID("req-9")

	require.NoError(t, p.Publish(ctx, "storefront.cart.cleared", e))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "storefront.cart.cleared", msg.Topic)
	assert.Equal(t, []byte("guest:1"), msg.Key)

	headers := msg.Headers
	carrier := NewHeaderCarrier(&headers)
	assert.Equal(t, "cart.cleared", carrier.Get("event_type"))
	assert.Equal(t, "req-9", carrier.Get("correlation_id"))
	assert.Contains(t, carrier.Get("traceparent"), "4bf92f3577b34da6a3ce929d0e0e4736")
}

func TestProducer_PublishError(t *testing.T) {
	p := newProducerWithWriter(&recordingWriter{err: errors.New("leader not available")}, nil, testLogger())
	e, err := NewEvent("cart.updated", "guest:1", "cart", "storefront", nil)
	require.NoError(t, err)

	err = p.Publish(context.Background(), "storefront.cart.updated", e)
	assert.ErrorContains(t, err, "leader not available")
}

func TestPingBrokers_NoBrokers(t *testing.T) {
	assert.Error(t, PingBrokers(context.Background(), nil))
}

// --- HeaderCarrier ---

func TestHeaderCarrier(t *testing.T) {
	headers := []kafka.Header{{Key: "a", Value: []byte("1")}}
	c := NewHeaderCarrier(&headers)

	assert.Equal(t, "1", c.Get("a"))
	assert.Equal(t, "", c.Get("missing"))

	c.Set("a", "2")
	c.Set("b", "3")
	assert.Equal(t, "2", c.Get("a"))
	assert.ElementsMatch(t, []string{"a", "b"}, c.Keys())
	assert.Len(t, headers, 2)
}

// --- Consumer ---

func TestConsumer_ProcessesAndCommits(t *testing.T) {
	r := &scriptedReader{msgs: []kafka.Message{
		eventMessage(t, 1, "product.updated", "p1"),
		eventMessage(t, 2, "product.updated", "p2"),
	}}

	var seen []string
	handler := func(_ context.Context, e *Event) error {
		seen = append(seen, e.AggregateID)
		return nil
	}

	c := newConsumerWithReader(r, "catalog.product.updated", "storefront", handler, nil, testLogger())
	require.NoError(t, c.Start(context.Background()))

	assert.Equal(t, []string{"p1", "p2"}, seen)
	assert.Equal(t, []int64{1, 2}, r.committed)
	assert.True(t, r.closed)
}

func TestConsumer_RetriesThenDeadLetters(t *testing.T) {
	r := &scriptedReader{msgs: []kafka.Message{
		eventMessage(t, 7, "product.updated", "p1"),
		{Topic: "catalog.product.updated", Offset: 8, Value: []byte("garbage")},
	}}
	dlqWriter := &recordingWriter{}
	dlq := &DLQProducer{writer: dlqWriter, logger: testLogger()}

	calls := 0
	handler := func(context.Context, *Event) error {
		calls++
		return errors.New("cache unavailable")
	}

	c := newConsumerWithReader(r, "catalog.product.updated", "storefront", handler, dlq, testLogger())
	c.backoff = time.Millisecond
	require.NoError(t, c.Start(context.Background()))

	assert.Equal(t, maxHandlerRetries, calls)
	assert.Equal(t, []int64{7, 8}, r.committed, "failed messages are still committed")
	require.Len(t, dlqWriter.msgs, 2)
	assert.Equal(t, "storefront.dlq.catalog.product.updated", dlqWriter.msgs[0].Topic)

	headers := dlqWriter.msgs[0].Headers
	assert.Equal(t, "cache unavailable", NewHeaderCarrier(&headers).Get("dlq.error"))
}

// --- IdempotentHandler ---

func TestIdempotentHandler(t *testing.T) {
	store := &setStore{ids: map[string]bool{}}
	calls := 0
	h := IdempotentHandler(store, func(context.Context, *Event) error {
		calls++
		return nil
	}, testLogger())

	e := &Event{EventID: "evt-1", EventType: "product.updated"}
	require.NoError(t, h(context.Background(), e))
	require.NoError(t, h(context.Background(), e))
	assert.Equal(t, 1, calls)

	require.NoError(t, h(context.Background(), &Event{EventType: "product.updated"}))
	assert.Equal(t, 2, calls, "events without id always run")
}

func TestIdempotentHandler_FailureNotRecorded(t *testing.T) {
	store := &setStore{ids: map[string]bool{}}
	h := IdempotentHandler(store, func(context.Context, *Event) error {
		return errors.New("boom")
	}, testLogger())

	assert.Error(t, h(context.Background(), &Event{EventID: "evt-1"}))
	assert.False(t, store.ids["evt-1"])
}

func TestIdempotentHandler_StoreErrorStillProcesses(t *testing.T) {
	store := &setStore{ids: map[string]bool{"evt-1": true}, err: errors.New("redis down")}
	calls := 0
	h := IdempotentHandler(store, func(context.Context, *Event) error {
		calls++
		return nil
	}, testLogger())

	require.NoError(t, h(context.Background(), &Event{EventID: "evt-1"}))
	assert.Equal(t, 1, calls)
}
