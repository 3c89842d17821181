package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
	// block waits for the context instead of writing.
	block bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.block {
		<-ctx.Done()
		return ctx.Err()
	}
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaPublisher_KeysByOrderCode(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{w: w, log: zap.NewNop()}

	err := p.Publish(context.Background(), New(OrderCreated, "ORD-20260101-AB12", map[string]any{"lines": 2}))
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "ORD-20260101-AB12", string(msg.Key))
	assert.Equal(t, "type", msg.Headers[0].Key)
	assert.Equal(t, OrderCreated, string(msg.Headers[0].Value))

	var e Event
	require.NoError(t, json.Unmarshal(msg.Value, &e))
	assert.Equal(t, OrderCreated, e.Type)
	assert.NotEmpty(t, e.ID)
}

func TestEmit_SwallowsErrors(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	p := &KafkaPublisher{w: &fakeWriter{err: errors.New("broker down")}, log: zap.NewNop()}

	Emit(context.Background(), p, zap.New(core), New(OrderStatusChanged, "ORD-1", nil))
	assert.Equal(t, 1, logs.FilterMessage("event publish failed").Len())

	Emit(context.Background(), nil, zap.New(core), New(OrderStatusChanged, "ORD-1", nil))
	Emit(context.Background(), NopPublisher{}, zap.New(core), New(OrderStatusChanged, "ORD-1", nil))
	assert.Equal(t, 1, logs.Len())
}

func TestEmit_BoundsSlowBroker(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	p := &KafkaPublisher{w: &fakeWriter{block: true}, log: zap.NewNop()}

	// A request context that is already gone must not abort the publish early.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	Emit(ctx, p, zap.New(core), New(OrderCreated, "ORD-1", nil))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, publishTimeout)
	assert.Less(t, elapsed, publishTimeout+time.Second)
	entries := logs.FilterMessage("event publish failed").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["error"], context.DeadlineExceeded.Error())
}
