package kafka

import (
	"context"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

func TestMessageCarrier(t *testing.T) {
	msg := kafka.Message{}
	c := messageCarrier{msg: &msg}

	c.Set("traceparent", "00-a-b-01")
	c.Set("tracestate", "x=1")
	c.Set("traceparent", "00-c-d-01")

	assert.Equal(t, "00-c-d-01", c.Get("traceparent"))
	assert.Equal(t, []string{"traceparent", "tracestate"}, c.Keys())
	assert.Len(t, msg.Headers, 2)
	assert.Empty(t, c.Get("baggage"))
}

func TestNewMessageCarriesTraceContext(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	defer otel.SetTextMapPropagator(prev)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16},
		SpanID:     trace.SpanID{1, 2, 3, 4, 5, 6, 7, 8},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	msg := newMessage(ctx, "user.updated", []byte("u-1"), []byte(`{}`))

	assert.Equal(t, "user.updated", msg.Topic)
	assert.Equal(t, "00-0102030405060708090a0b0c0d0e0f10-0102030405060708-01",
		messageCarrier{msg: &msg}.Get("traceparent"))
}

func TestNewMessageWithoutSpanHasNoHeaders(t *testing.T) {
	msg := newMessage(context.Background(), "user.created", []byte("u-1"), []byte(`{}`))
	assert.Empty(t, msg.Headers)
}
