package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestExecutorSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	registry := registeredRegistry(t, WithTracerProvider(tp))
	ctx := context.Background()

	_, err := registry.Invoke(ctx, "calculator-20260501", map[string]any{"display": "42"})
	require.NoError(t, err)
	_, err = registry.Invoke(ctx, "update-score-20260501", map[string]any{"playerName": "Rae"})
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 2)

	ok := spans[0]
	assert.Equal(t, "widget.invoke", ok.Name())
	assert.Equal(t, codes.Ok, ok.Status().Code)
	assert.Contains(t, ok.Attributes(), attribute.String("widget.tool", "calculator-20260501"))
	assert.Contains(t, ok.Attributes(), attribute.Int("widget.output_fields", 1))

	failed := spans[1]
	assert.Equal(t, codes.Error, failed.Status().Code)
	assert.Equal(t, "invalid arguments", failed.Status().Description)
	require.NotEmpty(t, failed.Events())
	assert.Equal(t, "exception", failed.Events()[0].Name)
}

func TestExecutorDoesNotTraceUnknownTools(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	registry := registeredRegistry(t, WithTracerProvider(tp))
	_, err := registry.Invoke(context.Background(), "nope", nil)
	require.Error(t, err)
	assert.Empty(t, recorder.Ended())
}
