package observability

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/ajitpratap0/prism/pkg/config"
)

func recorder() (*tracetest.SpanRecorder, *sdktrace.TracerProvider) {
	sr := tracetest.NewSpanRecorder()
	return sr, sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
}

func TestSpanRecordsAttributesAndStatus(t *testing.T) {
	sr, tp := recorder()
	tracer := tp.Tracer("test")

	_, span := StartSpan(context.Background(), tracer, "projector.Make", attribute.Int("expressions", 2))
	span.SetAttribute("cache.hit", false)
	span.SetAttribute("mode", "NONE")
	span.End(nil)

	ended := sr.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "projector.Make", ended[0].Name())
	assert.Equal(t, codes.Ok, ended[0].Status().Code)

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range ended[0].Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, int64(2), attrs["expressions"].AsInt64())
	assert.False(t, attrs["cache.hit"].AsBool())
	assert.Equal(t, "NONE", attrs["mode"].AsString())
}

func TestSpanRecordsError(t *testing.T) {
	sr, tp := recorder()

	_, span := StartSpan(context.Background(), tp.Tracer("test"), "projector.Evaluate")
	span.End(errors.New("empty batch"))

	ended := sr.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Equal(t, "empty batch", ended[0].Status().Description)
	require.Len(t, ended[0].Events(), 1)
}

func TestInitTracingDisabled(t *testing.T) {
	shutdown, err := InitTracing(config.TracingConfig{Enabled: false}, "prism", nil)
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracingStdout(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	var buf bytes.Buffer
	shutdown, err := InitTracing(config.TracingConfig{Enabled: true, Exporter: "stdout", SamplingRate: 1}, "prism-test", &buf)
	require.NoError(t, err)

	_, span := StartSpan(context.Background(), Tracer(), "projector.Make")
	span.End(nil)

	require.NoError(t, shutdown(context.Background()))
	assert.Contains(t, buf.String(), "projector.Make")
	assert.Contains(t, buf.String(), "prism-test")
}

func TestInitTracingUnknownExporter(t *testing.T) {
	_, err := InitTracing(config.TracingConfig{Enabled: true, Exporter: "jaeger"}, "prism", nil)
	assert.Error(t, err)
}
