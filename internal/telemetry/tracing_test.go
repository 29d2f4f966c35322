package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestInitTracerProviderRecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp, err := InitTracerProvider(context.Background(), Config{
		ServiceName: "jobcrawler-test",
		Environment: "test",
		SampleRatio: 1,
	}, sdktrace.WithSpanProcessor(recorder))
	require.NoError(t, err)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	_, span := otel.Tracer("test").Start(context.Background(), "source.run")
	span.End()

	ended := recorder.Ended()
	require.Len(t, ended, 1)
	require.Equal(t, "source.run", ended[0].Name())

	var service string
	for _, kv := range ended[0].Resource().Attributes() {
		if kv.Key == "service.name" {
			service = kv.Value.AsString()
		}
	}
	require.Equal(t, "jobcrawler-test", service)
}

func TestStdoutExporterWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	tp, err := InitTracerProvider(context.Background(), Config{
		SampleRatio: 1,
		Exporter:    ExporterStdout,
		Writer:      &buf,
	})
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "manager.run")
	span.End()
	require.NoError(t, tp.Shutdown(context.Background()))

	require.Contains(t, buf.String(), `"Name":"manager.run"`)
}

func TestUnknownExporterFails(t *testing.T) {
	t.Parallel()

	_, err := InitTracerProvider(context.Background(), Config{Exporter: "zipkin"})
	require.ErrorContains(t, err, `unknown trace exporter "zipkin"`)
}

func TestSamplerBounds(t *testing.T) {
	t.Parallel()

	require.Contains(t, sampler(1).Description(), "AlwaysOnSampler")
	require.Contains(t, sampler(0).Description(), "AlwaysOffSampler")
	require.Contains(t, sampler(0.25).Description(), "TraceIDRatioBased{0.25}")
}
