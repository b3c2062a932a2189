package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewProvider_DisabledWithoutEndpoint(t *testing.T) {
	p, err := NewProvider(context.Background(), Config{Endpoint: "  "})
	require.NoError(t, err)
	require.False(t, p.Enabled())

	_, span := p.Tracer("test").Start(context.Background(), "relay.chat")
	require.False(t, span.SpanContext().IsValid())
	span.End()
	require.NoError(t, p.Shutdown(context.Background()))
}

func TestNewProvider_ExportsToCollector(t *testing.T) {
	var hits atomic.Int32
	var path atomic.Value
	collector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		path.Store(r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer collector.Close()

	p, err := NewProvider(context.Background(), Config{
		Endpoint:       collector.URL + "/v1/traces",
		ServiceVersion: "test",
	})
	require.NoError(t, err)
	require.True(t, p.Enabled())

	_, span := p.Tracer("test").Start(context.Background(), "relay.chat")
	require.True(t, span.SpanContext().IsValid())
	span.End()

	require.NoError(t, p.Shutdown(context.Background()))
	require.Positive(t, hits.Load())
	require.Equal(t, "/v1/traces", path.Load())
}
