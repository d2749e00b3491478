package tracing

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/homescore/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTracedEngine(t *testing.T) (*gin.Engine, *tracetest.SpanRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(t.Context()) })

	r := gin.New()
	r.Use(GinMiddlewareWithProvider(provider))
	return r, recorder
}

func spanAttr(span sdktrace.ReadOnlySpan, key attribute.Key) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestGinMiddlewareTagsPropertyRoutes(t *testing.T) {
	r, recorder := newTracedEngine(t)
	var seen string
	r.GET("/properties/:id/confidence-score", func(c *gin.Context) {
		seen = obscontext.PropertyIDFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/properties/prop-001/confidence-score", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "prop-001", seen)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "HTTP GET /properties/:id/confidence-score", spans[0].Name())
	id, ok := spanAttr(spans[0], AttrPropertyID)
	require.True(t, ok)
	assert.Equal(t, "prop-001", id.AsString())
	route, ok := spanAttr(spans[0], "http.route")
	require.True(t, ok)
	assert.Equal(t, "/properties/:id/confidence-score", route.AsString())
}

func TestGinMiddlewareUnscopedRoutesAndServerErrors(t *testing.T) {
	r, recorder := newTracedEngine(t)
	r.POST("/admin/confidence-score-runs", func(c *gin.Context) {
		_ = c.Error(errors.New("ledger unavailable"))
		c.Status(http.StatusInternalServerError)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/confidence-score-runs", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	_, ok := spanAttr(spans[0], AttrPropertyID)
	assert.False(t, ok)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	require.Len(t, spans[0].Events(), 1)
}

func TestSafeAttributesDropsAddress(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("address", "1 High Street"),
		attribute.String("http.route", "/properties/:id/confidence-score"),
	)
	require.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
}

func TestSafeErrorTruncates(t *testing.T) {
	assert.Nil(t, SafeError(nil))
	long := errors.New(strings.Repeat("x", 1000))
	assert.Len(t, SafeError(long).Error(), maxErrorLength)
}

func TestWrapHTTPClientPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	client := WrapHTTPClient(nil)
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusTeapot, resp.StatusCode)
}
