package floodrisk

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/smallbiznis/homescore/internal/cache"
	floodriskdomain "github.com/smallbiznis/homescore/internal/floodrisk/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestStaticLookup(t *testing.T) {
	score, err := StaticLookup{Score: 98, Delay: time.Millisecond}.FloodRisk(context.Background(), "SW1A 1AA")
	require.NoError(t, err)
	assert.Equal(t, 98.0, score)
}

func TestStaticLookupHonoursDeadline(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Millisecond)
	defer cancel()

	_, err := StaticLookup{Score: 98, Delay: time.Second}.FloodRisk(ctx, "SW1A 1AA")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestHTTPLookup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/flood-risk", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		switch r.URL.Query().Get("postcode") {
		case "OX1 2JD":
			_, _ = w.Write([]byte(`{"score": 72.5}`))
		case "BAD":
			_, _ = w.Write([]byte(`{"score": 140}`))
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	lookup, err := NewHTTPLookup(srv.URL+"/v1/", "secret", srv.Client(), nil)
	require.NoError(t, err)

	score, err := lookup.FloodRisk(context.Background(), "OX1 2JD")
	require.NoError(t, err)
	assert.Equal(t, 72.5, score)

	_, err = lookup.FloodRisk(context.Background(), "BAD")
	assert.ErrorIs(t, err, floodriskdomain.ErrLookupFailed)
	assert.ErrorIs(t, err, floodriskdomain.ErrInvalidScore)

	_, err = lookup.FloodRisk(context.Background(), "LS1 4AP")
	assert.ErrorIs(t, err, floodriskdomain.ErrLookupFailed)
}

func TestNewHTTPLookupRequiresBaseURL(t *testing.T) {
	_, err := NewHTTPLookup(" ", "", nil, nil)
	assert.ErrorIs(t, err, floodriskdomain.ErrMissingBaseURL)
}

func TestCachedLookupCachesSuccessOnly(t *testing.T) {
	var calls atomic.Int32
	fail := true
	upstream := floodriskdomain.LookupFunc(func(ctx context.Context, postcode string) (float64, error) {
		calls.Add(1)
		if fail {
			return 0, errors.New("upstream down")
		}
		return 64, nil
	})
	lookup := NewCachedLookup(upstream, "static", cache.NewFloodRiskCache(time.Hour), nil, time.Hour, nil, zap.NewNop())

	_, err := lookup.FloodRisk(context.Background(), "M1 1AE")
	require.Error(t, err)

	fail = false
	score, err := lookup.FloodRisk(context.Background(), "M1 1AE")
	require.NoError(t, err)
	assert.Equal(t, 64.0, score)

	score, err = lookup.FloodRisk(context.Background(), " m1 1ae ")
	require.NoError(t, err)
	assert.Equal(t, 64.0, score)
	assert.Equal(t, int32(2), calls.Load())
}

func TestCacheKey(t *testing.T) {
	assert.Equal(t, CacheKey("SW1A 1AA"), CacheKey(" sw1a 1aa"))
	assert.Equal(t, "", CacheKey("  "))
}
