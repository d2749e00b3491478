package floodrisk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	floodriskdomain "github.com/smallbiznis/homescore/internal/floodrisk/domain"
	"github.com/smallbiznis/homescore/internal/observability/tracing"
	"github.com/smallbiznis/homescore/internal/ratelimit"
)

const maxResponseBytes = 64 << 10

// HTTPLookup queries GET {base}/flood-risk?postcode=... and expects
// {"score": <0-100>}.
type HTTPLookup struct {
	baseURL *url.URL
	apiKey  string
	client  *http.Client
	limiter *ratelimit.UpstreamLimiter
}

type scoreResponse struct {
	Score *float64 `json:"score"`
}

func NewHTTPLookup(baseURL, apiKey string, client *http.Client, limiter *ratelimit.UpstreamLimiter) (*HTTPLookup, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, floodriskdomain.ErrMissingBaseURL
	}
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse flood risk base url: %w", err)
	}
	return &HTTPLookup{
		baseURL: parsed,
		apiKey:  apiKey,
		client:  tracing.WrapHTTPClient(client),
		limiter: limiter,
	}, nil
}

func (h *HTTPLookup) FloodRisk(ctx context.Context, postcode string) (float64, error) {
	if err := h.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("%w: rate limit: %w", floodriskdomain.ErrLookupFailed, err)
	}

	endpoint := h.baseURL.JoinPath("flood-risk")
	endpoint.RawQuery = url.Values{"postcode": []string{strings.TrimSpace(postcode)}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if h.apiKey != "" {
		req.Header.Set("X-Api-Key", h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", floodriskdomain.ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return 0, fmt.Errorf("%w: upstream status %d", floodriskdomain.ErrLookupFailed, resp.StatusCode)
	}

	var body scoreResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&body); err != nil {
		return 0, fmt.Errorf("%w: decode: %w", floodriskdomain.ErrLookupFailed, err)
	}
	if body.Score == nil || !floodriskdomain.ValidScore(*body.Score) {
		return 0, fmt.Errorf("%w: %w", floodriskdomain.ErrLookupFailed, floodriskdomain.ErrInvalidScore)
	}
	return *body.Score, nil
}
