package domain

import (
	"context"
	"errors"
)

// Lookup returns a 0-100 flood risk score for a postcode, higher meaning safer.
type Lookup interface {
	FloodRisk(ctx context.Context, postcode string) (float64, error)
}

// LookupFunc adapts a function to Lookup.
type LookupFunc func(ctx context.Context, postcode string) (float64, error)

func (f LookupFunc) FloodRisk(ctx context.Context, postcode string) (float64, error) {
	return f(ctx, postcode)
}

var (
	ErrLookupFailed   = errors.New("flood_risk_lookup_failed")
	ErrInvalidScore   = errors.New("flood_risk_invalid_score")
	ErrMissingBaseURL = errors.New("flood_risk_missing_base_url")
)

// ValidScore reports whether score is inside the factor scale.
func ValidScore(score float64) bool {
	return score >= 0 && score <= 100
}
