package domain

import (
	"context"
	"errors"
	"time"
)

// Result is the transient output of one calculation.
type Result struct {
	InsuranceScore int                `json:"insuranceScore"`
	BuyerScore     int                `json:"buyerScore"`
	Factors        map[string]float64 `json:"factors"`
	// Partial is set when an external factor used its fallback value.
	Partial bool `json:"partial"`
	// FallbackFactors names the factors that fell back.
	FallbackFactors []string `json:"fallbackFactors,omitempty"`
}

type Service interface {
	CalculateForProperty(ctx context.Context, propertyID string) (Result, error)
	// Save assigns an ID and persists a new snapshot.
	Save(ctx context.Context, score *ConfidenceScore) error
	// Recalculate computes and saves a snapshot stamped with the current time.
	Recalculate(ctx context.Context, propertyID string) (*ConfidenceScore, error)
	GetLatest(ctx context.Context, propertyID string) (*ConfidenceScore, error)
	History(ctx context.Context, propertyID string, limit int) ([]ConfidenceScore, error)
}

// RunLedger records batch runs.
type RunLedger interface {
	StartRun(ctx context.Context, runID, period string, startedAt time.Time) (*ScoreRun, error)
	FinishRun(ctx context.Context, run *ScoreRun) error
	PeriodCompleted(ctx context.Context, period string) (bool, error)
	ListRuns(ctx context.Context, limit int) ([]ScoreRun, error)
	// FailStaleRuns closes runs left "running" by a process that died mid-batch.
	FailStaleRuns(ctx context.Context, startedBefore, now time.Time) (int64, error)
}

const (
	DefaultHistoryLimit = 12
	MaxHistoryLimit     = 120
)

var (
	ErrPropertyNotFound  = errors.New("property_not_found")
	ErrScoreNotFound     = errors.New("confidence_score_not_found")
	ErrInvalidPropertyID = errors.New("invalid_property_id")
	ErrUnknownFactor     = errors.New("unknown_factor")
)
