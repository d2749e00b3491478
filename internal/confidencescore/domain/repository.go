package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Repository persists snapshots. FindLatestByPropertyID returns nil, nil when
// the property has no snapshot.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, score *ConfidenceScore) error
	FindLatestByPropertyID(ctx context.Context, db *gorm.DB, propertyID string) (*ConfidenceScore, error)
	ListByPropertyID(ctx context.Context, db *gorm.DB, propertyID string, limit int) ([]ConfidenceScore, error)
}

type RunRepository interface {
	Insert(ctx context.Context, db *gorm.DB, run *ScoreRun) error
	Update(ctx context.Context, db *gorm.DB, run *ScoreRun) error
	ExistsWithStatus(ctx context.Context, db *gorm.DB, period, status string) (bool, error)
	List(ctx context.Context, db *gorm.DB, limit int) ([]ScoreRun, error)
	// FailStale marks runs still "running" that started before cutoff as failed.
	FailStale(ctx context.Context, db *gorm.DB, cutoff, finishedAt time.Time, reason string) (int64, error)
}
