package repository

import (
	"context"
	"time"

	confidencescoredomain "github.com/smallbiznis/homescore/internal/confidencescore/domain"
	"gorm.io/gorm"
)

type runRepo struct{}

func ProvideRuns() confidencescoredomain.RunRepository {
	return &runRepo{}
}

func (r *runRepo) Insert(ctx context.Context, db *gorm.DB, run *confidencescoredomain.ScoreRun) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO confidence_score_runs (id, run_id, period, status, total, succeeded, failed, partial, error, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.RunID,
		run.Period,
		run.Status,
		run.Total,
		run.Succeeded,
		run.Failed,
		run.Partial,
		run.Error,
		run.StartedAt,
		run.FinishedAt,
	).Error
}

func (r *runRepo) Update(ctx context.Context, db *gorm.DB, run *confidencescoredomain.ScoreRun) error {
	return db.WithContext(ctx).Exec(
		`UPDATE confidence_score_runs
		 SET status = ?, total = ?, succeeded = ?, failed = ?, partial = ?, error = ?, finished_at = ?
		 WHERE id = ?`,
		run.Status,
		run.Total,
		run.Succeeded,
		run.Failed,
		run.Partial,
		run.Error,
		run.FinishedAt,
		run.ID,
	).Error
}

func (r *runRepo) ExistsWithStatus(ctx context.Context, db *gorm.DB, period, status string) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1) FROM confidence_score_runs WHERE period = ? AND status = ?`,
		period,
		status,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *runRepo) List(ctx context.Context, db *gorm.DB, limit int) ([]confidencescoredomain.ScoreRun, error) {
	var runs []confidencescoredomain.ScoreRun
	err := db.WithContext(ctx).Raw(
		`SELECT id, run_id, period, status, total, succeeded, failed, partial, error, started_at, finished_at
		 FROM confidence_score_runs
		 ORDER BY started_at DESC, id DESC
		 LIMIT ?`,
		limit,
	).Scan(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}

func (r *runRepo) FailStale(ctx context.Context, db *gorm.DB, cutoff, finishedAt time.Time, reason string) (int64, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE confidence_score_runs
		 SET status = ?, error = ?, finished_at = ?
		 WHERE status = ? AND started_at < ?`,
		confidencescoredomain.RunStatusFailed,
		reason,
		finishedAt,
		confidencescoredomain.RunStatusRunning,
		cutoff,
	)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
