package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	confidencescoredomain "github.com/smallbiznis/homescore/internal/confidencescore/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

type RunLedgerParams struct {
	fx.In

	DB    *gorm.DB
	GenID *snowflake.Node
	Repo  confidencescoredomain.RunRepository
}

type RunLedger struct {
	db    *gorm.DB
	genID *snowflake.Node
	repo  confidencescoredomain.RunRepository
}

func NewRunLedger(p RunLedgerParams) confidencescoredomain.RunLedger {
	return &RunLedger{db: p.DB, genID: p.GenID, repo: p.Repo}
}

func (l *RunLedger) StartRun(ctx context.Context, runID, period string, startedAt time.Time) (*confidencescoredomain.ScoreRun, error) {
	run := &confidencescoredomain.ScoreRun{
		ID:        l.genID.Generate(),
		RunID:     runID,
		Period:    period,
		Status:    confidencescoredomain.RunStatusRunning,
		StartedAt: startedAt.UTC(),
	}
	if err := l.repo.Insert(ctx, l.db, run); err != nil {
		return nil, err
	}
	return run, nil
}

func (l *RunLedger) FinishRun(ctx context.Context, run *confidencescoredomain.ScoreRun) error {
	return l.repo.Update(ctx, l.db, run)
}

func (l *RunLedger) PeriodCompleted(ctx context.Context, period string) (bool, error) {
	return l.repo.ExistsWithStatus(ctx, l.db, period, confidencescoredomain.RunStatusCompleted)
}

func (l *RunLedger) ListRuns(ctx context.Context, limit int) ([]confidencescoredomain.ScoreRun, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return l.repo.List(ctx, l.db, limit)
}

func (l *RunLedger) FailStaleRuns(ctx context.Context, startedBefore, now time.Time) (int64, error) {
	return l.repo.FailStale(ctx, l.db, startedBefore.UTC(), now.UTC(), "abandoned")
}
