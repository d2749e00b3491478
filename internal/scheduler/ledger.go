package scheduler

import (
	"context"

	confidencescoredomain "github.com/smallbiznis/homescore/internal/confidencescore/domain"
)

// finishRun copies the summary onto the run record. A run is completed once
// every property was visited, even when some of them failed.
func (s *Scheduler) finishRun(ctx context.Context, record *confidencescoredomain.ScoreRun, summary RunSummary, runErr error) error {
	finishedAt := summary.FinishedAt
	record.Total = summary.Total
	record.Succeeded = summary.Succeeded
	record.Failed = summary.Failed
	record.Partial = summary.Partial
	record.FinishedAt = &finishedAt
	record.Status = confidencescoredomain.RunStatusCompleted
	if runErr != nil {
		msg := runErr.Error()
		record.Status = confidencescoredomain.RunStatusFailed
		record.Error = &msg
	}

	// The run context may already be done; the ledger write must still land.
	return s.ledger.FinishRun(context.WithoutCancel(ctx), record)
}
