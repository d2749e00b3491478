package pdf

import (
	"context"
	"io"

	"go.uber.org/fx"
)

type Provider interface {
	GenerateScoreReport(ctx context.Context, data ScoreReportData) (io.Reader, error)
}

var Module = fx.Module("pdf",
	fx.Provide(New),
)

type NoOpProvider struct{}

func (p *NoOpProvider) GenerateScoreReport(ctx context.Context, data ScoreReportData) (io.Reader, error) {
	return nil, nil
}
