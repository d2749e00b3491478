package confidencescore

import (
	"github.com/smallbiznis/homescore/internal/confidencescore/repository"
	"github.com/smallbiznis/homescore/internal/confidencescore/service"
	"go.uber.org/fx"
)

var Module = fx.Module("confidencescore.service",
	fx.Provide(repository.Provide),
	fx.Provide(repository.ProvideRuns),
	fx.Provide(service.New),
	fx.Provide(service.NewRunLedger),
)
