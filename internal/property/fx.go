package property

import (
	"github.com/smallbiznis/homescore/internal/property/repository"
	"go.uber.org/fx"
)

// Module serves property data from the database.
var Module = fx.Module("property",
	fx.Provide(
		repository.NewPropertyRepository,
		repository.NewAssetRepository,
		repository.NewTaskRepository,
	),
)

// MemoryModule serves property data from an in-process store, populated by
// whoever supplies the *repository.MemoryStore.
var MemoryModule = fx.Module("property.memory",
	fx.Provide(
		(*repository.MemoryStore).Properties,
		(*repository.MemoryStore).Assets,
		(*repository.MemoryStore).Tasks,
	),
)
