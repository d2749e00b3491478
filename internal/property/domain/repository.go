package domain

import "context"

// PropertyRepository reads property records. FindByID returns nil, nil when
// the property does not exist.
type PropertyRepository interface {
	FindByID(ctx context.Context, id string) (*Property, error)
	FindAll(ctx context.Context) ([]Property, error)
}

type AssetRepository interface {
	FindByPropertyID(ctx context.Context, propertyID string) ([]Asset, error)
}

type TaskRepository interface {
	FindByPropertyID(ctx context.Context, propertyID string) ([]MaintenanceTask, error)
}
