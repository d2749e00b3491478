package repository

import (
	"context"

	propertydomain "github.com/smallbiznis/homescore/internal/property/domain"
	"gorm.io/gorm"
)

type propertyRepo struct {
	db *gorm.DB
}

type assetRepo struct {
	db *gorm.DB
}

type taskRepo struct {
	db *gorm.DB
}

func NewPropertyRepository(db *gorm.DB) propertydomain.PropertyRepository {
	return &propertyRepo{db: db}
}

func NewAssetRepository(db *gorm.DB) propertydomain.AssetRepository {
	return &assetRepo{db: db}
}

func NewTaskRepository(db *gorm.DB) propertydomain.TaskRepository {
	return &taskRepo{db: db}
}

func (r *propertyRepo) FindByID(ctx context.Context, id string) (*propertydomain.Property, error) {
	var property propertydomain.Property
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, name, postcode, epc_rating, created_at
		 FROM properties WHERE id = ?`,
		id,
	).Scan(&property).Error
	if err != nil {
		return nil, err
	}
	if property.ID == "" {
		return nil, nil
	}
	return &property, nil
}

func (r *propertyRepo) FindAll(ctx context.Context) ([]propertydomain.Property, error) {
	var properties []propertydomain.Property
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, name, postcode, epc_rating, created_at
		 FROM properties ORDER BY created_at ASC, id ASC`,
	).Scan(&properties).Error
	if err != nil {
		return nil, err
	}
	return properties, nil
}

func (r *assetRepo) FindByPropertyID(ctx context.Context, propertyID string) ([]propertydomain.Asset, error) {
	var assets []propertydomain.Asset
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, property_id, name, category, purchase_date, asset_condition
		 FROM assets WHERE property_id = ? ORDER BY purchase_date ASC, id ASC`,
		propertyID,
	).Scan(&assets).Error
	if err != nil {
		return nil, err
	}
	return assets, nil
}

func (r *taskRepo) FindByPropertyID(ctx context.Context, propertyID string) ([]propertydomain.MaintenanceTask, error) {
	var tasks []propertydomain.MaintenanceTask
	err := r.db.WithContext(ctx).Raw(
		`SELECT id, property_id, title, status, scheduled_date, completed_date
		 FROM maintenance_tasks WHERE property_id = ? ORDER BY scheduled_date ASC, id ASC`,
		propertyID,
	).Scan(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}
