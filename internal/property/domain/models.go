package domain

import (
	"time"
)

// Asset categories scored by the system-condition factors.
const (
	CategoryHVAC       = "HVAC"
	CategoryElectrical = "Electrical"
	CategoryPlumbing   = "Plumbing"
)

// Asset conditions as recorded by the owner.
const (
	ConditionExcellent   = "excellent"
	ConditionGood        = "good"
	ConditionFair        = "fair"
	ConditionPoor        = "poor"
	ConditionNeedsRepair = "needs_repair"
)

// Property is a home tracked by the application.
type Property struct {
	ID        string    `json:"id" gorm:"primaryKey;type:text"`
	Name      string    `json:"name" gorm:"type:text;not null"`
	Postcode  string    `json:"postcode" gorm:"type:text;not null"`
	EPCRating *string   `json:"epc_rating,omitempty" gorm:"column:epc_rating;type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
}

func (Property) TableName() string { return "properties" }

// Asset is an installed system or appliance belonging to a property.
type Asset struct {
	ID           string    `json:"id" gorm:"primaryKey;type:text"`
	PropertyID   string    `json:"property_id" gorm:"type:text;not null;index"`
	Name         string    `json:"name" gorm:"type:text;not null"`
	Category     string    `json:"category" gorm:"type:text;not null"`
	PurchaseDate time.Time `json:"purchase_date" gorm:"not null"`
	Condition    string    `json:"condition" gorm:"column:asset_condition;type:text;not null"`
}

func (Asset) TableName() string { return "assets" }

// InCategory reports an exact category match; "hvac" is not "HVAC".
func (a Asset) InCategory(category string) bool {
	return a.Category == category
}

type MaintenanceTask struct {
	ID            string     `json:"id" gorm:"primaryKey;type:text"`
	PropertyID    string     `json:"property_id" gorm:"type:text;not null;index"`
	Title         string     `json:"title" gorm:"type:text;not null"`
	Status        string     `json:"status" gorm:"type:text;not null"`
	ScheduledDate time.Time  `json:"scheduled_date" gorm:"not null"`
	CompletedDate *time.Time `json:"completed_date,omitempty"`
}

func (MaintenanceTask) TableName() string { return "maintenance_tasks" }
