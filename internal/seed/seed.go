package seed

import (
	"context"
	"errors"
	"time"

	propertydomain "github.com/smallbiznis/homescore/internal/property/domain"
	propertyrepository "github.com/smallbiznis/homescore/internal/property/repository"
	"github.com/smallbiznis/homescore/pkg/db"
	"gorm.io/gorm"
)

type demoProperty struct {
	property propertydomain.Property
	assets   []propertydomain.Asset
	tasks    []propertydomain.MaintenanceTask
}

// DemoData returns a small fixed portfolio. Ages are relative to at so the
// scores stay stable from year to year.
func DemoData(at time.Time) ([]propertydomain.Property, []propertydomain.Asset, []propertydomain.MaintenanceTask) {
	var (
		properties []propertydomain.Property
		assets     []propertydomain.Asset
		tasks      []propertydomain.MaintenanceTask
	)
	for _, d := range demoPortfolio(at.UTC()) {
		properties = append(properties, d.property)
		assets = append(assets, d.assets...)
		tasks = append(tasks, d.tasks...)
	}
	return properties, assets, tasks
}

func demoPortfolio(at time.Time) []demoProperty {
	yearsAgo := func(n int) time.Time { return at.AddDate(-n, 0, 0) }
	epc := func(v string) *string { return &v }
	completed := at.AddDate(0, -2, 0)

	return []demoProperty{
		{
			property: propertydomain.Property{ID: "demo-001", Name: "12 Acacia Avenue", Postcode: "OX1 2JD", EPCRating: epc("B"), CreatedAt: at},
			assets: []propertydomain.Asset{
				{ID: "demo-001-boiler", PropertyID: "demo-001", Name: "Combi boiler", Category: propertydomain.CategoryHVAC, PurchaseDate: yearsAgo(3), Condition: propertydomain.ConditionGood},
				{ID: "demo-001-consumer-unit", PropertyID: "demo-001", Name: "Consumer unit", Category: propertydomain.CategoryElectrical, PurchaseDate: yearsAgo(5), Condition: propertydomain.ConditionFair},
				{ID: "demo-001-water-tank", PropertyID: "demo-001", Name: "Unvented cylinder", Category: propertydomain.CategoryPlumbing, PurchaseDate: yearsAgo(1), Condition: propertydomain.ConditionExcellent},
			},
			tasks: []propertydomain.MaintenanceTask{
				{ID: "demo-001-service", PropertyID: "demo-001", Title: "Annual boiler service", Status: "completed", ScheduledDate: completed, CompletedDate: &completed},
			},
		},
		{
			property: propertydomain.Property{ID: "demo-002", Name: "Flat 4, Mill Court", Postcode: "LS1 4AP", EPCRating: epc("D"), CreatedAt: at},
			assets: []propertydomain.Asset{
				{ID: "demo-002-heat-pump", PropertyID: "demo-002", Name: "Air source heat pump", Category: propertydomain.CategoryHVAC, PurchaseDate: yearsAgo(12), Condition: propertydomain.ConditionPoor},
				{ID: "demo-002-wiring", PropertyID: "demo-002", Name: "Rewire", Category: propertydomain.CategoryElectrical, PurchaseDate: yearsAgo(25), Condition: propertydomain.ConditionNeedsRepair},
			},
			tasks: []propertydomain.MaintenanceTask{
				{ID: "demo-002-eicr", PropertyID: "demo-002", Title: "Electrical inspection", Status: "scheduled", ScheduledDate: at.AddDate(0, 1, 0)},
			},
		},
		{
			property: propertydomain.Property{ID: "demo-003", Name: "The Old Rectory", Postcode: "YO1 7HH", CreatedAt: at},
		},
	}
}

// EnsureDemoProperties inserts the demo portfolio, skipping rows that
// already exist. It returns the number of properties inserted.
func EnsureDemoProperties(ctx context.Context, conn *gorm.DB, at time.Time) (int, error) {
	if conn == nil {
		return 0, errors.New("seed database handle is required")
	}

	inserted := 0
	err := conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, d := range demoPortfolio(at.UTC()) {
			created, err := insertIgnoringDuplicate(tx, &d.property)
			if err != nil {
				return err
			}
			if created {
				inserted++
			}
			for i := range d.assets {
				if _, err := insertIgnoringDuplicate(tx, &d.assets[i]); err != nil {
					return err
				}
			}
			for i := range d.tasks {
				if _, err := insertIgnoringDuplicate(tx, &d.tasks[i]); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// insertIgnoringDuplicate runs each insert in a savepoint so a unique
// violation does not abort the surrounding postgres transaction.
func insertIgnoringDuplicate(tx *gorm.DB, value any) (bool, error) {
	err := tx.Transaction(func(sp *gorm.DB) error {
		return sp.Create(value).Error
	})
	if err == nil {
		return true, nil
	}
	if db.IsDuplicateKeyErr(err) {
		return false, nil
	}
	return false, err
}

// SeedMemory loads the demo portfolio into an in-process store.
func SeedMemory(store *propertyrepository.MemoryStore, at time.Time) {
	properties, assets, tasks := DemoData(at)
	for _, p := range properties {
		store.AddProperty(p)
	}
	for _, a := range assets {
		store.AddAsset(a)
	}
	for _, t := range tasks {
		store.AddTask(t)
	}
}
