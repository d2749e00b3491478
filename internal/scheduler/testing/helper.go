// Package testing holds fixtures for exercising the monthly batch.
package testing

import (
	"context"
	"fmt"
	"time"

	confidencescoredomain "github.com/smallbiznis/homescore/internal/confidencescore/domain"
	propertydomain "github.com/smallbiznis/homescore/internal/property/domain"
	propertyrepository "github.com/smallbiznis/homescore/internal/property/repository"
)

// SeedProperties adds n properties named prop-001.. with one asset per
// system category, all bought a year before at.
func SeedProperties(store *propertyrepository.MemoryStore, n int, at time.Time) []string {
	ids := make([]string, 0, n)
	epc := "C"
	purchased := at.AddDate(-1, 0, 0)
	for i := 1; i <= n; i++ {
		id := fmt.Sprintf("prop-%03d", i)
		store.AddProperty(propertydomain.Property{
			ID:        id,
			Name:      fmt.Sprintf("Property %d", i),
			Postcode:  "SW1A 1AA",
			EPCRating: &epc,
			CreatedAt: at,
		})
		for _, category := range []string{
			propertydomain.CategoryHVAC,
			propertydomain.CategoryElectrical,
			propertydomain.CategoryPlumbing,
		} {
			store.AddAsset(propertydomain.Asset{
				ID:           id + "-" + category,
				PropertyID:   id,
				Name:         category,
				Category:     category,
				PurchaseDate: purchased,
				Condition:    propertydomain.ConditionGood,
			})
		}
		ids = append(ids, id)
	}
	return ids
}

// FailingService fails Recalculate for the listed property ids and delegates
// everything else.
type FailingService struct {
	confidencescoredomain.Service
	Fail map[string]error
}

func (f FailingService) Recalculate(ctx context.Context, propertyID string) (*confidencescoredomain.ConfidenceScore, error) {
	if err, ok := f.Fail[propertyID]; ok {
		return nil, err
	}
	return f.Service.Recalculate(ctx, propertyID)
}

// BlockingService waits for the context to end before answering.
type BlockingService struct {
	confidencescoredomain.Service
}

func (BlockingService) Recalculate(ctx context.Context, _ string) (*confidencescoredomain.ConfidenceScore, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
