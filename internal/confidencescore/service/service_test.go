package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/homescore/internal/clock"
	confidencescoredomain "github.com/smallbiznis/homescore/internal/confidencescore/domain"
	"github.com/smallbiznis/homescore/internal/confidencescore/repository"
	"github.com/smallbiznis/homescore/internal/config"
	"github.com/smallbiznis/homescore/internal/floodrisk"
	floodriskdomain "github.com/smallbiznis/homescore/internal/floodrisk/domain"
	propertydomain "github.com/smallbiznis/homescore/internal/property/domain"
	propertyrepository "github.com/smallbiznis/homescore/internal/property/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	db    *gorm.DB
	store *propertyrepository.MemoryStore
	clock *clock.FakeClock
	svc   confidencescoredomain.Service
}

type fixtureOption func(*Params)

func withFloodRisk(lookup floodriskdomain.Lookup) fixtureOption {
	return func(p *Params) { p.FloodRisk = lookup }
}

func withFloodTimeout(d time.Duration) fixtureOption {
	return func(p *Params) { p.Config.FloodRisk.Timeout = d }
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&confidencescoredomain.ConfidenceScore{}))
	return db
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	db := setupDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	store := propertyrepository.NewMemoryStore()
	fake := clock.NewFakeClock(testNow)

	p := Params{
		DB:         db,
		Log:        zap.NewNop(),
		GenID:      node,
		Clock:      fake,
		Config:     config.Config{FloodRisk: config.FloodRiskConfig{Timeout: time.Second, Fallback: 50}},
		Weights:    config.NewStaticWeightsHolder(config.DefaultWeightsConfig()),
		Repo:       repository.Provide(),
		Properties: store.Properties(),
		Assets:     store.Assets(),
		Tasks:      store.Tasks(),
		FloodRisk:  floodrisk.StaticLookup{Score: 98},
	}
	for _, opt := range opts {
		opt(&p)
	}

	svc, err := New(p)
	require.NoError(t, err)
	return &fixture{db: db, store: store, clock: fake, svc: svc}
}

// seedReferenceProperty builds the property whose factors match the worked
// insurance example: hvac 82.5, electrical 67.5, plumbing 97.5, EPC B.
func (f *fixture) seedReferenceProperty(id string) {
	epc := "B"
	f.store.AddProperty(propertydomain.Property{ID: id, Postcode: "OX1 2JD", EPCRating: &epc})
	f.store.AddAsset(propertydomain.Asset{ID: id + "-hvac", PropertyID: id, Category: "HVAC",
		PurchaseDate: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC), Condition: "good"})
	f.store.AddAsset(propertydomain.Asset{ID: id + "-elec", PropertyID: id, Category: "Electrical",
		PurchaseDate: time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC), Condition: "fair"})
	f.store.AddAsset(propertydomain.Asset{ID: id + "-plumb", PropertyID: id, Category: "Plumbing",
		PurchaseDate: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), Condition: "excellent"})
}

func TestCalculateForProperty_ReferenceExample(t *testing.T) {
	f := newFixture(t)
	f.seedReferenceProperty("p-1")

	result, err := f.svc.CalculateForProperty(context.Background(), "p-1")
	require.NoError(t, err)

	assert.Equal(t, 696, result.InsuranceScore)
	assert.Equal(t, 654, result.BuyerScore)
	assert.False(t, result.Partial)
	assert.Len(t, result.Factors, len(confidencescoredomain.Catalogue))
	assert.Equal(t, 82.5, result.Factors[confidencescoredomain.FactorHVACCondition])
	assert.Equal(t, 67.5, result.Factors[confidencescoredomain.FactorElectricalSystem])
	assert.Equal(t, 97.5, result.Factors[confidencescoredomain.FactorPlumbingSystem])
	assert.Equal(t, 98.0, result.Factors[confidencescoredomain.FactorFloodRisk])
	assert.Equal(t, 90.0, result.Factors[confidencescoredomain.FactorEPCRating])
	assert.Equal(t, 80.0, result.Factors[confidencescoredomain.FactorFoundationIntegrity])
	assert.Equal(t, 75.0, result.Factors[confidencescoredomain.FactorRoofCondition])
	assert.Equal(t, 50.0, result.Factors[confidencescoredomain.FactorLocalAmenities])
}

func TestCalculateForProperty_NoAssetsScoresSystemsAt40(t *testing.T) {
	f := newFixture(t)
	f.store.AddProperty(propertydomain.Property{ID: "bare", Postcode: "LS1 4AP"})

	result, err := f.svc.CalculateForProperty(context.Background(), "bare")
	require.NoError(t, err)
	for _, name := range []string{
		confidencescoredomain.FactorHVACCondition,
		confidencescoredomain.FactorElectricalSystem,
		confidencescoredomain.FactorPlumbingSystem,
	} {
		assert.Equal(t, 40.0, result.Factors[name], name)
	}
	assert.Equal(t, 30.0, result.Factors[confidencescoredomain.FactorEPCRating])
}

func TestCalculateForProperty_Deterministic(t *testing.T) {
	f := newFixture(t)
	f.seedReferenceProperty("p-1")

	first, err := f.svc.CalculateForProperty(context.Background(), "p-1")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := f.svc.CalculateForProperty(context.Background(), "p-1")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestCalculateForProperty_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CalculateForProperty(context.Background(), "ghost")
	require.Error(t, err)
	assert.ErrorIs(t, err, confidencescoredomain.ErrPropertyNotFound)
	assert.Contains(t, err.Error(), "ghost")

	_, err = f.svc.Recalculate(context.Background(), "ghost")
	assert.ErrorIs(t, err, confidencescoredomain.ErrPropertyNotFound)

	var count int64
	require.NoError(t, f.db.Model(&confidencescoredomain.ConfidenceScore{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestCalculateForProperty_BlankID(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CalculateForProperty(context.Background(), "  ")
	assert.ErrorIs(t, err, confidencescoredomain.ErrInvalidPropertyID)
}

func TestCalculateForProperty_FloodRiskTimeoutFallsBack(t *testing.T) {
	f := newFixture(t,
		withFloodRisk(floodrisk.StaticLookup{Score: 98, Delay: time.Second}),
		withFloodTimeout(10*time.Millisecond),
	)
	f.seedReferenceProperty("p-1")

	result, err := f.svc.CalculateForProperty(context.Background(), "p-1")
	require.NoError(t, err)
	assert.True(t, result.Partial)
	assert.Equal(t, []string{confidencescoredomain.FactorFloodRisk}, result.FallbackFactors)
	assert.Equal(t, 50.0, result.Factors[confidencescoredomain.FactorFloodRisk])
	assert.Less(t, result.InsuranceScore, 696)
}

func TestCalculateForProperty_FloodRiskErrorFallsBack(t *testing.T) {
	f := newFixture(t, withFloodRisk(floodriskdomain.LookupFunc(func(context.Context, string) (float64, error) {
		return 0, floodriskdomain.ErrLookupFailed
	})))
	f.seedReferenceProperty("p-1")

	snapshot, err := f.svc.Recalculate(context.Background(), "p-1")
	require.NoError(t, err)
	assert.True(t, snapshot.Partial)

	stored, err := f.svc.GetLatest(context.Background(), "p-1")
	require.NoError(t, err)
	assert.True(t, stored.Partial)
}

type failingAssets struct{}

func (failingAssets) FindByPropertyID(context.Context, string) ([]propertydomain.Asset, error) {
	return nil, errors.New("asset store unavailable")
}

func TestCalculateForProperty_ProviderErrorPropagates(t *testing.T) {
	f := newFixture(t, func(p *Params) { p.Assets = failingAssets{} })
	f.seedReferenceProperty("p-1")

	_, err := f.svc.CalculateForProperty(context.Background(), "p-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "asset store unavailable")
}

func TestRecalculateAndHistory(t *testing.T) {
	f := newFixture(t)
	f.seedReferenceProperty("p-1")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Recalculate(ctx, "p-1")
		require.NoError(t, err)
		f.clock.Advance(24 * time.Hour)
	}

	latest, err := f.svc.GetLatest(ctx, "p-1")
	require.NoError(t, err)
	assert.True(t, latest.CalculationDate.Equal(testNow.Add(48*time.Hour)))
	assert.Equal(t, 696, latest.InsuranceScore)
	assert.Equal(t, map[string]float64{
		confidencescoredomain.FactorFoundationIntegrity: 80,
		confidencescoredomain.FactorRoofCondition:       75,
		confidencescoredomain.FactorHVACCondition:       82.5,
		confidencescoredomain.FactorElectricalSystem:    67.5,
		confidencescoredomain.FactorPlumbingSystem:      97.5,
		confidencescoredomain.FactorFloodRisk:           98,
		confidencescoredomain.FactorFireRisk:            50,
		confidencescoredomain.FactorCrimeRate:           50,
		confidencescoredomain.FactorSubsidenceRisk:      50,
		confidencescoredomain.FactorEPCRating:           90,
		confidencescoredomain.FactorLocalSchools:        50,
		confidencescoredomain.FactorTransportLinks:      50,
		confidencescoredomain.FactorLocalAmenities:      50,
	}, latest.Factors())

	history, err := f.svc.History(ctx, "p-1", 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.True(t, history[0].CalculationDate.After(history[2].CalculationDate))

	_, err = f.svc.GetLatest(ctx, "p-2")
	assert.ErrorIs(t, err, confidencescoredomain.ErrScoreNotFound)
}

func TestSaveAssignsIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	snapshot := confidencescoredomain.NewSnapshot("p-9", confidencescoredomain.Result{
		InsuranceScore: 500,
		BuyerScore:     400,
		Factors:        map[string]float64{confidencescoredomain.FactorFloodRisk: 10},
	}, testNow)
	require.NoError(t, f.svc.Save(ctx, &snapshot))
	assert.NotZero(t, snapshot.ID)
	assert.False(t, snapshot.CreatedAt.IsZero())

	assert.Error(t, f.svc.Save(ctx, &snapshot), "a saved snapshot cannot be saved again")
}

func TestWeightsFollowReloadedConfig(t *testing.T) {
	holder := config.NewStaticWeightsHolder(config.WeightsConfig{
		Insurance: map[string]float64{"floodrisk": 1},
		Buyer:     map[string]float64{"epcrating": 1},
	})
	f := newFixture(t, func(p *Params) { p.Weights = holder })
	f.seedReferenceProperty("p-1")

	result, err := f.svc.CalculateForProperty(context.Background(), "p-1")
	require.NoError(t, err)
	assert.Equal(t, 980, result.InsuranceScore)
	assert.Equal(t, 900, result.BuyerScore)
}
