package service

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/homescore/internal/clock"
	confidencescoredomain "github.com/smallbiznis/homescore/internal/confidencescore/domain"
	"github.com/smallbiznis/homescore/internal/config"
	floodriskdomain "github.com/smallbiznis/homescore/internal/floodrisk/domain"
	obscontext "github.com/smallbiznis/homescore/internal/observability/context"
	"github.com/smallbiznis/homescore/internal/observability/logger"
	"github.com/smallbiznis/homescore/internal/observability/metrics"
	propertydomain "github.com/smallbiznis/homescore/internal/property/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Config     config.Config
	Weights    *config.WeightsHolder
	Repo       confidencescoredomain.Repository
	Properties propertydomain.PropertyRepository
	Assets     propertydomain.AssetRepository
	Tasks      propertydomain.TaskRepository
	FloodRisk  floodriskdomain.Lookup
	Metrics    *metrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       confidencescoredomain.Repository
	properties propertydomain.PropertyRepository
	assets     propertydomain.AssetRepository
	tasks      propertydomain.TaskRepository
	floodRisk  floodriskdomain.Lookup
	metrics    *metrics.Metrics
	tracer     trace.Tracer

	weightsSource *config.WeightsHolder
	lastGood      atomic.Pointer[confidencescoredomain.Weights]
	floodTimeout  time.Duration
	floodFallback float64
}

func New(p Params) (confidencescoredomain.Service, error) {
	s := &Service{
		db:            p.DB,
		log:           p.Log.Named("confidencescore.service"),
		genID:         p.GenID,
		clock:         p.Clock,
		repo:          p.Repo,
		properties:    p.Properties,
		assets:        p.Assets,
		tasks:         p.Tasks,
		floodRisk:     p.FloodRisk,
		metrics:       p.Metrics,
		tracer:        otel.Tracer("homescore/confidencescore"),
		weightsSource: p.Weights,
		floodTimeout:  p.Config.FloodRisk.Timeout,
		floodFallback: p.Config.FloodRisk.Fallback,
	}
	if s.clock == nil {
		s.clock = clock.NewSystemClock()
	}

	weights, err := confidencescoredomain.WeightsFromConfig(p.Weights.Get())
	if err != nil {
		return nil, err
	}
	s.lastGood.Store(&weights)
	return s, nil
}

// CalculateForProperty is read-only: it never persists.
func (s *Service) CalculateForProperty(ctx context.Context, propertyID string) (confidencescoredomain.Result, error) {
	propertyID = strings.TrimSpace(propertyID)
	if propertyID == "" {
		return confidencescoredomain.Result{}, confidencescoredomain.ErrInvalidPropertyID
	}

	ctx = obscontext.WithPropertyID(ctx, propertyID)
	ctx, span := s.tracer.Start(ctx, "confidencescore.calculate")
	defer span.End()

	start := time.Now()
	result, err := s.calculate(ctx, propertyID)
	elapsed := time.Since(start)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "calculation failed")
		s.metrics.RecordScoreCalculation(ctx, "error", elapsed)
		return confidencescoredomain.Result{}, err
	}

	outcome := "success"
	if result.Partial {
		outcome = "partial"
	}
	span.SetAttributes(
		attribute.Int("score.insurance", result.InsuranceScore),
		attribute.Int("score.buyer", result.BuyerScore),
		attribute.Bool("score.partial", result.Partial),
	)
	s.metrics.RecordScoreCalculation(ctx, outcome, elapsed)
	return result, nil
}

func (s *Service) calculate(ctx context.Context, propertyID string) (confidencescoredomain.Result, error) {
	property, err := s.properties.FindByID(ctx, propertyID)
	if err != nil {
		return confidencescoredomain.Result{}, fmt.Errorf("load property %s: %w", propertyID, err)
	}
	if property == nil {
		return confidencescoredomain.Result{}, fmt.Errorf("property %s: %w", propertyID, confidencescoredomain.ErrPropertyNotFound)
	}

	assets, err := s.assets.FindByPropertyID(ctx, propertyID)
	if err != nil {
		return confidencescoredomain.Result{}, fmt.Errorf("load assets for %s: %w", propertyID, err)
	}
	// Tasks feed no factor yet; the lookup still runs so provider failures surface.
	if _, err := s.tasks.FindByPropertyID(ctx, propertyID); err != nil {
		return confidencescoredomain.Result{}, fmt.Errorf("load tasks for %s: %w", propertyID, err)
	}

	now := s.clock.Now()
	result := confidencescoredomain.Result{
		Factors: make(map[string]float64, len(confidencescoredomain.Catalogue)),
	}
	for _, factor := range confidencescoredomain.Catalogue {
		switch factor.Kind {
		case confidencescoredomain.FactorPlaceholder:
			result.Factors[factor.Name] = factor.Value
		case confidencescoredomain.FactorComputed:
			if factor.AssetCategory != "" {
				result.Factors[factor.Name] = systemCondition(assets, factor.AssetCategory, now)
			} else {
				result.Factors[factor.Name] = epcScore(property.EPCRating)
			}
		case confidencescoredomain.FactorExternal:
			score, ok := s.externalFactor(ctx, factor.Name, property)
			result.Factors[factor.Name] = score
			if !ok {
				result.Partial = true
				result.FallbackFactors = append(result.FallbackFactors, factor.Name)
			}
		}
	}

	weights := s.currentWeights(ctx)
	result.InsuranceScore = confidencescoredomain.Aggregate(result.Factors, weights.Insurance)
	result.BuyerScore = confidencescoredomain.Aggregate(result.Factors, weights.Buyer)
	return result, nil
}

// externalFactor returns the factor value and false when the fallback was used.
func (s *Service) externalFactor(ctx context.Context, name string, property *propertydomain.Property) (float64, bool) {
	switch name {
	case confidencescoredomain.FactorFloodRisk:
		lookupCtx := ctx
		if s.floodTimeout > 0 {
			var cancel context.CancelFunc
			lookupCtx, cancel = context.WithTimeout(ctx, s.floodTimeout)
			defer cancel()
		}
		score, err := s.floodRisk.FloodRisk(lookupCtx, property.Postcode)
		if err == nil && !floodriskdomain.ValidScore(score) {
			err = floodriskdomain.ErrInvalidScore
		}
		if err != nil {
			logger.WithContext(ctx, s.log).Warn("confidence_score.factor.fallback",
				zap.String("factor", name),
				zap.Float64("fallback", s.floodFallback),
				zap.Error(err),
			)
			return s.floodFallback, false
		}
		return score, true
	default:
		return 0, false
	}
}

// currentWeights follows hot-reloaded configuration, keeping the last valid
// vectors when a reload names an unknown factor.
func (s *Service) currentWeights(ctx context.Context) confidencescoredomain.Weights {
	if s.weightsSource != nil {
		weights, err := confidencescoredomain.WeightsFromConfig(s.weightsSource.Get())
		if err == nil {
			s.lastGood.Store(&weights)
			return weights
		}
		logger.WithContext(ctx, s.log).Warn("confidence_score.weights.rejected", zap.Error(err))
	}
	return *s.lastGood.Load()
}

func (s *Service) Save(ctx context.Context, score *confidencescoredomain.ConfidenceScore) error {
	if score == nil || strings.TrimSpace(score.PropertyID) == "" {
		return confidencescoredomain.ErrInvalidPropertyID
	}
	if score.ID != 0 {
		return fmt.Errorf("confidence score %s already saved", score.ID)
	}
	score.ID = s.genID.Generate()
	score.CreatedAt = s.clock.Now().UTC()
	if score.CalculationDate.IsZero() {
		score.CalculationDate = score.CreatedAt
	}
	if err := s.repo.Insert(ctx, s.db, score); err != nil {
		score.ID = 0
		return fmt.Errorf("save confidence score for %s: %w", score.PropertyID, err)
	}
	return nil
}

func (s *Service) Recalculate(ctx context.Context, propertyID string) (*confidencescoredomain.ConfidenceScore, error) {
	result, err := s.CalculateForProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	snapshot := confidencescoredomain.NewSnapshot(strings.TrimSpace(propertyID), result, s.clock.Now())
	if err := s.Save(ctx, &snapshot); err != nil {
		return nil, err
	}

	logger.WithContext(ctx, s.log).Info("confidence_score.calculated",
		zap.String("score_id", snapshot.ID.String()),
		zap.Int("insurance_score", snapshot.InsuranceScore),
		zap.Int("buyer_score", snapshot.BuyerScore),
		zap.Bool("partial", snapshot.Partial),
	)
	return &snapshot, nil
}

func (s *Service) GetLatest(ctx context.Context, propertyID string) (*confidencescoredomain.ConfidenceScore, error) {
	propertyID = strings.TrimSpace(propertyID)
	if propertyID == "" {
		return nil, confidencescoredomain.ErrInvalidPropertyID
	}
	score, err := s.repo.FindLatestByPropertyID(ctx, s.db, propertyID)
	if err != nil {
		return nil, err
	}
	if score == nil {
		return nil, confidencescoredomain.ErrScoreNotFound
	}
	return score, nil
}

func (s *Service) History(ctx context.Context, propertyID string, limit int) ([]confidencescoredomain.ConfidenceScore, error) {
	propertyID = strings.TrimSpace(propertyID)
	if propertyID == "" {
		return nil, confidencescoredomain.ErrInvalidPropertyID
	}
	if limit <= 0 {
		limit = confidencescoredomain.DefaultHistoryLimit
	}
	limit = min(limit, confidencescoredomain.MaxHistoryLimit)
	return s.repo.ListByPropertyID(ctx, s.db, propertyID, limit)
}
