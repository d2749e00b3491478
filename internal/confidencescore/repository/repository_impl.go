package repository

import (
	"context"

	confidencescoredomain "github.com/smallbiznis/homescore/internal/confidencescore/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() confidencescoredomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, s *confidencescoredomain.ConfidenceScore) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO property_confidence_scores (id, property_id, calculation_date, insurance_score, buyer_score, score_factors, partial, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID,
		s.PropertyID,
		s.CalculationDate,
		s.InsuranceScore,
		s.BuyerScore,
		s.ScoreFactors,
		s.Partial,
		s.CreatedAt,
	).Error
}

// FindLatestByPropertyID breaks calculation_date ties by the larger id, which
// for snowflake ids means the later insert.
func (r *repo) FindLatestByPropertyID(ctx context.Context, db *gorm.DB, propertyID string) (*confidencescoredomain.ConfidenceScore, error) {
	var score confidencescoredomain.ConfidenceScore
	err := db.WithContext(ctx).Raw(
		`SELECT id, property_id, calculation_date, insurance_score, buyer_score, score_factors, partial, created_at
		 FROM property_confidence_scores
		 WHERE property_id = ?
		 ORDER BY calculation_date DESC, id DESC
		 LIMIT 1`,
		propertyID,
	).Scan(&score).Error
	if err != nil {
		return nil, err
	}
	if score.ID == 0 {
		return nil, nil
	}
	return &score, nil
}

func (r *repo) ListByPropertyID(ctx context.Context, db *gorm.DB, propertyID string, limit int) ([]confidencescoredomain.ConfidenceScore, error) {
	var scores []confidencescoredomain.ConfidenceScore
	err := db.WithContext(ctx).Raw(
		`SELECT id, property_id, calculation_date, insurance_score, buyer_score, score_factors, partial, created_at
		 FROM property_confidence_scores
		 WHERE property_id = ?
		 ORDER BY calculation_date DESC, id DESC
		 LIMIT ?`,
		propertyID,
		limit,
	).Scan(&scores).Error
	if err != nil {
		return nil, err
	}
	return scores, nil
}
