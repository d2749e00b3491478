package domain

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// ConfidenceScore is an immutable snapshot of one calculation.
type ConfidenceScore struct {
	ID              snowflake.ID      `json:"id" gorm:"primaryKey"`
	PropertyID      string            `json:"property_id" gorm:"type:text;not null;index:idx_confidence_scores_property_date,priority:1"`
	CalculationDate time.Time         `json:"calculation_date" gorm:"not null;index:idx_confidence_scores_property_date,priority:2"`
	InsuranceScore  int               `json:"insurance_score" gorm:"not null"`
	BuyerScore      int               `json:"buyer_score" gorm:"not null"`
	ScoreFactors    datatypes.JSONMap `json:"score_factors" gorm:"type:json;not null"`
	Partial         bool              `json:"partial" gorm:"not null;default:false"`
	CreatedAt       time.Time         `json:"created_at" gorm:"not null"`
}

func (ConfidenceScore) TableName() string { return "property_confidence_scores" }

// Factors decodes the stored factor map. Maps read back from the database hold
// json.Number values; freshly built snapshots hold float64.
func (s ConfidenceScore) Factors() map[string]float64 {
	out := make(map[string]float64, len(s.ScoreFactors))
	for name, raw := range s.ScoreFactors {
		switch v := raw.(type) {
		case json.Number:
			if f, err := v.Float64(); err == nil {
				out[name] = f
			}
		case float64:
			out[name] = v
		case int:
			out[name] = float64(v)
		case int64:
			out[name] = float64(v)
		}
	}
	return out
}

// NewSnapshot wraps a calculation result for persistence. The store assigns ID.
func NewSnapshot(propertyID string, result Result, calculatedAt time.Time) ConfidenceScore {
	factors := make(datatypes.JSONMap, len(result.Factors))
	for name, score := range result.Factors {
		factors[name] = score
	}
	return ConfidenceScore{
		PropertyID:      propertyID,
		CalculationDate: calculatedAt.UTC(),
		InsuranceScore:  result.InsuranceScore,
		BuyerScore:      result.BuyerScore,
		ScoreFactors:    factors,
		Partial:         result.Partial,
	}
}

// Run statuses recorded in the run ledger.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// ScoreRun is one execution of the monthly batch.
type ScoreRun struct {
	ID         snowflake.ID `json:"id" gorm:"primaryKey"`
	RunID      string       `json:"run_id" gorm:"type:text;not null;uniqueIndex"`
	Period     string       `json:"period" gorm:"type:text;not null;index"`
	Status     string       `json:"status" gorm:"type:text;not null"`
	Total      int          `json:"total" gorm:"not null;default:0"`
	Succeeded  int          `json:"succeeded" gorm:"not null;default:0"`
	Failed     int          `json:"failed" gorm:"not null;default:0"`
	Partial    int          `json:"partial" gorm:"not null;default:0"`
	Error      *string      `json:"error,omitempty" gorm:"type:text"`
	StartedAt  time.Time    `json:"started_at" gorm:"not null"`
	FinishedAt *time.Time   `json:"finished_at,omitempty"`
}

func (ScoreRun) TableName() string { return "confidence_score_runs" }

// PeriodOf formats the calendar month a run covers, in UTC.
func PeriodOf(t time.Time) string {
	return t.UTC().Format("2006-01")
}
