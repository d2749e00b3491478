package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDefaultWeightsAreValid(t *testing.T) {
	cfg := DefaultWeightsConfig()
	require.NoError(t, ValidateWeights(cfg))
	assert.InDelta(t, 0.90, sum(cfg.Insurance), 1e-9)
	assert.InDelta(t, 0.88, sum(cfg.Buyer), 1e-9)
}

func TestValidateWeightsRejectsOutOfRange(t *testing.T) {
	cfg := DefaultWeightsConfig()
	cfg.Buyer = map[string]float64{"epcRating": 1.5}
	err := ValidateWeights(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weights.buyer.epcRating")

	cfg.Buyer = nil
	assert.Error(t, ValidateWeights(cfg))
}

func TestValidateWeightsRejectsVectorsSummingAboveOne(t *testing.T) {
	cfg := DefaultWeightsConfig()
	cfg.Insurance = map[string]float64{"floodRisk": 1, "epcRating": 1, "fireRisk": 1}
	err := ValidateWeights(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weights.insurance must sum to at most 1")

	cfg.Insurance = map[string]float64{"floodRisk": 0.1, "epcRating": 0.2, "fireRisk": 0.7}
	assert.NoError(t, ValidateWeights(cfg))

	cfg.Insurance = map[string]float64{"floodRisk": 0.5, "epcRating": 0.5000001}
	assert.Error(t, ValidateWeights(cfg))
}

func TestWeightsHolderReloadKeepsLastGoodVectors(t *testing.T) {
	holder := NewStaticWeightsHolder(DefaultWeightsConfig())

	overweight := WeightsConfig{
		Insurance: map[string]float64{"floodRisk": 0.8, "epcRating": 0.8},
		Buyer:     map[string]float64{"epcRating": 1},
	}
	require.Error(t, holder.reload(overweight))
	assert.Equal(t, DefaultWeightsConfig(), holder.Get())

	valid := WeightsConfig{
		Insurance: map[string]float64{"floodRisk": 1},
		Buyer:     map[string]float64{"epcRating": 1},
	}
	require.NoError(t, holder.reload(valid))
	assert.Equal(t, valid, holder.Get())
}

func TestNewWeightsHolderRejectsOverweightFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scoring.yml")
	content := []byte("weights:\n  insurance:\n    floodRisk: 0.9\n    epcRating: 0.9\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	_, err := NewWeightsHolder(Config{Scoring: ScoringConfig{WeightsFile: path}}, zap.NewNop())
	assert.Error(t, err)
}

func TestNewWeightsHolderReadsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scoring.yml")
	content := []byte("weights:\n  insurance:\n    floodRisk: 0.5\n    epcRating: 0.5\n")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	holder, err := NewWeightsHolder(Config{Scoring: ScoringConfig{WeightsFile: path}}, zap.NewNop())
	require.NoError(t, err)

	got := holder.Get()
	// viper lower-cases keys; the scoring domain resolves them case-insensitively.
	assert.Equal(t, 0.5, got.Insurance["floodrisk"])
	assert.Equal(t, DefaultWeightsConfig().Buyer, got.Buyer)
}

func TestNewWeightsHolderRejectsInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scoring.yml")
	require.NoError(t, os.WriteFile(path, []byte("weights:\n  buyer:\n    epcRating: 2\n"), 0o600))

	_, err := NewWeightsHolder(Config{Scoring: ScoringConfig{WeightsFile: path}}, zap.NewNop())
	assert.Error(t, err)
}

func TestNewWeightsHolderMissingExplicitFile(t *testing.T) {
	_, err := NewWeightsHolder(Config{Scoring: ScoringConfig{WeightsFile: filepath.Join(t.TempDir(), "missing.yml")}}, zap.NewNop())
	assert.Error(t, err)
}

func sum(vector map[string]float64) float64 {
	total := 0.0
	for _, w := range vector {
		total += w
	}
	return total
}
