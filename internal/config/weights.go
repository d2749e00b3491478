package config

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// WeightsConfig carries the two weight vectors used by the confidence score engine.
type WeightsConfig struct {
	Insurance map[string]float64 `mapstructure:"insurance"`
	Buyer     map[string]float64 `mapstructure:"buyer"`
}

func DefaultWeightsConfig() WeightsConfig {
	return WeightsConfig{
		Insurance: map[string]float64{
			"foundationIntegrity": 0.15,
			"roofCondition":       0.10,
			"hvacCondition":       0.10,
			"electricalSystem":    0.12,
			"plumbingSystem":      0.12,
			"floodRisk":           0.12,
			"fireRisk":            0.05,
			"crimeRate":           0.02,
			"subsidenceRisk":      0.10,
			"epcRating":           0.02,
		},
		Buyer: map[string]float64{
			"foundationIntegrity": 0.10,
			"roofCondition":       0.08,
			"hvacCondition":       0.09,
			"electricalSystem":    0.10,
			"plumbingSystem":      0.10,
			"floodRisk":           0.02,
			"localSchools":        0.08,
			"transportLinks":      0.08,
			"localAmenities":      0.08,
			"epcRating":           0.15,
		},
	}
}

type WeightsHolder struct {
	current atomic.Value // holds WeightsConfig
}

// NewStaticWeightsHolder returns a holder that never reloads.
func NewStaticWeightsHolder(cfg WeightsConfig) *WeightsHolder {
	holder := &WeightsHolder{}
	holder.current.Store(cfg)
	return holder
}

// NewWeightsHolder reads scoring.yml when present and watches it for changes.
// Without a file the documented default vectors are used.
func NewWeightsHolder(appCfg Config, log *zap.Logger) (*WeightsHolder, error) {
	v := viper.New()

	if appCfg.Scoring.WeightsFile != "" {
		v.SetConfigFile(appCfg.Scoring.WeightsFile)
	} else {
		v.SetConfigName("scoring")
		v.SetConfigType("yml")
		v.AddConfigPath("/etc/homescore")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("HOMESCORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultWeightsConfig()
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return NewStaticWeightsHolder(defaults), nil
		}
		return nil, fmt.Errorf("read scoring weights: %w", err)
	}

	var cfg WeightsConfig
	if err := v.UnmarshalKey("weights", &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Insurance) == 0 {
		cfg.Insurance = defaults.Insurance
	}
	if len(cfg.Buyer) == 0 {
		cfg.Buyer = defaults.Buyer
	}
	if err := ValidateWeights(cfg); err != nil {
		return nil, err
	}

	holder := NewStaticWeightsHolder(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated WeightsConfig
		if err := v.UnmarshalKey("weights", &updated); err != nil {
			log.Warn("config.weights.reload_failed", zap.Error(err))
			return
		}
		if err := holder.reload(updated); err != nil {
			log.Warn("config.weights.invalid", zap.Error(err))
			return
		}
		log.Info("config.weights.reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *WeightsHolder) Get() WeightsConfig {
	return h.current.Load().(WeightsConfig)
}

// reload swaps in updated only when it validates; otherwise the previous
// vectors stay in effect.
func (h *WeightsHolder) reload(updated WeightsConfig) error {
	if err := ValidateWeights(updated); err != nil {
		return err
	}
	h.current.Store(updated)
	return nil
}

// weightSumTolerance absorbs float error in sums such as 0.1+0.2+0.7.
const weightSumTolerance = 1e-9

// ValidateWeights rejects empty vectors, weights outside [0,1] and vectors
// summing above 1, which would push scores past 1000.
func ValidateWeights(cfg WeightsConfig) error {
	if len(cfg.Insurance) == 0 {
		return errors.New("weights.insurance cannot be empty")
	}
	if len(cfg.Buyer) == 0 {
		return errors.New("weights.buyer cannot be empty")
	}
	for name, vector := range map[string]map[string]float64{
		"insurance": cfg.Insurance,
		"buyer":     cfg.Buyer,
	} {
		keys := make([]string, 0, len(vector))
		for k := range vector {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		total := 0.0
		for _, factor := range keys {
			w := vector[factor]
			if w < 0 || w > 1 {
				return fmt.Errorf("weights.%s.%s must be within [0,1], got %v", name, factor, w)
			}
			total += w
		}
		if total > 1+weightSumTolerance {
			return fmt.Errorf("weights.%s must sum to at most 1, got %v", name, total)
		}
	}
	return nil
}
