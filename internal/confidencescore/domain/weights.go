package domain

import (
	"fmt"
	"math"
	"sort"

	"github.com/smallbiznis/homescore/internal/config"
)

// WeightVector maps factor name to its contribution weight in [0,1].
// Factors absent from the vector contribute nothing.
type WeightVector map[string]float64

type Weights struct {
	Insurance WeightVector
	Buyer     WeightVector
}

// WeightsFromConfig resolves configured keys to catalogue names. Unknown
// factor names are rejected so a typo cannot silently zero a weight.
func WeightsFromConfig(cfg config.WeightsConfig) (Weights, error) {
	if err := config.ValidateWeights(cfg); err != nil {
		return Weights{}, err
	}
	insurance, err := resolveVector("insurance", cfg.Insurance)
	if err != nil {
		return Weights{}, err
	}
	buyer, err := resolveVector("buyer", cfg.Buyer)
	if err != nil {
		return Weights{}, err
	}
	return Weights{Insurance: insurance, Buyer: buyer}, nil
}

func DefaultWeights() Weights {
	w, err := WeightsFromConfig(config.DefaultWeightsConfig())
	if err != nil {
		panic(err)
	}
	return w
}

func resolveVector(label string, raw map[string]float64) (WeightVector, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(WeightVector, len(raw))
	for _, key := range keys {
		name, ok := CanonicalFactorName(key)
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownFactor, label, key)
		}
		out[name] = raw[key]
	}
	return out, nil
}

// Aggregate computes round(Σ (score/100)·weight · 1000), summing in catalogue
// order so results are bit-for-bit repeatable. math.Round rounds half away
// from zero.
func Aggregate(factors map[string]float64, weights WeightVector) int {
	total := 0.0
	for _, factor := range Catalogue {
		score, ok := factors[factor.Name]
		if !ok {
			continue
		}
		total += (score / 100) * weights[factor.Name]
	}
	return int(math.Round(total * 1000))
}
