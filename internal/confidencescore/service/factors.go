package service

import (
	"strings"
	"time"

	propertydomain "github.com/smallbiznis/homescore/internal/property/domain"
)

const (
	missingSystemScore = 40
	unknownEPCScore    = 30
	unknownCondition   = 50
	agePenaltyPerYear  = 5
)

var epcScores = map[string]float64{
	"A": 100,
	"B": 90,
	"C": 80,
	"D": 70,
	"E": 50,
	"F": 30,
	"G": 10,
}

var conditionScores = map[string]float64{
	propertydomain.ConditionExcellent:   100,
	propertydomain.ConditionGood:        80,
	propertydomain.ConditionFair:        60,
	propertydomain.ConditionPoor:        30,
	propertydomain.ConditionNeedsRepair: 10,
}

// epcScore maps an EPC letter grade, upper-casing it first. Absent or
// unrecognised grades score 30.
func epcScore(rating *string) float64 {
	if rating == nil {
		return unknownEPCScore
	}
	if score, ok := epcScores[strings.ToUpper(*rating)]; ok {
		return score
	}
	return unknownEPCScore
}

// conditionScore looks the condition up verbatim; "Good" is unrecognised.
func conditionScore(condition string) float64 {
	if score, ok := conditionScores[condition]; ok {
		return score
	}
	return unknownCondition
}

// ageScore works in whole calendar years. Purchases dated in the future count
// as new.
func ageScore(purchased, now time.Time) float64 {
	age := max(now.Year()-purchased.Year(), 0)
	return max(0, 100-float64(agePenaltyPerYear*age))
}

// systemCondition averages (age + condition)/2 over the category's assets.
// A property with no tracked system of that kind scores 40.
func systemCondition(assets []propertydomain.Asset, category string, now time.Time) float64 {
	total := 0.0
	count := 0
	for _, asset := range assets {
		if !asset.InCategory(category) {
			continue
		}
		total += (ageScore(asset.PurchaseDate, now) + conditionScore(asset.Condition)) / 2
		count++
	}
	if count == 0 {
		return missingSystemScore
	}
	return total / float64(count)
}
