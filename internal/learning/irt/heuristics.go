package irt

import (
	"strings"

	"github.com/yungbote/neurobridge-adaptive/internal/learning/mathx"
)

// Item type codes used by the assessment catalogue.
const (
	ItemTypeQCM  = "qcm"  // multiple answers
	ItemTypeQCS  = "qcs"  // single answer
	ItemTypeQROC = "qroc" // short open answer
)

var difficultyByLabel = map[string]float64{
	"easy":   -1,
	"medium": 0,
	"hard":   1,
}

// DifficultyFromLabel maps easy/medium/hard onto the ability scale; unknown
// labels sit at 0.
func DifficultyFromLabel(label string) float64 {
	return difficultyByLabel[strings.ToLower(strings.TrimSpace(label))]
}

// GuessingFromTiming infers the guessing floor from time spent relative to the
// item's estimate. Slower answers imply less guessing.
func GuessingFromTiming(timeSpentSeconds, estimatedSeconds float64) float64 {
	ratio := 0.0
	if estimatedSeconds > 0 && mathx.IsFinite(estimatedSeconds) && mathx.IsFinite(timeSpentSeconds) {
		ratio = timeSpentSeconds / estimatedSeconds
	}
	switch {
	case ratio >= 2:
		return 0.15
	case ratio >= 1.25:
		return 0.25
	default:
		return 0.35
	}
}

var discriminationMultiplier = map[string]float64{
	ItemTypeQCM:  1.0,
	ItemTypeQCS:  1.1,
	ItemTypeQROC: 1.3,
}

// DiscriminationFromBaseline scales the stored baseline by the item-type
// multiplier. Missing or non-positive baselines count as 1.
func DiscriminationFromBaseline(itemType string, baseline *float64) float64 {
	base := 1.0
	if baseline != nil && *baseline > 0 && mathx.IsFinite(*baseline) {
		base = *baseline
	}
	mult, ok := discriminationMultiplier[normType(itemType)]
	if !ok {
		mult = 1.0
	}
	return mathx.ClampRange(base*mult, MinDiscrimination, MaxDiscrimination)
}

var guessingPriorByType = map[string]float64{
	ItemTypeQCM:  0.25,
	ItemTypeQCS:  0.20,
	ItemTypeQROC: 0.10,
}

// GuessingPrior is the per-type guessing floor held fixed during calibration.
func GuessingPrior(itemType string) float64 {
	if g, ok := guessingPriorByType[normType(itemType)]; ok {
		return g
	}
	return defaultGuessing
}

func normType(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

// ItemContext is what the heuristic fallback knows about an item and the
// attempt being scored.
type ItemContext struct {
	ItemType               string
	DifficultyLabel        string
	BaselineDiscrimination *float64
	TimeSpentSeconds       float64
	EstimatedTimeSeconds   float64
}

// Heuristic synthesizes parameters for items with no calibration yet.
func Heuristic(in ItemContext) ItemParams {
	return ItemParams{
		Difficulty:     DifficultyFromLabel(in.DifficultyLabel),
		Discrimination: DiscriminationFromBaseline(in.ItemType, in.BaselineDiscrimination),
		Guessing:       GuessingFromTiming(in.TimeSpentSeconds, in.EstimatedTimeSeconds),
	}
}
