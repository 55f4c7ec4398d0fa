package irt

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/neurobridge-adaptive/internal/platform/logger"
)

func TestProbabilityBounds(t *testing.T) {
	item := ItemParams{Difficulty: 0, Discrimination: 3, Guessing: 0}
	assert.Equal(t, 1-1e-9, Probability(100, item))
	assert.Equal(t, 1e-9, Probability(-100, item))
	assert.InDelta(t, 0.6, Probability(0, ItemParams{Difficulty: 0, Discrimination: 1, Guessing: 0.2}), 1e-12)
}

func TestAbilityGradientMatchesNumericDerivative(t *testing.T) {
	item := ItemParams{Difficulty: 0.7, Discrimination: 1.6, Guessing: 0.2}
	logLik := func(theta float64, correct bool) float64 {
		p := Probability(theta, item)
		if correct {
			return math.Log(p)
		}
		return math.Log(1 - p)
	}
	const h = 1e-6
	for _, theta := range []float64{-2, -0.3, 0.5, 1.9} {
		for _, correct := range []bool{true, false} {
			num := (logLik(theta+h, correct) - logLik(theta-h, correct)) / (2 * h)
			assert.InDelta(t, num, AbilityGradient(theta, item, correct), 1e-5)
		}
	}
}

func TestItemGradientMatchesNumericDerivative(t *testing.T) {
	const h = 1e-6
	theta := 0.8
	base := ItemParams{Difficulty: -0.4, Discrimination: 1.2, Guessing: 0.25}
	logLik := func(item ItemParams) float64 {
		return math.Log(Probability(theta, item))
	}
	gb, ga := ItemGradient(theta, base, true)

	up, down := base, base
	up.Difficulty += h
	down.Difficulty -= h
	assert.InDelta(t, (logLik(up)-logLik(down))/(2*h), gb, 1e-5)

	up, down = base, base
	up.Discrimination += h
	down.Discrimination -= h
	assert.InDelta(t, (logLik(up)-logLik(down))/(2*h), ga, 1e-5)
}

func TestStepAbilityRepeatedCorrectOnHardItem(t *testing.T) {
	item := ItemParams{Difficulty: 1.5, Discrimination: 2.5, Guessing: 0.2}
	theta := 0.0
	for i := 0; i < 5; i++ {
		next := StepAbility(theta, item, true, DefaultOnlineLearningRate, DefaultPrior())
		require.False(t, math.IsNaN(next) || math.IsInf(next, 0))
		assert.Greater(t, next, theta, "iteration %d", i)
		theta = next
	}
	for i := 0; i < 200; i++ {
		theta = StepAbility(theta, item, true, DefaultOnlineLearningRate, DefaultPrior())
		require.False(t, math.IsNaN(theta) || math.IsInf(theta, 0))
	}
}

func TestStepAbilityNonFiniteInputs(t *testing.T) {
	item := ItemParams{Difficulty: math.Inf(1), Discrimination: math.NaN(), Guessing: math.NaN()}
	for _, correct := range []bool{true, false} {
		got := StepAbility(math.NaN(), item, correct, DefaultOnlineLearningRate, DefaultPrior())
		assert.False(t, math.IsNaN(got) || math.IsInf(got, 0))
	}
	got := StepAbility(0.3, ItemParams{Discrimination: 1, Guessing: 0.2}, true, math.NaN(), DefaultPrior())
	assert.False(t, math.IsNaN(got))
}

func TestStepAbilityDirection(t *testing.T) {
	item := ItemParams{Difficulty: 0, Discrimination: 1, Guessing: 0.2}
	assert.Greater(t, StepAbility(0.4, item, true, 0.75, DefaultPrior()), 0.4)
	assert.Less(t, StepAbility(0.4, item, false, 0.75, DefaultPrior()), 0.4)
}

func TestClampedBounds(t *testing.T) {
	got := ItemParams{Difficulty: 9, Discrimination: 0.01, Guessing: 2}.Clamped()
	assert.Equal(t, ItemParams{Difficulty: 4, Discrimination: 0.3, Guessing: 1}, got)
	assert.Equal(t, 4.5, ClampAbility(7))
	assert.Equal(t, 0.0, ClampAbility(math.NaN()))
}

func TestHeuristics(t *testing.T) {
	assert.Equal(t, -1.0, DifficultyFromLabel("Easy"))
	assert.Equal(t, 1.0, DifficultyFromLabel(" hard "))
	assert.Equal(t, 0.0, DifficultyFromLabel("unknown"))

	assert.Equal(t, 0.15, GuessingFromTiming(120, 60))
	assert.Equal(t, 0.25, GuessingFromTiming(80, 60))
	assert.Equal(t, 0.35, GuessingFromTiming(30, 60))
	assert.Equal(t, 0.35, GuessingFromTiming(30, 0))

	base := 1.5
	assert.InDelta(t, 1.95, DiscriminationFromBaseline("QROC", &base), 1e-12)
	assert.Equal(t, 1.0, DiscriminationFromBaseline("other", nil))
	huge := 10.0
	assert.Equal(t, MaxDiscrimination, DiscriminationFromBaseline("qcm", &huge))

	assert.Equal(t, 0.25, GuessingPrior("qcm"))
	assert.Equal(t, 0.20, GuessingPrior("qcs"))
	assert.Equal(t, 0.10, GuessingPrior("qroc"))
	assert.Equal(t, 0.20, GuessingPrior(""))
}

func TestResolverChain(t *testing.T) {
	r := NewResolver(logger.Nop())
	itemID := uuid.New()
	calls := []string{}
	miss := SourceFunc("latest", func(ctx context.Context, id uuid.UUID) (*ItemParams, error) {
		calls = append(calls, "latest")
		return nil, nil
	})
	broken := SourceFunc("cache", func(ctx context.Context, id uuid.UUID) (*ItemParams, error) {
		calls = append(calls, "cache")
		return nil, errors.New("down")
	})
	hit := SourceFunc("recent", func(ctx context.Context, id uuid.UUID) (*ItemParams, error) {
		calls = append(calls, "recent")
		return &ItemParams{Difficulty: 0.5, Discrimination: 1.2, Guessing: 0.1}, nil
	})

	res := r.Resolve(context.Background(), itemID, ItemContext{}, broken, miss, hit)
	assert.Equal(t, "recent", res.Source)
	assert.Equal(t, 0.5, res.Params.Difficulty)
	assert.Equal(t, []string{"cache", "latest", "recent"}, calls)

	res = r.Resolve(context.Background(), itemID, ItemContext{DifficultyLabel: "hard", ItemType: "qcs", TimeSpentSeconds: 90, EstimatedTimeSeconds: 60}, miss)
	assert.Equal(t, SourceHeuristic, res.Source)
	assert.Equal(t, ItemParams{Difficulty: 1, Discrimination: 1.1, Guessing: 0.25}, res.Params)
}
