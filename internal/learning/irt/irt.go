// Package irt implements the three-parameter logistic item response model used
// for latent ability estimation, together with the item-parameter resolution
// chain that feeds it.
package irt

import (
	"github.com/yungbote/neurobridge-adaptive/internal/learning/mathx"
)

const (
	MinDifficulty     = -4.0
	MaxDifficulty     = 4.0
	MinDiscrimination = 0.3
	MaxDiscrimination = 3.0

	// Online updates tolerate stale rows stored under older, wider bounds.
	onlineMinDiscrimination = 0.1
	onlineMaxDiscrimination = 4.0
	defaultGuessing         = 0.2

	MinAbility = -4.5
	MaxAbility = 4.5

	DefaultOnlineLearningRate = 0.75
)

// ItemParams are the 3PL parameters of one item: b, a and c.
type ItemParams struct {
	Difficulty     float64 `json:"difficulty"`
	Discrimination float64 `json:"discrimination"`
	Guessing       float64 `json:"guessing"`
}

// Clamped forces difficulty and discrimination into the calibration bounds.
func (p ItemParams) Clamped() ItemParams {
	return ItemParams{
		Difficulty:     mathx.ClampRange(mathx.FiniteOr(p.Difficulty, 0), MinDifficulty, MaxDifficulty),
		Discrimination: mathx.ClampRange(mathx.FiniteOr(p.Discrimination, 1), MinDiscrimination, MaxDiscrimination),
		Guessing:       mathx.Clamp01Or(p.Guessing, defaultGuessing),
	}
}

func (p ItemParams) sanitizeOnline() ItemParams {
	return ItemParams{
		Difficulty:     mathx.FiniteOr(p.Difficulty, 0),
		Discrimination: mathx.ClampRange(mathx.FiniteOr(p.Discrimination, 1), onlineMinDiscrimination, onlineMaxDiscrimination),
		Guessing:       mathx.Clamp01Or(p.Guessing, defaultGuessing),
	}
}

// Prior is the Gaussian prior over ability.
type Prior struct {
	Mean     float64
	Variance float64
}

func DefaultPrior() Prior { return Prior{Mean: 0, Variance: 4} }

// Gradient of the log prior density at theta.
func (p Prior) Gradient(theta float64) float64 {
	v := p.Variance
	if !(v > 0) || !mathx.IsFinite(v) {
		v = 4
	}
	return -(theta - mathx.FiniteOr(p.Mean, 0)) / v
}

// Response holds the logistic core and the guarded response probability.
type Response struct {
	Logistic    float64
	Probability float64
}

// Evaluate returns the model response of an item at theta. No sanitation is
// applied; callers pass already-sanitized parameters.
func Evaluate(theta float64, item ItemParams) Response {
	s := mathx.Sigmoid(item.Discrimination * (theta - item.Difficulty))
	p := item.Guessing + (1-item.Guessing)*s
	return Response{
		Logistic:    s,
		Probability: mathx.ClampRange(p, mathx.EpsIRT, 1-mathx.EpsIRT),
	}
}

// Probability is P(correct | theta) under the 3PL model.
func Probability(theta float64, item ItemParams) float64 {
	return Evaluate(theta, item).Probability
}

func responseValue(correct bool) float64 {
	if correct {
		return 1
	}
	return 0
}

// commonTerm is residual·(1-c)·σ(1-σ) / (p(1-p)), shared by the ability and
// item gradients.
func commonTerm(theta float64, item ItemParams, correct bool) float64 {
	r := Evaluate(theta, item)
	p := r.Probability
	residual := responseValue(correct) - p
	return residual * (1 - item.Guessing) * r.Logistic * (1 - r.Logistic) / (p * (1 - p))
}

// AbilityGradient is d log L / d theta for one response.
func AbilityGradient(theta float64, item ItemParams, correct bool) float64 {
	return item.Discrimination * commonTerm(theta, item, correct)
}

// ItemGradient returns d log L / d b and d log L / d a for one response.
func ItemGradient(theta float64, item ItemParams, correct bool) (gradDifficulty, gradDiscrimination float64) {
	c := commonTerm(theta, item, correct)
	return -item.Discrimination * c, (theta - item.Difficulty) * c
}

// StepAbility performs one gradient-ascent step on theta for a single
// response. A non-finite outcome leaves theta unchanged.
func StepAbility(theta float64, item ItemParams, correct bool, lr float64, prior Prior) float64 {
	orig := mathx.FiniteOr(theta, 0)
	it := item.sanitizeOnline()
	lr = mathx.FiniteOr(lr, DefaultOnlineLearningRate)

	grad := AbilityGradient(orig, it, correct) + prior.Gradient(orig)
	next := orig + lr*grad
	if !mathx.IsFinite(next) {
		return orig
	}
	return next
}

// ClampAbility applies the conventional ability bounds.
func ClampAbility(theta float64) float64 {
	return mathx.ClampRange(mathx.FiniteOr(theta, 0), MinAbility, MaxAbility)
}
