// Package bkt implements the Bayesian Knowledge Tracing mastery update:
// a Bayes-rule posterior over "mastered" given one observation, followed by
// the learning transition.
package bkt

import (
	"github.com/yungbote/neurobridge-adaptive/internal/learning/mathx"
)

// Params is the guess/slip/learn triple for one course (or the system default).
type Params struct {
	Guess float64 `json:"guessing_probability" yaml:"guessing_probability"`
	Slip  float64 `json:"slipping_probability" yaml:"slipping_probability"`
	Learn float64 `json:"learning_rate" yaml:"learning_rate"`
}

func DefaultParams() Params {
	return Params{Guess: 0.2, Slip: 0.1, Learn: 0.3}
}

// Sanitize clamps every field into [0,1], substituting the matching field of
// def for non-finite values. def itself is clamped the same way.
func (p Params) Sanitize(def Params) Params {
	return Params{
		Guess: mathx.Clamp01Or(p.Guess, mathx.Clamp01(def.Guess)),
		Slip:  mathx.Clamp01Or(p.Slip, mathx.Clamp01(def.Slip)),
		Learn: mathx.Clamp01Or(p.Learn, mathx.Clamp01(def.Learn)),
	}
}

// Observation is the correctness evidence of one attempt. SuccessRatio is the
// graded partial-credit signal and wins over IsCorrect when both are present.
type Observation struct {
	SuccessRatio *float64
	IsCorrect    *bool
}

// Correct builds an observation from a boolean outcome only.
func Correct(ok bool) Observation {
	return Observation{IsCorrect: &ok}
}

// ResolveAccuracy returns the accuracy signal and false when the attempt
// carries no usable correctness signal.
func (o Observation) ResolveAccuracy() (float64, bool) {
	var acc float64
	switch {
	case o.SuccessRatio != nil:
		acc = *o.SuccessRatio
	case o.IsCorrect != nil:
		if *o.IsCorrect {
			acc = 1
		}
	default:
		return 0, false
	}
	if !mathx.IsFinite(acc) {
		return 0, false
	}
	return mathx.Clamp01(acc), true
}

// branch picks the Bayes-rule branch. The boolean flag decides when present;
// a ratio-only observation counts as correct at accuracy >= 0.5.
func (o Observation) branch(acc float64) bool {
	if o.IsCorrect != nil {
		return *o.IsCorrect
	}
	return acc >= 0.5
}

type Result struct {
	Mastery   float64
	Posterior float64
	Accuracy  float64
	// Skipped is set when the observation had no correctness signal; Mastery
	// then equals the sanitized prior.
	Skipped bool
}

// Update applies one observation to a prior mastery.
func Update(prior float64, params Params, obs Observation, def Params) Result {
	m := mathx.Clamp01Or(prior, 0)
	acc, ok := obs.ResolveAccuracy()
	if !ok {
		return Result{Mastery: m, Posterior: m, Skipped: true}
	}
	p := params.Sanitize(def)

	var posterior float64
	if obs.branch(acc) {
		pCorrect := m*(1-p.Slip) + (1-m)*p.Guess
		posterior = m * (1 - p.Slip) / max(mathx.EpsBKT, pCorrect)
	} else {
		pIncorrect := m*p.Slip + (1-m)*(1-p.Guess)
		posterior = m * p.Slip / max(mathx.EpsBKT, pIncorrect)
	}
	posterior = mathx.Clamp01(posterior)

	next := posterior + (1-posterior)*p.Learn
	return Result{
		Mastery:   mathx.Clamp01(next),
		Posterior: posterior,
		Accuracy:  acc,
	}
}
