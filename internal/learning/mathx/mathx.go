// Package mathx holds the numeric primitives shared by the knowledge-tracing
// and item-response models.
package mathx

import "math"

const (
	// EpsBKT floors the Bayes-rule denominators of the mastery posterior.
	EpsBKT = 1e-12
	// EpsIRT keeps response probabilities away from 0 and 1.
	EpsIRT = 1e-9
)

func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// FiniteOr returns def when x is NaN or infinite.
func FiniteOr(x, def float64) float64 {
	if !IsFinite(x) {
		return def
	}
	return x
}

func Clamp01(x float64) float64 {
	if math.IsNaN(x) {
		return 0
	}
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

// Clamp01Or substitutes def for non-finite input before clamping.
func Clamp01Or(x, def float64) float64 {
	return Clamp01(FiniteOr(x, def))
}

func ClampRange(x, lo, hi float64) float64 {
	if math.IsNaN(x) {
		return lo
	}
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Sigmoid is the logistic function, evaluated without overflow for large |x|.
func Sigmoid(x float64) float64 {
	if x >= 0 {
		z := math.Exp(-x)
		return 1.0 / (1.0 + z)
	}
	z := math.Exp(x)
	return z / (1.0 + z)
}

// Logit is the inverse of Sigmoid for p in (0,1).
func Logit(p float64) float64 {
	return math.Log(p / (1.0 - p))
}

func MaxAbs(a, b float64) float64 {
	return math.Max(math.Abs(a), math.Abs(b))
}
