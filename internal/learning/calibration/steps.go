package calibration

import (
	"context"
	"math"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/neurobridge-adaptive/internal/learning/irt"
	"github.com/yungbote/neurobridge-adaptive/internal/learning/mathx"
)

const (
	initMinDiscrimination = 0.4
	initMaxDiscrimination = 2.5
	initAccuracyEps       = 1e-4
)

// Initialize seeds abilities at 0 and item parameters from catalogue priors
// and each item's mean observed accuracy.
func Initialize(ds *Dataset, meta map[uuid.UUID]ItemMeta) (map[uuid.UUID]irt.ItemParams, map[uuid.UUID]float64) {
	abilities := make(map[uuid.UUID]float64, len(ds.Users))
	for _, u := range ds.Users {
		abilities[u] = 0
	}
	items := make(map[uuid.UUID]irt.ItemParams, len(ds.Items))
	for _, id := range ds.Items {
		m := meta[id]
		guess := irt.GuessingPrior(m.ItemType)

		disc := 1.0
		if m.BaselineDiscrimination != nil && mathx.IsFinite(*m.BaselineDiscrimination) && *m.BaselineDiscrimination > 0 {
			disc = mathx.ClampRange(*m.BaselineDiscrimination, initMinDiscrimination, initMaxDiscrimination)
		}

		items[id] = irt.ItemParams{
			Difficulty:     initialDifficulty(meanAccuracy(ds.ByItem[id]), guess, disc),
			Discrimination: disc,
			Guessing:       guess,
		}.Clamped()
	}
	return items, abilities
}

func meanAccuracy(rs []Response) float64 {
	if len(rs) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, r := range rs {
		sum += mathx.Clamp01(r.Accuracy)
	}
	return sum / float64(len(rs))
}

// initialDifficulty inverts the 3PL curve at theta=0 for the observed accuracy.
func initialDifficulty(mean, guess, disc float64) float64 {
	bounded := mathx.ClampRange((mean-guess)/(1-guess), initAccuracyEps, 1-initAccuracyEps)
	b := -mathx.Logit(bounded) / disc
	return mathx.FiniteOr(b, 0)
}

// UpdateAbilities runs the ability half-step against the current item
// parameters and returns the largest absolute ability change.
func UpdateAbilities(ctx context.Context, ds *Dataset, items map[uuid.UUID]irt.ItemParams, abilities map[uuid.UUID]float64, lr float64, prior irt.Prior, workers int) (float64, error) {
	next := make([]float64, len(ds.Users))
	err := forEach(ctx, len(ds.Users), workers, func(i int) {
		u := ds.Users[i]
		theta := abilities[u]
		grad := prior.Gradient(theta)
		for _, r := range ds.ByUser[u] {
			grad += irt.AbilityGradient(theta, items[r.ItemID], r.Correct)
		}
		raw := theta + lr*grad
		if !mathx.IsFinite(raw) {
			raw = theta
		}
		next[i] = mathx.ClampRange(raw, irt.MinAbility, irt.MaxAbility)
	})
	if err != nil {
		return 0, err
	}
	maxDelta := 0.0
	for i, u := range ds.Users {
		maxDelta = math.Max(maxDelta, math.Abs(next[i]-abilities[u]))
		abilities[u] = next[i]
	}
	return maxDelta, nil
}

// UpdateItems runs the item half-step on difficulty and discrimination;
// guessing stays frozen. Returns the largest absolute parameter change.
func UpdateItems(ctx context.Context, ds *Dataset, items map[uuid.UUID]irt.ItemParams, abilities map[uuid.UUID]float64, lr float64, workers int) (float64, error) {
	next := make([]irt.ItemParams, len(ds.Items))
	err := forEach(ctx, len(ds.Items), workers, func(i int) {
		id := ds.Items[i]
		cur := items[id]
		var gradB, gradA float64
		for _, r := range ds.ByItem[id] {
			gb, ga := irt.ItemGradient(abilities[r.UserID], cur, r.Correct)
			gradB += gb
			gradA += ga
		}
		b := cur.Difficulty + lr*gradB
		a := cur.Discrimination + lr*gradA
		if !mathx.IsFinite(b) {
			b = cur.Difficulty
		}
		if !mathx.IsFinite(a) {
			a = cur.Discrimination
		}
		next[i] = irt.ItemParams{
			Difficulty:     mathx.ClampRange(b, irt.MinDifficulty, irt.MaxDifficulty),
			Discrimination: mathx.ClampRange(a, irt.MinDiscrimination, irt.MaxDiscrimination),
			Guessing:       cur.Guessing,
		}
	})
	if err != nil {
		return 0, err
	}
	maxDelta := 0.0
	for i, id := range ds.Items {
		cur := items[id]
		maxDelta = math.Max(maxDelta, mathx.MaxAbs(next[i].Difficulty-cur.Difficulty, next[i].Discrimination-cur.Discrimination))
		items[id] = next[i]
	}
	return maxDelta, nil
}

// forEach runs fn over [0,n) in contiguous chunks on up to workers goroutines.
// fn must only write its own index of any shared output.
func forEach(ctx context.Context, n, workers int, fn func(i int)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if workers <= 1 || n < 2*workers {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return nil
	}
	chunk := (n + workers - 1) / workers
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for lo := 0; lo < n; lo += chunk {
		lo, hi := lo, min(lo+chunk, n)
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if i%256 == 0 {
					if err := gctx.Err(); err != nil {
						return err
					}
				}
				fn(i)
			}
			return nil
		})
	}
	return g.Wait()
}
