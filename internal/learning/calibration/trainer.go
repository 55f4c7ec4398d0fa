// Package calibration fits item difficulty and discrimination, together with
// per-user ability, from historical attempts by alternating gradient ascent on
// the 3PL likelihood with a Gaussian ability prior.
package calibration

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-adaptive/internal/learning/irt"
	"github.com/yungbote/neurobridge-adaptive/internal/learning/mathx"
	"github.com/yungbote/neurobridge-adaptive/internal/platform/logger"
)

// ErrNothingToCalibrate is returned when filtering leaves no attempts, items
// or users to train on.
var ErrNothingToCalibrate = errors.New("calibration: nothing to calibrate")

type Config struct {
	MinAttempts         int     `yaml:"min_attempts"`
	MaxIterations       int     `yaml:"max_iterations"`
	AbilityLearningRate float64 `yaml:"ability_learning_rate"`
	ItemLearningRate    float64 `yaml:"item_learning_rate"`
	Tolerance           float64 `yaml:"tolerance"`
	Workers             int     `yaml:"workers"`
}

func DefaultConfig() Config {
	return Config{
		MinAttempts:         25,
		MaxIterations:       20,
		AbilityLearningRate: 0.4,
		ItemLearningRate:    0.05,
		Tolerance:           0.0005,
		Workers:             4,
	}
}

// Normalized replaces unusable values with defaults.
func (c Config) Normalized() Config {
	def := DefaultConfig()
	if c.MinAttempts < 1 {
		c.MinAttempts = def.MinAttempts
	}
	if c.MaxIterations < 1 {
		c.MaxIterations = def.MaxIterations
	}
	if !(c.AbilityLearningRate > 0) || !mathx.IsFinite(c.AbilityLearningRate) {
		c.AbilityLearningRate = def.AbilityLearningRate
	}
	if !(c.ItemLearningRate > 0) || !mathx.IsFinite(c.ItemLearningRate) {
		c.ItemLearningRate = def.ItemLearningRate
	}
	if !(c.Tolerance > 0) || !mathx.IsFinite(c.Tolerance) {
		c.Tolerance = def.Tolerance
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	return c
}

type Result struct {
	Items        map[uuid.UUID]irt.ItemParams
	Abilities    map[uuid.UUID]float64
	Iterations   int
	Converged    bool
	AbilityDelta float64
	ItemDelta    float64
	Attempts     int
	Filter       FilterStats
	Duration     time.Duration
}

type Trainer struct {
	cfg   Config
	prior irt.Prior
	log   *logger.Logger
}

func NewTrainer(baseLog *logger.Logger, cfg Config) *Trainer {
	return &Trainer{
		cfg:   cfg.Normalized(),
		prior: irt.DefaultPrior(),
		log:   baseLog.With("component", "ItemCalibrationTrainer"),
	}
}

func (t *Trainer) Config() Config { return t.cfg }

// Train runs one batch calibration. It is pure with respect to storage; the
// caller persists Result.Items.
func (t *Trainer) Train(ctx context.Context, raw []RawAttempt, meta map[uuid.UUID]ItemMeta) (*Result, error) {
	started := time.Now()
	ds, stats := Filter(raw, t.cfg.MinAttempts)
	if ds.Empty() {
		return &Result{Filter: stats}, ErrNothingToCalibrate
	}

	items, abilities := Initialize(ds, meta)
	res := &Result{
		Items:     items,
		Abilities: abilities,
		Attempts:  ds.Size,
		Filter:    stats,
	}

	for iter := 1; iter <= t.cfg.MaxIterations; iter++ {
		// Abilities first: the item half-step must see this iteration's thetas.
		dTheta, err := UpdateAbilities(ctx, ds, items, abilities, t.cfg.AbilityLearningRate, t.prior, t.cfg.Workers)
		if err != nil {
			return nil, err
		}
		dItem, err := UpdateItems(ctx, ds, items, abilities, t.cfg.ItemLearningRate, t.cfg.Workers)
		if err != nil {
			return nil, err
		}
		res.Iterations = iter
		res.AbilityDelta = dTheta
		res.ItemDelta = dItem

		t.log.Debug("calibration iteration", "iteration", iter, "max_ability_delta", dTheta, "max_item_delta", dItem)
		if dTheta < t.cfg.Tolerance && dItem < t.cfg.Tolerance {
			res.Converged = true
			break
		}
	}
	res.Duration = time.Since(started)
	return res, nil
}
