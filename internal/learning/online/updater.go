// Package online turns one submitted attempt into updated mastery (BKT) and
// ability (one IRT gradient step) for a single learner.
package online

import (
	"github.com/yungbote/neurobridge-adaptive/internal/learning/bkt"
	"github.com/yungbote/neurobridge-adaptive/internal/learning/irt"
	"github.com/yungbote/neurobridge-adaptive/internal/learning/mathx"
	"github.com/yungbote/neurobridge-adaptive/internal/platform/logger"
)

type Config struct {
	DefaultBKT   bkt.Params
	LearningRate float64
	Prior        irt.Prior
}

func DefaultConfig() Config {
	return Config{
		DefaultBKT:   bkt.DefaultParams(),
		LearningRate: irt.DefaultOnlineLearningRate,
		Prior:        irt.DefaultPrior(),
	}
}

// State is the learner's course-level estimate.
type State struct {
	Mastery float64
	Ability float64
}

// Attempt is the outcome evidence of one submission.
type Attempt struct {
	IsCorrect    *bool
	SuccessRatio *float64
}

func (a Attempt) observation() bkt.Observation {
	return bkt.Observation{SuccessRatio: a.SuccessRatio, IsCorrect: a.IsCorrect}
}

// correct resolves the binary response used by the IRT term.
func (a Attempt) correct() (bool, bool) {
	if a.IsCorrect != nil {
		return *a.IsCorrect, true
	}
	acc, ok := a.observation().ResolveAccuracy()
	return ok && acc >= 0.5, ok
}

type Outcome struct {
	State          State
	Posterior      float64
	MasterySkipped bool
	AbilitySkipped bool
}

type Updater struct {
	cfg Config
	log *logger.Logger
}

func NewUpdater(baseLog *logger.Logger, cfg Config) *Updater {
	if !mathx.IsFinite(cfg.LearningRate) || cfg.LearningRate <= 0 {
		cfg.LearningRate = irt.DefaultOnlineLearningRate
	}
	if !(cfg.Prior.Variance > 0) {
		cfg.Prior = irt.DefaultPrior()
	}
	cfg.DefaultBKT = cfg.DefaultBKT.Sanitize(bkt.DefaultParams())
	return &Updater{cfg: cfg, log: baseLog.With("component", "OnlineLearnerUpdater")}
}

func (u *Updater) Config() Config { return u.cfg }

// Apply computes the learner's next state from one attempt. It never fails;
// any unusable input leaves the corresponding value unchanged.
func (u *Updater) Apply(prev State, params bkt.Params, item irt.ItemParams, att Attempt) Outcome {
	prior := State{
		Mastery: mathx.Clamp01Or(prev.Mastery, 0),
		Ability: mathx.FiniteOr(prev.Ability, 0),
	}
	out := Outcome{State: prior, Posterior: prior.Mastery}

	m := u.UpdateMastery(prior.Mastery, params, att)
	out.State.Mastery = m.Mastery
	out.Posterior = m.Posterior
	out.MasterySkipped = m.Skipped

	correct, ok := att.correct()
	if !ok {
		out.AbilitySkipped = true
		return out
	}
	next := irt.StepAbility(prior.Ability, item, correct, u.cfg.LearningRate, u.cfg.Prior)
	out.State.Ability = irt.ClampAbility(next)
	return out
}

// UpdateMastery applies the BKT step alone; knowledge-component records use it
// with their own mastery and the same observation.
func (u *Updater) UpdateMastery(prior float64, params bkt.Params, att Attempt) bkt.Result {
	res := bkt.Update(prior, params, att.observation(), u.cfg.DefaultBKT)
	if res.Skipped {
		u.log.Debug("mastery update skipped: attempt has no correctness signal")
	}
	return res
}
