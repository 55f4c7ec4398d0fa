package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-adaptive/internal/clients/redis"
	"github.com/yungbote/neurobridge-adaptive/internal/data/repos"
	types "github.com/yungbote/neurobridge-adaptive/internal/domain"
	"github.com/yungbote/neurobridge-adaptive/internal/learning/bkt"
	"github.com/yungbote/neurobridge-adaptive/internal/learning/irt"
	"github.com/yungbote/neurobridge-adaptive/internal/learning/online"
	"github.com/yungbote/neurobridge-adaptive/internal/observability"
	"github.com/yungbote/neurobridge-adaptive/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-adaptive/internal/platform/errs"
	"github.com/yungbote/neurobridge-adaptive/internal/platform/logger"
)

const (
	SourceLatestFlagged = "latest-flagged"
	SourceMostRecent    = "most-recent"
)

type AttemptInput struct {
	UserID uuid.UUID
	ItemID uuid.UUID
	// CourseID defaults to the item's course.
	CourseID *uuid.UUID

	IsCorrect    *bool
	SuccessRatio *float64
	Skipped      bool

	ResponseTimeSeconds   float64
	KnowledgeComponentIDs []uuid.UUID
	OccurredAt            *time.Time
}

type ComponentUpdate struct {
	ComponentID uuid.UUID
	Mastery     float64
	Skipped     bool
}

type AttemptResult struct {
	AttemptID uuid.UUID
	CourseID  uuid.UUID

	Mastery   float64
	Ability   float64
	Posterior float64

	MasterySkipped bool
	AbilitySkipped bool

	ItemParams   irt.ItemParams
	ParamsSource string
	Components   []ComponentUpdate
}

type LearnerModelService interface {
	// RecordAttempt persists the attempt and the learner-model update in one
	// transaction.
	RecordAttempt(ctx context.Context, in AttemptInput) (*AttemptResult, error)
	// RecordAttemptTx does the same work inside the caller's transaction.
	RecordAttemptTx(dbc dbctx.Context, in AttemptInput) (*AttemptResult, error)
}

type learnerModelService struct {
	db       *gorm.DB
	log      *logger.Logger
	updater  *online.Updater
	resolver *irt.Resolver
	cache    *redis.ItemParamsCache

	items      repos.AssessmentItemRepo
	attempts   repos.AttemptRepo
	states     repos.LearnerStateRepo
	components repos.ComponentMasteryRepo
	bktParams  repos.BktParamsRepo
	itemParams repos.ItemParamsRepo
}

func NewLearnerModelService(
	db *gorm.DB,
	baseLog *logger.Logger,
	updater *online.Updater,
	cache *redis.ItemParamsCache,
	items repos.AssessmentItemRepo,
	attempts repos.AttemptRepo,
	states repos.LearnerStateRepo,
	components repos.ComponentMasteryRepo,
	bktParams repos.BktParamsRepo,
	itemParams repos.ItemParamsRepo,
) LearnerModelService {
	return &learnerModelService{
		db:         db,
		log:        baseLog.With("service", "LearnerModelService"),
		updater:    updater,
		resolver:   irt.NewResolver(baseLog),
		cache:      cache,
		items:      items,
		attempts:   attempts,
		states:     states,
		components: components,
		bktParams:  bktParams,
		itemParams: itemParams,
	}
}

func (s *learnerModelService) RecordAttempt(ctx context.Context, in AttemptInput) (res *AttemptResult, err error) {
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		res, txErr = s.RecordAttemptTx(dbctx.Context{Ctx: ctx, Tx: tx}, in)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *learnerModelService) RecordAttemptTx(dbc dbctx.Context, in AttemptInput) (res *AttemptResult, err error) {
	ctx, span := observability.StartSpan(ctxOf(dbc), "learner_model.record_attempt",
		observability.AttrUserID(in.UserID.String()),
		observability.AttrItemID(in.ItemID.String()),
	)
	defer observability.FinishSpan(span, &err)
	dbc.Ctx = ctx

	if in.UserID == uuid.Nil || in.ItemID == uuid.Nil {
		return nil, fmt.Errorf("record attempt: missing user or item: %w", errs.ErrInvalidArgument)
	}
	item, err := s.items.Get(dbc, in.ItemID)
	if err != nil {
		return nil, fmt.Errorf("load item: %w", err)
	}
	if item == nil {
		return nil, fmt.Errorf("record attempt: item %s: %w", in.ItemID, errs.ErrNotFound)
	}
	courseID := item.CourseID
	if in.CourseID != nil && *in.CourseID != uuid.Nil {
		courseID = *in.CourseID
	}

	att := &types.Attempt{
		UserID:              in.UserID,
		ItemID:              in.ItemID,
		CourseID:            &courseID,
		IsCorrect:           in.IsCorrect,
		SuccessRatio:        in.SuccessRatio,
		Skipped:             in.Skipped,
		ResponseTimeSeconds: in.ResponseTimeSeconds,
	}
	if in.OccurredAt != nil && !in.OccurredAt.IsZero() {
		att.CreatedAt = in.OccurredAt.UTC()
	}
	att.SetComponentIDs(in.KnowledgeComponentIDs)
	if err := s.attempts.Create(dbc, att); err != nil {
		return nil, fmt.Errorf("persist attempt: %w", err)
	}

	state, err := s.states.GetOrCreate(dbc, in.UserID, courseID)
	if err != nil {
		return nil, fmt.Errorf("load learner state: %w", err)
	}
	res = &AttemptResult{
		AttemptID: att.ID,
		CourseID:  courseID,
		Mastery:   state.Mastery,
		Ability:   state.Ability,
		Posterior: state.Mastery,
	}
	if in.Skipped {
		res.MasterySkipped = true
		res.AbilitySkipped = true
		s.log.Debug("Attempt marked skipped; learner model unchanged", "user_id", in.UserID, "item_id", in.ItemID)
		return res, nil
	}

	params, err := s.courseParams(dbc, courseID)
	if err != nil {
		return nil, err
	}
	resolved := s.resolveItem(dbc, item, in.ResponseTimeSeconds)
	res.ItemParams = resolved.Params
	res.ParamsSource = resolved.Source

	obs := online.Attempt{IsCorrect: in.IsCorrect, SuccessRatio: in.SuccessRatio}
	out := s.updater.Apply(online.State{Mastery: state.Mastery, Ability: state.Ability}, params, resolved.Params, obs)
	res.Mastery = out.State.Mastery
	res.Ability = out.State.Ability
	res.Posterior = out.Posterior
	res.MasterySkipped = out.MasterySkipped
	res.AbilitySkipped = out.AbilitySkipped

	now := time.Now().UTC()
	seed := state.Mastery
	state.Mastery = out.State.Mastery
	state.Ability = out.State.Ability
	state.Attempts++
	state.LastAttemptAt = &now
	if err := s.states.Save(dbc, state); err != nil {
		return nil, fmt.Errorf("save learner state: %w", err)
	}

	for _, kc := range att.ComponentIDs() {
		row, err := s.components.GetOrCreate(dbc, in.UserID, kc, seed)
		if err != nil {
			return nil, fmt.Errorf("load component mastery %s: %w", kc, err)
		}
		m := s.updater.UpdateMastery(row.Mastery, params, obs)
		row.Mastery = m.Mastery
		if !m.Skipped {
			row.Attempts++
		}
		if err := s.components.Save(dbc, row); err != nil {
			return nil, fmt.Errorf("save component mastery %s: %w", kc, err)
		}
		res.Components = append(res.Components, ComponentUpdate{ComponentID: kc, Mastery: m.Mastery, Skipped: m.Skipped})
	}

	s.log.Debug("Learner model updated",
		"user_id", in.UserID,
		"course_id", courseID,
		"mastery", res.Mastery,
		"ability", res.Ability,
		"params_source", res.ParamsSource,
	)
	return res, nil
}

// courseParams returns the course override or the configured defaults.
func (s *learnerModelService) courseParams(dbc dbctx.Context, courseID uuid.UUID) (bkt.Params, error) {
	def := s.updater.Config().DefaultBKT
	row, err := s.bktParams.GetForCourse(dbc, courseID)
	if err != nil {
		return def, fmt.Errorf("load bkt params: %w", err)
	}
	if row == nil {
		return def, nil
	}
	return bkt.Params{
		Guess: row.GuessingProbability,
		Slip:  row.SlippingProbability,
		Learn: row.LearningRate,
	}.Sanitize(def), nil
}

func (s *learnerModelService) resolveItem(dbc dbctx.Context, item *types.AssessmentItem, timeSpent float64) irt.Resolution {
	fromRow := func(get func(dbctx.Context, uuid.UUID) (*types.ItemParams, error)) func(context.Context, uuid.UUID) (*irt.ItemParams, error) {
		return func(ctx context.Context, id uuid.UUID) (*irt.ItemParams, error) {
			row, err := get(dbctx.Context{Ctx: ctx, Tx: dbc.Tx}, id)
			if err != nil || row == nil {
				return nil, err
			}
			return &irt.ItemParams{Difficulty: row.Difficulty, Discrimination: row.Discrimination, Guessing: row.Guessing}, nil
		}
	}
	res := s.resolver.Resolve(ctxOf(dbc), item.ID, irt.ItemContext{
		ItemType:               item.ItemType,
		DifficultyLabel:        item.DifficultyLabel,
		BaselineDiscrimination: item.BaselineDiscrimination,
		TimeSpentSeconds:       timeSpent,
		EstimatedTimeSeconds:   item.EstimatedTimeSeconds,
	},
		s.cache.Source(),
		irt.SourceFunc(SourceLatestFlagged, fromRow(s.itemParams.GetLatestFlagged)),
		irt.SourceFunc(SourceMostRecent, fromRow(s.itemParams.GetMostRecent)),
	)
	// Only the flagged row is cached. Calibration moves the flag and then
	// invalidates, so a fill racing that commit can outlive it by at most the
	// cache TTL.
	if res.Source == SourceLatestFlagged {
		if err := s.cache.Set(ctxOf(dbc), item.ID, res.Params); err != nil {
			s.log.Warn("Item params cache write failed", "item_id", item.ID, "error", err)
		}
	}
	return res
}

func ctxOf(dbc dbctx.Context) context.Context {
	if dbc.Ctx == nil {
		return context.Background()
	}
	return dbc.Ctx
}
