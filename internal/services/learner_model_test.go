package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-adaptive/internal/clients/redis"
	"github.com/yungbote/neurobridge-adaptive/internal/data/repos"
	"github.com/yungbote/neurobridge-adaptive/internal/data/repos/testutil"
	types "github.com/yungbote/neurobridge-adaptive/internal/domain"
	"github.com/yungbote/neurobridge-adaptive/internal/learning/irt"
	"github.com/yungbote/neurobridge-adaptive/internal/learning/online"
	"github.com/yungbote/neurobridge-adaptive/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-adaptive/internal/platform/errs"
)

func newLearnerModel(t *testing.T) (LearnerModelService, *gorm.DB) {
	t.Helper()
	return newLearnerModelWithCache(t, nil)
}

func newLearnerModelWithCache(t *testing.T, cache *redis.ItemParamsCache) (LearnerModelService, *gorm.DB) {
	t.Helper()
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	svc := NewLearnerModelService(db, log,
		online.NewUpdater(log, online.DefaultConfig()),
		cache,
		repos.NewAssessmentItemRepo(db, log),
		repos.NewAttemptRepo(db, log),
		repos.NewLearnerStateRepo(db, log),
		repos.NewComponentMasteryRepo(db, log),
		repos.NewBktParamsRepo(db, log),
		repos.NewItemParamsRepo(db, log),
	)
	return svc, db
}

func TestRecordAttemptHeuristicItem(t *testing.T) {
	svc, db := newLearnerModel(t)
	ctx := context.Background()

	item := testutil.SeedItem(t, ctx, db, uuid.New(), irt.ItemTypeQCM, "easy")
	user := uuid.New()
	kcA, kcB := uuid.New(), uuid.New()

	res, err := svc.RecordAttempt(ctx, AttemptInput{
		UserID:                user,
		ItemID:                item.ID,
		IsCorrect:             testutil.Bool(true),
		SuccessRatio:          testutil.Float(1),
		ResponseTimeSeconds:   30,
		KnowledgeComponentIDs: []uuid.UUID{kcA, kcB, kcA},
	})
	require.NoError(t, err)

	// Prior mastery 0 with default BKT params: posterior 0, transition 0.3.
	assert.InDelta(t, 0.3, res.Mastery, 1e-12)
	assert.Equal(t, irt.SourceHeuristic, res.ParamsSource)
	assert.Equal(t, irt.ItemParams{Difficulty: -1, Discrimination: 1, Guessing: 0.35}, res.ItemParams)
	want := irt.StepAbility(0, res.ItemParams, true, irt.DefaultOnlineLearningRate, irt.DefaultPrior())
	assert.InDelta(t, want, res.Ability, 1e-12)
	assert.Greater(t, res.Ability, 0.0)

	require.Len(t, res.Components, 2)
	for _, c := range res.Components {
		assert.InDelta(t, 0.3, c.Mastery, 1e-12)
	}

	var state types.LearnerState
	require.NoError(t, db.Where("user_id = ? AND course_id = ?", user, item.CourseID).First(&state).Error)
	assert.InDelta(t, res.Mastery, state.Mastery, 1e-12)
	assert.InDelta(t, res.Ability, state.Ability, 1e-12)
	assert.Equal(t, 1, state.Attempts)
	assert.NotNil(t, state.LastAttemptAt)

	var n int64
	require.NoError(t, db.Model(&types.Attempt{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestRecordAttemptSeedsNewComponentsFromCourseMastery(t *testing.T) {
	svc, db := newLearnerModel(t)
	ctx := context.Background()
	item := testutil.SeedItem(t, ctx, db, uuid.New(), irt.ItemTypeQCS, "medium")
	user := uuid.New()

	first, err := svc.RecordAttempt(ctx, AttemptInput{UserID: user, ItemID: item.ID, IsCorrect: testutil.Bool(true)})
	require.NoError(t, err)

	kc := uuid.New()
	second, err := svc.RecordAttempt(ctx, AttemptInput{
		UserID:                user,
		ItemID:                item.ID,
		IsCorrect:             testutil.Bool(true),
		KnowledgeComponentIDs: []uuid.UUID{kc},
	})
	require.NoError(t, err)
	require.Len(t, second.Components, 1)
	// The component starts from the course mastery before this attempt, so it
	// ends where the course-level estimate does.
	assert.InDelta(t, second.Mastery, second.Components[0].Mastery, 1e-12)
	assert.Greater(t, second.Mastery, first.Mastery)
}

func TestRecordAttemptUsesCalibratedParamsAndCourseBKT(t *testing.T) {
	svc, db := newLearnerModel(t)
	ctx := context.Background()
	log := testutil.Logger(t)

	courseID := uuid.New()
	item := testutil.SeedItem(t, ctx, db, courseID, irt.ItemTypeQROC, "hard")
	testutil.SeedItemParams(t, ctx, db, item.ID, 0.5, false, time.Now().Add(-time.Hour).UTC())
	flagged := testutil.SeedItemParams(t, ctx, db, item.ID, 2.0, true, time.Now().Add(-2*time.Hour).UTC())

	require.NoError(t, repos.NewBktParamsRepo(db, log).Upsert(dbctx.Context{Ctx: ctx}, &types.CourseBktParams{
		CourseID:            courseID,
		GuessingProbability: 0.25,
		SlippingProbability: 0.1,
		LearningRate:        0,
	}))

	res, err := svc.RecordAttempt(ctx, AttemptInput{UserID: uuid.New(), ItemID: item.ID, IsCorrect: testutil.Bool(false)})
	require.NoError(t, err)

	assert.Equal(t, SourceLatestFlagged, res.ParamsSource)
	assert.Equal(t, flagged.Difficulty, res.ItemParams.Difficulty)
	// Learning rate 0 keeps the posterior; from mastery 0 it stays 0.
	assert.Equal(t, 0.0, res.Mastery)
	assert.Less(t, res.Ability, 0.0)
}

func TestRecordAttemptMostRecentFallback(t *testing.T) {
	svc, db := newLearnerModel(t)
	ctx := context.Background()
	item := testutil.SeedItem(t, ctx, db, uuid.New(), irt.ItemTypeQCM, "medium")
	testutil.SeedItemParams(t, ctx, db, item.ID, -0.75, false, time.Now().UTC())

	res, err := svc.RecordAttempt(ctx, AttemptInput{UserID: uuid.New(), ItemID: item.ID, SuccessRatio: testutil.Float(0.8)})
	require.NoError(t, err)
	assert.Equal(t, SourceMostRecent, res.ParamsSource)
	assert.Equal(t, -0.75, res.ItemParams.Difficulty)
	assert.False(t, res.MasterySkipped)
	assert.False(t, res.AbilitySkipped)
}

func TestRecordAttemptWithoutSignalKeepsState(t *testing.T) {
	svc, db := newLearnerModel(t)
	ctx := context.Background()
	item := testutil.SeedItem(t, ctx, db, uuid.New(), irt.ItemTypeQCM, "easy")
	user := uuid.New()

	_, err := svc.RecordAttempt(ctx, AttemptInput{UserID: user, ItemID: item.ID, IsCorrect: testutil.Bool(true)})
	require.NoError(t, err)

	res, err := svc.RecordAttempt(ctx, AttemptInput{UserID: user, ItemID: item.ID})
	require.NoError(t, err)
	assert.True(t, res.MasterySkipped)
	assert.True(t, res.AbilitySkipped)
	assert.InDelta(t, 0.3, res.Mastery, 1e-12)

	skipped, err := svc.RecordAttempt(ctx, AttemptInput{UserID: user, ItemID: item.ID, IsCorrect: testutil.Bool(false), Skipped: true})
	require.NoError(t, err)
	assert.True(t, skipped.MasterySkipped)
	assert.InDelta(t, 0.3, skipped.Mastery, 1e-12)
	assert.Equal(t, res.Ability, skipped.Ability)
}

func TestRecordAttemptRejectsUnknownItem(t *testing.T) {
	svc, _ := newLearnerModel(t)
	_, err := svc.RecordAttempt(context.Background(), AttemptInput{UserID: uuid.New(), ItemID: uuid.New()})
	require.ErrorIs(t, err, errs.ErrNotFound)

	_, err = svc.RecordAttempt(context.Background(), AttemptInput{ItemID: uuid.New()})
	require.ErrorIs(t, err, errs.ErrInvalidArgument)
}

func TestRecordAttemptTxRollsBackWithCaller(t *testing.T) {
	svc, db := newLearnerModel(t)
	ctx := context.Background()
	item := testutil.SeedItem(t, ctx, db, uuid.New(), irt.ItemTypeQCM, "easy")
	user := uuid.New()

	boom := errors.New("caller failed after update")
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res, err := svc.RecordAttemptTx(dbctx.Context{Ctx: ctx, Tx: tx}, AttemptInput{
			UserID:                user,
			ItemID:                item.ID,
			IsCorrect:             testutil.Bool(true),
			KnowledgeComponentIDs: []uuid.UUID{uuid.New()},
		})
		require.NoError(t, err)
		require.NotNil(t, res)
		return boom
	})
	require.ErrorIs(t, err, boom)

	for _, model := range []any{&types.Attempt{}, &types.LearnerState{}, &types.ComponentMastery{}} {
		var n int64
		require.NoError(t, db.Model(model).Count(&n).Error)
		assert.Zero(t, n, "%T rows survived rollback", model)
	}
}

// recordingHook answers every command locally: GETs miss and SET keys are
// recorded.
type recordingHook struct {
	mu   sync.Mutex
	sets []string
}

func (h *recordingHook) DialHook(next goredis.DialHook) goredis.DialHook { return next }

func (h *recordingHook) ProcessHook(goredis.ProcessHook) goredis.ProcessHook {
	return func(_ context.Context, cmd goredis.Cmder) error {
		switch cmd.Name() {
		case "get":
			cmd.SetErr(goredis.Nil)
			return goredis.Nil
		case "set":
			h.mu.Lock()
			h.sets = append(h.sets, fmt.Sprint(cmd.Args()[1]))
			h.mu.Unlock()
		}
		return nil
	}
}

func (h *recordingHook) ProcessPipelineHook(next goredis.ProcessPipelineHook) goredis.ProcessPipelineHook {
	return next
}

func (h *recordingHook) setKeys() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.sets...)
}

func TestRecordAttemptCachesOnlyFlaggedParams(t *testing.T) {
	hook := &recordingHook{}
	rdb := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:0"})
	rdb.AddHook(hook)
	t.Cleanup(func() { _ = rdb.Close() })
	cache := redis.NewItemParamsCacheFromClient(testutil.Logger(t), rdb, time.Minute)

	svc, db := newLearnerModelWithCache(t, cache)
	ctx := context.Background()
	courseID := uuid.New()

	unflagged := testutil.SeedItem(t, ctx, db, courseID, irt.ItemTypeQCM, "medium")
	testutil.SeedItemParams(t, ctx, db, unflagged.ID, 0.4, false, time.Now().UTC())
	res, err := svc.RecordAttempt(ctx, AttemptInput{UserID: uuid.New(), ItemID: unflagged.ID, IsCorrect: testutil.Bool(true)})
	require.NoError(t, err)
	assert.Equal(t, SourceMostRecent, res.ParamsSource)
	assert.Empty(t, hook.setKeys())

	flagged := testutil.SeedItem(t, ctx, db, courseID, irt.ItemTypeQCM, "medium")
	testutil.SeedItemParams(t, ctx, db, flagged.ID, 0.9, true, time.Now().UTC())
	res, err = svc.RecordAttempt(ctx, AttemptInput{UserID: uuid.New(), ItemID: flagged.ID, IsCorrect: testutil.Bool(true)})
	require.NoError(t, err)
	assert.Equal(t, SourceLatestFlagged, res.ParamsSource)
	assert.Equal(t, []string{redis.ItemParamsKey(flagged.ID)}, hook.setKeys())
}
