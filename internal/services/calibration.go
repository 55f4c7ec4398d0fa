package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-adaptive/internal/clients/redis"
	"github.com/yungbote/neurobridge-adaptive/internal/data/repos"
	types "github.com/yungbote/neurobridge-adaptive/internal/domain"
	"github.com/yungbote/neurobridge-adaptive/internal/learning/calibration"
	"github.com/yungbote/neurobridge-adaptive/internal/learning/irt"
	"github.com/yungbote/neurobridge-adaptive/internal/observability"
	"github.com/yungbote/neurobridge-adaptive/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-adaptive/internal/platform/logger"
)

type CalibrationRequest struct {
	CourseID *uuid.UUID `json:"course_id,omitempty"`
	// Version defaults to the UTC start time, Source to "offline-script".
	Version string `json:"version,omitempty"`
	Source  string `json:"source,omitempty"`
	// Non-zero fields override the service configuration for this run.
	Overrides calibration.Config `json:"overrides"`
	DryRun    bool               `json:"dry_run,omitempty"`
}

type CalibrationReport struct {
	RunID   uuid.UUID `json:"run_id"`
	Version string    `json:"version"`
	Source  string    `json:"source"`
	DryRun  bool      `json:"dry_run"`

	NothingToCalibrate bool `json:"nothing_to_calibrate"`

	Items        int                     `json:"items"`
	Users        int                     `json:"users"`
	Attempts     int                     `json:"attempts"`
	Iterations   int                     `json:"iterations"`
	Converged    bool                    `json:"converged"`
	AbilityDelta float64                 `json:"ability_delta"`
	ItemDelta    float64                 `json:"item_delta"`
	Filter       calibration.FilterStats `json:"filter"`
	Config       calibration.Config      `json:"config"`
	Duration     time.Duration           `json:"duration"`

	// Drift against the stored latest parameters and the most recent run.
	PreviousVersion        string  `json:"previous_version,omitempty"`
	NewItems               int     `json:"new_items"`
	MaxDifficultyShift     float64 `json:"max_difficulty_shift"`
	MaxDiscriminationShift float64 `json:"max_discrimination_shift"`

	Params map[uuid.UUID]irt.ItemParams `json:"-"`
}

type CalibrationService interface {
	Run(ctx context.Context, req CalibrationRequest) (*CalibrationReport, error)
}

type calibrationService struct {
	db    *gorm.DB
	log   *logger.Logger
	cfg   calibration.Config
	cache *redis.ItemParamsCache

	attempts   repos.AttemptRepo
	items      repos.AssessmentItemRepo
	itemParams repos.ItemParamsRepo
	runs       repos.CalibrationRunRepo
}

func NewCalibrationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	cfg calibration.Config,
	cache *redis.ItemParamsCache,
	attempts repos.AttemptRepo,
	items repos.AssessmentItemRepo,
	itemParams repos.ItemParamsRepo,
	runs repos.CalibrationRunRepo,
) CalibrationService {
	return &calibrationService{
		db:         db,
		log:        baseLog.With("service", "CalibrationService"),
		cfg:        cfg.Normalized(),
		cache:      cache,
		attempts:   attempts,
		items:      items,
		itemParams: itemParams,
		runs:       runs,
	}
}

func (s *calibrationService) Run(ctx context.Context, req CalibrationRequest) (rep *CalibrationReport, err error) {
	started := time.Now().UTC()
	req = s.normalizeRequest(req, started)
	cfg := mergeCalibrationConfig(s.cfg, req.Overrides)

	ctx, span := observability.StartSpan(ctx, "calibration.run",
		attribute.String("calibration.version", req.Version),
		attribute.String("calibration.source", req.Source),
		attribute.Bool("calibration.dry_run", req.DryRun),
	)
	defer observability.FinishSpan(span, &err)

	log := s.log.With("version", req.Version, "source", req.Source)
	if req.CourseID != nil {
		log = log.With("course_id", req.CourseID.String())
	}

	rows, err := s.attempts.ListForCalibration(dbctx.Context{Ctx: ctx}, req.CourseID)
	if err != nil {
		return nil, fmt.Errorf("load attempts: %w", err)
	}
	raw := make([]calibration.RawAttempt, 0, len(rows))
	itemIDs := make([]uuid.UUID, 0, len(rows))
	for _, a := range rows {
		raw = append(raw, toRawAttempt(a))
		itemIDs = append(itemIDs, a.ItemID)
	}
	meta, err := s.loadItemMeta(ctx, itemIDs)
	if err != nil {
		return nil, err
	}

	rep = &CalibrationReport{Version: req.Version, Source: req.Source, DryRun: req.DryRun, Config: cfg}
	res, err := calibration.NewTrainer(s.log, cfg).Train(ctx, raw, meta)
	if errors.Is(err, calibration.ErrNothingToCalibrate) {
		rep.NothingToCalibrate = true
		rep.Filter = res.Filter
		rep.Duration = time.Since(started)
		log.Warn("Nothing to calibrate; leaving stored item parameters untouched",
			"loaded", res.Filter.Loaded,
			"dropped_items", res.Filter.DroppedItems,
			"min_attempts", cfg.MinAttempts,
		)
		return rep, nil
	}
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}

	rep.Items = len(res.Items)
	rep.Users = len(res.Abilities)
	rep.Attempts = res.Attempts
	rep.Iterations = res.Iterations
	rep.Converged = res.Converged
	rep.AbilityDelta = res.AbilityDelta
	rep.ItemDelta = res.ItemDelta
	rep.Filter = res.Filter
	rep.Params = res.Items
	span.SetAttributes(
		attribute.Int("calibration.items", rep.Items),
		attribute.Int("calibration.iterations", rep.Iterations),
		attribute.Bool("calibration.converged", rep.Converged),
	)
	if err := s.compareWithStored(ctx, rep); err != nil {
		return nil, err
	}

	if req.DryRun {
		rep.Duration = time.Since(started)
		log.Info("Calibration dry run finished", "items", rep.Items, "iterations", rep.Iterations, "converged", rep.Converged)
		return rep, nil
	}

	paramRows := make([]*types.ItemParams, 0, len(res.Items))
	ids := make([]uuid.UUID, 0, len(res.Items))
	for id, p := range res.Items {
		paramRows = append(paramRows, &types.ItemParams{
			ItemID:         id,
			Difficulty:     p.Difficulty,
			Discrimination: p.Discrimination,
			Guessing:       p.Guessing,
			Version:        req.Version,
			Source:         req.Source,
		})
		ids = append(ids, id)
	}
	run := &types.CalibrationRun{
		Version:      req.Version,
		Source:       req.Source,
		CourseID:     req.CourseID,
		Items:        rep.Items,
		Users:        rep.Users,
		Attempts:     rep.Attempts,
		Iterations:   rep.Iterations,
		Converged:    rep.Converged,
		AbilityDelta: rep.AbilityDelta,
		ItemDelta:    rep.ItemDelta,
		Stats:        runStats(rep.Filter, cfg),
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.Context{Ctx: ctx, Tx: tx}
		if err := s.itemParams.UpsertBatch(dbc, paramRows); err != nil {
			return fmt.Errorf("upsert item params: %w", err)
		}
		run.DurationMS = time.Since(started).Milliseconds()
		if err := s.runs.Create(dbc, run); err != nil {
			return fmt.Errorf("record calibration run: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	rep.RunID = run.ID

	if err := s.cache.Invalidate(ctx, ids); err != nil {
		log.Warn("Item params cache invalidation failed", "error", err)
	}
	rep.Duration = time.Since(started)
	log.Info("Calibration finished",
		"items", rep.Items,
		"users", rep.Users,
		"attempts", rep.Attempts,
		"iterations", rep.Iterations,
		"converged", rep.Converged,
		"duration_ms", rep.Duration.Milliseconds(),
	)
	return rep, nil
}

func (s *calibrationService) normalizeRequest(req CalibrationRequest, now time.Time) CalibrationRequest {
	req.Version = strings.TrimSpace(req.Version)
	if req.Version == "" {
		req.Version = now.Format("20060102T150405Z")
	}
	req.Source = strings.TrimSpace(req.Source)
	if req.Source == "" {
		req.Source = types.SourceOfflineScript
	}
	if req.CourseID != nil && *req.CourseID == uuid.Nil {
		req.CourseID = nil
	}
	return req
}

// compareWithStored fills the drift fields of rep from the currently flagged
// parameters of the trained items. It runs before any write.
func (s *calibrationService) compareWithStored(ctx context.Context, rep *CalibrationReport) error {
	dbc := dbctx.Context{Ctx: ctx}
	prev, err := s.runs.ListRecent(dbc, 1)
	if err != nil {
		return fmt.Errorf("load previous calibration run: %w", err)
	}
	if len(prev) > 0 {
		rep.PreviousVersion = prev[0].Version
	}

	ids := make([]uuid.UUID, 0, len(rep.Params))
	for id := range rep.Params {
		ids = append(ids, id)
	}
	rows, err := s.itemParams.ListByItemIDs(dbc, ids)
	if err != nil {
		return fmt.Errorf("load stored item params: %w", err)
	}
	stored := make(map[uuid.UUID]*types.ItemParams, len(rows))
	for _, row := range rows {
		if row != nil && row.IsLatest {
			stored[row.ItemID] = row
		}
	}
	for id, p := range rep.Params {
		old, ok := stored[id]
		if !ok {
			rep.NewItems++
			continue
		}
		rep.MaxDifficultyShift = math.Max(rep.MaxDifficultyShift, math.Abs(p.Difficulty-old.Difficulty))
		rep.MaxDiscriminationShift = math.Max(rep.MaxDiscriminationShift, math.Abs(p.Discrimination-old.Discrimination))
	}
	return nil
}

func (s *calibrationService) loadItemMeta(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]calibration.ItemMeta, error) {
	meta := map[uuid.UUID]calibration.ItemMeta{}
	if len(ids) == 0 {
		return meta, nil
	}
	items, err := s.items.ListByIDs(dbctx.Context{Ctx: ctx}, ids)
	if err != nil {
		return nil, fmt.Errorf("load item metadata: %w", err)
	}
	for _, it := range items {
		meta[it.ID] = calibration.ItemMeta{ItemType: it.ItemType, BaselineDiscrimination: it.BaselineDiscrimination}
	}
	return meta, nil
}

func toRawAttempt(a *types.Attempt) calibration.RawAttempt {
	correct := false
	switch {
	case a.IsCorrect != nil:
		correct = *a.IsCorrect
	case a.SuccessRatio != nil:
		correct = *a.SuccessRatio >= 0.5
	}
	return calibration.RawAttempt{
		UserID:       a.UserID,
		ItemID:       a.ItemID,
		IsCorrect:    correct,
		SuccessRatio: a.SuccessRatio,
		Skipped:      a.Skipped,
	}
}

func mergeCalibrationConfig(base, o calibration.Config) calibration.Config {
	if o.MinAttempts > 0 {
		base.MinAttempts = o.MinAttempts
	}
	if o.MaxIterations > 0 {
		base.MaxIterations = o.MaxIterations
	}
	if o.AbilityLearningRate > 0 {
		base.AbilityLearningRate = o.AbilityLearningRate
	}
	if o.ItemLearningRate > 0 {
		base.ItemLearningRate = o.ItemLearningRate
	}
	if o.Tolerance > 0 {
		base.Tolerance = o.Tolerance
	}
	if o.Workers > 0 {
		base.Workers = o.Workers
	}
	return base.Normalized()
}

func runStats(f calibration.FilterStats, cfg calibration.Config) datatypes.JSON {
	b, _ := json.Marshal(map[string]any{
		"filter": map[string]int{
			"loaded":           f.Loaded,
			"missing_signal":   f.MissingSignal,
			"skipped":          f.Skipped,
			"dropped_items":    f.DroppedItems,
			"dropped_attempts": f.DroppedAttempts,
		},
		"config": map[string]any{
			"min_attempts":          cfg.MinAttempts,
			"max_iterations":        cfg.MaxIterations,
			"ability_learning_rate": cfg.AbilityLearningRate,
			"item_learning_rate":    cfg.ItemLearningRate,
			"tolerance":             cfg.Tolerance,
		},
	})
	return datatypes.JSON(b)
}
