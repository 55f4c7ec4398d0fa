package learning

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-adaptive/internal/domain"
	"github.com/yungbote/neurobridge-adaptive/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-adaptive/internal/platform/errs"
	"github.com/yungbote/neurobridge-adaptive/internal/platform/logger"
)

type AttemptRepo interface {
	Create(dbc dbctx.Context, row *types.Attempt) error
	// ListForCalibration returns attempts with a success ratio that were not
	// skipped, optionally restricted to one course, oldest first.
	ListForCalibration(dbc dbctx.Context, courseID *uuid.UUID) ([]*types.Attempt, error)
}

type attemptRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAttemptRepo(db *gorm.DB, baseLog *logger.Logger) AttemptRepo {
	return &attemptRepo{db: db, log: baseLog.With("repo", "AttemptRepo")}
}

func (r *attemptRepo) Create(dbc dbctx.Context, row *types.Attempt) error {
	if row == nil || row.UserID == uuid.Nil || row.ItemID == uuid.Nil {
		return fmt.Errorf("attempt: missing user or item: %w", errs.ErrInvalidArgument)
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return dbc.Handle(r.db).Create(row).Error
}

func (r *attemptRepo) ListForCalibration(dbc dbctx.Context, courseID *uuid.UUID) ([]*types.Attempt, error) {
	out := []*types.Attempt{}
	q := dbc.Handle(r.db).
		Where("success_ratio IS NOT NULL").
		Where("skipped = ?", false)
	if courseID != nil && *courseID != uuid.Nil {
		q = q.Where("course_id = ?", *courseID)
	}
	if err := q.Order("created_at ASC").Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
