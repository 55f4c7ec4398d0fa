package learning

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/neurobridge-adaptive/internal/domain"
	"github.com/yungbote/neurobridge-adaptive/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-adaptive/internal/platform/errs"
	"github.com/yungbote/neurobridge-adaptive/internal/platform/logger"
)

type BktParamsRepo interface {
	// GetForCourse returns nil, nil when the course has no override.
	GetForCourse(dbc dbctx.Context, courseID uuid.UUID) (*types.CourseBktParams, error)
	Upsert(dbc dbctx.Context, row *types.CourseBktParams) error
}

type bktParamsRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBktParamsRepo(db *gorm.DB, baseLog *logger.Logger) BktParamsRepo {
	return &bktParamsRepo{db: db, log: baseLog.With("repo", "BktParamsRepo")}
}

func (r *bktParamsRepo) GetForCourse(dbc dbctx.Context, courseID uuid.UUID) (*types.CourseBktParams, error) {
	if courseID == uuid.Nil {
		return nil, nil
	}
	var row types.CourseBktParams
	if err := dbc.Handle(r.db).
		Where("course_id = ?", courseID).
		Limit(1).
		Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *bktParamsRepo) Upsert(dbc dbctx.Context, row *types.CourseBktParams) error {
	if row == nil || row.CourseID == uuid.Nil {
		return fmt.Errorf("course bkt params: missing course: %w", errs.ErrInvalidArgument)
	}
	now := time.Now().UTC()
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	return dbc.Handle(r.db).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "course_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"guessing_probability",
				"slipping_probability",
				"learning_rate",
				"updated_at",
			}),
		}).
		Create(row).Error
}
