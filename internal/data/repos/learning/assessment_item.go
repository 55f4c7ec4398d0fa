package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/neurobridge-adaptive/internal/domain"
	"github.com/yungbote/neurobridge-adaptive/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-adaptive/internal/platform/logger"
)

type AssessmentItemRepo interface {
	Get(dbc dbctx.Context, id uuid.UUID) (*types.AssessmentItem, error)
	ListByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.AssessmentItem, error)
	Upsert(dbc dbctx.Context, row *types.AssessmentItem) error
}

type assessmentItemRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssessmentItemRepo(db *gorm.DB, baseLog *logger.Logger) AssessmentItemRepo {
	return &assessmentItemRepo{db: db, log: baseLog.With("repo", "AssessmentItemRepo")}
}

func (r *assessmentItemRepo) Get(dbc dbctx.Context, id uuid.UUID) (*types.AssessmentItem, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.AssessmentItem
	if err := dbc.Handle(r.db).Where("id = ?", id).Limit(1).Find(&row).Error; err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *assessmentItemRepo) ListByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.AssessmentItem, error) {
	out := []*types.AssessmentItem{}
	clean := dedupeIDs(ids)
	if len(clean) == 0 {
		return out, nil
	}
	if err := dbc.Handle(r.db).Where("id IN ?", clean).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *assessmentItemRepo) Upsert(dbc dbctx.Context, row *types.AssessmentItem) error {
	if row == nil {
		return nil
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
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"course_id",
				"item_type",
				"difficulty_label",
				"estimated_time_seconds",
				"baseline_discrimination",
				"updated_at",
			}),
		}).
		Create(row).Error
}
