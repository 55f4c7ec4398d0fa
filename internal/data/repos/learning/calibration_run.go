package learning

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/neurobridge-adaptive/internal/domain"
	"github.com/yungbote/neurobridge-adaptive/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-adaptive/internal/platform/logger"
)

type CalibrationRunRepo interface {
	Create(dbc dbctx.Context, row *types.CalibrationRun) error
	ListRecent(dbc dbctx.Context, limit int) ([]*types.CalibrationRun, error)
}

type calibrationRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCalibrationRunRepo(db *gorm.DB, baseLog *logger.Logger) CalibrationRunRepo {
	return &calibrationRunRepo{db: db, log: baseLog.With("repo", "CalibrationRunRepo")}
}

func (r *calibrationRunRepo) Create(dbc dbctx.Context, row *types.CalibrationRun) error {
	if row == nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return dbc.Handle(r.db).Create(row).Error
}

func (r *calibrationRunRepo) ListRecent(dbc dbctx.Context, limit int) ([]*types.CalibrationRun, error) {
	if limit <= 0 {
		limit = 20
	}
	out := []*types.CalibrationRun{}
	if err := dbc.Handle(r.db).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
