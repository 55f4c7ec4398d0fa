package learning

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/neurobridge-adaptive/internal/domain"
	"github.com/yungbote/neurobridge-adaptive/internal/learning/mathx"
	"github.com/yungbote/neurobridge-adaptive/internal/platform/dbctx"
	"github.com/yungbote/neurobridge-adaptive/internal/platform/errs"
	"github.com/yungbote/neurobridge-adaptive/internal/platform/logger"
)

type ComponentMasteryRepo interface {
	Get(dbc dbctx.Context, userID, componentID uuid.UUID) (*types.ComponentMastery, error)
	GetOrCreate(dbc dbctx.Context, userID, componentID uuid.UUID, seed float64) (*types.ComponentMastery, error)
	Save(dbc dbctx.Context, row *types.ComponentMastery) error
}

type componentMasteryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewComponentMasteryRepo(db *gorm.DB, baseLog *logger.Logger) ComponentMasteryRepo {
	return &componentMasteryRepo{db: db, log: baseLog.With("repo", "ComponentMasteryRepo")}
}

func (r *componentMasteryRepo) Get(dbc dbctx.Context, userID, componentID uuid.UUID) (*types.ComponentMastery, error) {
	return r.find(dbc, userID, componentID, false)
}

func (r *componentMasteryRepo) find(dbc dbctx.Context, userID, componentID uuid.UUID, lock bool) (*types.ComponentMastery, error) {
	if userID == uuid.Nil || componentID == uuid.Nil {
		return nil, nil
	}
	q := dbc.Handle(r.db)
	if lock {
		q = forUpdate(dbc, q)
	}
	var row types.ComponentMastery
	err := q.
		Where("user_id = ? AND knowledge_component_id = ?", userID, componentID).
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

// GetOrCreate inserts a row seeded with seed mastery when none exists. Like
// LearnerStateRepo.GetOrCreate it holds a row lock inside a transaction.
func (r *componentMasteryRepo) GetOrCreate(dbc dbctx.Context, userID, componentID uuid.UUID, seed float64) (*types.ComponentMastery, error) {
	if userID == uuid.Nil || componentID == uuid.Nil {
		return nil, fmt.Errorf("component mastery: missing user or component: %w", errs.ErrInvalidArgument)
	}
	if row, err := r.find(dbc, userID, componentID, true); err != nil || row != nil {
		return row, err
	}
	now := time.Now().UTC()
	row := &types.ComponentMastery{
		ID:                   uuid.New(),
		UserID:               userID,
		KnowledgeComponentID: componentID,
		Mastery:              mathx.Clamp01Or(seed, 0),
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := dbc.Handle(r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row).Error; err != nil {
		return nil, err
	}
	got, err := r.find(dbc, userID, componentID, true)
	if err != nil {
		return nil, err
	}
	if got == nil {
		return nil, errors.New("component mastery: insert did not persist")
	}
	return got, nil
}

func (r *componentMasteryRepo) Save(dbc dbctx.Context, row *types.ComponentMastery) error {
	if row == nil || row.ID == uuid.Nil {
		return fmt.Errorf("component mastery: save without id: %w", errs.ErrInvalidArgument)
	}
	row.UpdatedAt = time.Now().UTC()
	return dbc.Handle(r.db).
		Model(&types.ComponentMastery{}).
		Where("id = ?", row.ID).
		Updates(map[string]interface{}{
			"mastery":    row.Mastery,
			"attempts":   row.Attempts,
			"updated_at": row.UpdatedAt,
		}).Error
}
