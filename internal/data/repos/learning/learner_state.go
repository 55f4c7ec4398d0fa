package learning

import (
	"errors"
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

type LearnerStateRepo interface {
	Get(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.LearnerState, error)
	GetOrCreate(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.LearnerState, error)
	Save(dbc dbctx.Context, row *types.LearnerState) error
}

type learnerStateRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewLearnerStateRepo(db *gorm.DB, baseLog *logger.Logger) LearnerStateRepo {
	return &learnerStateRepo{db: db, log: baseLog.With("repo", "LearnerStateRepo")}
}

func (r *learnerStateRepo) Get(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.LearnerState, error) {
	return r.find(dbc, userID, courseID, false)
}

func (r *learnerStateRepo) find(dbc dbctx.Context, userID, courseID uuid.UUID, lock bool) (*types.LearnerState, error) {
	if userID == uuid.Nil || courseID == uuid.Nil {
		return nil, nil
	}
	q := dbc.Handle(r.db)
	if lock {
		q = forUpdate(dbc, q)
	}
	var row types.LearnerState
	err := q.
		Where("user_id = ? AND course_id = ?", userID, courseID).
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

// GetOrCreate returns the learner's course state, inserting a zero state
// (mastery 0, ability 0) on first contact. Concurrent first inserts collapse
// onto the unique (user_id, course_id) index. Inside a transaction the row is
// locked until commit, so concurrent attempts apply their updates in turn.
func (r *learnerStateRepo) GetOrCreate(dbc dbctx.Context, userID, courseID uuid.UUID) (*types.LearnerState, error) {
	if userID == uuid.Nil || courseID == uuid.Nil {
		return nil, fmt.Errorf("learner state: missing user or course: %w", errs.ErrInvalidArgument)
	}
	if row, err := r.find(dbc, userID, courseID, true); err != nil || row != nil {
		return row, err
	}
	now := time.Now().UTC()
	row := &types.LearnerState{
		ID:        uuid.New(),
		UserID:    userID,
		CourseID:  courseID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := dbc.Handle(r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row).Error; err != nil {
		return nil, err
	}
	got, err := r.find(dbc, userID, courseID, true)
	if err != nil {
		return nil, err
	}
	if got == nil {
		return nil, errors.New("learner state: insert did not persist")
	}
	return got, nil
}

func (r *learnerStateRepo) Save(dbc dbctx.Context, row *types.LearnerState) error {
	if row == nil || row.ID == uuid.Nil {
		return fmt.Errorf("learner state: save without id: %w", errs.ErrInvalidArgument)
	}
	row.UpdatedAt = time.Now().UTC()
	return dbc.Handle(r.db).
		Model(&types.LearnerState{}).
		Where("id = ?", row.ID).
		Updates(map[string]interface{}{
			"mastery":         row.Mastery,
			"ability":         row.Ability,
			"attempts":        row.Attempts,
			"last_attempt_at": row.LastAttemptAt,
			"updated_at":      row.UpdatedAt,
		}).Error
}
