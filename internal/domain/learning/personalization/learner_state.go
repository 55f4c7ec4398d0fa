package personalization

import (
	"time"

	"github.com/google/uuid"
)

// LearnerState is the course-level estimate for one learner: BKT mastery and
// IRT ability.
type LearnerState struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID   uuid.UUID `gorm:"type:uuid;not null;index:idx_learner_state,unique,priority:1" json:"user_id"`
	CourseID uuid.UUID `gorm:"type:uuid;not null;index:idx_learner_state,unique,priority:2" json:"course_id"`

	Mastery float64 `gorm:"column:mastery;not null;default:0" json:"mastery"`
	Ability float64 `gorm:"column:ability;not null;default:0" json:"ability"`

	Attempts      int        `gorm:"column:attempts;not null;default:0" json:"attempts"`
	LastAttemptAt *time.Time `gorm:"column:last_attempt_at" json:"last_attempt_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (LearnerState) TableName() string { return "learner_state" }
