package personalization

import (
	"time"

	"github.com/google/uuid"
)

// CourseBktParams overrides the system BKT defaults for one course.
type CourseBktParams struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex" json:"course_id"`

	GuessingProbability float64 `gorm:"column:guessing_probability;not null" json:"guessing_probability"`
	SlippingProbability float64 `gorm:"column:slipping_probability;not null" json:"slipping_probability"`
	LearningRate        float64 `gorm:"column:learning_rate;not null" json:"learning_rate"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (CourseBktParams) TableName() string { return "course_bkt_params" }
