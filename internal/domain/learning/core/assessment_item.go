package core

import (
	"time"

	"github.com/google/uuid"
)

// AssessmentItem is the catalogue metadata the learner model reads per item.
type AssessmentItem struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID uuid.UUID `gorm:"type:uuid;not null;index" json:"course_id"`

	ItemType        string `gorm:"column:item_type;not null;default:''" json:"item_type"`
	DifficultyLabel string `gorm:"column:difficulty_label;not null;default:''" json:"difficulty_label"`

	EstimatedTimeSeconds   float64  `gorm:"column:estimated_time_seconds;not null;default:0" json:"estimated_time_seconds"`
	BaselineDiscrimination *float64 `gorm:"column:baseline_discrimination" json:"baseline_discrimination,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (AssessmentItem) TableName() string { return "assessment_item" }
