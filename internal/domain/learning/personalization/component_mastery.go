package personalization

import (
	"time"

	"github.com/google/uuid"
)

// ComponentMastery tracks BKT mastery of one knowledge component.
type ComponentMastery struct {
	ID                   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID               uuid.UUID `gorm:"type:uuid;not null;index:idx_component_mastery,unique,priority:1" json:"user_id"`
	KnowledgeComponentID uuid.UUID `gorm:"type:uuid;not null;index:idx_component_mastery,unique,priority:2" json:"knowledge_component_id"`

	Mastery  float64 `gorm:"column:mastery;not null;default:0" json:"mastery"`
	Attempts int     `gorm:"column:attempts;not null;default:0" json:"attempts"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (ComponentMastery) TableName() string { return "learner_component_mastery" }
