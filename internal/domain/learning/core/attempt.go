package core

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Attempt is one submitted answer. SuccessRatio is the graded partial-credit
// signal; IsCorrect is the binary outcome.
type Attempt struct {
	ID       uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	ItemID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"item_id"`
	CourseID *uuid.UUID `gorm:"type:uuid;index" json:"course_id,omitempty"`

	IsCorrect    *bool    `gorm:"column:is_correct" json:"is_correct,omitempty"`
	SuccessRatio *float64 `gorm:"column:success_ratio" json:"success_ratio,omitempty"`
	Skipped      bool     `gorm:"column:skipped;not null;default:false" json:"skipped"`

	ResponseTimeSeconds float64 `gorm:"column:response_time_seconds;not null;default:0" json:"response_time_seconds"`

	KnowledgeComponentIDs datatypes.JSON `gorm:"column:knowledge_component_ids" json:"knowledge_component_ids,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (Attempt) TableName() string { return "attempt" }

// ComponentIDs decodes KnowledgeComponentIDs, skipping malformed entries.
func (a *Attempt) ComponentIDs() []uuid.UUID {
	if a == nil || len(a.KnowledgeComponentIDs) == 0 {
		return nil
	}
	var raw []string
	if err := json.Unmarshal(a.KnowledgeComponentIDs, &raw); err != nil {
		return nil
	}
	out := make([]uuid.UUID, 0, len(raw))
	seen := map[uuid.UUID]bool{}
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil || id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// SetComponentIDs encodes ids into KnowledgeComponentIDs.
func (a *Attempt) SetComponentIDs(ids []uuid.UUID) {
	raw := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != uuid.Nil {
			raw = append(raw, id.String())
		}
	}
	b, _ := json.Marshal(raw)
	a.KnowledgeComponentIDs = datatypes.JSON(b)
}
