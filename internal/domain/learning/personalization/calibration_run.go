package personalization

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// CalibrationRun is the audit record of one offline calibration.
type CalibrationRun struct {
	ID       uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Version  string     `gorm:"column:version;not null;index" json:"version"`
	Source   string     `gorm:"column:source;not null" json:"source"`
	CourseID *uuid.UUID `gorm:"type:uuid;column:course_id;index" json:"course_id,omitempty"`

	Items        int     `gorm:"column:items;not null;default:0" json:"items"`
	Users        int     `gorm:"column:users;not null;default:0" json:"users"`
	Attempts     int     `gorm:"column:attempts;not null;default:0" json:"attempts"`
	Iterations   int     `gorm:"column:iterations;not null;default:0" json:"iterations"`
	Converged    bool    `gorm:"column:converged;not null;default:false" json:"converged"`
	AbilityDelta float64 `gorm:"column:ability_delta;not null;default:0" json:"ability_delta"`
	ItemDelta    float64 `gorm:"column:item_delta;not null;default:0" json:"item_delta"`
	DurationMS   int64   `gorm:"column:duration_ms;not null;default:0" json:"duration_ms"`

	// Stats holds the filter counters and the effective hyperparameters.
	Stats datatypes.JSON `gorm:"column:stats" json:"stats,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (CalibrationRun) TableName() string { return "calibration_run" }
