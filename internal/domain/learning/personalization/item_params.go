package personalization

import (
	"time"

	"github.com/google/uuid"
)

// ItemParams stores calibrated 3PL parameters for an assessment item, one row
// per (item, calibration version). At most one row per item is flagged latest.
type ItemParams struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ItemID uuid.UUID `gorm:"type:uuid;not null;index:idx_irt_item_version,unique,priority:1" json:"item_id"`

	Difficulty     float64 `gorm:"column:difficulty;not null;default:0" json:"difficulty"`
	Discrimination float64 `gorm:"column:discrimination;not null;default:1" json:"discrimination"`
	Guessing       float64 `gorm:"column:guessing;not null;default:0" json:"guessing"`

	Version  string `gorm:"column:version;not null;default:'';index:idx_irt_item_version,unique,priority:2" json:"version"`
	Source   string `gorm:"column:source;not null;default:''" json:"source"`
	IsLatest bool   `gorm:"column:is_latest;not null;default:false;index" json:"is_latest"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;index" json:"updated_at"`
}

func (ItemParams) TableName() string { return "irt_item_params" }
