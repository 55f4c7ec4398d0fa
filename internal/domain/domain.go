package domain

import (
	"github.com/yungbote/neurobridge-adaptive/internal/domain/learning/core"
	"github.com/yungbote/neurobridge-adaptive/internal/domain/learning/personalization"
)

type AssessmentItem = core.AssessmentItem
type Attempt = core.Attempt

type LearnerState = personalization.LearnerState
type ComponentMastery = personalization.ComponentMastery
type CourseBktParams = personalization.CourseBktParams
type ItemParams = personalization.ItemParams
type CalibrationRun = personalization.CalibrationRun

// Calibration sources written to ItemParams.Source.
const (
	SourceOfflineScript = "offline-script"
	SourceScheduled     = "scheduled"
)

// AllModels lists every table owned by the learner model, in migration order.
func AllModels() []any {
	return []any{
		&AssessmentItem{},
		&Attempt{},
		&LearnerState{},
		&ComponentMastery{},
		&CourseBktParams{},
		&ItemParams{},
		&CalibrationRun{},
	}
}
