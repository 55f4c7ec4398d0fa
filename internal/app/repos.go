package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-adaptive/internal/data/repos"
	"github.com/yungbote/neurobridge-adaptive/internal/platform/logger"
)

type Repos struct {
	LearnerState     repos.LearnerStateRepo
	ComponentMastery repos.ComponentMasteryRepo
	BktParams        repos.BktParamsRepo
	ItemParams       repos.ItemParamsRepo
	AssessmentItem   repos.AssessmentItemRepo
	Attempt          repos.AttemptRepo
	CalibrationRun   repos.CalibrationRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		LearnerState:     repos.NewLearnerStateRepo(db, log),
		ComponentMastery: repos.NewComponentMasteryRepo(db, log),
		BktParams:        repos.NewBktParamsRepo(db, log),
		ItemParams:       repos.NewItemParamsRepo(db, log),
		AssessmentItem:   repos.NewAssessmentItemRepo(db, log),
		Attempt:          repos.NewAttemptRepo(db, log),
		CalibrationRun:   repos.NewCalibrationRunRepo(db, log),
	}
}
