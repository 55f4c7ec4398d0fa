package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-adaptive/internal/data/repos/learning"
	"github.com/yungbote/neurobridge-adaptive/internal/platform/logger"
)

type LearnerStateRepo = learning.LearnerStateRepo
type ComponentMasteryRepo = learning.ComponentMasteryRepo
type BktParamsRepo = learning.BktParamsRepo
type ItemParamsRepo = learning.ItemParamsRepo
type AssessmentItemRepo = learning.AssessmentItemRepo
type AttemptRepo = learning.AttemptRepo
type CalibrationRunRepo = learning.CalibrationRunRepo

func NewLearnerStateRepo(db *gorm.DB, baseLog *logger.Logger) LearnerStateRepo {
	return learning.NewLearnerStateRepo(db, baseLog)
}
func NewComponentMasteryRepo(db *gorm.DB, baseLog *logger.Logger) ComponentMasteryRepo {
	return learning.NewComponentMasteryRepo(db, baseLog)
}
func NewBktParamsRepo(db *gorm.DB, baseLog *logger.Logger) BktParamsRepo {
	return learning.NewBktParamsRepo(db, baseLog)
}
func NewItemParamsRepo(db *gorm.DB, baseLog *logger.Logger) ItemParamsRepo {
	return learning.NewItemParamsRepo(db, baseLog)
}
func NewAssessmentItemRepo(db *gorm.DB, baseLog *logger.Logger) AssessmentItemRepo {
	return learning.NewAssessmentItemRepo(db, baseLog)
}
func NewAttemptRepo(db *gorm.DB, baseLog *logger.Logger) AttemptRepo {
	return learning.NewAttemptRepo(db, baseLog)
}
func NewCalibrationRunRepo(db *gorm.DB, baseLog *logger.Logger) CalibrationRunRepo {
	return learning.NewCalibrationRunRepo(db, baseLog)
}
