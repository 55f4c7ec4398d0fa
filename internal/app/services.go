package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/neurobridge-adaptive/internal/clients/redis"
	"github.com/yungbote/neurobridge-adaptive/internal/learning/online"
	"github.com/yungbote/neurobridge-adaptive/internal/platform/logger"
	"github.com/yungbote/neurobridge-adaptive/internal/services"
)

type Services struct {
	LearnerModel services.LearnerModelService
	Calibration  services.CalibrationService
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, r Repos, cache *redis.ItemParamsCache) Services {
	log.Info("Wiring services...")
	return Services{
		LearnerModel: services.NewLearnerModelService(db, log,
			online.NewUpdater(log, cfg.Online),
			cache,
			r.AssessmentItem,
			r.Attempt,
			r.LearnerState,
			r.ComponentMastery,
			r.BktParams,
			r.ItemParams,
		),
		Calibration: services.NewCalibrationService(db, log,
			cfg.Calibration,
			cache,
			r.Attempt,
			r.AssessmentItem,
			r.ItemParams,
			r.CalibrationRun,
		),
	}
}
