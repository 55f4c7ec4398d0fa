package app

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yungbote/neurobridge-adaptive/internal/learning/bkt"
	"github.com/yungbote/neurobridge-adaptive/internal/learning/calibration"
	"github.com/yungbote/neurobridge-adaptive/internal/learning/online"
	"github.com/yungbote/neurobridge-adaptive/internal/observability"
	"github.com/yungbote/neurobridge-adaptive/internal/platform/envutil"
	"github.com/yungbote/neurobridge-adaptive/internal/platform/logger"
)

type Config struct {
	LogMode string

	DBDriver   string
	SQLitePath string

	RedisAddr          string
	ItemParamsCacheTTL time.Duration

	Online      online.Config
	Calibration calibration.Config
	Tracing     observability.TracingConfig
}

func LoadConfig(log *logger.Logger) Config {
	defBKT := bkt.DefaultParams()
	defCal := calibration.DefaultConfig()
	defOnline := online.DefaultConfig()

	cfg := Config{
		LogMode:    envutil.String("LOG_MODE", "development"),
		DBDriver:   envutil.String("DB_DRIVER", "postgres"),
		SQLitePath: envutil.String("SQLITE_PATH", ""),

		RedisAddr:          envutil.String("REDIS_ADDR", ""),
		ItemParamsCacheTTL: envutil.Seconds("ITEM_PARAMS_CACHE_TTL_SECONDS", 10*time.Minute),

		Online: online.Config{
			DefaultBKT: bkt.Params{
				Guess: envutil.Float("LEARNER_BKT_GUESS", defBKT.Guess),
				Slip:  envutil.Float("LEARNER_BKT_SLIP", defBKT.Slip),
				Learn: envutil.Float("LEARNER_BKT_LEARN", defBKT.Learn),
			},
			LearningRate: envutil.Float("LEARNER_IRT_LR", defOnline.LearningRate),
			Prior:        defOnline.Prior,
		},
		Calibration: calibration.Config{
			MinAttempts:         envutil.Int("CALIB_MIN_ATTEMPTS", defCal.MinAttempts),
			MaxIterations:       envutil.Int("CALIB_MAX_ITERATIONS", defCal.MaxIterations),
			AbilityLearningRate: envutil.Float("CALIB_ABILITY_LR", defCal.AbilityLearningRate),
			ItemLearningRate:    envutil.Float("CALIB_ITEM_LR", defCal.ItemLearningRate),
			Tolerance:           envutil.Float("CALIB_TOLERANCE", defCal.Tolerance),
			Workers:             envutil.Int("CALIB_WORKERS", defCal.Workers),
		}.Normalized(),
		Tracing: observability.TracingConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "neurobridge-adaptive"),
			Environment: envutil.String("OTEL_ENVIRONMENT", "development"),
			Version:     envutil.String("OTEL_SERVICE_VERSION", ""),
			Exporter:    envutil.String("OTEL_TRACES_EXPORTER", observability.ExporterOTLP),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false),
			SampleRatio: envutil.Float("OTEL_SAMPLER_RATIO", 0.1),
		},
	}
	log.Debug("Loaded configuration",
		"db_driver", cfg.DBDriver,
		"redis_enabled", cfg.RedisAddr != "",
		"tracing_enabled", cfg.Tracing.Enabled,
		"calibration_min_attempts", cfg.Calibration.MinAttempts,
		"calibration_max_iterations", cfg.Calibration.MaxIterations,
	)
	return cfg
}

// fileConfig is the YAML override layout accepted by -config.
type fileConfig struct {
	BKT                bkt.Params         `yaml:"bkt"`
	OnlineLearningRate float64            `yaml:"online_learning_rate"`
	Calibration        calibration.Config `yaml:"calibration"`
}

// ApplyFile overlays the YAML file at path onto cfg. Keys absent from the file
// keep their current values; unknown keys are rejected.
func ApplyFile(cfg Config, path string) (Config, error) {
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	fc := fileConfig{
		BKT:                cfg.Online.DefaultBKT,
		OnlineLearningRate: cfg.Online.LearningRate,
		Calibration:        cfg.Calibration,
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Online.DefaultBKT = fc.BKT
	cfg.Online.LearningRate = fc.OnlineLearningRate
	cfg.Calibration = fc.Calibration.Normalized()
	return cfg, nil
}
