package temporalx

import (
	"time"

	"github.com/yungbote/neurobridge-adaptive/internal/platform/envutil"
)

type Config struct {
	Address   string
	Namespace string
	TaskQueue string

	ClientCertPath string
	ClientKeyPath  string
	ClientCAPath   string

	// RegisterNamespace creates Namespace when missing. Only for self-hosted
	// dev servers; managed namespaces are provisioned out of band.
	RegisterNamespace bool
	// ConnectWait bounds dial and worker start retries. Zero means one attempt.
	ConnectWait       time.Duration
	WorkerConcurrency int

	// ScheduleCron enables the recurring calibration schedule when set.
	ScheduleCron string
	ScheduleID   string
}

func LoadConfig() Config {
	cfg := Config{
		Address:   envutil.String("TEMPORAL_ADDRESS", ""),
		Namespace: envutil.String("TEMPORAL_NAMESPACE", "neurobridge"),
		TaskQueue: envutil.String("TEMPORAL_TASK_QUEUE", "learner-calibration"),

		ClientCertPath: envutil.String("TEMPORAL_CLIENT_CERT_PATH", ""),
		ClientKeyPath:  envutil.String("TEMPORAL_CLIENT_KEY_PATH", ""),
		ClientCAPath:   envutil.String("TEMPORAL_CLIENT_CA_PATH", ""),

		RegisterNamespace: envutil.Bool("TEMPORAL_AUTO_REGISTER_NAMESPACE", false),
		ConnectWait:       envutil.Seconds("TEMPORAL_CONNECT_WAIT_SECONDS", time.Minute),
		WorkerConcurrency: envutil.Int("WORKER_CONCURRENCY", 2),

		ScheduleCron: envutil.String("CALIB_SCHEDULE_CRON", ""),
		ScheduleID:   envutil.String("CALIB_SCHEDULE_ID", "learner-calibration"),
	}
	if cfg.WorkerConcurrency < 1 {
		cfg.WorkerConcurrency = 1
	}
	return cfg
}

func (c Config) TLSEnabled() bool {
	return c.ClientCertPath != "" || c.ClientKeyPath != "" || c.ClientCAPath != ""
}
