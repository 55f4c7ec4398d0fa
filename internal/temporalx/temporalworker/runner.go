package temporalworker

import (
	"context"
	"errors"
	"fmt"

	"github.com/yungbote/neurobridge-adaptive/internal/platform/logger"
	"github.com/yungbote/neurobridge-adaptive/internal/services"
	"github.com/yungbote/neurobridge-adaptive/internal/temporalx"
	"github.com/yungbote/neurobridge-adaptive/internal/temporalx/calibrate"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/activity"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
)

type Runner struct {
	log *logger.Logger
	cfg temporalx.Config

	tc          temporalsdkclient.Client
	calibration services.CalibrationService
}

func NewRunner(
	log *logger.Logger,
	cfg temporalx.Config,
	tc temporalsdkclient.Client,
	calibration services.CalibrationService,
) (*Runner, error) {
	if tc == nil {
		return nil, fmt.Errorf("temporal client is not configured")
	}
	if calibration == nil {
		return nil, fmt.Errorf("temporal worker missing calibration service")
	}
	return &Runner{
		log:         log.With("service", "TemporalWorker"),
		cfg:         cfg,
		tc:          tc,
		calibration: calibration,
	}, nil
}

// Start polls the task queue until ctx ends. Start failures are retried for
// up to cfg.ConnectWait, registering the namespace in between when allowed.
func (r *Runner) Start(ctx context.Context) error {
	if r == nil || r.tc == nil {
		return fmt.Errorf("temporal worker not initialized")
	}
	cfg := r.cfg
	r.log.Info("Starting Temporal worker", "address", cfg.Address, "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue)

	var w worker.Worker
	err := temporalx.Retry(ctx, cfg.ConnectWait, nil,
		func(attempt int, err error) {
			r.log.Warn("Temporal worker failed to start; retrying", "task_queue", cfg.TaskQueue, "attempt", attempt, "error", err)
		},
		func() error {
			w = r.newWorker()
			startErr := w.Start()
			if startErr == nil {
				return nil
			}
			w.Stop()
			var missing *serviceerror.NamespaceNotFound
			if errors.As(startErr, &missing) && cfg.RegisterNamespace {
				if err := temporalx.EnsureNamespace(ctx, r.log, cfg); err != nil {
					r.log.Warn("Temporal namespace register failed", "namespace", cfg.Namespace, "error", err)
				}
			}
			return startErr
		},
	)
	if err != nil {
		return fmt.Errorf("start temporal worker (namespace=%s task_queue=%s): %w", cfg.Namespace, cfg.TaskQueue, err)
	}
	go func() {
		<-ctx.Done()
		w.Stop()
	}()
	r.log.Info("Temporal worker started", "namespace", cfg.Namespace, "task_queue", cfg.TaskQueue)
	return nil
}

func (r *Runner) newWorker() worker.Worker {
	w := worker.New(r.tc, r.cfg.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     r.cfg.WorkerConcurrency,
		MaxConcurrentWorkflowTaskExecutionSize: r.cfg.WorkerConcurrency,
	})
	acts := &calibrate.Activities{
		Log:         r.log,
		Calibration: r.calibration,
	}
	w.RegisterWorkflowWithOptions(calibrate.Workflow, workflow.RegisterOptions{Name: calibrate.WorkflowName})
	w.RegisterActivityWithOptions(acts.Calibrate, activity.RegisterOptions{Name: calibrate.ActivityCalibrate})
	return w
}

// EnsureSchedule creates the recurring calibration schedule when
// CALIB_SCHEDULE_CRON is set. An existing schedule is left as is.
func (r *Runner) EnsureSchedule(ctx context.Context, in calibrate.Input) error {
	if r == nil || r.tc == nil {
		return fmt.Errorf("temporal worker not initialized")
	}
	if r.cfg.ScheduleCron == "" {
		return nil
	}
	_, err := r.tc.ScheduleClient().Create(ctx, scheduleOptions(r.cfg, in))
	if errors.Is(err, temporal.ErrScheduleAlreadyRunning) {
		r.log.Info("Calibration schedule already exists", "schedule_id", r.cfg.ScheduleID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("create calibration schedule: %w", err)
	}
	r.log.Info("Calibration schedule created", "schedule_id", r.cfg.ScheduleID, "cron", r.cfg.ScheduleCron)
	return nil
}

func scheduleOptions(cfg temporalx.Config, in calibrate.Input) temporalsdkclient.ScheduleOptions {
	return temporalsdkclient.ScheduleOptions{
		ID: cfg.ScheduleID,
		Spec: temporalsdkclient.ScheduleSpec{
			CronExpressions: []string{cfg.ScheduleCron},
		},
		Overlap: enumspb.SCHEDULE_OVERLAP_POLICY_SKIP,
		Action: &temporalsdkclient.ScheduleWorkflowAction{
			ID:        cfg.ScheduleID + "-run",
			Workflow:  calibrate.WorkflowName,
			Args:      []interface{}{in},
			TaskQueue: cfg.TaskQueue,
		},
	}
}
