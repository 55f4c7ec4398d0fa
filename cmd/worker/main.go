package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/yungbote/neurobridge-adaptive/internal/app"
	"github.com/yungbote/neurobridge-adaptive/internal/platform/envutil"
	"github.com/yungbote/neurobridge-adaptive/internal/temporalx"
	"github.com/yungbote/neurobridge-adaptive/internal/temporalx/calibrate"
	"github.com/yungbote/neurobridge-adaptive/internal/temporalx/temporalworker"
)

func main() {
	application, err := app.New(app.Options{})
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()
	log := application.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tcfg := temporalx.LoadConfig()
	tc, err := temporalx.NewClient(ctx, log, tcfg)
	if err != nil {
		log.Error("Temporal client init failed", "error", err)
		application.Close()
		os.Exit(1)
	}
	if tc == nil {
		log.Error("TEMPORAL_ADDRESS missing; worker cannot start")
		application.Close()
		os.Exit(1)
	}
	defer tc.Close()

	runner, err := temporalworker.NewRunner(log, tcfg, tc, application.Services.Calibration)
	if err != nil {
		log.Error("Temporal worker init failed", "error", err)
		application.Close()
		os.Exit(1)
	}

	if err := runner.Start(ctx); err != nil {
		log.Error("Temporal worker start failed", "error", err)
		application.Close()
		os.Exit(1)
	}

	in := calibrate.Input{
		CourseID:    envutil.String("CALIB_SCHEDULE_COURSE_ID", ""),
		MinAttempts: envutil.Int("CALIB_SCHEDULE_MIN_ATTEMPTS", 0),
	}
	if err := runner.EnsureSchedule(ctx, in); err != nil {
		log.Warn("Calibration schedule not ensured", "error", err)
	}

	<-ctx.Done()
	log.Info("Shutting down worker")
}
