package calibrate

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/yungbote/neurobridge-adaptive/internal/learning/calibration"
	"github.com/yungbote/neurobridge-adaptive/internal/platform/logger"
	"github.com/yungbote/neurobridge-adaptive/internal/services"
)

const ErrTypeInvalidInput = "InvalidCalibrationInput"

type Activities struct {
	Log         *logger.Logger
	Calibration services.CalibrationService
	// HeartbeatEvery defaults to 10s.
	HeartbeatEvery time.Duration
}

func (a *Activities) Calibrate(ctx context.Context, in Input) (Summary, error) {
	if a == nil || a.Calibration == nil {
		return Summary{}, temporal.NewNonRetryableApplicationError("calibration activity not configured", ErrTypeInvalidInput, nil)
	}
	req := services.CalibrationRequest{
		Version: in.Version,
		Source:  in.Source,
		DryRun:  in.DryRun,
		Overrides: calibration.Config{
			MinAttempts:   in.MinAttempts,
			MaxIterations: in.MaxIterations,
		},
	}
	if v := strings.TrimSpace(in.CourseID); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return Summary{}, temporal.NewNonRetryableApplicationError("invalid course_id", ErrTypeInvalidInput, err)
		}
		req.CourseID = &id
	}

	stop := a.startHeartbeat(ctx, in.Version)
	defer stop()

	rep, err := a.Calibration.Run(ctx, req)
	if err != nil {
		return Summary{}, err
	}
	out := Summary{
		Version:            rep.Version,
		Source:             rep.Source,
		NothingToCalibrate: rep.NothingToCalibrate,
		Items:              rep.Items,
		Users:              rep.Users,
		Attempts:           rep.Attempts,
		Iterations:         rep.Iterations,
		Converged:          rep.Converged,
		AbilityDelta:       rep.AbilityDelta,
		ItemDelta:          rep.ItemDelta,
		DurationMS:         rep.Duration.Milliseconds(),
	}
	if rep.RunID != uuid.Nil {
		out.RunID = rep.RunID.String()
	}
	return out, nil
}

// startHeartbeat keeps the activity alive while training holds the goroutine.
func (a *Activities) startHeartbeat(ctx context.Context, version string) func() {
	every := a.HeartbeatEvery
	if every <= 0 {
		every = 10 * time.Second
	}
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(every)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-t.C:
				activity.RecordHeartbeat(ctx, version)
			}
		}
	}()
	return func() { close(done) }
}
