package calibrate

import (
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	types "github.com/yungbote/neurobridge-adaptive/internal/domain"
)

// Workflow runs one calibration. Scheduled runs arrive without a version and
// are stamped with the workflow start time.
func Workflow(ctx workflow.Context, in Input) (Summary, error) {
	if strings.TrimSpace(in.Version) == "" {
		in.Version = workflow.Now(ctx).UTC().Format("20060102T150405Z")
	}
	if strings.TrimSpace(in.Source) == "" {
		in.Source = types.SourceScheduled
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Hour,
		HeartbeatTimeout:    time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:        30 * time.Second,
			BackoffCoefficient:     2,
			MaximumInterval:        10 * time.Minute,
			MaximumAttempts:        3,
			NonRetryableErrorTypes: []string{ErrTypeInvalidInput},
		},
	})

	var out Summary
	if err := workflow.ExecuteActivity(ctx, ActivityCalibrate, in).Get(ctx, &out); err != nil {
		return Summary{}, err
	}
	workflow.GetLogger(ctx).Info("Calibration workflow finished",
		"version", out.Version,
		"items", out.Items,
		"converged", out.Converged,
		"nothing_to_calibrate", out.NothingToCalibrate,
	)
	return out, nil
}
