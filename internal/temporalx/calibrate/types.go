package calibrate

const (
	WorkflowName      = "learner_calibration"
	ActivityCalibrate = "learner_calibrate"
)

// Input is the workflow and activity argument. Zero values fall back to the
// worker's configuration.
type Input struct {
	CourseID      string `json:"course_id,omitempty"`
	Version       string `json:"version,omitempty"`
	Source        string `json:"source,omitempty"`
	MinAttempts   int    `json:"min_attempts,omitempty"`
	MaxIterations int    `json:"max_iterations,omitempty"`
	DryRun        bool   `json:"dry_run,omitempty"`
}

type Summary struct {
	RunID              string  `json:"run_id,omitempty"`
	Version            string  `json:"version"`
	Source             string  `json:"source"`
	NothingToCalibrate bool    `json:"nothing_to_calibrate"`
	Items              int     `json:"items"`
	Users              int     `json:"users"`
	Attempts           int     `json:"attempts"`
	Iterations         int     `json:"iterations"`
	Converged          bool    `json:"converged"`
	AbilityDelta       float64 `json:"ability_delta"`
	ItemDelta          float64 `json:"item_delta"`
	DurationMS         int64   `json:"duration_ms"`
}
