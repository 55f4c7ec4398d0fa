package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/yungbote/neurobridge-adaptive/internal/app"
	"github.com/yungbote/neurobridge-adaptive/internal/learning/calibration"
	"github.com/yungbote/neurobridge-adaptive/internal/services"
)

func main() {
	var (
		course      string
		version     string
		source      string
		configFile  string
		minAttempts int
		iterations  int
		dryRun      bool
		asJSON      bool
	)
	flag.StringVar(&course, "course", "", "restrict calibration to one course_id")
	flag.StringVar(&version, "version", "", "version tag for written parameters (default: UTC timestamp)")
	flag.StringVar(&source, "source", "", "source tag for written parameters (default: offline-script)")
	flag.StringVar(&configFile, "config", "", "optional YAML file overriding calibration settings")
	flag.IntVar(&minAttempts, "min-attempts", 0, "minimum attempts per item")
	flag.IntVar(&iterations, "iterations", 0, "maximum training iterations")
	flag.BoolVar(&dryRun, "dry-run", false, "train and report without writing parameters")
	flag.BoolVar(&asJSON, "json", false, "print the report as JSON")
	flag.Parse()

	req := services.CalibrationRequest{
		Version: strings.TrimSpace(version),
		Source:  strings.TrimSpace(source),
		DryRun:  dryRun,
		Overrides: calibration.Config{
			MinAttempts:   minAttempts,
			MaxIterations: iterations,
		},
	}
	if c := strings.TrimSpace(course); c != "" {
		id, err := uuid.Parse(c)
		if err != nil {
			fmt.Printf("invalid -course %q: %v\n", c, err)
			os.Exit(2)
		}
		req.CourseID = &id
	}

	application, err := app.New(app.Options{ConfigFile: configFile})
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rep, err := application.Services.Calibration.Run(ctx, req)
	if err != nil {
		application.Log.Error("Calibration failed", "error", err)
		application.Close()
		os.Exit(1)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		_ = enc.Encode(rep)
		return
	}
	printReport(rep)
}

func printReport(rep *services.CalibrationReport) {
	if rep.NothingToCalibrate {
		fmt.Printf("nothing to calibrate; loaded=%d dropped_items=%d (min_attempts=%d)\n",
			rep.Filter.Loaded, rep.Filter.DroppedItems, rep.Config.MinAttempts)
		return
	}
	mode := "written"
	if rep.DryRun {
		mode = "dry-run"
	}
	fmt.Printf("calibrated items=%d users=%d attempts=%d iterations=%d converged=%t (%s)\n",
		rep.Items, rep.Users, rep.Attempts, rep.Iterations, rep.Converged, mode)
	fmt.Printf("version=%s source=%s ability_delta=%.6f item_delta=%.6f duration=%s\n",
		rep.Version, rep.Source, rep.AbilityDelta, rep.ItemDelta, rep.Duration)
	prev := rep.PreviousVersion
	if prev == "" {
		prev = "none"
	}
	fmt.Printf("previous_version=%s new_items=%d max_difficulty_shift=%.4f max_discrimination_shift=%.4f\n",
		prev, rep.NewItems, rep.MaxDifficultyShift, rep.MaxDiscriminationShift)
	if rep.RunID != uuid.Nil {
		fmt.Printf("run_id=%s\n", rep.RunID)
	}
}
