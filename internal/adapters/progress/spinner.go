package progress

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/ovr-platform/ovr-deploy/internal/usecase"
)

// SpinnerProgressReporter shows the run's stages behind a spinner on stderr
type SpinnerProgressReporter struct {
	out            io.Writer
	spinner        *spinner.Spinner
	stages         []stageInfo
	currentStage   usecase.ExecutionStage
	stageStartTime time.Time
}

type stageInfo struct {
	Stage     usecase.ExecutionStage
	StartTime time.Time
	EndTime   time.Time
	Status    string
	Message   string
}

// NewSpinnerProgressReporter creates a new spinner-based progress reporter
func NewSpinnerProgressReporter() *SpinnerProgressReporter {
	return newSpinnerProgressReporter(os.Stderr)
}

func newSpinnerProgressReporter(out io.Writer) *SpinnerProgressReporter {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(out))
	s.HideCursor = false

	return &SpinnerProgressReporter{
		out:     out,
		spinner: s,
		stages:  []stageInfo{},
	}
}

// OnProgress moves to the event's stage and updates the spinner text
func (r *SpinnerProgressReporter) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	if event.Stage != "" && event.Stage != r.currentStage {
		r.enterStage(event.Stage)
	}
	if len(r.stages) > 0 {
		r.stages[len(r.stages)-1].Message = event.Message
	}

	if event.Stage == usecase.StageCompleted {
		r.spinner.Stop()
		return
	}
	if event.Spinner {
		r.spinner.Suffix = " " + r.display()
		if !r.spinner.Active() {
			r.spinner.Start()
		}
	} else if r.spinner.Active() {
		r.spinner.Stop()
	}
}

// Info prints an info message
func (r *SpinnerProgressReporter) Info(message string) {
	r.pause(func() {
		color.New(color.FgCyan).Fprintln(r.out, message)
	})
}

// Error prints an error message
func (r *SpinnerProgressReporter) Error(message string) {
	r.pause(func() {
		color.New(color.FgRed).Fprintln(r.out, message)
	})
}

// pause stops the spinner while fn writes so lines are not interleaved
func (r *SpinnerProgressReporter) pause(fn func()) {
	wasActive := r.spinner.Active()
	if wasActive {
		r.spinner.Stop()
	}
	fn()
	if wasActive {
		r.spinner.Start()
	}
}

func (r *SpinnerProgressReporter) enterStage(stage usecase.ExecutionStage) {
	if r.currentStage != "" && len(r.stages) > 0 {
		idx := len(r.stages) - 1
		r.stages[idx].EndTime = time.Now()
		r.stages[idx].Status = "completed"
	}

	r.currentStage = stage
	r.stageStartTime = time.Now()
	status := "running"
	if stage == usecase.StageCompleted {
		status = "completed"
	}
	r.stages = append(r.stages, stageInfo{
		Stage:     stage,
		StartTime: r.stageStartTime,
		Status:    status,
	})
}

// display renders "✓ Resolving (12ms) → ● Submitting (3s) Submitting OVRMarketplace"
func (r *SpinnerProgressReporter) display() string {
	parts := make([]string, 0, len(r.stages))
	for _, stage := range r.stages {
		var icon string
		var stageColor *color.Color
		switch stage.Status {
		case "completed":
			icon = "✓"
			stageColor = color.New(color.FgGreen)
		case "running":
			icon = "●"
			stageColor = color.New(color.FgYellow)
		default:
			icon = "○"
			stageColor = color.New(color.FgWhite)
		}

		duration := ""
		if !stage.EndTime.IsZero() {
			duration = fmt.Sprintf(" (%s)", stage.EndTime.Sub(stage.StartTime).Round(time.Millisecond))
		} else if stage.Status == "running" {
			duration = fmt.Sprintf(" (%s)", time.Since(stage.StartTime).Round(time.Second))
		}
		parts = append(parts, fmt.Sprintf("%s %s%s", icon, stageColor.Sprint(string(stage.Stage)), duration))
	}

	display := strings.Join(parts, " → ")
	if len(r.stages) > 0 {
		if msg := r.stages[len(r.stages)-1].Message; msg != "" {
			display += " " + msg
		}
	}
	return display
}

var _ usecase.ProgressSink = (*SpinnerProgressReporter)(nil)
