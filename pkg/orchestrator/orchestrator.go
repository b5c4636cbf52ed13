// Package orchestrator runs the provisioning tasks in order, tracking
// completion in the state store. It is the only writer of run state:
// tasks report success or failure, the orchestrator records it. A failed
// task never blocks the ones after it, and an interrupted run can resume
// where it stopped.
package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sysforge/sysforge/pkg/logging"
	"github.com/sysforge/sysforge/pkg/state"
	"github.com/sysforge/sysforge/pkg/tasks"
)

// Status is the lifecycle state of a task within a run.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Mode selects how a run treats previously recorded completions.
type Mode int

const (
	// ModeFresh runs normally, skipping tasks the store already records.
	ModeFresh Mode = iota

	// ModeResume is an explicit continuation of an interrupted run. It
	// behaves like ModeFresh; the distinction exists for reporting.
	ModeResume

	// ModeDryRun plans every task without executing or recording anything.
	ModeDryRun
)

func (m Mode) String() string {
	switch m {
	case ModeResume:
		return "resume"
	case ModeDryRun:
		return "dry-run"
	default:
		return "fresh"
	}
}

// TaskResult is the outcome of one task in a run.
type TaskResult struct {
	Name        string
	Description string
	Status      Status
	Err         error
	Duration    time.Duration

	// SkipReason says why a skipped task did not run.
	SkipReason string

	// Plan holds the planned actions under dry-run.
	Plan []string
}

// Summary is the outcome of a whole run.
type Summary struct {
	RunID   string
	Mode    Mode
	Results []TaskResult
}

// Failed reports whether any task failed.
func (s *Summary) Failed() bool {
	for _, r := range s.Results {
		if r.Status == StatusFailed {
			return true
		}
	}
	return false
}

// Counts tallies results by status.
func (s *Summary) Counts() map[Status]int {
	counts := make(map[Status]int)
	for _, r := range s.Results {
		counts[r.Status]++
	}
	return counts
}

// Options configures a run.
type Options struct {
	Mode Mode

	// Only restricts the run to the named tasks; empty means all.
	Only []string
}

// Orchestrator drives the task list against the state store.
type Orchestrator struct {
	store state.Store
	tasks []tasks.Task
	opts  Options
}

// New returns an orchestrator over the given tasks.
func New(store state.Store, taskList []tasks.Task, opts Options) *Orchestrator {
	return &Orchestrator{store: store, tasks: taskList, opts: opts}
}

// Run executes the tasks in order. Cancellation is cooperative: a task
// that is already running finishes, and the remaining ones are skipped.
func (o *Orchestrator) Run(ctx context.Context, tc *tasks.Context) *Summary {
	logger := logging.GetLogger("orchestrator")

	summary := &Summary{
		RunID: uuid.NewString(),
		Mode:  o.opts.Mode,
	}
	only := toSet(o.opts.Only)

	logger.Info().
		Str("run_id", summary.RunID).
		Str("mode", summary.Mode.String()).
		Int("tasks", len(o.tasks)).
		Msg("Run started")

	for _, task := range o.tasks {
		result := TaskResult{
			Name:        task.Name(),
			Description: task.Description(),
			Status:      StatusPending,
		}

		switch {
		case ctx.Err() != nil:
			result.Status = StatusSkipped
			result.SkipReason = "run interrupted"

		case len(only) > 0 && !only[task.Name()]:
			result.Status = StatusSkipped
			result.SkipReason = "not selected"

		case o.store.IsComplete(task.StateKey()):
			result.Status = StatusSkipped
			result.SkipReason = "already completed"
			if ts, ok := o.store.CompletionTime(task.StateKey()); ok {
				logger.Debug().
					Str("task", task.Name()).
					Time("completed_at", time.Unix(int64(ts), 0)).
					Msg("Task already completed")
			}

		default:
			result = o.runTask(ctx, task, tc, result)
		}

		logTaskResult(logger, result)
		summary.Results = append(summary.Results, result)
	}

	logger.Info().
		Str("run_id", summary.RunID).
		Bool("failed", summary.Failed()).
		Msg("Run finished")
	return summary
}

// runTask plans or executes a single task and records completion.
func (o *Orchestrator) runTask(ctx context.Context, task tasks.Task, tc *tasks.Context, result TaskResult) TaskResult {
	result.Status = StatusRunning
	started := time.Now()

	if o.opts.Mode == ModeDryRun {
		plan, err := task.Plan(ctx, tc)
		result.Duration = time.Since(started)
		if err != nil {
			result.Status = StatusFailed
			result.Err = err
			return result
		}
		result.Status = StatusCompleted
		result.Plan = plan
		return result
	}

	if err := task.Execute(ctx, tc); err != nil {
		result.Duration = time.Since(started)
		result.Status = StatusFailed
		result.Err = err
		return result
	}

	if err := o.store.MarkComplete(task.StateKey(), epochSeconds(time.Now())); err != nil {
		result.Duration = time.Since(started)
		result.Status = StatusFailed
		result.Err = err
		return result
	}

	result.Duration = time.Since(started)
	result.Status = StatusCompleted
	return result
}

// epochSeconds converts a time to fractional unix seconds, the format the
// state file records.
func epochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func toSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, name := range names {
		set[name] = true
	}
	return set
}

func logTaskResult(logger zerolog.Logger, result TaskResult) {
	event := logger.Info()
	if result.Status == StatusFailed {
		event = logger.Error().Err(result.Err)
	}
	if result.SkipReason != "" {
		event = event.Str("reason", result.SkipReason)
	}
	event.
		Str("task", result.Name).
		Str("status", string(result.Status)).
		Dur("duration", result.Duration).
		Msg("Task finished")
}
