package orchestrator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysforge/sysforge/pkg/errors"
	"github.com/sysforge/sysforge/pkg/state"
	"github.com/sysforge/sysforge/pkg/tasks"
)

// fakeTask is a scriptable task for orchestration tests.
type fakeTask struct {
	name       string
	executeErr error
	onExecute  func()

	Executions int
	PlanCalls  int
}

func (t *fakeTask) Name() string        { return t.name }
func (t *fakeTask) Description() string { return t.name + " task" }
func (t *fakeTask) StateKey() string    { return t.name }

func (t *fakeTask) Plan(context.Context, *tasks.Context) ([]string, error) {
	t.PlanCalls++
	return []string{"would do " + t.name}, nil
}

func (t *fakeTask) Execute(context.Context, *tasks.Context) error {
	t.Executions++
	if t.onExecute != nil {
		t.onExecute()
	}
	return t.executeErr
}

func fakeTasks() (*fakeTask, *fakeTask, *fakeTask, []tasks.Task) {
	a := &fakeTask{name: "alpha"}
	b := &fakeTask{name: "beta"}
	c := &fakeTask{name: "gamma"}
	return a, b, c, []tasks.Task{a, b, c}
}

func TestRunExecutesAllTasksInOrder(t *testing.T) {
	a, b, c, list := fakeTasks()
	store := state.NewMemoryStore()

	summary := New(store, list, Options{}).Run(context.Background(), &tasks.Context{})

	require.Len(t, summary.Results, 3)
	assert.Equal(t, []string{"alpha", "beta", "gamma"},
		[]string{summary.Results[0].Name, summary.Results[1].Name, summary.Results[2].Name})
	for _, r := range summary.Results {
		assert.Equal(t, StatusCompleted, r.Status)
	}
	assert.Equal(t, 1, a.Executions)
	assert.Equal(t, 1, b.Executions)
	assert.Equal(t, 1, c.Executions)
	assert.False(t, summary.Failed())
	assert.NotEmpty(t, summary.RunID)
}

func TestSecondRunSkipsEverything(t *testing.T) {
	a, b, c, list := fakeTasks()
	store := state.NewMemoryStore()
	orch := New(store, list, Options{})

	orch.Run(context.Background(), &tasks.Context{})
	before := store.Completed()

	summary := orch.Run(context.Background(), &tasks.Context{})
	for _, r := range summary.Results {
		assert.Equal(t, StatusSkipped, r.Status)
		assert.Equal(t, "already completed", r.SkipReason)
	}
	assert.Equal(t, 1, a.Executions)
	assert.Equal(t, 1, b.Executions)
	assert.Equal(t, 1, c.Executions)
	assert.Equal(t, before, store.Completed(), "timestamps must not change on a skip")
}

func TestResumeRunsOnlyIncompleteTasks(t *testing.T) {
	a, b, c, list := fakeTasks()
	store := state.NewMemoryStoreWith(map[string]float64{"alpha": 1700000000.5})

	summary := New(store, list, Options{Mode: ModeResume}).Run(context.Background(), &tasks.Context{})

	assert.Equal(t, StatusSkipped, summary.Results[0].Status)
	assert.Equal(t, StatusCompleted, summary.Results[1].Status)
	assert.Equal(t, StatusCompleted, summary.Results[2].Status)
	assert.Equal(t, 0, a.Executions)
	assert.Equal(t, 1, b.Executions)
	assert.Equal(t, 1, c.Executions)

	ts, ok := store.CompletionTime("alpha")
	require.True(t, ok)
	assert.Equal(t, 1700000000.5, ts, "resume must not rewrite prior completions")
}

func TestDryRunPlansWithoutExecutingOrRecording(t *testing.T) {
	a, b, _, list := fakeTasks()
	store := state.NewMemoryStore()

	summary := New(store, list, Options{Mode: ModeDryRun}).Run(context.Background(), &tasks.Context{})

	for _, r := range summary.Results {
		assert.Equal(t, StatusCompleted, r.Status)
		assert.Equal(t, []string{"would do " + r.Name}, r.Plan)
	}
	assert.Equal(t, 0, a.Executions)
	assert.Equal(t, 1, a.PlanCalls)
	assert.Equal(t, 1, b.PlanCalls)
	assert.Equal(t, 0, store.Writes, "dry-run must not touch the state store")
	assert.Empty(t, store.Completed())
}

func TestFailedTaskDoesNotBlockLaterTasks(t *testing.T) {
	a, b, c, list := fakeTasks()
	b.executeErr = errors.New(errors.ErrPackageInstall, "install blew up")
	store := state.NewMemoryStore()

	summary := New(store, list, Options{}).Run(context.Background(), &tasks.Context{})

	assert.Equal(t, StatusCompleted, summary.Results[0].Status)
	assert.Equal(t, StatusFailed, summary.Results[1].Status)
	assert.True(t, errors.IsErrorCode(summary.Results[1].Err, errors.ErrPackageInstall))
	assert.Equal(t, StatusCompleted, summary.Results[2].Status)
	assert.Equal(t, 1, c.Executions)
	assert.True(t, summary.Failed())

	assert.True(t, store.IsComplete("alpha"))
	assert.False(t, store.IsComplete("beta"), "a failed task must not be recorded complete")
	assert.True(t, store.IsComplete("gamma"))
	_ = a
}

func TestOnlyFilterSkipsUnselectedTasks(t *testing.T) {
	a, b, c, list := fakeTasks()
	store := state.NewMemoryStore()

	summary := New(store, list, Options{Only: []string{"beta"}}).Run(context.Background(), &tasks.Context{})

	assert.Equal(t, StatusSkipped, summary.Results[0].Status)
	assert.Equal(t, "not selected", summary.Results[0].SkipReason)
	assert.Equal(t, StatusCompleted, summary.Results[1].Status)
	assert.Equal(t, StatusSkipped, summary.Results[2].Status)
	assert.Equal(t, 0, a.Executions)
	assert.Equal(t, 1, b.Executions)
	assert.Equal(t, 0, c.Executions)
}

func TestCancellationSkipsRemainingTasks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a, b, c, list := fakeTasks()
	a.onExecute = cancel // interrupt arrives while the first task runs

	store := state.NewMemoryStore()
	summary := New(store, list, Options{}).Run(ctx, &tasks.Context{})

	assert.Equal(t, StatusCompleted, summary.Results[0].Status)
	assert.Equal(t, StatusSkipped, summary.Results[1].Status)
	assert.Equal(t, "run interrupted", summary.Results[1].SkipReason)
	assert.Equal(t, StatusSkipped, summary.Results[2].Status)
	assert.Equal(t, 0, b.Executions)
	assert.Equal(t, 0, c.Executions)

	// The finished task is still recorded, so the next run resumes after it
	assert.True(t, store.IsComplete("alpha"))
}

func TestResetProducesStrictlyNewerTimestamps(t *testing.T) {
	_, _, _, list := fakeTasks()
	store := state.NewMemoryStore()
	orch := New(store, list, Options{})

	orch.Run(context.Background(), &tasks.Context{})
	before := store.Completed()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, store.Reset())
	orch.Run(context.Background(), &tasks.Context{})

	after := store.Completed()
	require.Len(t, after, len(before))
	for key, ts := range after {
		assert.Greater(t, ts, before[key])
	}
}

// failingStore rejects writes to exercise the state-write failure path.
type failingStore struct {
	*state.MemoryStore
}

func (s *failingStore) MarkComplete(string, float64) error {
	return errors.New(errors.ErrStateWrite, "disk full")
}

func TestStateWriteFailureFailsTheTask(t *testing.T) {
	a, _, _, list := fakeTasks()
	store := &failingStore{MemoryStore: state.NewMemoryStore()}

	summary := New(store, list, Options{}).Run(context.Background(), &tasks.Context{})

	assert.Equal(t, StatusFailed, summary.Results[0].Status)
	assert.True(t, errors.IsErrorCode(summary.Results[0].Err, errors.ErrStateWrite))
	assert.Equal(t, 1, a.Executions)
	assert.True(t, summary.Failed())
}

func TestCountsTallyStatuses(t *testing.T) {
	_, b, _, list := fakeTasks()
	b.executeErr = errors.New(errors.ErrInternal, "boom")
	store := state.NewMemoryStoreWith(map[string]float64{"gamma": 1.0})

	summary := New(store, list, Options{}).Run(context.Background(), &tasks.Context{})

	counts := summary.Counts()
	assert.Equal(t, 1, counts[StatusCompleted])
	assert.Equal(t, 1, counts[StatusFailed])
	assert.Equal(t, 1, counts[StatusSkipped])
}
