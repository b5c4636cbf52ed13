package execx

import (
	"context"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysforge/sysforge/pkg/errors"
)

func TestRunCapturesOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test uses POSIX tools")
	}

	r := NewRunner(false)
	result, err := r.Run(context.Background(), "echo", "hello")
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, result.Stdout, "hello")
	assert.True(t, result.Success())
}

func TestRunNonZeroExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test uses POSIX tools")
	}

	r := NewRunner(false)
	result, err := r.Run(context.Background(), "false")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCommandFailed))
	assert.NotEqual(t, 0, result.ExitCode)
}

func TestRunTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test uses POSIX tools")
	}

	r := NewRunnerWithTimeout(false, 50*time.Millisecond)
	_, err := r.Run(context.Background(), "sleep", "5")
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrCommandTimeout))
}

func TestDryRunDoesNotExecute(t *testing.T) {
	r := NewRunner(true)
	result, err := r.Run(context.Background(), "definitely-not-a-real-binary", "--flag")
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
}

func TestQueryRunsEvenUnderDryRun(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test uses POSIX tools")
	}

	r := NewRunner(true)
	result, err := r.Query(context.Background(), "echo", "probe")
	require.NoError(t, err)
	assert.Contains(t, result.Stdout, "probe")
}

func TestLookPath(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("test uses POSIX tools")
	}

	r := NewRunner(false)
	assert.True(t, r.LookPath("sh"))
	assert.False(t, r.LookPath("definitely-not-a-real-binary"))
}

func TestFakeRunnerScripting(t *testing.T) {
	fake := NewFakeRunner().
		Script("pacman -Q git", Result{Stdout: "git 2.45.0-1", ExitCode: 0}).
		ScriptFailure("pacman -Q ripgrep", "package not found").
		SetAvailable("pacman", true)

	result, err := fake.Run(context.Background(), "pacman", "-Q", "git")
	require.NoError(t, err)
	assert.Contains(t, result.Stdout, "git")

	_, err = fake.Run(context.Background(), "pacman", "-Q", "ripgrep")
	require.Error(t, err)

	assert.True(t, fake.LookPath("pacman"))
	assert.False(t, fake.LookPath("apt-get"))
	assert.True(t, fake.CalledWith("pacman -Q git"))
	assert.Len(t, fake.Calls, 2)
}
