package tasks

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysforge/sysforge/pkg/config"
	"github.com/sysforge/sysforge/pkg/errors"
	"github.com/sysforge/sysforge/pkg/execx"
	"github.com/sysforge/sysforge/pkg/fetch"
)

type archiveEntry struct {
	name    string
	content string
	mtime   time.Time
}

// buildTarGz assembles a dotfiles bundle in memory and returns the bytes
// plus their sha256 hex digest.
func buildTarGz(t *testing.T, entries []archiveEntry) ([]byte, string) {
	t.Helper()

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
	for _, e := range entries {
		require.NoError(t, tw.WriteHeader(&tar.Header{
			Name:     e.name,
			Mode:     0644,
			Size:     int64(len(e.content)),
			Typeflag: tar.TypeReg,
			ModTime:  e.mtime,
		}))
		_, err := tw.Write([]byte(e.content))
		require.NoError(t, err)
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	sum := sha256.Sum256(buf.Bytes())
	return buf.Bytes(), hex.EncodeToString(sum[:])
}

// dotfilesFixture serves an archive over httptest and returns a task wired
// to it plus a context with temp home and staging directories.
func dotfilesFixture(t *testing.T, archive []byte, checksum string) (*DotfilesTask, *Context) {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(archive)
	}))
	t.Cleanup(server.Close)

	task := &DotfilesTask{
		Downloader: fetch.NewDownloaderWith(&http.Client{Timeout: 5 * time.Second}, 1, time.Millisecond),
		SourceURL:  func(*config.Config) string { return server.URL },
	}

	cfg := archConfig()
	cfg.Dotfiles = config.DotfilesConfig{
		GdriveID:         "test-file-id",
		Checksum:         checksum,
		ChecksumRequired: true,
	}

	tc := archContext(t, execx.NewFakeRunner())
	tc.Config = cfg
	tc.HomeDir = t.TempDir()
	tc.StagingDir = t.TempDir()
	return task, tc
}

func TestDotfilesDownloadsVerifiesAndMerges(t *testing.T) {
	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	archive, checksum := buildTarGz(t, []archiveEntry{
		{name: "dotfiles/.zshrc", content: "export EDITOR=vim\n", mtime: old},
		{name: "dotfiles/.config/git/config", content: "[user]\n", mtime: old},
		{name: "dotfiles/README.md", content: "not a dotfile\n", mtime: old},
	})
	task, tc := dotfilesFixture(t, archive, checksum)

	require.NoError(t, task.Execute(context.Background(), tc))

	data, err := os.ReadFile(filepath.Join(tc.HomeDir, ".zshrc"))
	require.NoError(t, err)
	assert.Equal(t, "export EDITOR=vim\n", string(data))

	_, err = os.Stat(filepath.Join(tc.HomeDir, ".config", "git", "config"))
	assert.NoError(t, err)

	// Only dot-prefixed entries are merged
	_, err = os.Stat(filepath.Join(tc.HomeDir, "README.md"))
	assert.True(t, os.IsNotExist(err))

	// Staging is cleaned up afterwards
	_, err = os.Stat(filepath.Join(tc.StagingDir, archiveName))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(tc.StagingDir, extractDirName))
	assert.True(t, os.IsNotExist(err))
}

func TestDotfilesRequiredChecksumMismatchFails(t *testing.T) {
	archive, _ := buildTarGz(t, []archiveEntry{
		{name: "dotfiles/.zshrc", content: "evil\n", mtime: time.Now()},
	})
	task, tc := dotfilesFixture(t, archive,
		"0000000000000000000000000000000000000000000000000000000000000000")

	err := task.Execute(context.Background(), tc)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrChecksumMismatch))

	// Nothing was merged and the bad archive is gone
	_, statErr := os.Stat(filepath.Join(tc.HomeDir, ".zshrc"))
	assert.True(t, os.IsNotExist(statErr))
	_, statErr = os.Stat(filepath.Join(tc.StagingDir, archiveName))
	assert.True(t, os.IsNotExist(statErr))
}

func TestDotfilesRequiredWithoutHashFails(t *testing.T) {
	archive, _ := buildTarGz(t, []archiveEntry{
		{name: "dotfiles/.zshrc", content: "x\n", mtime: time.Now()},
	})
	task, tc := dotfilesFixture(t, archive, "")
	tc.Config.Security.Profile = config.ProfileStrict

	err := task.Execute(context.Background(), tc)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrChecksumMismatch))
}

func TestDotfilesOptionalChecksumMismatchContinues(t *testing.T) {
	archive, _ := buildTarGz(t, []archiveEntry{
		{name: "dotfiles/.zshrc", content: "still merged\n", mtime: time.Now().Add(-time.Hour)},
	})
	task, tc := dotfilesFixture(t, archive,
		"0000000000000000000000000000000000000000000000000000000000000000")
	tc.Config.Dotfiles.ChecksumRequired = false

	require.NoError(t, task.Execute(context.Background(), tc))

	data, err := os.ReadFile(filepath.Join(tc.HomeDir, ".zshrc"))
	require.NoError(t, err)
	assert.Equal(t, "still merged\n", string(data))
}

func TestDotfilesNewerLocalFileSurvivesMerge(t *testing.T) {
	old := time.Now().Add(-2 * time.Hour).Truncate(time.Second)
	archive, checksum := buildTarGz(t, []archiveEntry{
		{name: "dotfiles/.zshrc", content: "from archive\n", mtime: old},
	})
	task, tc := dotfilesFixture(t, archive, checksum)
	writeFileWithMtime(t, filepath.Join(tc.HomeDir, ".zshrc"), "local edits\n", old.Add(time.Hour))

	require.NoError(t, task.Execute(context.Background(), tc))

	data, err := os.ReadFile(filepath.Join(tc.HomeDir, ".zshrc"))
	require.NoError(t, err)
	assert.Equal(t, "local edits\n", string(data))
}

func TestDotfilesArchiveWithoutBundleRootMergesTopLevel(t *testing.T) {
	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	archive, checksum := buildTarGz(t, []archiveEntry{
		{name: ".vimrc", content: "set number\n", mtime: old},
	})
	task, tc := dotfilesFixture(t, archive, checksum)

	require.NoError(t, task.Execute(context.Background(), tc))

	data, err := os.ReadFile(filepath.Join(tc.HomeDir, ".vimrc"))
	require.NoError(t, err)
	assert.Equal(t, "set number\n", string(data))
}

func TestDotfilesNoSourceConfiguredIsNoop(t *testing.T) {
	archive, checksum := buildTarGz(t, []archiveEntry{
		{name: "dotfiles/.zshrc", content: "x\n", mtime: time.Now()},
	})
	task, tc := dotfilesFixture(t, archive, checksum)
	tc.Config.Dotfiles.GdriveID = ""

	require.NoError(t, task.Execute(context.Background(), tc))

	entries, err := os.ReadDir(tc.HomeDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDotfilesPlanDescribesPolicy(t *testing.T) {
	archive, checksum := buildTarGz(t, []archiveEntry{
		{name: "dotfiles/.zshrc", content: "x\n", mtime: time.Now()},
	})
	task, tc := dotfilesFixture(t, archive, checksum)

	plan, err := task.Plan(context.Background(), tc)
	require.NoError(t, err)
	require.Len(t, plan, 3)
	assert.Contains(t, plan[1], "required")
	assert.Contains(t, plan[2], tc.HomeDir)
}
