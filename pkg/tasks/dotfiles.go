package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sysforge/sysforge/pkg/config"
	"github.com/sysforge/sysforge/pkg/errors"
	"github.com/sysforge/sysforge/pkg/fetch"
	"github.com/sysforge/sysforge/pkg/logging"
	"github.com/sysforge/sysforge/pkg/paths"
)

const (
	archiveName    = "dotfiles.tar.gz"
	extractDirName = "extract"

	// bundleRoot is the directory inside the archive that holds the
	// dotfiles. When absent the archive root itself is merged.
	bundleRoot = "dotfiles"
)

// DotfilesTask downloads the dotfiles archive, verifies it according to
// the effective checksum policy and merges its dot-prefixed entries into
// the home directory with a newer-file-wins policy.
type DotfilesTask struct {
	// Downloader is replaceable for tests.
	Downloader *fetch.Downloader

	// SourceURL maps the config to a download URL. Defaults to the
	// Google Drive direct-download URL for dotfiles.gdrive_id.
	SourceURL func(cfg *config.Config) string
}

// NewDotfilesTask returns the dotfiles task with production wiring.
func NewDotfilesTask() *DotfilesTask {
	return &DotfilesTask{
		Downloader: fetch.NewDownloader(),
		SourceURL: func(cfg *config.Config) string {
			return fetch.GDriveURL(cfg.Dotfiles.GdriveID)
		},
	}
}

func (t *DotfilesTask) Name() string        { return "dotfiles" }
func (t *DotfilesTask) Description() string { return "Dotfiles download and merge" }
func (t *DotfilesTask) StateKey() string    { return t.Name() }

func (t *DotfilesTask) Plan(ctx context.Context, tc *Context) ([]string, error) {
	if tc.Config.Dotfiles.GdriveID == "" {
		return []string{"no dotfiles source configured, nothing to do"}, nil
	}

	home, err := t.homeDir(tc)
	if err != nil {
		return nil, err
	}

	return []string{
		fmt.Sprintf("download %s", t.SourceURL(tc.Config)),
		fmt.Sprintf("verify checksum (policy: %s)", tc.Config.ChecksumPolicy()),
		fmt.Sprintf("merge dotfiles into %s (newer file wins, backups kept)", home),
	}, nil
}

func (t *DotfilesTask) Execute(ctx context.Context, tc *Context) error {
	logger := logging.GetLogger("tasks.dotfiles")

	if tc.Config.Dotfiles.GdriveID == "" {
		logger.Warn().Msg("No dotfiles source configured, skipping download")
		return nil
	}

	home, err := t.homeDir(tc)
	if err != nil {
		return err
	}
	staging := t.stagingDir(tc)
	archive := filepath.Join(staging, archiveName)
	extractDir := filepath.Join(staging, extractDirName)
	defer func() {
		_ = os.Remove(archive)
		_ = os.RemoveAll(extractDir)
	}()

	url := t.SourceURL(tc.Config)
	logger.Info().Str("url", url).Msg("Downloading dotfiles archive")
	if err := t.Downloader.Download(ctx, url, archive); err != nil {
		return err
	}

	if err := t.verify(tc.Config, archive); err != nil {
		_ = os.Remove(archive)
		return err
	}

	if err := os.RemoveAll(extractDir); err != nil {
		return errors.Wrap(err, errors.ErrExtractFailed, "failed to clear staging directory")
	}
	if err := fetch.ExtractTarGz(archive, extractDir); err != nil {
		return err
	}

	srcRoot := extractDir
	if info, err := os.Stat(filepath.Join(extractDir, bundleRoot)); err == nil && info.IsDir() {
		srcRoot = filepath.Join(extractDir, bundleRoot)
	}

	stats, err := t.mergeDotEntries(srcRoot, home, tc)
	if err != nil {
		return err
	}

	logger.Info().
		Int("copied", stats.Copied).
		Int("kept", stats.Kept).
		Int("backed_up", stats.BackedUp).
		Str("home", home).
		Msg("Dotfiles merged")
	return nil
}

// verify enforces the effective checksum policy on the downloaded archive.
func (t *DotfilesTask) verify(cfg *config.Config, archive string) error {
	logger := logging.GetLogger("tasks.dotfiles")

	switch cfg.ChecksumPolicy() {
	case config.ChecksumRequired:
		if cfg.Dotfiles.Checksum == "" || cfg.Dotfiles.Checksum == "skip" {
			return errors.New(errors.ErrChecksumMismatch,
				"checksum verification is required but no hash is configured")
		}
		return fetch.VerifySHA256(archive, cfg.Dotfiles.Checksum)

	case config.ChecksumOptional:
		if err := fetch.VerifySHA256(archive, cfg.Dotfiles.Checksum); err != nil {
			logger.Warn().Err(err).Msg("Checksum mismatch, continuing per security profile")
		}
		return nil

	default: // ChecksumSkip
		if cfg.Dotfiles.Checksum == "" {
			logger.Warn().Msg("No checksum configured, archive not verified")
		} else {
			logger.Debug().Msg("Checksum verification skipped")
		}
		return nil
	}
}

// mergeDotEntries merges only the dot-prefixed top-level entries of
// srcRoot into home. Ambiguous conflicts (identical mtimes) are resolved
// by the prompter; --yes keeps the existing file since that is the
// non-destructive choice.
func (t *DotfilesTask) mergeDotEntries(srcRoot, home string, tc *Context) (MergeStats, error) {
	overwrite := func(rel string) bool {
		if tc.AutoYes {
			return false
		}
		return tc.Prompter.Confirm(
			fmt.Sprintf("%s has the same timestamp locally and in the archive. Overwrite it?", rel),
			false)
	}

	entries, err := os.ReadDir(srcRoot)
	if err != nil {
		return MergeStats{}, errors.Wrap(err, errors.ErrMergeFailed, "failed to read extracted archive")
	}

	var stats MergeStats
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		src := filepath.Join(srcRoot, entry.Name())
		dst := filepath.Join(home, entry.Name())

		if entry.IsDir() {
			dirStats, err := mergeDir(src, dst, overwrite)
			if err != nil {
				return stats, err
			}
			stats.add(dirStats)
			continue
		}

		fileStats, err := mergeFile(src, dst, entry.Name(), overwrite)
		if err != nil {
			return stats, errors.Wrapf(err, errors.ErrMergeFailed, "failed to merge %s", entry.Name())
		}
		stats.add(fileStats)
	}
	return stats, nil
}

func (t *DotfilesTask) homeDir(tc *Context) (string, error) {
	if tc.HomeDir != "" {
		return tc.HomeDir, nil
	}
	return paths.GetHomeDirectory()
}

func (t *DotfilesTask) stagingDir(tc *Context) string {
	if tc.StagingDir != "" {
		return tc.StagingDir
	}
	return paths.CacheDir()
}
