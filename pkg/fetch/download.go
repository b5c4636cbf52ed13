// Package fetch downloads the dotfiles archive, verifies its checksum and
// unpacks it. Network calls are bounded by a timeout and retried with
// backoff on transient failures.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sysforge/sysforge/pkg/errors"
	"github.com/sysforge/sysforge/pkg/logging"
)

const (
	// DefaultTimeout bounds a single download attempt.
	DefaultTimeout = 5 * time.Minute

	// defaultAttempts is how many times a transient failure is retried.
	defaultAttempts = 3

	// defaultBackoff is the initial retry delay; it doubles per attempt.
	defaultBackoff = 2 * time.Second
)

// GDriveURL builds the direct-download URL for a Google Drive file ID.
func GDriveURL(fileID string) string {
	return fmt.Sprintf("https://drive.google.com/uc?export=download&id=%s", fileID)
}

// Downloader fetches files over HTTP with bounded retries.
type Downloader struct {
	client   *http.Client
	attempts int
	backoff  time.Duration
}

// NewDownloader returns a Downloader with production timeouts.
func NewDownloader() *Downloader {
	return &Downloader{
		client:   &http.Client{Timeout: DefaultTimeout},
		attempts: defaultAttempts,
		backoff:  defaultBackoff,
	}
}

// NewDownloaderWith returns a Downloader with explicit knobs, for tests.
func NewDownloaderWith(client *http.Client, attempts int, backoff time.Duration) *Downloader {
	return &Downloader{client: client, attempts: attempts, backoff: backoff}
}

// Download fetches url into dest. Transient failures (network errors,
// HTTP 5xx) are retried with exponential backoff; client errors (4xx)
// fail immediately. A partial file is removed on failure.
func (d *Downloader) Download(ctx context.Context, url, dest string) error {
	logger := logging.GetLogger("fetch")

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return errors.Wrap(err, errors.ErrDownloadFailed, "failed to create download directory")
	}

	var lastErr error
	backoff := d.backoff
	for attempt := 1; attempt <= d.attempts; attempt++ {
		if attempt > 1 {
			logger.Warn().
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Err(lastErr).
				Msg("Retrying download")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return errors.Wrap(ctx.Err(), errors.ErrDownloadFailed, "download cancelled")
			}
			backoff *= 2
		}

		retryable, err := d.tryDownload(ctx, url, dest)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retryable {
			break
		}
	}

	_ = os.Remove(dest)
	return errors.Wrapf(lastErr, errors.ErrDownloadFailed, "failed to download %s", url)
}

// tryDownload performs one attempt. The bool reports whether a failure is
// worth retrying.
func (d *Downloader) tryDownload(ctx context.Context, url, dest string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false, err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return true, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode >= 500:
		return true, fmt.Errorf("server error: %s", resp.Status)
	case resp.StatusCode >= 400:
		return false, fmt.Errorf("request failed: %s", resp.Status)
	}

	f, err := os.Create(dest)
	if err != nil {
		return false, err
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(dest)
		return true, err
	}
	return false, f.Close()
}
