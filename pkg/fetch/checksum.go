package fetch

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"strings"

	"github.com/sysforge/sysforge/pkg/errors"
)

// SHA256File computes the SHA-256 digest of a file as a hex string.
func SHA256File(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func() { _ = f.Close() }()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifySHA256 checks a file against an expected hex digest. A mismatch
// returns ErrChecksumMismatch carrying both digests.
func VerifySHA256(path, expected string) error {
	actual, err := SHA256File(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrChecksumMismatch, "failed to hash file")
	}
	if !strings.EqualFold(actual, expected) {
		return errors.New(errors.ErrChecksumMismatch, "archive checksum does not match").
			WithDetail("expected", strings.ToLower(expected)).
			WithDetail("actual", actual)
	}
	return nil
}
