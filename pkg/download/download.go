// pkg/download/download.go - HTTPS payload download for the installer module.

package download

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/igpadmins/igptools/pkg/logging"
	"github.com/igpadmins/igptools/pkg/retry"
)

const Timeout = 10 * time.Minute

// Options controls a single download.
type Options struct {
	// SHA256 is the expected hex digest; empty skips verification.
	SHA256 string
	// Retries overrides the default retry count when > 0.
	Retries int
}

// DownloadFile fetches url into dest. The payload lands in a temporary
// file next to dest and is renamed into place only after the transfer (and
// hash check, when requested) succeeds, so a half-written file can never be
// mistaken for the real thing.
func DownloadFile(url, dest string, opts Options) error {
	if url == "" {
		return fmt.Errorf("invalid parameters: url cannot be empty")
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	retries := opts.Retries
	if retries <= 0 {
		retries = 3
	}
	cfg := retry.RetryConfig{MaxRetries: retries, InitialInterval: 2 * time.Second, Multiplier: 2.0}

	return retry.Retry(cfg, func() error {
		return downloadOnce(url, dest, opts.SHA256)
	})
}

func downloadOnce(url, dest, wantSHA256 string) error {
	logging.Info("Downloading", "url", url, "dest", dest)

	client := &http.Client{Timeout: Timeout}
	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("download request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected HTTP status code: %d for %s", resp.StatusCode, url)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".partial-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(tmp, hasher), resp.Body)
	closeErr := tmp.Close()
	if err != nil {
		return fmt.Errorf("download interrupted after %d bytes: %w", written, err)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close temp file: %w", closeErr)
	}

	if wantSHA256 != "" {
		got := hex.EncodeToString(hasher.Sum(nil))
		if !strings.EqualFold(got, wantSHA256) {
			return fmt.Errorf("hash mismatch for %s: expected %s, got %s", url, wantSHA256, got)
		}
		logging.Debug("Hash verified", "sha256", got)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("failed to move download into place: %w", err)
	}

	logging.Info("Download complete", "dest", dest, "bytes", written)
	return nil
}
