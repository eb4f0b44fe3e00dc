// Package export copies library tracks to a directory or device, converting
// FLAC to MP3 on request and rewriting tags from library metadata.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

const (
	maxRetries       = 3
	initialBackoff   = 200 * time.Millisecond
	maxBackoff       = 2 * time.Second
	operationTimeout = 5 * time.Minute
)

// Exporter handles copying and converting files for export.
type Exporter struct {
	ffmpeg string
}

// NewExporter creates a new Exporter. ffmpeg is the converter binary,
// "ffmpeg" when empty.
func NewExporter(ffmpeg string) *Exporter {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	return &Exporter{ffmpeg: ffmpeg}
}

// NeedsConversion returns true if the file extension requires conversion.
func NeedsConversion(ext string) bool {
	return strings.EqualFold(ext, ".flac")
}

// CopyFile copies a file from src to dst.
// Creates parent directories if needed.
// Skips if destination already exists.
func (e *Exporter) CopyFile(ctx context.Context, src, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	// removable drives drop writes when busy
	return retryWithBackoff(ctx, "copy", func() error {
		if err := copyFile(src, dst); err != nil {
			os.Remove(dst)
			return err
		}
		return nil
	})
}

// ConvertToMP3 converts a FLAC file to MP3 using ffmpeg.
// Uses 320kbps CBR preset.
func (e *Exporter) ConvertToMP3(ctx context.Context, src, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	cmd := exec.CommandContext(ctx, e.ffmpeg,
		"-i", src,
		"-codec:a", "libmp3lame",
		"-b:a", "320k",
		"-map_metadata", "0",
		"-id3v2_version", "3",
		"-y",
		dst,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		os.Remove(dst)
		return fmt.Errorf("ffmpeg conversion failed: %w\n%s", err, string(output))
	}
	return nil
}

// ExportFile exports a single track, converting if needed. It returns the
// path actually written.
func (e *Exporter) ExportFile(ctx context.Context, src, dst string, convert bool) (string, error) {
	if convert && NeedsConversion(filepath.Ext(src)) {
		dst = strings.TrimSuffix(dst, filepath.Ext(dst)) + ".mp3"
		return dst, e.ConvertToMP3(ctx, src, dst)
	}
	return dst, e.CopyFile(ctx, src, dst)
}

func copyFile(src, dst string) error {
	srcFile, err := os.Open(src)
	if err != nil {
		return err
	}
	defer srcFile.Close()

	dstFile, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer dstFile.Close()

	if _, err := io.Copy(dstFile, srcFile); err != nil {
		return err
	}
	return dstFile.Close()
}

// retryWithBackoff executes an operation with exponential backoff retry.
// Returns the last error if all retries fail.
func retryWithBackoff(ctx context.Context, operation string, fn func() error) error {
	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("%s: canceled after %d attempts: %w", operation, attempt, lastErr)
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxBackoff)
		}

		done := make(chan error, 1)
		go func() {
			done <- fn()
		}()

		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: canceled: %w", operation, ctx.Err())
		case err := <-done:
			if err == nil {
				return nil
			}
			lastErr = err
			if !isRetryableError(err) {
				return fmt.Errorf("%s: %w", operation, err)
			}
		case <-time.After(operationTimeout):
			lastErr = fmt.Errorf("timeout after %v", operationTimeout)
		}
	}

	return fmt.Errorf("%s: failed after %d attempts: %w", operation, maxRetries+1, lastErr)
}

// isRetryableError reports whether err looks like a lock or a transient
// I/O failure.
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, os.ErrNotExist) {
		return false
	}
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, s := range []string{
		"locked", "in use", "busy", "permission denied", "access denied",
		"timeout", "connection", "network", "i/o", "temporary",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
