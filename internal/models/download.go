package models

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"captioner/internal/fileutil"
	"captioner/internal/logging"
	"captioner/internal/services"
)

// remoteFile is one downloadable file and the digest it must hash to.
type remoteFile struct {
	// label names the file in logs and on the progress bar.
	label  string
	url    string
	digest string
	algo   digestAlgo
	// auth sends the Hugging Face token.
	auth bool
}

// remote returns the single file behind a file definition.
func (def Definition) remote() remoteFile {
	return remoteFile{
		label:  def.Name,
		url:    def.Locator,
		digest: def.Digest,
		algo:   algoSHA256,
		auth:   def.Provider == ProviderHuggingFace,
	}
}

// fetch downloads rf into target, retrying failed transfers up to the attempt
// ceiling. Partial files never survive a failed attempt.
func (m *Manager) fetch(ctx context.Context, rf remoteFile, target string, logger *slog.Logger) error {
	var lastErr error
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		started := time.Now()
		size, err := m.transfer(ctx, rf, target, logger)
		if err == nil {
			logger.Info("model transfer complete",
				logging.String("size", humanize.IBytes(uint64(size))),
				logging.Duration("elapsed", time.Since(started)),
				logging.Int("attempt", attempt),
			)
			return nil
		}
		lastErr = err
		if ctxErr := ctx.Err(); ctxErr != nil {
			return services.Wrap(services.ErrDownload, stageAcquire, "download model", rf.url, ctxErr)
		}
		if attempt < m.maxAttempts {
			logging.WarnWithContext(logger, "model transfer failed; retrying", "model_transfer_failed",
				logging.Error(err),
				logging.Int("attempt", attempt),
				logging.String(logging.FieldErrorHint, "check network access to "+rf.url),
			)
		}
	}
	return services.Wrap(
		services.ErrDownload,
		stageAcquire,
		"download model",
		fmt.Sprintf("%s after %d attempts", rf.url, m.maxAttempts),
		lastErr,
	)
}

// transfer performs one streamed GET into a temp file beside target and
// renames it into place.
func (m *Manager) transfer(ctx context.Context, rf remoteFile, target string, logger *slog.Logger) (int64, error) {
	resp, err := m.get(ctx, rf.url, rf.auth)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	m.warnLowSpace(target, resp.ContentLength, logger)

	tmp := fileutil.TempPath(target)
	file, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() {
		_ = file.Close()
		_ = os.Remove(tmp)
	}

	var dst io.Writer = file
	var bar *progressbar.ProgressBar
	if m.progress != nil {
		bar = progressbar.NewOptions64(
			resp.ContentLength,
			progressbar.OptionSetWriter(m.progress),
			progressbar.OptionSetDescription(rf.label),
			progressbar.OptionShowBytes(true),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
		)
		dst = io.MultiWriter(file, bar)
	}

	written, err := io.Copy(dst, resp.Body)
	if err != nil {
		cleanup()
		return written, fmt.Errorf("copy body: %w", err)
	}
	if resp.ContentLength > 0 && written != resp.ContentLength {
		cleanup()
		return written, fmt.Errorf("short body: got %d of %d bytes", written, resp.ContentLength)
	}
	if bar != nil {
		_ = bar.Finish()
	}
	if err := file.Sync(); err != nil {
		cleanup()
		return written, fmt.Errorf("sync temp file: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(tmp)
		return written, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return written, fmt.Errorf("rename into place: %w", err)
	}
	return written, nil
}

// get issues one GET and returns the response when the status is 2xx.
func (m *Manager) get(ctx context.Context, locator string, auth bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "captioner")
	if auth && m.token != "" {
		req.Header.Set("Authorization", "Bearer "+m.token)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return resp, nil
}

func (m *Manager) warnLowSpace(target string, contentLength int64, logger *slog.Logger) {
	if contentLength <= 0 || m.freeSpace == nil {
		return
	}
	free, err := m.freeSpace(filepath.Dir(target))
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Debug("free space probe failed", logging.Error(err))
		}
		return
	}
	if uint64(contentLength) > free {
		logging.WarnWithContext(logger, "model may not fit on disk", "models_low_disk",
			logging.String("required", humanize.IBytes(uint64(contentLength))),
			logging.String("available", humanize.IBytes(free)),
		)
	}
}
