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

	"github.com/gofrs/flock"

	"captioner/internal/config"
	"captioner/internal/fileutil"
	"captioner/internal/ledger"
	"captioner/internal/logging"
	"captioner/internal/services"
)

const (
	stageAcquire      = "acquire"
	lockRetryInterval = 250 * time.Millisecond
	defaultHubURL     = "https://huggingface.co"
)

// Kind distinguishes single-file artifacts from directory snapshots.
type Kind string

const (
	KindFile      Kind = "file"
	KindDirectory Kind = "directory"
)

// Artifact is a verified model ready for the transcription engine: a single
// checkpoint file or a repository snapshot directory.
type Artifact struct {
	Name      string
	Provider  string
	LocalPath string
	Kind      Kind
	// Dir is the directory holding the artifact; for snapshots it equals
	// LocalPath.
	Dir    string
	Digest string
	Size   int64
	// Downloaded is true when this call transferred bytes over the network.
	Downloaded bool
}

// Status describes the local state of one registry entry.
type Status struct {
	Definition Definition
	LocalPath  string
	Present    bool
	Size       int64
	Verified   bool
	VerifiedAt time.Time
}

// fileState is the verified state of one file on disk.
type fileState struct {
	Digest     string
	Size       int64
	Downloaded bool
}

// Manager acquires model artifacts.
type Manager struct {
	registry    *Registry
	root        string
	hubURL      string
	ledger      *ledger.Store
	client      *http.Client
	maxAttempts int
	token       string
	progress    io.Writer
	logger      *slog.Logger
	freeSpace   func(dir string) (uint64, error)
}

// NewManager constructs a manager rooted at cfg.Paths.ModelsDir. The ledger is
// optional; without it every existing file is rehashed.
func NewManager(cfg *config.Config, registry *Registry, store *ledger.Store, logger *slog.Logger) *Manager {
	m := &Manager{
		registry:    registry,
		hubURL:      defaultHubURL,
		ledger:      store,
		client:      &http.Client{},
		maxAttempts: 2,
		logger:      logging.NewComponentLogger(logger, "models"),
		freeSpace:   fileutil.FreeBytes,
	}
	if cfg != nil {
		m.root = cfg.Paths.ModelsDir
		m.token = cfg.Models.HuggingFaceToken
		if cfg.Models.HuggingFaceURL != "" {
			m.hubURL = strings.TrimRight(cfg.Models.HuggingFaceURL, "/")
		}
		if cfg.Models.MaxAttempts > 0 {
			m.maxAttempts = cfg.Models.MaxAttempts
		}
		if cfg.Models.DownloadTimeout > 0 {
			m.client.Timeout = time.Duration(cfg.Models.DownloadTimeout) * time.Second
		}
		if cfg.Models.ShowProgress {
			m.progress = os.Stderr
		}
	}
	return m
}

// WithHTTPClient replaces the HTTP client used for downloads.
func (m *Manager) WithHTTPClient(client *http.Client) *Manager {
	if client != nil {
		m.client = client
	}
	return m
}

// WithProgress sets the writer receiving the download progress bar. A nil
// writer disables the bar.
func (m *Manager) WithProgress(w io.Writer) *Manager {
	m.progress = w
	return m
}

// MaxAttempts reports the per-failure-class attempt ceiling.
func (m *Manager) MaxAttempts() int {
	return m.maxAttempts
}

// PathFor returns the local storage location for def: a file under
// <root>/<provider>/ or a snapshot directory under <root>/huggingface/<repo>/.
func (m *Manager) PathFor(def Definition) string {
	if def.Kind == KindDirectory {
		return filepath.Join(m.root, ProviderHuggingFace, filepath.FromSlash(def.Repo))
	}
	return filepath.Join(m.root, def.Provider, def.FileName)
}

// Acquire makes the named model available locally and returns its verified
// location. With force set the artifact is downloaded even if a verified copy
// exists.
func (m *Manager) Acquire(ctx context.Context, name string, force bool) (Artifact, error) {
	def, err := m.registry.Lookup(name)
	if err != nil {
		return Artifact{}, err
	}
	target := m.PathFor(def)
	logger := logging.WithContext(ctx, m.logger).With(
		logging.String("model", def.Name),
		logging.String("provider", def.Provider),
		logging.String("path", target),
	)

	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return Artifact{}, services.Wrap(services.ErrPrecondition, stageAcquire, "prepare model directory", filepath.Dir(target), err)
	}
	unlock, err := m.lock(ctx, target, logger)
	if err != nil {
		return Artifact{}, err
	}
	defer unlock()

	if force {
		logger.Info("forced model refresh")
	}
	if def.Kind == KindDirectory {
		return m.acquireSnapshot(ctx, def, target, force, logger)
	}

	state, err := m.acquireFile(ctx, def, def.remote(), target, force, logger)
	if err != nil {
		return Artifact{}, err
	}
	if !state.Downloaded {
		logger.Info("model already verified", logging.String("digest", state.Digest))
	}
	return Artifact{
		Name:       def.Name,
		Provider:   def.Provider,
		LocalPath:  target,
		Kind:       KindFile,
		Dir:        filepath.Dir(target),
		Digest:     state.Digest,
		Size:       state.Size,
		Downloaded: state.Downloaded,
	}, nil
}

// lock serializes acquisition of one artifact across processes.
func (m *Manager) lock(ctx context.Context, target string, logger *slog.Logger) (func(), error) {
	lock := flock.New(target + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryInterval)
	if err != nil {
		return nil, services.Wrap(services.ErrPrecondition, stageAcquire, "lock model", target, err)
	}
	if !locked {
		return nil, services.Wrap(services.ErrPrecondition, stageAcquire, "lock model", "lock not acquired", nil)
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("model lock release failed", logging.Error(err))
		}
	}, nil
}

// acquireFile makes target hold the bytes rf describes. Transfer failures and
// digest mismatches each get up to maxAttempts tries. owner labels ledger
// entries.
func (m *Manager) acquireFile(ctx context.Context, owner Definition, rf remoteFile, target string, force bool, logger *slog.Logger) (fileState, error) {
	if !force {
		if state, ok := m.reuseExisting(ctx, owner, rf, target, logger); ok {
			return state, nil
		}
	}

	for integrityFailures := 0; ; {
		if err := m.fetch(ctx, rf, target, logger); err != nil {
			return fileState{}, err
		}
		digest, size, err := hashFile(target, rf.algo)
		if err != nil {
			return fileState{}, services.Wrap(services.ErrIntegrity, stageAcquire, "hash model", target, err)
		}
		if digest == rf.digest {
			m.record(ctx, owner, target, digest, logger)
			logger.Info("model downloaded and verified",
				logging.String("digest", digest),
				logging.Int64("size_bytes", size),
			)
			return fileState{Digest: digest, Size: size, Downloaded: true}, nil
		}

		integrityFailures++
		m.discard(ctx, target, logger)
		if integrityFailures >= m.maxAttempts {
			return fileState{}, services.Wrap(
				services.ErrIntegrity,
				stageAcquire,
				"verify model",
				fmt.Sprintf("%s: expected %s %s, got %s after %d downloads", rf.label, rf.algo, rf.digest, digest, integrityFailures),
				nil,
			)
		}
		logging.WarnWithContext(logger, "model digest mismatch; downloading again", "model_digest_mismatch",
			logging.String("expected", rf.digest),
			logging.String("actual", digest),
			logging.Int("attempt", integrityFailures),
		)
	}
}

// reuseExisting reports whether target already holds the expected bytes. A
// ledger entry with matching size and mtime stands in for a rehash. A file
// that fails verification is removed.
func (m *Manager) reuseExisting(ctx context.Context, owner Definition, rf remoteFile, target string, logger *slog.Logger) (fileState, bool) {
	info, err := os.Stat(target)
	if err != nil || !info.Mode().IsRegular() {
		return fileState{}, false
	}

	if m.ledger != nil {
		entry, err := m.ledger.Lookup(ctx, target)
		if err != nil {
			logger.Warn("ledger lookup failed; rehashing", logging.Error(err))
		} else if entry.Matches(info) && entry.Digest == rf.digest {
			return fileState{Digest: entry.Digest, Size: info.Size()}, true
		}
	}

	digest, size, err := hashFile(target, rf.algo)
	if err != nil {
		logger.Warn("existing model unreadable; downloading", logging.Error(err))
		return fileState{}, false
	}
	if digest != rf.digest {
		logging.WarnWithContext(logger, "existing model failed verification; downloading", "model_digest_mismatch",
			logging.String("expected", rf.digest),
			logging.String("actual", digest),
		)
		m.discard(ctx, target, logger)
		return fileState{}, false
	}
	m.record(ctx, owner, target, digest, logger)
	return fileState{Digest: digest, Size: size}, true
}

func (m *Manager) record(ctx context.Context, owner Definition, target, digest string, logger *slog.Logger) {
	if m.ledger == nil {
		return
	}
	info, err := os.Stat(target)
	if err != nil {
		return
	}
	err = m.ledger.Record(ctx, ledger.Entry{
		Path:     target,
		Name:     owner.Name,
		Provider: owner.Provider,
		Size:     info.Size(),
		ModTime:  info.ModTime(),
		Digest:   digest,
	})
	if err != nil {
		logger.Warn("ledger record failed", logging.Error(err))
	}
}

func (m *Manager) discard(ctx context.Context, target string, logger *slog.Logger) {
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("remove model file failed", logging.Error(err))
	}
	if m.ledger != nil {
		if err := m.ledger.Forget(ctx, target); err != nil {
			logger.Warn("ledger forget failed", logging.Error(err))
		}
	}
}

// verifiedOnLedger reports whether the ledger vouches for target holding
// digest, and when it was verified.
func (m *Manager) verifiedOnLedger(ctx context.Context, target, digest string) (bool, time.Time, error) {
	if m.ledger == nil {
		return false, time.Time{}, nil
	}
	info, err := os.Stat(target)
	if err != nil || !info.Mode().IsRegular() {
		return false, time.Time{}, nil
	}
	entry, err := m.ledger.Lookup(ctx, target)
	if err != nil {
		return false, time.Time{}, err
	}
	if entry.Matches(info) && entry.Digest == digest {
		return true, entry.VerifiedAt, nil
	}
	return false, time.Time{}, nil
}

// List reports every registered model with its local state.
func (m *Manager) List(ctx context.Context) ([]Status, error) {
	defs := m.registry.Definitions()
	out := make([]Status, 0, len(defs))
	for _, def := range defs {
		status := Status{Definition: def, LocalPath: m.PathFor(def)}
		if def.Kind == KindDirectory {
			if err := m.snapshotStatus(ctx, def, &status); err != nil {
				return nil, err
			}
			out = append(out, status)
			continue
		}
		info, err := os.Stat(status.LocalPath)
		if err == nil && info.Mode().IsRegular() {
			status.Present = true
			status.Size = info.Size()
			status.Verified, status.VerifiedAt, err = m.verifiedOnLedger(ctx, status.LocalPath, def.Digest)
			if err != nil {
				return nil, err
			}
		}
		out = append(out, status)
	}
	return out, nil
}
