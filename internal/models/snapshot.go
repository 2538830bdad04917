package models

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"captioner/internal/fileutil"
	"captioner/internal/logging"
	"captioner/internal/services"
)

// manifestName is written inside a snapshot directory once every file in it
// has been verified.
const manifestName = ".captioner-manifest.json"

type snapshotFile struct {
	Path   string     `json:"path"`
	Size   int64      `json:"size"`
	Digest string     `json:"digest"`
	Algo   digestAlgo `json:"algo"`
}

type snapshotManifest struct {
	Repo      string         `json:"repo"`
	Revision  string         `json:"revision"`
	Selection []string       `json:"selection,omitempty"`
	Files     []snapshotFile `json:"files"`
}

// covers reports whether the manifest was built for def's repo, revision,
// and file selection.
func (sm snapshotManifest) covers(def Definition) bool {
	if sm.Repo != def.Repo || sm.Revision != def.Revision || len(sm.Files) == 0 {
		return false
	}
	want := slices.Clone(def.Files)
	sort.Strings(want)
	return slices.Equal(sm.Selection, want)
}

// hubEntry is one item of the hub's repository tree listing. Files stored in
// LFS carry their sha256 under lfs.oid; the rest only have a git blob id.
type hubEntry struct {
	Type string `json:"type"`
	Path string `json:"path"`
	Size int64  `json:"size"`
	OID  string `json:"oid"`
	LFS  *struct {
		OID  string `json:"oid"`
		Size int64  `json:"size"`
	} `json:"lfs"`
}

// acquireSnapshot makes dir hold every selected file of def's repository.
// A complete local manifest whose files still verify is reused without
// touching the network.
func (m *Manager) acquireSnapshot(ctx context.Context, def Definition, dir string, force bool, logger *slog.Logger) (Artifact, error) {
	logger = logger.With(logging.String("repo", def.Repo), logging.String("revision", def.Revision))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Artifact{}, services.Wrap(services.ErrPrecondition, stageAcquire, "prepare model directory", dir, err)
	}

	if !force {
		if manifest, err := readManifest(dir); err == nil && manifest.covers(def) {
			if m.reuseSnapshot(ctx, def, dir, manifest, logger) {
				artifact := snapshotArtifact(def, dir, manifest, false)
				logger.Info("model already verified",
					logging.String("digest", artifact.Digest),
					logging.Int("files", len(manifest.Files)),
				)
				return artifact, nil
			}
		}
	}

	manifest, err := m.fetchManifest(ctx, def, logger)
	if err != nil {
		return Artifact{}, err
	}
	// A stale manifest must not vouch for a half-refreshed directory.
	if err := os.Remove(filepath.Join(dir, manifestName)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Artifact{}, services.Wrap(services.ErrPrecondition, stageAcquire, "reset manifest", dir, err)
	}

	downloaded := false
	for _, file := range manifest.Files {
		target := filepath.Join(dir, filepath.FromSlash(file.Path))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return Artifact{}, services.Wrap(services.ErrPrecondition, stageAcquire, "prepare model directory", filepath.Dir(target), err)
		}
		state, err := m.acquireFile(ctx, def, m.snapshotRemote(def, file), target, force, logger.With(logging.String("file", file.Path)))
		if err != nil {
			return Artifact{}, err
		}
		downloaded = downloaded || state.Downloaded
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return Artifact{}, fmt.Errorf("encode manifest: %w", err)
	}
	if err := fileutil.WriteFileAtomic(filepath.Join(dir, manifestName), data, 0o644); err != nil {
		return Artifact{}, services.Wrap(services.ErrPrecondition, stageAcquire, "write manifest", dir, err)
	}

	artifact := snapshotArtifact(def, dir, manifest, downloaded)
	logger.Info("model snapshot verified",
		logging.String("digest", artifact.Digest),
		logging.Int("files", len(manifest.Files)),
		logging.Int64("size_bytes", artifact.Size),
	)
	return artifact, nil
}

func (m *Manager) reuseSnapshot(ctx context.Context, def Definition, dir string, manifest snapshotManifest, logger *slog.Logger) bool {
	for _, file := range manifest.Files {
		target := filepath.Join(dir, filepath.FromSlash(file.Path))
		if _, ok := m.reuseExisting(ctx, def, m.snapshotRemote(def, file), target, logger.With(logging.String("file", file.Path))); !ok {
			return false
		}
	}
	return true
}

func (m *Manager) snapshotRemote(def Definition, file snapshotFile) remoteFile {
	return remoteFile{
		label:  def.Name + "/" + file.Path,
		url:    m.hubURL + "/" + def.Repo + "/resolve/" + url.PathEscape(def.Revision) + "/" + escapePath(file.Path),
		digest: file.Digest,
		algo:   file.Algo,
		auth:   true,
	}
}

// fetchManifest lists the repository tree and keeps the selected files,
// retrying failed requests up to the attempt ceiling.
func (m *Manager) fetchManifest(ctx context.Context, def Definition, logger *slog.Logger) (snapshotManifest, error) {
	locator := m.hubURL + "/api/models/" + def.Repo + "/tree/" + url.PathEscape(def.Revision) + "?recursive=true"

	var entries []hubEntry
	var lastErr error
	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		entries, lastErr = m.listTree(ctx, locator)
		if lastErr == nil {
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return snapshotManifest{}, services.Wrap(services.ErrDownload, stageAcquire, "list repository", locator, ctxErr)
		}
		if attempt < m.maxAttempts {
			logging.WarnWithContext(logger, "repository listing failed; retrying", "model_transfer_failed",
				logging.Error(lastErr),
				logging.Int("attempt", attempt),
				logging.String(logging.FieldErrorHint, "check network access to "+m.hubURL),
			)
		}
	}
	if lastErr != nil {
		return snapshotManifest{}, services.Wrap(
			services.ErrDownload,
			stageAcquire,
			"list repository",
			fmt.Sprintf("%s after %d attempts", locator, m.maxAttempts),
			lastErr,
		)
	}

	manifest := snapshotManifest{Repo: def.Repo, Revision: def.Revision}
	if len(def.Files) > 0 {
		manifest.Selection = slices.Clone(def.Files)
		sort.Strings(manifest.Selection)
	}
	selected := make(map[string]bool, len(def.Files))
	for _, name := range def.Files {
		selected[name] = false
	}
	for _, entry := range entries {
		if entry.Type != "file" {
			continue
		}
		if len(selected) > 0 {
			if _, ok := selected[entry.Path]; !ok {
				continue
			}
			selected[entry.Path] = true
		}
		if !filepath.IsLocal(filepath.FromSlash(entry.Path)) || entry.Path == manifestName {
			logging.WarnWithContext(logger, "skipping repository file with unsafe path", "model_path_rejected",
				logging.String("file", entry.Path),
			)
			continue
		}
		file := snapshotFile{Path: entry.Path, Size: entry.Size, Digest: strings.ToLower(entry.OID), Algo: algoGitSHA1}
		if entry.LFS != nil && entry.LFS.OID != "" {
			file.Digest = strings.ToLower(entry.LFS.OID)
			file.Size = entry.LFS.Size
			file.Algo = algoSHA256
		}
		if file.Digest == "" {
			return snapshotManifest{}, services.Wrap(services.ErrIntegrity, stageAcquire, "list repository", fmt.Sprintf("%s has no published digest", entry.Path), nil)
		}
		manifest.Files = append(manifest.Files, file)
	}

	var missing []string
	for name, found := range selected {
		if !found {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return snapshotManifest{}, services.Wrap(
			services.ErrNotFound,
			stageAcquire,
			"list repository",
			fmt.Sprintf("%s@%s has no %s", def.Repo, def.Revision, strings.Join(missing, ", ")),
			nil,
		)
	}
	if len(manifest.Files) == 0 {
		return snapshotManifest{}, services.Wrap(services.ErrNotFound, stageAcquire, "list repository", def.Repo+" has no files", nil)
	}
	sort.Slice(manifest.Files, func(i, j int) bool { return manifest.Files[i].Path < manifest.Files[j].Path })
	return manifest, nil
}

func (m *Manager) listTree(ctx context.Context, locator string) ([]hubEntry, error) {
	resp, err := m.get(ctx, locator, true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var entries []hubEntry
	if err := json.NewDecoder(io.LimitReader(resp.Body, 16<<20)).Decode(&entries); err != nil {
		return nil, fmt.Errorf("decode tree listing: %w", err)
	}
	return entries, nil
}

// snapshotStatus fills status for a directory definition from its manifest
// and the ledger.
func (m *Manager) snapshotStatus(ctx context.Context, def Definition, status *Status) error {
	manifest, err := readManifest(status.LocalPath)
	if err != nil || !manifest.covers(def) {
		return nil
	}
	status.Present = true
	verified := true
	var newest time.Time
	for _, file := range manifest.Files {
		target := filepath.Join(status.LocalPath, filepath.FromSlash(file.Path))
		if info, err := os.Stat(target); err == nil {
			status.Size += info.Size()
		}
		ok, at, err := m.verifiedOnLedger(ctx, target, file.Digest)
		if err != nil {
			return err
		}
		if !ok {
			verified = false
			continue
		}
		if at.After(newest) {
			newest = at
		}
	}
	if verified {
		status.Verified = true
		status.VerifiedAt = newest
	}
	return nil
}

func readManifest(dir string) (snapshotManifest, error) {
	var manifest snapshotManifest
	data, err := os.ReadFile(filepath.Join(dir, manifestName))
	if err != nil {
		return manifest, err
	}
	if err := json.Unmarshal(data, &manifest); err != nil {
		return manifest, fmt.Errorf("parse manifest: %w", err)
	}
	for _, file := range manifest.Files {
		if !filepath.IsLocal(filepath.FromSlash(file.Path)) {
			return snapshotManifest{}, fmt.Errorf("manifest lists unsafe path %q", file.Path)
		}
	}
	return manifest, nil
}

// snapshotArtifact describes a verified snapshot. Its digest is the sha256 of
// the sorted "<algo> <digest> <path>" lines, so it changes when any file does.
func snapshotArtifact(def Definition, dir string, manifest snapshotManifest, downloaded bool) Artifact {
	h := sha256.New()
	var size int64
	for _, file := range manifest.Files {
		fmt.Fprintf(h, "%s %s %s\n", file.Algo, file.Digest, file.Path)
		size += file.Size
	}
	return Artifact{
		Name:       def.Name,
		Provider:   def.Provider,
		LocalPath:  dir,
		Kind:       KindDirectory,
		Dir:        dir,
		Digest:     hex.EncodeToString(h.Sum(nil)),
		Size:       size,
		Downloaded: downloaded,
	}
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.Join(parts, "/")
}
