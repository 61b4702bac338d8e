package persistence

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const snapshotExt = ".snapshot"
const tmpExt = ".tmp"
const quarantineDirName = "quarantine"

// Backend errors (spec section 4.8).
var (
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrNoLoadableSnapshot = errors.New("no loadable snapshot")
)

// SnapshotCorruptError reports that the newest snapshot for an entity is
// corrupt and there was no older fallback to use instead.
type SnapshotCorruptError struct {
	Path   string
	Reason string
}

func (e *SnapshotCorruptError) Error() string {
	return fmt.Sprintf("snapshot corrupt at %s: %s", e.Path, e.Reason)
}

// UnsupportedLegacyEncryptedArtifactError is returned in strict mode when a
// legacy encrypted snapshot is encountered.
type UnsupportedLegacyEncryptedArtifactError struct {
	Path string
}

func (e *UnsupportedLegacyEncryptedArtifactError) Error() string {
	return fmt.Sprintf("unsupported legacy encrypted artifact at %s", e.Path)
}

// DegradedSkippedLegacyArtifactError is returned in degraded mode when a
// legacy encrypted snapshot is encountered and skipped.
type DegradedSkippedLegacyArtifactError struct {
	Path string
}

func (e *DegradedSkippedLegacyArtifactError) Error() string {
	return fmt.Sprintf("degraded mode skipped legacy artifact at %s", e.Path)
}

// IsLegacyArtifactError reports whether err is one of the two legacy-
// artifact error variants.
func IsLegacyArtifactError(err error) bool {
	var unsupported *UnsupportedLegacyEncryptedArtifactError
	var skipped *DegradedSkippedLegacyArtifactError
	return errors.As(err, &unsupported) || errors.As(err, &skipped)
}

// CheckpointRequest describes a single checkpoint write (spec section 3).
type CheckpointRequest struct {
	EntityId       string
	MutationCount  uint32
	Reason         CheckpointReason
	CorrelationId  string
}

// FileBackend implements the persistence backend contract (C8) against a
// plain directory tree, using write-temp/fsync/rename/fsync-parent-dir for
// checkpoint atomicity.
type FileBackend struct {
	storeRoot string
	mode      Mode
	log       *logrus.Entry
}

// NewFileBackend returns a backend rooted at storeRoot.
func NewFileBackend(storeRoot string, mode Mode) *FileBackend {
	return &FileBackend{
		storeRoot: storeRoot,
		mode:      mode,
		log:       logrus.WithField("component", "persistence.backend"),
	}
}

func (b *FileBackend) entityDir(entityId string) string {
	return filepath.Join(b.storeRoot, entityId)
}

func (b *FileBackend) quarantineDir(entityId string) string {
	return filepath.Join(b.entityDir(entityId), quarantineDirName)
}

// snapshotFilename formats a zero-padded 20-digit millisecond timestamp
// snapshot filename, so lexicographic order equals chronological order.
func snapshotFilename(tsMs int64) string {
	return fmt.Sprintf("%020d%s", tsMs, snapshotExt)
}

// Checkpoint atomically replaces the latest snapshot for request.EntityId.
func (b *FileBackend) Checkpoint(request CheckpointRequest, envelope SnapshotEnvelope) error {
	dir := b.entityDir(request.EntityId)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create entity dir: %w", err)
	}

	data, err := envelope.Marshal()
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	finalName := snapshotFilename(time.Now().UnixMilli())
	finalPath := filepath.Join(dir, finalName)
	tmpPath := finalPath + tmpExt

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("open temp snapshot: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("fsync temp snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp snapshot: %w", err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename snapshot into place: %w", err)
	}

	if err := fsyncDir(dir); err != nil {
		return fmt.Errorf("fsync entity dir: %w", err)
	}

	b.log.WithFields(logrus.Fields{
		"entity_id": request.EntityId,
		"reason":    request.Reason.String(),
		"path":      finalPath,
	}).Debug("checkpoint written")
	return nil
}

func fsyncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}

// listSnapshots returns snapshot filenames (not .tmp siblings) in the
// entity directory, newest-first.
func listSnapshots(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(name, tmpExt) {
			continue
		}
		if !strings.HasSuffix(name, snapshotExt) {
			continue
		}
		names = append(names, name)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// LoadLatest enumerates snapshots newest-to-oldest, returning the first one
// that decodes and passes integrity verification. Corrupt snapshots are
// quarantined and skipped. A legacy encrypted snapshot stops the load in
// strict mode; in degraded mode it is skipped and left in place.
func (b *FileBackend) LoadLatest(entityId string) (SnapshotEnvelope, error) {
	dir := b.entityDir(entityId)
	names, err := listSnapshots(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return SnapshotEnvelope{}, ErrSnapshotNotFound
		}
		return SnapshotEnvelope{}, err
	}
	if len(names) == 0 {
		return SnapshotEnvelope{}, ErrSnapshotNotFound
	}

	var lastErr error
	anyCorrupt := false
	for i, name := range names {
		path := filepath.Join(dir, name)
		raw, err := os.ReadFile(path)
		if err != nil {
			lastErr = err
			anyCorrupt = true
			b.quarantine(entityId, name, "read-failure")
			continue
		}

		if LooksLikeLegacyEncryptedArtifact(raw) {
			b.log.WithFields(logrus.Fields{"event": EventLegacyArtifactDetected, "entity_id": entityId, "path": path}).Warn("legacy_artifact.detected")
			if b.mode == ModeStrict {
				return SnapshotEnvelope{}, &UnsupportedLegacyEncryptedArtifactError{Path: path}
			}
			lastErr = &DegradedSkippedLegacyArtifactError{Path: path}
			anyCorrupt = true
			continue
		}

		envelope, err := UnmarshalSnapshotEnvelope(raw)
		if err != nil {
			anyCorrupt = true
			b.quarantine(entityId, name, "decode-failure")
			if i == 0 {
				lastErr = &SnapshotCorruptError{Path: path, Reason: err.Error()}
			}
			continue
		}
		if err := envelope.VerifyIntegrity(); err != nil {
			anyCorrupt = true
			b.quarantine(entityId, name, "integrity-failure")
			if i == 0 {
				lastErr = &SnapshotCorruptError{Path: path, Reason: err.Error()}
			}
			continue
		}
		return envelope, nil
	}

	if anyCorrupt {
		if corrupt, ok := lastErr.(*SnapshotCorruptError); ok {
			return SnapshotEnvelope{}, corrupt
		}
		if IsLegacyArtifactError(lastErr) {
			return SnapshotEnvelope{}, lastErr
		}
		return SnapshotEnvelope{}, ErrNoLoadableSnapshot
	}
	return SnapshotEnvelope{}, ErrNoLoadableSnapshot
}

func (b *FileBackend) quarantine(entityId, name, reason string) {
	qdir := b.quarantineDir(entityId)
	if err := os.MkdirAll(qdir, 0o755); err != nil {
		b.log.WithError(err).Warn("failed to create quarantine dir")
		return
	}
	src := filepath.Join(b.entityDir(entityId), name)
	dst := filepath.Join(qdir, reason+"-"+name)
	if err := os.Rename(src, dst); err != nil {
		b.log.WithError(err).Warn("failed to quarantine snapshot")
	}
}

// DeleteEntity best-effort recursively removes an entity's store directory.
func (b *FileBackend) DeleteEntity(entityId string) error {
	return os.RemoveAll(b.entityDir(entityId))
}

// StoreManifestName is the directory-level sentinel marking a store as
// initialized at schema SchemaVersion.
const StoreManifestName = "manifest.v1"

// ErrPersistenceNotInitialized is returned when a strict-mode store has no
// manifest and InitializeIfMissing is false.
var ErrPersistenceNotInitialized = errors.New("persistence not initialized")

// EnsureManifest resolves/verifies the store manifest at storeRoot. If the
// manifest is missing and initializeIfMissing is true, it is created.
func EnsureManifest(storeRoot string, initializeIfMissing bool) error {
	path := filepath.Join(storeRoot, StoreManifestName)
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}
	if !initializeIfMissing {
		return ErrPersistenceNotInitialized
	}
	if err := os.MkdirAll(storeRoot, 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.FormatUint(uint64(SchemaVersion), 10)), 0o644)
}
