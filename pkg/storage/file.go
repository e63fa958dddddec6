package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/XiaoConstantine/ace-go/pkg/ace"
	"github.com/XiaoConstantine/ace-go/pkg/errors"
)

// FileStore persists snapshots as a single JSON document. A mutex guards
// in-process callers and an advisory flock guards cross-process ones; saves
// go through a tmp file and rename so a crash never leaves a torn
// checkpoint behind.
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a file-backed store at the given path. The file is
// created on first Save.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the checkpoint file location.
func (f *FileStore) Path() string {
	return f.path
}

// Exists reports whether a checkpoint file is present.
func (f *FileStore) Exists() bool {
	_, err := os.Stat(f.path)
	return err == nil
}

// Save validates the snapshot and writes it atomically.
func (f *FileStore) Save(ctx context.Context, snapshot *ace.Snapshot) error {
	if err := errors.CheckContext(ctx, "save checkpoint"); err != nil {
		return err
	}
	if err := snapshot.Validate(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	lockFile, err := f.acquireFileLock(lockExclusive)
	if err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.StorageFailed, "failed to lock checkpoint file"),
			errors.Fields{"path": f.path},
		)
	}
	defer f.releaseFileLock(lockFile)

	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.StorageFailed, "failed to create checkpoint directory"),
			errors.Fields{"path": f.path},
		)
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return errors.Wrap(err, errors.StorageFailed, "failed to encode snapshot")
	}

	tmpPath := f.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return errors.WithFields(
			errors.Wrap(err, errors.StorageFailed, "failed to write checkpoint"),
			errors.Fields{"path": tmpPath},
		)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		os.Remove(tmpPath)
		return errors.WithFields(
			errors.Wrap(err, errors.StorageFailed, "failed to replace checkpoint"),
			errors.Fields{"path": f.path},
		)
	}
	return nil
}

// Load reads and validates the checkpoint. A missing file returns a
// ResourceNotFound error so callers can fall back to a fresh playbook.
func (f *FileStore) Load(ctx context.Context) (*ace.Snapshot, error) {
	if err := errors.CheckContext(ctx, "load checkpoint"); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	lockFile, err := f.acquireFileLock(lockShared)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.StorageFailed, "failed to lock checkpoint file"),
			errors.Fields{"path": f.path},
		)
	}
	defer f.releaseFileLock(lockFile)

	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return nil, errors.WithFields(
			errors.New(errors.ResourceNotFound, "no checkpoint found"),
			errors.Fields{"path": f.path},
		)
	}
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.StorageFailed, "failed to read checkpoint"),
			errors.Fields{"path": f.path},
		)
	}

	var snapshot ace.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.StorageFailed, "failed to decode checkpoint"),
			errors.Fields{"path": f.path},
		)
	}
	if err := snapshot.Validate(); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// Close is a no-op for file stores.
func (f *FileStore) Close() error {
	return nil
}

var _ Store = (*FileStore)(nil)
