// Package storage persists playbook checkpoints so a run can resume where a
// previous one stopped. Two stores ship: a JSON file with advisory locking
// and atomic writes, and a SQLite database with transactional saves.
package storage

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/XiaoConstantine/ace-go/pkg/ace"
	"github.com/XiaoConstantine/ace-go/pkg/errors"
)

// Store persists playbook snapshots for checkpoint and resume. Load returns
// a ResourceNotFound error when no checkpoint has been saved yet; other
// failures carry the StorageFailed code.
type Store interface {
	Save(ctx context.Context, snapshot *ace.Snapshot) error
	Load(ctx context.Context) (*ace.Snapshot, error)
	Close() error
}

// Open picks a store from the path's extension: .db, .sqlite and .sqlite3
// open a SQLite store, everything else a JSON file store.
func Open(path string) (Store, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".db", ".sqlite", ".sqlite3":
		return NewSQLiteStore(path)
	default:
		return NewFileStore(path), nil
	}
}

// LoadOrNew restores a playbook from the store, or starts a fresh one with
// the given capacity when the store holds no checkpoint yet. A restored
// playbook keeps its persisted capacity, epoch, and ID allocator.
func LoadOrNew(ctx context.Context, store Store, maxSize int) (*ace.Playbook, error) {
	snapshot, err := store.Load(ctx)
	if err != nil {
		if errors.CodeOf(err) == errors.ResourceNotFound {
			return ace.NewPlaybook(maxSize), nil
		}
		return nil, err
	}
	return ace.NewPlaybookFromSnapshot(snapshot)
}
