package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"

	"github.com/XiaoConstantine/ace-go/pkg/ace"
	"github.com/XiaoConstantine/ace-go/pkg/errors"
	"github.com/XiaoConstantine/ace-go/pkg/logging"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore persists snapshots in a SQLite database: one metadata row
// plus one row per bullet, replaced transactionally on every save. WAL mode
// keeps concurrent readers from blocking the writer.
type SQLiteStore struct {
	db   *sql.DB
	mu   sync.RWMutex
	path string

	initialized sync.Once
}

// NewSQLiteStore opens (or creates) the database at path. Use ":memory:"
// for an ephemeral store.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.StorageFailed, "failed to open SQLite database"),
			errors.Fields{"path": path},
		)
	}

	store := &SQLiteStore{db: db, path: path}
	if err := store.ensureInitialized(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (s *SQLiteStore) ensureInitialized() error {
	var initErr error
	s.initialized.Do(func() {
		// WAL mode for better concurrency between readers and the writer
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			initErr = errors.Wrap(err, errors.StorageFailed, "failed to enable WAL mode")
			return
		}

		query := `
        CREATE TABLE IF NOT EXISTS playbook_meta (
            id INTEGER PRIMARY KEY CHECK (id = 1),
            max_size INTEGER NOT NULL,
            current_epoch INTEGER NOT NULL,
            next_id INTEGER NOT NULL,
            updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
        );

        CREATE TABLE IF NOT EXISTS bullets (
            id INTEGER PRIMARY KEY,
            content TEXT NOT NULL,
            tags TEXT,
            helpful INTEGER NOT NULL DEFAULT 0,
            harmful INTEGER NOT NULL DEFAULT 0,
            created_epoch INTEGER NOT NULL DEFAULT 0,
            last_used_epoch INTEGER NOT NULL DEFAULT 0,
            position INTEGER NOT NULL
        );

        CREATE INDEX IF NOT EXISTS idx_bullets_position
        ON bullets(position);
        `

		if _, err := s.db.Exec(query); err != nil {
			initErr = errors.WithFields(
				errors.Wrap(err, errors.StorageFailed, "failed to initialize database schema"),
				errors.Fields{"path": s.path},
			)
			return
		}
	})
	return initErr
}

// Save replaces the stored checkpoint with the snapshot in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, snapshot *ace.Snapshot) error {
	if err := snapshot.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, errors.StorageFailed, "failed to begin transaction")
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			logging.GetLogger().Error(context.Background(), "failed to rollback transaction: %v", err)
		}
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM bullets"); err != nil {
		return errors.Wrap(err, errors.StorageFailed, "failed to clear bullets")
	}

	metaQuery := `
    INSERT INTO playbook_meta (id, max_size, current_epoch, next_id, updated_at)
    VALUES (1, ?, ?, ?, CURRENT_TIMESTAMP)
    ON CONFLICT(id) DO UPDATE SET
        max_size = excluded.max_size,
        current_epoch = excluded.current_epoch,
        next_id = excluded.next_id,
        updated_at = CURRENT_TIMESTAMP
    `
	if _, err := tx.ExecContext(ctx, metaQuery,
		snapshot.MaxSize, snapshot.CurrentEpoch, int64(snapshot.NextID)); err != nil {
		return errors.Wrap(err, errors.StorageFailed, "failed to store playbook metadata")
	}

	bulletQuery := `
    INSERT INTO bullets (id, content, tags, helpful, harmful, created_epoch, last_used_epoch, position)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `
	for i, b := range snapshot.Bullets {
		tags, err := json.Marshal(b.Tags)
		if err != nil {
			return errors.WithFields(
				errors.Wrap(err, errors.StorageFailed, "failed to encode bullet tags"),
				errors.Fields{"bullet_id": b.ID.String()},
			)
		}
		if _, err := tx.ExecContext(ctx, bulletQuery,
			int64(b.ID), b.Content, string(tags), b.Helpful, b.Harmful,
			b.CreatedEpoch, b.LastUsedEpoch, i); err != nil {
			return errors.WithFields(
				errors.Wrap(err, errors.StorageFailed, "failed to store bullet"),
				errors.Fields{"bullet_id": b.ID.String()},
			)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, errors.StorageFailed, "failed to commit checkpoint")
	}
	return nil
}

// Load reads the stored checkpoint. A database without a saved playbook
// returns a ResourceNotFound error.
func (s *SQLiteStore) Load(ctx context.Context) (*ace.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := &ace.Snapshot{Bullets: []ace.Bullet{}}
	var nextID int64
	err := s.db.QueryRowContext(ctx,
		"SELECT max_size, current_epoch, next_id FROM playbook_meta WHERE id = 1").
		Scan(&snapshot.MaxSize, &snapshot.CurrentEpoch, &nextID)
	if err == sql.ErrNoRows {
		return nil, errors.WithFields(
			errors.New(errors.ResourceNotFound, "no checkpoint found"),
			errors.Fields{"path": s.path},
		)
	}
	if err != nil {
		return nil, errors.Wrap(err, errors.StorageFailed, "failed to read playbook metadata")
	}
	snapshot.NextID = ace.BulletID(nextID)

	rows, err := s.db.QueryContext(ctx, `
    SELECT id, content, tags, helpful, harmful, created_epoch, last_used_epoch
    FROM bullets ORDER BY position`)
	if err != nil {
		return nil, errors.Wrap(err, errors.StorageFailed, "failed to read bullets")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			b    ace.Bullet
			id   int64
			tags sql.NullString
		)
		if err := rows.Scan(&id, &b.Content, &tags, &b.Helpful, &b.Harmful,
			&b.CreatedEpoch, &b.LastUsedEpoch); err != nil {
			return nil, errors.Wrap(err, errors.StorageFailed, "failed to scan bullet")
		}
		b.ID = ace.BulletID(id)
		if tags.Valid && tags.String != "" {
			if err := json.Unmarshal([]byte(tags.String), &b.Tags); err != nil {
				return nil, errors.WithFields(
					errors.Wrap(err, errors.StorageFailed, "failed to decode bullet tags"),
					errors.Fields{"bullet_id": b.ID.String()},
				)
			}
		}
		snapshot.Bullets = append(snapshot.Bullets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, errors.StorageFailed, "failed to iterate bullets")
	}

	if err := snapshot.Validate(); err != nil {
		return nil, err
	}
	return snapshot, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.db.Close(); err != nil {
		return errors.Wrap(err, errors.StorageFailed, "failed to close database")
	}
	return nil
}

var _ Store = (*SQLiteStore)(nil)
