package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// A single connection keeps ":memory:" databases shared and serializes
	// writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// SchemaVersion returns the highest applied migration.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.GetContext(ctx, &v, "SELECT COALESCE(MAX(version), 0) FROM schema_version"); err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	return v, nil
}

// savedAtLayout is fixed width so saved_at compares correctly as text.
const savedAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

type snapshotRow struct {
	UserID   int64  `db:"user_id"`
	Resource string `db:"resource"`
	Payload  string `db:"payload"`
	Meta     string `db:"meta"`
	SavedAt  string `db:"saved_at"`
}

// SaveSnapshot inserts or replaces the snapshot for (userID, res).
func (s *SQLiteStore) SaveSnapshot(
	ctx context.Context,
	userID int64,
	res Resource,
	items, meta interface{},
) error {
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshaling %s snapshot: %w", res, err)
	}
	metaJSON := []byte("{}")
	if meta != nil {
		metaJSON, err = json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshaling %s snapshot meta: %w", res, err)
		}
	}

	row := snapshotRow{
		UserID:   userID,
		Resource: string(res),
		Payload:  string(payload),
		Meta:     string(metaJSON),
		SavedAt:  time.Now().UTC().Format(savedAtLayout),
	}

	const query = `
		INSERT OR REPLACE INTO snapshots (user_id, resource, payload, meta, saved_at)
		VALUES (:user_id, :resource, :payload, :meta, :saved_at)`

	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("saving %s snapshot for user %d: %w", res, userID, err)
	}
	return nil
}

// LoadSnapshot reads the snapshot for (userID, res).
func (s *SQLiteStore) LoadSnapshot(
	ctx context.Context,
	userID int64,
	res Resource,
	items, meta interface{},
) (time.Time, bool, error) {
	var row snapshotRow
	err := s.db.GetContext(ctx, &row,
		"SELECT * FROM snapshots WHERE user_id = ? AND resource = ?",
		userID, string(res),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("loading %s snapshot for user %d: %w", res, userID, err)
	}

	if err := json.Unmarshal([]byte(row.Payload), items); err != nil {
		return time.Time{}, false, fmt.Errorf("decoding %s snapshot: %w", res, err)
	}
	if meta != nil {
		if err := json.Unmarshal([]byte(row.Meta), meta); err != nil {
			return time.Time{}, false, fmt.Errorf("decoding %s snapshot meta: %w", res, err)
		}
	}

	savedAt, err := time.Parse(savedAtLayout, row.SavedAt)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parsing %s snapshot time: %w", res, err)
	}
	return savedAt, true, nil
}

// DeleteSnapshots removes every snapshot owned by userID.
func (s *SQLiteStore) DeleteSnapshots(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM snapshots WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("deleting snapshots for user %d: %w", userID, err)
	}
	return nil
}

// PruneSnapshots removes snapshots saved before cutoff.
func (s *SQLiteStore) PruneSnapshots(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM snapshots WHERE saved_at < ?",
		cutoff.UTC().Format(savedAtLayout),
	)
	if err != nil {
		return 0, fmt.Errorf("pruning snapshots: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting pruned snapshots: %w", err)
	}
	return n, nil
}
