package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// DefaultLimit is the number of entries Recent returns for a limit < 1.
const DefaultLimit = 50

// SQLiteJournal implements Journal using a local SQLite database.
type SQLiteJournal struct {
	db *sqlx.DB
}

// NewSQLiteJournal opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteJournal(dbPath string) (*SQLiteJournal, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Each connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	j := &SQLiteJournal{db: db}
	if err := j.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return j, nil
}

// Close closes the underlying database connection.
func (j *SQLiteJournal) Close() error {
	return j.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (j *SQLiteJournal) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := j.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = j.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := j.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// Record inserts entries in one transaction. Missing IDs and timestamps
// are filled in.
func (j *SQLiteJournal) Record(ctx context.Context, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := j.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO actions (
			id, action, uid, mailbox, target, outcome, error, created_at
		) VALUES (
			:id, :action, :uid, :mailbox, :target, :outcome, :error, :created_at
		)`

	now := time.Now().UTC()
	for _, e := range entries {
		if e.ID == "" {
			e.ID = uuid.New().String()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		e.CreatedAt = e.CreatedAt.UTC()

		if _, err := tx.NamedExecContext(ctx, query, e); err != nil {
			return fmt.Errorf("recording %s of uid %d: %w", e.Action, e.UID, err)
		}
	}

	return tx.Commit()
}

// Recent returns the newest entries first.
func (j *SQLiteJournal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit < 1 {
		limit = DefaultLimit
	}

	entries := []Entry{}
	err := j.db.SelectContext(ctx, &entries, `
		SELECT id, action, uid, mailbox, target, outcome, error, created_at
		FROM actions
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent actions: %w", err)
	}
	return entries, nil
}
