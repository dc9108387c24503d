package session

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/KirkDiggler/rpg-tabletop/internal/entities"
	"github.com/KirkDiggler/rpg-tabletop/internal/errors"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const migrationTable = "schema_migrations"

// SQLiteRepository implements Repository on a single SQLite file
type SQLiteRepository struct {
	db *sql.DB
}

// Ensure SQLiteRepository implements Repository
var _ Repository = (*SQLiteRepository)(nil)

// OpenSQLite opens (creating if needed) the database at path and applies
// migrations.
func OpenSQLite(path string) (*SQLiteRepository, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.InvalidArgument("sqlite path is required")
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, errors.Storage(err, "open sqlite db")
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, errors.Storage(err, "ping sqlite db")
	}

	if err := applyMigrations(db); err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "run migrations")
	}

	return &SQLiteRepository{db: db}, nil
}

// Close releases the SQLite connection
func (r *SQLiteRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// GetWorldState loads the state JSON for a session
func (r *SQLiteRepository) GetWorldState(ctx context.Context, input GetWorldStateInput) (*GetWorldStateOutput, error) {
	if input.SessionID == "" {
		return nil, errors.InvalidArgument(errSessionIDEmpty)
	}

	var data string
	err := r.db.QueryRowContext(ctx,
		`SELECT data FROM world_states WHERE session_id = ?`, input.SessionID,
	).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundf("world state for session %s not found", input.SessionID)
	}
	if err != nil {
		return nil, errors.Storage(err, "failed to get world state")
	}

	var state entities.WorldState
	if err := json.Unmarshal([]byte(data), &state); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal world state")
	}

	return &GetWorldStateOutput{State: &state}, nil
}

// Commit upserts the state and inserts the entry in one transaction
func (r *SQLiteRepository) Commit(ctx context.Context, input CommitInput) (*CommitOutput, error) {
	if err := validateCommit(input); err != nil {
		return nil, err
	}

	stateJSON, err := json.Marshal(input.State)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal world state")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Storage(err, "begin commit transaction")
	}
	defer func() { _ = tx.Rollback() }()

	var stored int64
	err = tx.QueryRowContext(ctx,
		`SELECT version FROM world_states WHERE session_id = ?`, input.State.SessionID,
	).Scan(&stored)
	if err != nil && err != sql.ErrNoRows {
		return nil, errors.Storage(err, "failed to read world state version")
	}
	if input.State.Version != stored+1 {
		return nil, versionConflict(stored, input.State.Version)
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO world_states (session_id, version, data, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT(session_id) DO UPDATE SET
	version = excluded.version,
	data = excluded.data,
	updated_at = excluded.updated_at
`,
		input.State.SessionID,
		input.State.Version,
		string(stateJSON),
		input.State.UpdatedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return nil, errors.Storage(err, "failed to write world state")
	}

	entry, err := insertEntry(ctx, tx, input.Entry)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Storage(err, "failed to commit world state")
	}

	return &CommitOutput{Entry: entry}, nil
}

// AppendEntry inserts an entry on its own
func (r *SQLiteRepository) AppendEntry(ctx context.Context, input AppendEntryInput) (*AppendEntryOutput, error) {
	if err := validateEntry(input.Entry); err != nil {
		return nil, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Storage(err, "begin append transaction")
	}
	defer func() { _ = tx.Rollback() }()

	entry, err := insertEntry(ctx, tx, input.Entry)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Storage(err, "failed to append ledger entry")
	}

	return &AppendEntryOutput{Entry: entry}, nil
}

// PageEntries lists entries newest-first
func (r *SQLiteRepository) PageEntries(ctx context.Context, input PageEntriesInput) (*PageEntriesOutput, error) {
	if err := validatePage(input); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT data FROM ledger_entries
WHERE session_id = ?
ORDER BY sequence DESC
LIMIT ? OFFSET ?
`, input.SessionID, input.Limit, input.Offset)
	if err != nil {
		return nil, errors.Storage(err, "failed to page ledger entries")
	}
	defer func() { _ = rows.Close() }()

	entries := make([]*entities.LedgerEntry, 0, input.Limit)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, errors.Storage(err, "failed to scan ledger entry")
		}
		var entry entities.LedgerEntry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			return nil, errors.Wrapf(err, "failed to unmarshal ledger entry")
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Storage(err, "failed to iterate ledger entries")
	}

	count, err := r.CountEntries(ctx, CountEntriesInput{SessionID: input.SessionID})
	if err != nil {
		return nil, err
	}

	return &PageEntriesOutput{
		Entries: entries,
		Total:   count.Count,
	}, nil
}

// CountEntries returns the ledger size
func (r *SQLiteRepository) CountEntries(ctx context.Context, input CountEntriesInput) (*CountEntriesOutput, error) {
	if input.SessionID == "" {
		return nil, errors.InvalidArgument(errSessionIDEmpty)
	}

	var count int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM ledger_entries WHERE session_id = ?`, input.SessionID,
	).Scan(&count)
	if err != nil {
		return nil, errors.Storage(err, "failed to count ledger entries")
	}

	return &CountEntriesOutput{Count: count}, nil
}

func insertEntry(ctx context.Context, tx *sql.Tx, entry *entities.LedgerEntry) (*entities.LedgerEntry, error) {
	var last int64
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(sequence), 0) FROM ledger_entries WHERE session_id = ?`, entry.SessionID,
	).Scan(&last)
	if err != nil {
		return nil, errors.Storage(err, "failed to read ledger sequence")
	}

	stored := withSequence(entry, last+1)
	data, err := json.Marshal(stored)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal ledger entry")
	}

	_, err = tx.ExecContext(ctx, `
INSERT INTO ledger_entries (session_id, sequence, entry_id, kind, actor_id, recorded_at, data)
VALUES (?, ?, ?, ?, ?, ?, ?)
`,
		stored.SessionID,
		stored.Sequence,
		stored.ID,
		string(stored.Kind()),
		stored.ActorID,
		stored.Timestamp.UTC().UnixMilli(),
		string(data),
	)
	if err != nil {
		return nil, errors.Storage(err, "failed to insert ledger entry")
	}

	return stored, nil
}

// applyMigrations runs each embedded migration at most once
func applyMigrations(db *sql.DB) error {
	files, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return errors.Wrap(err, "list migrations")
	}
	sort.Strings(files)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
)`); err != nil {
		return errors.Storage(err, "ensure migration table")
	}

	for _, file := range files {
		var found int
		err := db.QueryRow(`SELECT 1 FROM `+migrationTable+` WHERE name = ?`, file).Scan(&found)
		if err == nil {
			continue
		}
		if err != sql.ErrNoRows {
			return errors.Storage(err, "check migration "+file)
		}

		content, err := fs.ReadFile(migrationFS, file)
		if err != nil {
			return errors.Wrapf(err, "read migration %s", file)
		}

		tx, err := db.Begin()
		if err != nil {
			return errors.Storage(err, "begin migration "+file)
		}
		if _, err := tx.Exec(upSection(string(content))); err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "exec migration %s", file)
		}
		if _, err := tx.Exec(
			`INSERT INTO `+migrationTable+` (name, applied_at) VALUES (?, ?)`,
			file, time.Now().UTC().UnixMilli(),
		); err != nil {
			_ = tx.Rollback()
			return errors.Wrapf(err, "record migration %s", file)
		}
		if err := tx.Commit(); err != nil {
			return errors.Storage(err, "commit migration "+file)
		}
	}

	return nil
}

func upSection(content string) string {
	const up, down = "-- +migrate Up", "-- +migrate Down"
	start := strings.Index(content, up)
	if start == -1 {
		return content
	}
	content = content[start+len(up):]
	if end := strings.Index(content, down); end != -1 {
		content = content[:end]
	}
	return content
}
