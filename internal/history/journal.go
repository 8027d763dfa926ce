// Package history keeps a local sqlite journal of compiled queries.
//
// Each distinct query (by canonical fingerprint) is stored once with its
// wire JSON, the cube it targets, a hit count and first/last seen times.
// The journal never stores results.
package history

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/cubeq/internal/wire"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Added index on queries.last_seen for newest-first listing
const currentSchemaVersion = 1

// ErrNotFound is returned by Get for an unknown fingerprint.
var ErrNotFound = errors.New("query not found")

// timeLayout keeps stored timestamps sortable as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Entry is one journaled query.
type Entry struct {
	Fingerprint string     `json:"fingerprint"`
	QueryID     string     `json:"query_id"`
	Cube        string     `json:"cube"`
	Query       wire.Query `json:"query"`
	Hits        int        `json:"hits"`
	FirstSeen   time.Time  `json:"first_seen"`
	LastSeen    time.Time  `json:"last_seen"`
}

// Journal is a handle to the journal database.
type Journal struct {
	db *sql.DB
}

// Open creates or opens a journal at path.
//
// The database is configured with:
//   - WAL mode for concurrent reads during writes
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	if j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Record stores q, or bumps its hit count and last-seen time if the same
// query was recorded before. It returns the stored entry.
func (j *Journal) Record(ctx context.Context, cubeName string, q wire.Query, at time.Time) (Entry, error) {
	fingerprint, err := wire.Fingerprint(q)
	if err != nil {
		return Entry{}, err
	}
	id, err := wire.QueryID(q)
	if err != nil {
		return Entry{}, err
	}
	data, err := json.Marshal(q)
	if err != nil {
		return Entry{}, fmt.Errorf("marshal query: %w", err)
	}

	ts := at.UTC().Format(timeLayout)
	_, err = j.db.ExecContext(ctx, `
		INSERT INTO queries (fingerprint, query_id, cube, query_json, hits, first_seen, last_seen)
		VALUES (?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(fingerprint) DO UPDATE SET
			hits = hits + 1,
			last_seen = excluded.last_seen
	`, fingerprint, id.String(), cubeName, string(data), ts, ts)
	if err != nil {
		return Entry{}, fmt.Errorf("record query: %w", err)
	}

	return j.Get(ctx, fingerprint)
}

// Get returns the entry for fingerprint, or ErrNotFound.
func (j *Journal) Get(ctx context.Context, fingerprint string) (Entry, error) {
	row := j.db.QueryRowContext(ctx, `
		SELECT fingerprint, query_id, cube, query_json, hits, first_seen, last_seen
		FROM queries WHERE fingerprint = ?
	`, fingerprint)

	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, fingerprint)
	}
	return e, err
}

// List returns up to limit entries, most recently seen first. A limit of
// zero or less returns every entry.
func (j *Journal) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := j.db.QueryContext(ctx, `
		SELECT fingerprint, query_id, cube, query_json, hits, first_seen, last_seen
		FROM queries
		ORDER BY last_seen DESC, fingerprint ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list queries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list queries: %w", err)
	}
	return entries, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e                   Entry
		queryJSON           string
		firstSeen, lastSeen string
	)
	if err := s.Scan(&e.Fingerprint, &e.QueryID, &e.Cube, &queryJSON, &e.Hits, &firstSeen, &lastSeen); err != nil {
		return Entry{}, err
	}
	if err := json.Unmarshal([]byte(queryJSON), &e.Query); err != nil {
		return Entry{}, fmt.Errorf("decode stored query %s: %w", e.Fingerprint, err)
	}
	var err error
	if e.FirstSeen, err = time.Parse(timeLayout, firstSeen); err != nil {
		return Entry{}, fmt.Errorf("decode first_seen: %w", err)
	}
	if e.LastSeen, err = time.Parse(timeLayout, lastSeen); err != nil {
		return Entry{}, fmt.Errorf("decode last_seen: %w", err)
	}
	return e, nil
}

// applyPragmas sets required SQLite configuration.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 adds the last_seen index used by List.
func migrateToV1(db *sql.DB) error {
	_, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_queries_last_seen ON queries(last_seen)`)
	if err != nil {
		return fmt.Errorf("migrate to v1: %w", err)
	}
	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (j *Journal) verifyPragma(name, expected string) error {
	var value string
	if err := j.db.QueryRow(fmt.Sprintf("PRAGMA %s", name)).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
