// Copyright 2026 The majordomo Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package learning implements the correction loop: unrecognized inputs are
// recorded as misses, explicit corrections bind misses to intents, and
// repeated corrections are compiled into new recognition rules.
package learning

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	log "github.com/sirupsen/logrus"
)

// ErrNotInitialized is returned when the store is used before Initialize.
var ErrNotInitialized = errors.New("learning: store not initialized")

// Miss records a raw input no pipeline stage handled.
type Miss struct {
	ID              int64     `json:"id"`
	Text            string    `json:"text"`
	Corrected       bool      `json:"corrected"`
	CorrectedIntent string    `json:"corrected_intent,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Alias is a generated recognition rule derived from repeated corrections.
type Alias struct {
	ID        int64     `json:"id"`
	Text      string    `json:"text"`
	Intent    string    `json:"intent"`
	CreatedAt time.Time `json:"created_at"`
}

// CorrectionGroup aggregates corrected misses sharing the same literal text
// and resolved intent.
type CorrectionGroup struct {
	Text   string
	Intent string
	Count  int
}

// Store persists misses and generated aliases in SQLite.
type Store struct {
	db     *sql.DB
	dbPath string
}

// NewStore creates a store for the given database path. The database is not
// opened until Initialize is called.
func NewStore(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("learning: database path cannot be empty")
	}
	return &Store{dbPath: dbPath}, nil
}

// newStoreWithDB wires an existing database handle; used by tests.
func newStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Initialize opens the database and creates the schema.
func (s *Store) Initialize(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(s.dbPath), 0o755); err != nil {
		return fmt.Errorf("learning: failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", s.dbPath)
	if err != nil {
		return fmt.Errorf("learning: failed to open database: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS misses (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		text TEXT NOT NULL,
		corrected INTEGER NOT NULL DEFAULT 0,
		corrected_intent TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS aliases (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		text TEXT NOT NULL,
		intent TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		UNIQUE(text, intent)
	);

	CREATE INDEX IF NOT EXISTS idx_misses_corrected ON misses(corrected);
	CREATE INDEX IF NOT EXISTS idx_misses_text ON misses(text);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return fmt.Errorf("learning: failed to create schema: %w", err)
	}

	s.db = db
	log.Infof("Learning store initialized (db: %s)", s.dbPath)
	return nil
}

// InsertMiss appends an uncorrected miss record.
func (s *Store) InsertMiss(ctx context.Context, text string) (int64, error) {
	if s.db == nil {
		return 0, ErrNotInitialized
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO misses (text, corrected, corrected_intent, created_at) VALUES (?, 0, '', ?)`,
		text, time.Now())
	if err != nil {
		return 0, fmt.Errorf("learning: failed to insert miss: %w", err)
	}
	return result.LastInsertId()
}

// PruneMisses deletes uncorrected misses older than the retention window.
// Corrected misses are kept; they carry the repetition counts alias
// generation works from.
func (s *Store) PruneMisses(ctx context.Context, olderThan time.Duration) (int64, error) {
	if s.db == nil {
		return 0, ErrNotInitialized
	}

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM misses WHERE corrected = 0 AND created_at < ?`,
		time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("learning: failed to prune misses: %w", err)
	}
	return result.RowsAffected()
}

// LatestUncorrected returns the most recent miss with corrected == false.
// The boolean is false when every miss has been corrected or none exist.
func (s *Store) LatestUncorrected(ctx context.Context) (*Miss, bool, error) {
	if s.db == nil {
		return nil, false, ErrNotInitialized
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, text, corrected, corrected_intent, created_at
		 FROM misses WHERE corrected = 0 ORDER BY id DESC LIMIT 1`)

	miss, err := scanMiss(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("learning: failed to query misses: %w", err)
	}
	return miss, true, nil
}

// MarkCorrected flips a miss to corrected with the resolved intent.
// A miss is mutated exactly once: re-correcting returns an error.
func (s *Store) MarkCorrected(ctx context.Context, id int64, intent string) error {
	if s.db == nil {
		return ErrNotInitialized
	}

	result, err := s.db.ExecContext(ctx,
		`UPDATE misses SET corrected = 1, corrected_intent = ? WHERE id = ? AND corrected = 0`,
		intent, id)
	if err != nil {
		return fmt.Errorf("learning: failed to mark miss corrected: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("learning: failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("learning: miss %d not found or already corrected", id)
	}
	return nil
}

// LookupCorrection returns the most recently resolved intent for a literal
// input text, when any corrected miss matches it.
func (s *Store) LookupCorrection(ctx context.Context, text string) (string, bool, error) {
	if s.db == nil {
		return "", false, ErrNotInitialized
	}

	var intent string
	err := s.db.QueryRowContext(ctx,
		`SELECT corrected_intent FROM misses
		 WHERE corrected = 1 AND text = ? ORDER BY id DESC LIMIT 1`,
		text).Scan(&intent)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("learning: failed to look up correction: %w", err)
	}
	return intent, intent != "", nil
}

// CorrectionGroups aggregates corrected misses by (text, intent) pair.
func (s *Store) CorrectionGroups(ctx context.Context) ([]CorrectionGroup, error) {
	if s.db == nil {
		return nil, ErrNotInitialized
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT text, corrected_intent, COUNT(*) FROM misses
		 WHERE corrected = 1 GROUP BY text, corrected_intent ORDER BY text, corrected_intent`)
	if err != nil {
		return nil, fmt.Errorf("learning: failed to group corrections: %w", err)
	}
	defer rows.Close()

	var groups []CorrectionGroup
	for rows.Next() {
		var g CorrectionGroup
		if err := rows.Scan(&g.Text, &g.Intent, &g.Count); err != nil {
			log.Warnf("Failed to scan correction group: %v", err)
			continue
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("learning: error iterating correction groups: %w", err)
	}
	return groups, nil
}

// HasAlias reports whether a rule was already generated for a pair.
func (s *Store) HasAlias(ctx context.Context, text, intent string) (bool, error) {
	if s.db == nil {
		return false, ErrNotInitialized
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM aliases WHERE text = ? AND intent = ?`, text, intent).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("learning: failed to check alias: %w", err)
	}
	return count > 0, nil
}

// InsertAlias records a generated alias.
func (s *Store) InsertAlias(ctx context.Context, text, intent string) error {
	if s.db == nil {
		return ErrNotInitialized
	}

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO aliases (text, intent, created_at) VALUES (?, ?, ?)`,
		text, intent, time.Now()); err != nil {
		return fmt.Errorf("learning: failed to insert alias: %w", err)
	}
	return nil
}

// Misses returns up to limit most recent misses, newest first.
func (s *Store) Misses(ctx context.Context, limit int) ([]*Miss, error) {
	if s.db == nil {
		return nil, ErrNotInitialized
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, corrected, corrected_intent, created_at
		 FROM misses ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("learning: failed to query misses: %w", err)
	}
	defer rows.Close()

	var misses []*Miss
	for rows.Next() {
		miss, err := scanMiss(rows)
		if err != nil {
			log.Warnf("Failed to scan miss record: %v", err)
			continue
		}
		misses = append(misses, miss)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("learning: error iterating misses: %w", err)
	}
	return misses, nil
}

// Aliases returns all generated aliases, oldest first.
func (s *Store) Aliases(ctx context.Context) ([]*Alias, error) {
	if s.db == nil {
		return nil, ErrNotInitialized
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, intent, created_at FROM aliases ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("learning: failed to query aliases: %w", err)
	}
	defer rows.Close()

	var aliases []*Alias
	for rows.Next() {
		var a Alias
		if err := rows.Scan(&a.ID, &a.Text, &a.Intent, &a.CreatedAt); err != nil {
			log.Warnf("Failed to scan alias record: %v", err)
			continue
		}
		aliases = append(aliases, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("learning: error iterating aliases: %w", err)
	}
	return aliases, nil
}

// Stats returns aggregate counts for the stats surface.
func (s *Store) Stats(ctx context.Context) (map[string]interface{}, error) {
	if s.db == nil {
		return nil, ErrNotInitialized
	}

	stats := make(map[string]interface{})

	var total, corrected, aliases int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM misses`).Scan(&total); err != nil {
		return nil, fmt.Errorf("learning: failed to count misses: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM misses WHERE corrected = 1`).Scan(&corrected); err != nil {
		return nil, fmt.Errorf("learning: failed to count corrections: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM aliases`).Scan(&aliases); err != nil {
		return nil, fmt.Errorf("learning: failed to count aliases: %w", err)
	}

	stats["total_misses"] = total
	stats["corrected_misses"] = corrected
	stats["generated_aliases"] = aliases
	if total > 0 {
		stats["correction_rate"] = float64(corrected) / float64(total)
	} else {
		stats["correction_rate"] = 0.0
	}
	return stats, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("learning: failed to close database: %w", err)
	}
	s.db = nil
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMiss(row rowScanner) (*Miss, error) {
	var miss Miss
	var correctedInt int
	if err := row.Scan(&miss.ID, &miss.Text, &correctedInt, &miss.CorrectedIntent, &miss.CreatedAt); err != nil {
		return nil, err
	}
	miss.Corrected = correctedInt == 1
	return &miss, nil
}
