// Package sqlite keeps the settings record in a SQLite database, one row per
// card plus a single row for the remaining collection settings.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/Kazi-Aidah/sidecards/pkg/core"
)

const schemaVersion = "1"

// DatabaseFileName is the default database file inside the system directory.
const DatabaseFileName = "settings.db"

// Settings implements core.SettingsStore using SQLite.
type Settings struct {
	db     *sql.DB
	dbPath string
}

var _ core.SettingsStore = (*Settings)(nil)

// Open opens (creating if needed) the database at dbPath.
func Open(dbPath string) (*Settings, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec(`
		PRAGMA synchronous = NORMAL;
		PRAGMA busy_timeout = 5000;

		CREATE TABLE IF NOT EXISTS cards (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			body TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS settings (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			body TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_cards_position ON cards(position);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to setup database: %w", err)
	}

	if _, err := db.Exec(`INSERT OR REPLACE INTO meta (key, value) VALUES ('schema_version', ?)`, schemaVersion); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to update metadata: %w", err)
	}

	return &Settings{db: db, dbPath: dbPath}, nil
}

// Close closes the database connection.
func (s *Settings) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Load assembles the record from the settings row and the card rows.
func (s *Settings) Load(ctx context.Context) (core.Record, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT body FROM settings WHERE id = 1`).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DefaultRecord(), nil
	}
	if err != nil {
		return core.Record{}, fmt.Errorf("failed to read settings: %w", err)
	}

	var r core.Record
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return core.Record{}, fmt.Errorf("failed to decode settings: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT body FROM cards ORDER BY position`)
	if err != nil {
		return core.Record{}, fmt.Errorf("failed to read cards: %w", err)
	}
	defer rows.Close()

	r.Cards = []core.Card{}
	for rows.Next() {
		var cardBody string
		if err := rows.Scan(&cardBody); err != nil {
			return core.Record{}, err
		}
		// Rows that are not a card object are skipped; the rest still load.
		var c core.Card
		if err := json.Unmarshal([]byte(cardBody), &c); err != nil {
			continue
		}
		r.Cards = append(r.Cards, c)
	}
	if err := rows.Err(); err != nil {
		return core.Record{}, err
	}

	r.Normalize()
	return r, nil
}

// Save replaces the stored record in one transaction.
func (s *Settings) Save(ctx context.Context, r core.Record) error {
	cards := r.Cards
	r.Cards = nil
	body, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO settings (id, body) VALUES (1, ?)`, string(body)); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cards`); err != nil {
		return fmt.Errorf("failed to clear cards: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO cards (id, position, body) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, c := range cards {
		cardBody, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("failed to encode card %s: %w", c.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, c.ID, i, string(cardBody)); err != nil {
			return fmt.Errorf("failed to write card %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// CardCount returns the number of stored card rows.
func (s *Settings) CardCount(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cards`).Scan(&n)
	return n, err
}
