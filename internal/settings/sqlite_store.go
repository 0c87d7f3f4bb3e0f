package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/cooksync/cooksync/internal/domain"
)

// SQLiteStore keeps settings in a SQLite database: scalar fields in a
// key/value table and the imported record IDs in an append-only table.
type SQLiteStore struct {
	db *sql.DB
}

const (
	keyToken          = "token"
	keyTargetDir      = "cooksyncDir"
	keyIsSyncing      = "isSyncing"
	keyTriggerOnLoad  = "triggerOnLoad"
	keyLastSyncFailed = "lastSyncFailed"
	keyLastSyncTime   = "lastSyncTime"
	// keyIDsPresent marks that the ID list was saved at least once, so an
	// empty table still loads as a present (empty) list.
	keyIDsPresent = "recipeIDs"
)

// OpenSQLiteStore opens (creating if needed) the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("settings path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create settings dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open settings db: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS settings (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS imported_records (
			seq       INTEGER PRIMARY KEY AUTOINCREMENT,
			record_id INTEGER NOT NULL
		);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create settings schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Load implements Store.
func (s *SQLiteStore) Load(ctx context.Context) (domain.PartialSettings, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return domain.PartialSettings{}, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	var doc document
	idsPresent := false
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return domain.PartialSettings{}, fmt.Errorf("scan settings: %w", err)
		}

		var target any
		switch key {
		case keyToken:
			target = &doc.Token
		case keyTargetDir:
			target = &doc.CooksyncDir
		case keyIsSyncing:
			target = &doc.IsSyncing
		case keyTriggerOnLoad:
			target = &doc.TriggerOnLoad
		case keyLastSyncFailed:
			target = &doc.LastSyncFailed
		case keyLastSyncTime:
			target = &doc.LastSyncTime
		case keyIDsPresent:
			idsPresent = true
			continue
		default:
			continue
		}
		if err := json.Unmarshal([]byte(value), target); err != nil {
			return domain.PartialSettings{}, fmt.Errorf("decode setting %s: %w", key, err)
		}
	}
	if err := rows.Err(); err != nil {
		return domain.PartialSettings{}, err
	}

	if idsPresent {
		ids, err := s.importedIDs(ctx)
		if err != nil {
			return domain.PartialSettings{}, err
		}
		doc.RecipeIDs = ids
	}
	return doc.partial(), nil
}

func (s *SQLiteStore) importedIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record_id FROM imported_records ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("query imported records: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan imported record: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Save implements Store. Scalar fields are upserted; only the tail of
// the ID list beyond what is already stored gets inserted.
func (s *SQLiteStore) Save(ctx context.Context, st domain.Settings) error {
	doc := toDocument(st)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin settings tx: %w", err)
	}
	defer tx.Rollback()

	values := map[string]any{
		keyToken:          doc.Token,
		keyTargetDir:      doc.CooksyncDir,
		keyIsSyncing:      doc.IsSyncing,
		keyTriggerOnLoad:  doc.TriggerOnLoad,
		keyLastSyncFailed: doc.LastSyncFailed,
		keyIDsPresent:     true,
	}
	if doc.LastSyncTime != nil {
		values[keyLastSyncTime] = doc.LastSyncTime
	} else if _, err := tx.ExecContext(ctx, `DELETE FROM settings WHERE key = ?`, keyLastSyncTime); err != nil {
		return fmt.Errorf("clear %s: %w", keyLastSyncTime, err)
	}

	for key, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode setting %s: %w", key, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO settings (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, key, string(raw)); err != nil {
			return fmt.Errorf("save setting %s: %w", key, err)
		}
	}

	var stored int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM imported_records`).Scan(&stored); err != nil {
		return fmt.Errorf("count imported records: %w", err)
	}
	if stored > len(doc.RecipeIDs) {
		// The list shrank, which only happens when state was reset by hand.
		if _, err := tx.ExecContext(ctx, `DELETE FROM imported_records`); err != nil {
			return fmt.Errorf("reset imported records: %w", err)
		}
		stored = 0
	}
	for _, id := range doc.RecipeIDs[stored:] {
		if _, err := tx.ExecContext(ctx, `INSERT INTO imported_records (record_id) VALUES (?)`, id); err != nil {
			return fmt.Errorf("insert imported record %d: %w", id, err)
		}
	}

	return tx.Commit()
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
