package geocache

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/jukenmap/jukenmap/internal/model"
)

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	cache_key TEXT PRIMARY KEY,
	lat       REAL NOT NULL,
	lng       REAL NOT NULL,
	cached_at DATETIME NOT NULL DEFAULT (datetime('now'))
);
`

// SQLiteStore keeps the cache in a SQLite table via modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at dsn in WAL mode
// and applies the schema.
func NewSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "geocache: sqlite open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "geocache: sqlite exec %s", pragma)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteMigration); err != nil {
		db.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "geocache: sqlite migrate")
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (map[string]model.Coordinate, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT cache_key, lat, lng FROM geocode_cache`)
	if err != nil {
		return nil, eris.Wrap(err, "geocache: sqlite load")
	}
	defer rows.Close() //nolint:errcheck

	entries := make(map[string]model.Coordinate)
	for rows.Next() {
		var key string
		var c model.Coordinate
		if err := rows.Scan(&key, &c.Lat, &c.Lng); err != nil {
			return nil, eris.Wrap(err, "geocache: sqlite scan")
		}
		entries[key] = c
	}
	return entries, eris.Wrap(rows.Err(), "geocache: sqlite rows")
}

func (s *SQLiteStore) Save(ctx context.Context, entries map[string]model.Coordinate) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "geocache: sqlite begin")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO geocode_cache (cache_key, lat, lng) VALUES (?, ?, ?) ON CONFLICT(cache_key) DO NOTHING`)
	if err != nil {
		tx.Rollback() //nolint:errcheck
		return eris.Wrap(err, "geocache: sqlite prepare")
	}
	defer stmt.Close() //nolint:errcheck

	for key, c := range entries {
		if _, err := stmt.ExecContext(ctx, key, c.Lat, c.Lng); err != nil {
			tx.Rollback() //nolint:errcheck
			return eris.Wrapf(err, "geocache: sqlite insert %s", key)
		}
	}
	return eris.Wrap(tx.Commit(), "geocache: sqlite commit")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
