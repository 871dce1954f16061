package geocache

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/jukenmap/jukenmap/internal/model"
)

// Pool is the subset of pgxpool.Pool the Postgres store uses. pgxmock pools
// satisfy it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	cache_key TEXT PRIMARY KEY,
	lat       DOUBLE PRECISION NOT NULL,
	lng       DOUBLE PRECISION NOT NULL,
	cached_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const postgresInsert = `INSERT INTO geocode_cache (cache_key, lat, lng) VALUES ($1, $2, $3) ON CONFLICT (cache_key) DO NOTHING`

// PostgresStore keeps the cache in a Postgres table.
type PostgresStore struct {
	pool Pool
}

// NewPostgresStore connects to connString and applies the schema.
func NewPostgresStore(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "geocache: postgres parse config")
	}
	cfg.MaxConns = 4
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "geocache: postgres connect")
	}

	s := NewPostgresStoreFromPool(pool)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStoreFromPool wraps an existing pool.
func NewPostgresStoreFromPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the cache table if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "geocache: postgres migrate")
}

func (s *PostgresStore) Load(ctx context.Context) (map[string]model.Coordinate, error) {
	rows, err := s.pool.Query(ctx, `SELECT cache_key, lat, lng FROM geocode_cache`)
	if err != nil {
		return nil, eris.Wrap(err, "geocache: postgres load")
	}
	defer rows.Close()

	entries := make(map[string]model.Coordinate)
	for rows.Next() {
		var key string
		var c model.Coordinate
		if err := rows.Scan(&key, &c.Lat, &c.Lng); err != nil {
			return nil, eris.Wrap(err, "geocache: postgres scan")
		}
		entries[key] = c
	}
	return entries, eris.Wrap(rows.Err(), "geocache: postgres rows")
}

func (s *PostgresStore) Save(ctx context.Context, entries map[string]model.Coordinate) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "geocache: postgres begin")
	}

	for key, c := range entries {
		if _, err := tx.Exec(ctx, postgresInsert, key, c.Lat, c.Lng); err != nil {
			_ = tx.Rollback(ctx)
			return eris.Wrapf(err, "geocache: postgres insert %s", key)
		}
	}
	return eris.Wrap(tx.Commit(ctx), "geocache: postgres commit")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
