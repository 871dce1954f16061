package geocache

import (
	"context"

	"github.com/rotisserie/eris"
)

// Driver names accepted by Open.
const (
	DriverJSON     = "json"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// OpenOptions selects and locates a cache store.
type OpenOptions struct {
	Driver      string
	Path        string
	DatabaseURL string
}

// Open creates the Store named by opts.Driver.
func Open(ctx context.Context, opts OpenOptions) (Store, error) {
	switch opts.Driver {
	case DriverJSON, "":
		if opts.Path == "" {
			return nil, eris.New("geocache: json store requires a path")
		}
		return NewJSONFileStore(opts.Path), nil
	case DriverSQLite:
		if opts.Path == "" {
			return nil, eris.New("geocache: sqlite store requires a path")
		}
		return NewSQLiteStore(ctx, opts.Path)
	case DriverPostgres:
		if opts.DatabaseURL == "" {
			return nil, eris.New("geocache: postgres store requires a database url")
		}
		return NewPostgresStore(ctx, opts.DatabaseURL)
	case DriverMemory:
		return NewMemoryStore(nil), nil
	default:
		return nil, eris.Errorf("geocache: unknown driver %q", opts.Driver)
	}
}
