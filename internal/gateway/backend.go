package gateway

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
)

// Backend names a storage backend for the data sources.
type Backend string

const (
	BackendMemory   Backend = "memory"
	BackendCSV      Backend = "csv"
	BackendSQLite   Backend = "sqlite"
	BackendPostgres Backend = "postgres"
	BackendMySQL    Backend = "mysql"
)

// ErrUnknownBackend is returned for backend names outside the supported set.
var ErrUnknownBackend = errors.New("unknown data backend")

// ParseBackend validates a backend name. The empty string means memory.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case "":
		return BackendMemory, nil
	case BackendMemory, BackendCSV, BackendSQLite, BackendPostgres, BackendMySQL:
		return b, nil
	case "postgresql", "pg":
		return BackendPostgres, nil
	case "sqlite3":
		return BackendSQLite, nil
	default:
		return "", fmt.Errorf("%w: %q (want memory, csv, sqlite, postgres or mysql)", ErrUnknownBackend, s)
	}
}

// IsSQL reports whether the backend is served through database/sql.
func (b Backend) IsSQL() bool {
	return b == BackendSQLite || b == BackendPostgres || b == BackendMySQL
}

func (b Backend) driverName() string {
	switch b {
	case BackendSQLite:
		return "sqlite3"
	case BackendPostgres:
		return "pgx"
	case BackendMySQL:
		return "mysql"
	default:
		return ""
	}
}

// OpenDB opens and pings a SQL database for a SQL backend.
func OpenDB(b Backend, dsn string) (*sql.DB, error) {
	if !b.IsSQL() {
		return nil, fmt.Errorf("%w: %q is not a SQL backend", ErrUnknownBackend, b)
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%s backend requires a dsn (set data.dsn)", b)
	}
	db, err := sql.Open(b.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", b, err)
	}
	if b == BackendSQLite {
		// A single connection avoids "database is locked" and keeps
		// ":memory:" databases shared across queries.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("connect to %s database: %w", b, err)
	}
	return db, nil
}

// Options selects and configures a data source.
type Options struct {
	Backend Backend
	DSN     string
	Dir     string
	Seed    int64
}

// Open builds the DataSource described by opt. SQL sources hold a
// connection; release it with CloseSource.
func Open(opt Options) (DataSource, error) {
	b := opt.Backend
	if b == "" {
		b = BackendMemory
	}
	switch b {
	case BackendMemory:
		return NewMockSource(opt.Seed), nil
	case BackendCSV:
		return NewCSVSource(opt.Dir)
	case BackendSQLite, BackendPostgres, BackendMySQL:
		db, err := OpenDB(b, opt.DSN)
		if err != nil {
			return nil, err
		}
		return NewSQLSource(db, b), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, b)
	}
}

// CloseSource releases src when it holds resources.
func CloseSource(src DataSource) error {
	if c, ok := src.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
