package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "pgx"
)

// Store is the relational data access layer for the slicer's fact tables:
// projects, files, entities, relations and imports.
type Store struct {
	db     *sql.DB
	driver string
}

// Option configures connection pooling on a Store.
type Option func(*sql.DB)

// WithMaxOpenConns bounds the number of open connections.
func WithMaxOpenConns(n int) Option {
	return func(db *sql.DB) {
		if n > 0 {
			db.SetMaxOpenConns(n)
		}
	}
}

// WithConnMaxIdleTime releases connections that stay idle longer than d.
func WithConnMaxIdleTime(d time.Duration) Option {
	return func(db *sql.DB) {
		if d > 0 {
			db.SetConnMaxIdleTime(d)
		}
	}
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string, opts ...Option) (*Store, error) {
	return Open(DriverSQLite, dbPath, opts...)
}

// Open opens a fact store with the given driver. For sqlite3 the dsn is a
// file path; for pgx it is a PostgreSQL connection string.
func Open(driver, dsn string, opts ...Option) (*Store, error) {
	switch driver {
	case DriverSQLite:
		dsn += "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000"
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("open database: unsupported driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	for _, opt := range opts {
		opt(db)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db, driver: driver}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Driver returns the database/sql driver name the store was opened with.
func (s *Store) Driver() string {
	return s.driver
}

// Migrate creates all fact tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	ddl := schemaDDL
	if s.driver == DriverPostgres {
		ddl = strings.ReplaceAll(ddl, "INTEGER PRIMARY KEY", "BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY")
		ddl = strings.ReplaceAll(ddl, " INTEGER", " BIGINT")
	}
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// Rebind rewrites a query written with ? placeholders for the open driver.
func (s *Store) Rebind(query string) string {
	return s.rebind(query)
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// insertRow inserts one row and returns its id. A non-zero id is written
// explicitly; otherwise the database assigns one.
func (s *Store) insertRow(ctx context.Context, ex execer, table string, id int64, cols []string, args []any) (int64, error) {
	if id != 0 {
		cols = append([]string{"id"}, cols...)
		args = append([]any{id}, args...)
	}
	query := "INSERT INTO " + table + " (" + strings.Join(cols, ", ") + ") VALUES (" + placeholderList(len(cols)) + ")"
	if s.driver == DriverPostgres {
		var newID int64
		if err := ex.QueryRowContext(ctx, s.rebind(query+" RETURNING id"), args...).Scan(&newID); err != nil {
			return 0, err
		}
		return newID, nil
	}
	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	if id != 0 {
		return id, nil
	}
	newID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return newID, nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS projects (
  id              INTEGER PRIMARY KEY,
  name            TEXT NOT NULL,
  kind            TEXT NOT NULL DEFAULT 'source'
);

CREATE TABLE IF NOT EXISTS files (
  id              INTEGER PRIMARY KEY,
  project_id      INTEGER NOT NULL REFERENCES projects(id),
  path            TEXT NOT NULL,
  hash            TEXT
);

CREATE TABLE IF NOT EXISTS entities (
  id              INTEGER PRIMARY KEY,
  kind            TEXT NOT NULL,
  fqn             TEXT NOT NULL,
  modifiers       TEXT,
  project_id      INTEGER NOT NULL REFERENCES projects(id),
  file_id         INTEGER REFERENCES files(id),
  start_offset    INTEGER,
  length          INTEGER
);

CREATE TABLE IF NOT EXISTS relations (
  id              INTEGER PRIMARY KEY,
  kind            TEXT NOT NULL,
  source_id       INTEGER NOT NULL,
  target_id       INTEGER NOT NULL,
  project_id      INTEGER REFERENCES projects(id),
  file_id         INTEGER REFERENCES files(id)
);

CREATE TABLE IF NOT EXISTS imports (
  id              INTEGER PRIMARY KEY,
  file_id         INTEGER NOT NULL REFERENCES files(id),
  is_static       BOOLEAN NOT NULL DEFAULT FALSE,
  on_demand       BOOLEAN NOT NULL DEFAULT FALSE,
  entity_id       INTEGER NOT NULL,
  start_offset    INTEGER NOT NULL,
  length          INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_files_project ON files(project_id);
CREATE INDEX IF NOT EXISTS idx_entities_fqn ON entities(fqn);
CREATE INDEX IF NOT EXISTS idx_entities_file ON entities(file_id);
CREATE INDEX IF NOT EXISTS idx_relations_source ON relations(kind, source_id);
CREATE INDEX IF NOT EXISTS idx_relations_target ON relations(kind, target_id);
CREATE INDEX IF NOT EXISTS idx_imports_file ON imports(file_id);
`
