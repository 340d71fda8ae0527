package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Options configures how the store connects to its database.
type Options struct {
	Driver          string // sqlite (default), mysql, postgres
	DSN             string // for sqlite, a file path; empty means in-memory
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Store is the single source of truth for credentials, API keys, chat
// sessions and the aircraft catalog. All persistence goes through it.
type Store struct {
	db      *sqlx.DB
	dialect dialect
}

// New opens the database described by opts and applies migrations.
func New(opts Options) (*Store, error) {
	d, err := dialectFor(opts.Driver)
	if err != nil {
		return nil, err
	}

	dsn, err := d.normalizeDSN(opts.DSN)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Connect(d.sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d.name, err)
	}

	if d.name == DriverSQLite {
		// SQLite doesn't support concurrent writes; one connection also
		// serialises every quota transaction.
		db.SetMaxOpenConns(1)
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			db.Close()
			return nil, fmt.Errorf("enable foreign keys: %w", err)
		}
	} else {
		if opts.MaxOpenConns > 0 {
			db.SetMaxOpenConns(opts.MaxOpenConns)
		}
		if opts.MaxIdleConns > 0 {
			db.SetMaxIdleConns(opts.MaxIdleConns)
		}
		if opts.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(opts.ConnMaxLifetime)
		}
	}

	s := &Store{db: db, dialect: d}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

// NewMemory returns a store backed by a private in-memory SQLite database.
func NewMemory() (*Store, error) {
	return New(Options{Driver: DriverSQLite})
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Driver returns the configured driver name.
func (s *Store) Driver() string {
	return s.dialect.name
}

// ---------------------------------------------------------------------------
// Dialects
// ---------------------------------------------------------------------------

type dialect struct {
	name      string
	sqlDriver string
	types     *strings.Replacer // expands {{id}}, {{bool}}, ... in DDL
	lock      string            // row-lock suffix for SELECT, empty when not needed
	returning bool              // INSERT ... RETURNING id instead of LastInsertId
}

func dialectFor(driver string) (dialect, error) {
	switch strings.ToLower(driver) {
	case "", DriverSQLite, "sqlite3":
		return dialect{
			name:      DriverSQLite,
			sqlDriver: "sqlite",
			types: strings.NewReplacer(
				"{{id}}", "INTEGER PRIMARY KEY AUTOINCREMENT",
				"{{ref}}", "INTEGER",
				"{{bool}}", "INTEGER",
				"{{str}}", "TEXT",
				"{{ts}}", "DATETIME",
				"{{float}}", "REAL",
			),
		}, nil
	case DriverMySQL, "mariadb":
		return dialect{
			name:      DriverMySQL,
			sqlDriver: "mysql",
			types: strings.NewReplacer(
				"{{id}}", "BIGINT AUTO_INCREMENT PRIMARY KEY",
				"{{ref}}", "BIGINT",
				"{{bool}}", "BOOLEAN",
				"{{str}}", "VARCHAR(255)",
				"{{ts}}", "DATETIME(6)",
				"{{float}}", "DOUBLE",
			),
			lock: " FOR UPDATE",
		}, nil
	case DriverPostgres, "postgresql", "pgx":
		return dialect{
			name:      DriverPostgres,
			sqlDriver: "pgx",
			types: strings.NewReplacer(
				"{{id}}", "BIGSERIAL PRIMARY KEY",
				"{{ref}}", "BIGINT",
				"{{bool}}", "BOOLEAN",
				"{{str}}", "VARCHAR(255)",
				"{{ts}}", "TIMESTAMPTZ",
				"{{float}}", "DOUBLE PRECISION",
			),
			lock:      " FOR UPDATE",
			returning: true,
		}, nil
	default:
		return dialect{}, fmt.Errorf("unsupported database driver: %q (available: sqlite, mysql, postgres)", driver)
	}
}

func (d dialect) normalizeDSN(dsn string) (string, error) {
	switch d.name {
	case DriverSQLite:
		if dsn == "" || dsn == ":memory:" {
			return ":memory:?_journal_mode=WAL", nil
		}
		if strings.HasPrefix(dsn, "file:") || strings.Contains(dsn, "?") {
			return dsn, nil
		}
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return "", fmt.Errorf("create data dir: %w", err)
			}
		}
		return dsn + "?_journal_mode=WAL&_busy_timeout=5000", nil
	case DriverMySQL:
		// Timestamps must scan into time.Time, and UPDATE must report matched
		// rows rather than changed rows for the ErrNotFound mapping.
		cfg, err := mysqldriver.ParseDSN(dsn)
		if err != nil {
			return "", fmt.Errorf("parse mysql dsn: %w", err)
		}
		cfg.ParseTime = true
		cfg.ClientFoundRows = true
		cfg.Loc = time.UTC
		return cfg.FormatDSN(), nil
	default:
		if dsn == "" {
			return "", errors.New("postgres dsn is required")
		}
		return dsn, nil
	}
}

// ---------------------------------------------------------------------------
// Query helpers
// ---------------------------------------------------------------------------

// insert runs an INSERT and returns the generated id.
func (s *Store) insert(ctx context.Context, ext sqlx.ExtContext, query string, args ...interface{}) (int64, error) {
	if s.dialect.returning {
		var id int64
		if err := sqlx.GetContext(ctx, ext, &id, ext.Rebind(query+" RETURNING id"), args...); err != nil {
			return 0, err
		}
		return id, nil
	}
	result, err := ext.ExecContext(ctx, ext.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// execAffecting runs a statement and maps zero affected rows to ErrNotFound.
func (s *Store) execAffecting(ctx context.Context, ext sqlx.ExecerContext, query string, args ...interface{}) error {
	result, err := ext.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// inTx runs fn inside a transaction, rolling back on any error.
func (s *Store) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// lockDeveloper takes a row lock on the developer so that concurrent quota
// checks for the same owner run one after another. On SQLite the single
// connection already provides this.
func (s *Store) lockDeveloper(ctx context.Context, tx *sqlx.Tx, developerID int64) error {
	var id int64
	q := "SELECT id FROM developers WHERE id = ?" + s.dialect.lock
	if err := tx.GetContext(ctx, &id, tx.Rebind(q), developerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock developer: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint")
}

func isForeignKeyViolation(err error) bool {
	var myErr *mysqldriver.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1451 || myErr.Number == 1452
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return strings.Contains(strings.ToLower(err.Error()), "foreign key constraint")
}

func now() time.Time {
	return time.Now().UTC()
}
