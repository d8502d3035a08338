package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"reposync/logger"
)

// Supported backends.
const (
	BackendBolt      = "bolt"
	BackendPostgres  = "postgres"
	BackendDatastore = "datastore"
	BackendMemory    = "memory"
)

// PostgresConfig holds connection settings for the postgres backend.
type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN renders the lib/pq connection string.
func (c PostgresConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s port=%s host=%s sslmode=%s",
		c.User, c.Password, c.Database, c.Port, c.Host, sslMode,
	)
}

// Options selects and configures a backend. Location names the table, bucket
// or kind that holds the items.
type Options struct {
	Backend          string
	Location         string
	BoltPath         string
	Postgres         PostgresConfig
	DatastoreProject string
}

// Open connects to the configured backend.
func Open(ctx context.Context, opts Options) (ItemStore, error) {
	if opts.Location == "" {
		return nil, fmt.Errorf("%w: store location cannot be empty", ErrInvalidInput)
	}

	switch opts.Backend {
	case BackendBolt:
		return NewBoltStore(opts.BoltPath, opts.Location)
	case BackendPostgres:
		return NewPostgresStore(ctx, opts.Postgres, opts.Location)
	case BackendDatastore:
		return NewDatastoreStore(ctx, opts.DatastoreProject, opts.Location)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
	}
}

// PostgresStore keeps one JSONB item per partition key.
type PostgresStore struct {
	conn  *sqlx.DB
	table string
	// Prepared statements cache
	stmtCache struct {
		sync.RWMutex
		statements map[string]*sqlx.Stmt
	}
}

// NewPostgresStore connects to postgres and creates the item table if needed.
func NewPostgresStore(ctx context.Context, cfg PostgresConfig, table string) (*PostgresStore, error) {
	logger.Info("Connecting to database",
		zap.String("host", cfg.Host),
		zap.String("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("table", table))

	conn, err := sqlx.ConnectContext(ctx, "postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseConnection, err)
	}

	maxOpenConns := cfg.MaxOpenConns
	if maxOpenConns <= 0 {
		maxOpenConns = 25
	}
	maxIdleConns := cfg.MaxIdleConns
	if maxIdleConns <= 0 {
		maxIdleConns = 25
	}
	connMaxLifetime := cfg.ConnMaxLifetime
	if connMaxLifetime <= 0 {
		connMaxLifetime = 5 * time.Minute
	}
	conn.SetMaxOpenConns(maxOpenConns)
	conn.SetMaxIdleConns(maxIdleConns)
	conn.SetConnMaxLifetime(connMaxLifetime)

	store := newPostgresStore(conn, table)
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, err
	}

	logger.Info("Database connection established",
		zap.Int("max_open_conns", maxOpenConns),
		zap.Int("max_idle_conns", maxIdleConns),
		zap.Duration("conn_max_lifetime", connMaxLifetime))
	return store, nil
}

func newPostgresStore(conn *sqlx.DB, table string) *PostgresStore {
	store := &PostgresStore{
		conn:  conn,
		table: pq.QuoteIdentifier(table),
	}
	store.stmtCache.statements = make(map[string]*sqlx.Stmt)
	return store
}

// EnsureSchema creates the item table.
func (db *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			partition_key TEXT PRIMARY KEY,
			item JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, db.table)

	if _, err := db.conn.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create table %s: %w", db.table, err)
	}
	return nil
}

// getStmt returns a prepared statement from cache or creates a new one
func (db *PostgresStore) getStmt(ctx context.Context, query string) (*sqlx.Stmt, error) {
	db.stmtCache.RLock()
	stmt, exists := db.stmtCache.statements[query]
	db.stmtCache.RUnlock()

	if exists {
		return stmt, nil
	}

	db.stmtCache.Lock()
	defer db.stmtCache.Unlock()

	// Double-check after acquiring write lock
	if stmt, exists = db.stmtCache.statements[query]; exists {
		return stmt, nil
	}

	stmt, err := db.conn.PreparexContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}

	db.stmtCache.statements[query] = stmt
	return stmt, nil
}

// Close closes the database connection
func (db *PostgresStore) Close() error {
	db.stmtCache.Lock()
	for _, stmt := range db.stmtCache.statements {
		stmt.Close()
	}
	db.stmtCache.statements = make(map[string]*sqlx.Stmt)
	db.stmtCache.Unlock()

	return db.conn.Close()
}
