package postgres

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	pkgerrors "github.com/pkg/errors"

	"github.com/dfranco/finref-backend/internal/domain"
)

const (
	maxOpenConns    = 25
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute
	pingTimeout     = 5 * time.Second
)

// DB wraps the database connection pool
type DB struct {
	*sql.DB
}

// NewDB opens a connection pool and verifies it with a bounded ping.
// connectionString is a lib/pq DSN, e.g.
// "host=localhost port=5432 user=postgres password=postgres dbname=finref sslmode=disable"
func NewDB(connectionString string) (*DB, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "open database connection")
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, pkgerrors.Wrap(err, "ping database")
	}

	return &DB{DB: db}, nil
}

// Close closes the database connection pool
func (db *DB) Close() error {
	return db.DB.Close()
}

// wrapErr annotates a store error with call context. A context deadline
// overrun becomes domain.ErrTimeout so every caller maps timeouts the same
// way regardless of which query hit the deadline.
func wrapErr(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if pkgerrors.Is(err, context.DeadlineExceeded) {
		return pkgerrors.Wrapf(domain.ErrTimeout, format, args...)
	}
	return pkgerrors.Wrapf(err, format, args...)
}
