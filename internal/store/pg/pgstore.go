// Package pg is the Postgres read/admin store. Mutating business rules
// live in stored procedures (internal/sproc); this package covers the
// query surface and user administration.
package pg

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"gymops.dev/internal/auth"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

var (
	ErrNotFound = errors.New("store: not found")
	ErrConflict = errors.New("store: already exists")
	// ErrReferenced marks deletes blocked by dependent rows.
	ErrReferenced = errors.New("store: row is referenced")
)

// Scoper narrows facility-scoped queries to the session's sede.
// *auth.Manager implements it.
type Scoper interface {
	ScopeQuery(sess *auth.Session, query string, args []any) (string, []any)
}

type Store struct {
	db     *sql.DB
	scoper Scoper
}

func Open(dsn string, scoper Scoper) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db, scoper: scoper}, nil
}

// NewStore wraps an existing handle, for tests.
func NewStore(db *sql.DB, scoper Scoper) *Store {
	return &Store{db: db, scoper: scoper}
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func maybePgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr, true
	}
	return nil, false
}

func mapPgError(err error) error {
	if pgErr, ok := maybePgError(err); ok {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return ErrConflict
		case pgErrForeignKeyViolation:
			return ErrReferenced
		}
	}
	return err
}

func nullIfEmpty(s string) sql.NullString {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func strOrEmpty(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}
