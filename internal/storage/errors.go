package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var ErrNotFound = errors.New("record not found")

type ConstraintKind int

const (
	ConstraintUnique ConstraintKind = iota + 1
	ConstraintForeignKey
)

func (k ConstraintKind) String() string {
	switch k {
	case ConstraintUnique:
		return "unique"
	case ConstraintForeignKey:
		return "foreign key"
	default:
		return "unknown"
	}
}

// ConstraintError is a driver constraint violation normalised across SQLite and Postgres.
type ConstraintError struct {
	Kind       ConstraintKind
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("%s constraint %q violated: %v", e.Kind, e.Constraint, e.Err)
}

func (e *ConstraintError) Unwrap() error {
	return e.Err
}

func IsUniqueViolation(err error) bool {
	var cerr *ConstraintError
	return errors.As(err, &cerr) && cerr.Kind == ConstraintUnique
}

func IsForeignKeyViolation(err error) bool {
	var cerr *ConstraintError
	return errors.As(err, &cerr) && cerr.Kind == ConstraintForeignKey
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// classify maps driver specific constraint failures onto ConstraintError.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgUniqueViolation:
			return &ConstraintError{Kind: ConstraintUnique, Constraint: pqErr.Constraint, Err: err}
		case pgForeignKeyViolation:
			return &ConstraintError{Kind: ConstraintForeignKey, Constraint: pqErr.Constraint, Err: err}
		}
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return &ConstraintError{Kind: ConstraintUnique, Constraint: pgErr.ConstraintName, Err: err}
		case pgForeignKeyViolation:
			return &ConstraintError{Kind: ConstraintForeignKey, Constraint: pgErr.ConstraintName, Err: err}
		}
		return err
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		msg := liteErr.Error()
		switch {
		case liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE,
			liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY,
			strings.Contains(msg, "UNIQUE constraint failed"):
			return &ConstraintError{Kind: ConstraintUnique, Constraint: sqliteConstraintName(msg), Err: err}
		case liteErr.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY,
			strings.Contains(msg, "FOREIGN KEY constraint failed"):
			return &ConstraintError{Kind: ConstraintForeignKey, Constraint: sqliteConstraintName(msg), Err: err}
		}
	}

	return err
}

// sqliteConstraintName pulls "table.column" out of "UNIQUE constraint failed: table.column".
func sqliteConstraintName(msg string) string {
	if idx := strings.LastIndex(msg, "failed: "); idx >= 0 {
		name := msg[idx+len("failed: "):]
		if end := strings.IndexAny(name, " )"); end >= 0 {
			name = name[:end]
		}
		return name
	}
	return ""
}
