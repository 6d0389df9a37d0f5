package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	_ "github.com/lib/pq"              // registers the "postgres" driver
	_ "modernc.org/sqlite"             // registers the "sqlite" driver

	"clinicnotes/internal/config"
)

type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

// timeLayout keeps stored timestamps fixed-width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

var sqlOpen = sql.Open

// Store owns the database handle. It is opened once at startup and closed at shutdown.
type Store struct {
	db      *sql.DB
	dialect Dialect

	patients   *PatientRepository
	voiceNotes *VoiceNoteRepository
	summaries  *SummaryRepository
}

// Open connects to the configured database and verifies the connection.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	var (
		driver  string
		dsn     = cfg.DSN
		dialect Dialect
	)

	switch cfg.Driver {
	case "", "sqlite":
		driver, dialect = "sqlite", DialectSQLite
		var err error
		if dsn, err = sqliteDSN(dsn); err != nil {
			return nil, err
		}
	case "postgres":
		driver, dialect = "postgres", DialectPostgres
	case "pgx":
		driver, dialect = "pgx", DialectPostgres
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := sqlOpen(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}

	return New(db, dialect), nil
}

// New wraps an already opened handle.
func New(db *sql.DB, dialect Dialect) *Store {
	s := &Store{db: db, dialect: dialect}
	s.patients = &PatientRepository{db: db, dialect: dialect}
	s.voiceNotes = &VoiceNoteRepository{db: db, dialect: dialect}
	s.summaries = &SummaryRepository{db: db, dialect: dialect}
	return s
}

func (s *Store) Patients() *PatientRepository     { return s.patients }
func (s *Store) VoiceNotes() *VoiceNoteRepository { return s.voiceNotes }
func (s *Store) Summaries() *SummaryRepository    { return s.summaries }

func (s *Store) Dialect() Dialect { return s.dialect }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Migrate creates the tables, constraints and indexes if they are missing.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func sqliteDSN(path string) (string, error) {
	if path == "" {
		path = "data.db"
	}

	if !strings.HasPrefix(path, "file:") && path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("create data directory: %w", err)
		}
		path = "file:" + path
	}

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", nil
}

// rebind rewrites ? placeholders into the $n form Postgres expects.
func rebind(d Dialect, query string) string {
	if d != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored timestamp %q: %w", value, err)
	}
	return t.UTC(), nil
}
