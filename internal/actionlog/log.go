package actionlog

import (
	"database/sql"
	_ "embed"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the PRAGMA user_version a fully migrated log carries.
//
//	0  tables from schema.sql only
//	1  index on actions(session, seq)
const schemaVersion = 1

// migrations[i] moves a log from user_version i to i+1.
var migrations = []string{
	`CREATE INDEX IF NOT EXISTS idx_actions_session ON actions(session, seq)`,
}

// Log is an append-only action log backed by SQLite.
type Log struct {
	db *sql.DB
}

// Open creates or opens the log at path. ":memory:" opens a private
// in-memory log that lives as long as the returned Log. Opening an
// existing file again is safe.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open action log %s: %w", path, err)
	}

	// SQLite allows one writer, and an in-memory database exists only on
	// the connection that created it.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := setup(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("open action log %s: %w", path, err)
	}
	return &Log{db: db}, nil
}

func setup(db *sql.DB) error {
	for _, stmt := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		schemaSQL,
	} {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("init: %w", err)
		}
	}
	return migrate(db)
}

// migrate runs every migration past the stored user_version.
func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}
	for ; version < len(migrations); version++ {
		if _, err := db.Exec(migrations[version]); err != nil {
			return fmt.Errorf("migrate to v%d: %w", version+1, err)
		}
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion)); err != nil {
		return fmt.Errorf("write user_version: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (l *Log) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

// version reports PRAGMA user_version.
func (l *Log) version() (int, error) {
	var v int
	err := l.db.QueryRow("PRAGMA user_version").Scan(&v)
	return v, err
}
