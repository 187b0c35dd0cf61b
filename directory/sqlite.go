package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	username   TEXT PRIMARY KEY,
	email      TEXT NOT NULL DEFAULT '',
	confirmed  INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	last_login INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS user_preferences (
	username TEXT NOT NULL REFERENCES users(username) ON DELETE CASCADE,
	name     TEXT NOT NULL,
	value    TEXT NOT NULL,
	PRIMARY KEY (username, name)
);
`

// SQLite is a Directory backed by a SQLite database file.
type SQLite struct {
	db      *sql.DB
	nowFunc func() time.Time
}

// ensure that SQLite implements the Directory interface
var _ Directory = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) a SQLite-backed directory at path.
// Use ":memory:" for an ephemeral directory in tests.
func OpenSQLite(path string) (*SQLite, error) {
	const op = "directory.OpenSQLite"
	if path == "" {
		return nil, fmt.Errorf("%s: path is empty: %w", op, ErrInvalidParameter)
	}
	dsn := path + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000"
	if path == ":memory:" {
		dsn = path
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: unable to open sqlite db: %w", op, err)
	}
	// modernc sqlite serializes writes; a single connection avoids
	// SQLITE_BUSY under concurrent logins
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: unable to apply schema: %w", op, err)
	}
	return &SQLite{db: db, nowFunc: time.Now}, nil
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// Add stores an account, replacing any existing account with the same
// username. A zero CreatedAt is set to the current time.
func (s *SQLite) Add(ctx context.Context, a Account) error {
	const op = "directory.SQLite.Add"
	if a.Username == "" {
		return fmt.Errorf("%s: username is empty: %w", op, ErrInvalidParameter)
	}
	createdAt := a.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.nowFunc()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, email, confirmed, created_at, last_login)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (username) DO UPDATE SET email = excluded.email, confirmed = excluded.confirmed`,
		a.Username, a.Email, boolToInt(a.Confirmed), createdAt.UTC().UnixMilli(), a.LastLogin.UTC().UnixMilli())
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// FindByUsername resolves a local account, or ErrNotFound.
func (s *SQLite) FindByUsername(ctx context.Context, username string) (*Account, error) {
	const op = "directory.SQLite.FindByUsername"
	row := s.db.QueryRowContext(ctx,
		`SELECT username, email, confirmed, created_at, last_login FROM users WHERE username = ?`,
		username)
	var (
		a         Account
		confirmed int
		createdAt int64
		lastLogin int64
	)
	err := row.Scan(&a.Username, &a.Email, &confirmed, &createdAt, &lastLogin)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, fmt.Errorf("%s: %q: %w", op, username, ErrNotFound)
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	a.Confirmed = confirmed != 0
	a.CreatedAt = fromMillis(createdAt)
	if lastLogin != 0 {
		a.LastLogin = fromMillis(lastLogin)
	}
	return &a, nil
}

// CompleteLogin records a successful login for the account.
func (s *SQLite) CompleteLogin(ctx context.Context, username string) error {
	const op = "directory.SQLite.CompleteLogin"
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_login = ? WHERE username = ?`,
		s.nowFunc().UTC().UnixMilli(), username)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %q: %w", op, username, ErrNotFound)
	}
	return nil
}

// Confirm marks the account as confirmed, reporting whether it already was.
func (s *SQLite) Confirm(ctx context.Context, username string) (ConfirmResult, error) {
	const op = "directory.SQLite.Confirm"
	a, err := s.FindByUsername(ctx, username)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if a.Confirmed {
		return ConfirmAlready, nil
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE users SET confirmed = 1 WHERE username = ?`, username); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return ConfirmOK, nil
}

// SetPreference stores a per-account preference value.
func (s *SQLite) SetPreference(ctx context.Context, username, name, value string) error {
	const op = "directory.SQLite.SetPreference"
	if _, err := s.FindByUsername(ctx, username); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_preferences (username, name, value) VALUES (?, ?, ?)
		 ON CONFLICT (username, name) DO UPDATE SET value = excluded.value`,
		username, name, value)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Preference returns a per-account preference value and whether it was set.
func (s *SQLite) Preference(ctx context.Context, username, name string) (string, bool, error) {
	const op = "directory.SQLite.Preference"
	if _, err := s.FindByUsername(ctx, username); err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM user_preferences WHERE username = ? AND name = ?`,
		username, name).Scan(&value)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("%s: %w", op, err)
	}
	return value, true, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func fromMillis(v int64) time.Time {
	return time.UnixMilli(v).UTC()
}
