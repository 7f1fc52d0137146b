package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/modmail/internal/domain"
	"github.com/ashureev/modmail/internal/shared"
	_ "modernc.org/sqlite"
)

const (
	// applicationID tags the database file as ours ("ModM").
	applicationID = 0x4D6F644D
	schemaVersion = 1

	busyAttempts  = 3
	busyBaseDelay = 50 * time.Millisecond
)

const schemaV1 = `
CREATE TABLE IF NOT EXISTS ignored (
	user_id INTEGER PRIMARY KEY,
	quiet INTEGER,
	reason TEXT NULL
);
`

// SQLiteStore implements IgnoreStore using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens (and on first run creates) the SQLite ignore table at dbPath.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

// migrate creates the schema once, guarded by PRAGMA user_version.
func (s *SQLiteStore) migrate(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version >= schemaVersion {
		return nil
	}

	slog.Info("Setting up database schema", "from_version", version, "to_version", schemaVersion)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA application_id = %d`, applicationID)); err != nil {
		return fmt.Errorf("set application id: %w", err)
	}
	if _, err := tx.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, schemaVersion)); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: ping: %w", ErrStorage, err)
	}
	return nil
}

// IsIgnored returns the ignore entry for a user, or nil when there is none.
func (s *SQLiteStore) IsIgnored(ctx context.Context, userID uint64) (*domain.IgnoreEntry, error) {
	var (
		quiet  sql.NullInt64
		reason sql.NullString
	)
	err := shared.RetryOnConflict(ctx, "is_ignored", busyAttempts, busyBaseDelay, func() error {
		return s.db.QueryRowContext(ctx,
			`SELECT quiet, reason FROM ignored WHERE user_id = ?`, int64(userID),
		).Scan(&quiet, &reason)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: select ignore entry: %w", ErrStorage, err)
	}

	entry := &domain.IgnoreEntry{UserID: userID, Quiet: quiet.Int64 != 0}
	if reason.Valid {
		r := reason.String
		entry.Reason = &r
	}
	return entry, nil
}

// AddIgnore inserts an ignore entry. Uniqueness is enforced by the primary key
// in a single statement, so concurrent attempts for one user cannot both win.
func (s *SQLiteStore) AddIgnore(ctx context.Context, userID uint64, reason *string, quiet bool) (bool, error) {
	var r sql.NullString
	if reason != nil {
		r = sql.NullString{String: *reason, Valid: true}
	}

	var rows int64
	err := shared.RetryOnConflict(ctx, "add_ignore", busyAttempts, busyBaseDelay, func() error {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO ignored (user_id, quiet, reason) VALUES (?, ?, ?)
			 ON CONFLICT(user_id) DO NOTHING`,
			int64(userID), boolToInt(quiet), r,
		)
		if err != nil {
			return err
		}
		rows, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, fmt.Errorf("%w: insert ignore entry: %w", ErrStorage, err)
	}
	return rows == 1, nil
}

// RemoveIgnore deletes an ignore entry and reports whether one existed.
func (s *SQLiteStore) RemoveIgnore(ctx context.Context, userID uint64) (bool, error) {
	var rows int64
	err := shared.RetryOnConflict(ctx, "remove_ignore", busyAttempts, busyBaseDelay, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM ignored WHERE user_id = ?`, int64(userID))
		if err != nil {
			return err
		}
		rows, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return false, fmt.Errorf("%w: delete ignore entry: %w", ErrStorage, err)
	}
	return rows > 0, nil
}

// ListIgnored returns every ignore entry ordered by user ID.
func (s *SQLiteStore) ListIgnored(ctx context.Context) ([]domain.IgnoreEntry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT user_id, quiet, reason FROM ignored ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("%w: query ignore list: %w", ErrStorage, err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close ignore list rows", "error", closeErr)
		}
	}()

	var entries []domain.IgnoreEntry
	for rows.Next() {
		var (
			id     int64
			quiet  sql.NullInt64
			reason sql.NullString
		)
		if err := rows.Scan(&id, &quiet, &reason); err != nil {
			return nil, fmt.Errorf("%w: scan ignore entry: %w", ErrStorage, err)
		}
		entry := domain.IgnoreEntry{UserID: uint64(id), Quiet: quiet.Int64 != 0}
		if reason.Valid {
			r := reason.String
			entry.Reason = &r
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate ignore list: %w", ErrStorage, err)
	}
	return entries, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

var _ IgnoreStore = (*SQLiteStore)(nil)
