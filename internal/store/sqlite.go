package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"think-alike/internal/game"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS rooms (
	code       TEXT PRIMARY KEY,
	version    INTEGER NOT NULL,
	document   TEXT NOT NULL,
	updated_at INTEGER NOT NULL
)`

// SQLite keeps rooms in a single table; the version column guards writes.
type SQLite struct {
	db  *sqlx.DB
	ttl time.Duration
	now func() time.Time
}

type roomRow struct {
	Code      string `db:"code"`
	Version   int64  `db:"version"`
	Document  string `db:"document"`
	UpdatedAt int64  `db:"updated_at"`
}

// OpenSQLite opens (creating if needed) the database at path. ":memory:" is
// accepted for tests.
func OpenSQLite(path string, ttl time.Duration) (*SQLite, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		// every pooled connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create rooms table: %w", err)
	}
	return &SQLite{db: db, ttl: ttl, now: time.Now}, nil
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) Get(ctx context.Context, code string) (*game.Room, error) {
	var row roomRow
	err := s.db.GetContext(ctx, &row, `SELECT code, version, document, updated_at FROM rooms WHERE code = ?`, code)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select room: %w", err)
	}
	return decodeRoom([]byte(row.Document))
}

func (s *SQLite) Create(ctx context.Context, room *game.Room) error {
	row, err := s.toRow(room)
	if err != nil {
		return err
	}
	result, err := s.db.NamedExecContext(ctx, `
		INSERT OR IGNORE INTO rooms (code, version, document, updated_at)
		VALUES (:code, :version, :document, :updated_at)
	`, row)
	if err != nil {
		return fmt.Errorf("insert room: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrExists
	}
	return nil
}

func (s *SQLite) CompareAndSet(ctx context.Context, room *game.Room, expected int64) error {
	row, err := s.toRow(room)
	if err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE rooms SET version = ?, document = ?, updated_at = ?
		WHERE code = ? AND version = ?
	`, row.Version, row.Document, row.UpdatedAt, row.Code, expected)
	if err != nil {
		return fmt.Errorf("update room: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var exists int
	err = s.db.GetContext(ctx, &exists, `SELECT COUNT(*) FROM rooms WHERE code = ?`, room.Code)
	if err != nil {
		return fmt.Errorf("count room: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	return ErrVersionConflict
}

func (s *SQLite) Delete(ctx context.Context, code string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE code = ?`, code)
	if err != nil {
		return false, fmt.Errorf("delete room: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *SQLite) Sweep(ctx context.Context) (int, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.ttl).UnixNano()
	result, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE updated_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("sweep rooms: %w", err)
	}
	n, err := result.RowsAffected()
	return int(n), err
}

func (s *SQLite) toRow(room *game.Room) (roomRow, error) {
	data, err := json.Marshal(room)
	if err != nil {
		return roomRow{}, err
	}
	updated := room.UpdatedAt
	if updated.IsZero() {
		updated = s.now()
	}
	return roomRow{
		Code:      room.Code,
		Version:   room.Version,
		Document:  string(data),
		UpdatedAt: updated.UnixNano(),
	}, nil
}
