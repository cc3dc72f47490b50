package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"think-alike/internal/db"
	"think-alike/internal/game"
)

// Postgres stores rooms in the rooms table through gorm.
type Postgres struct {
	conn *gorm.DB
	ttl  time.Duration
	now  func() time.Time
}

func NewPostgres(conn *gorm.DB, ttl time.Duration) *Postgres {
	return &Postgres{conn: conn, ttl: ttl, now: time.Now}
}

func (s *Postgres) Get(ctx context.Context, code string) (*game.Room, error) {
	var record db.Room
	err := s.conn.WithContext(ctx).Where("code = ?", code).Take(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select room: %w", err)
	}
	return decodeRoom(record.Document)
}

func (s *Postgres) Create(ctx context.Context, room *game.Room) error {
	record, err := s.toRecord(room)
	if err != nil {
		return err
	}
	if err := s.conn.WithContext(ctx).Create(&record).Error; err != nil {
		if isUniqueViolation(err) {
			return ErrExists
		}
		return fmt.Errorf("insert room: %w", err)
	}
	return nil
}

func (s *Postgres) CompareAndSet(ctx context.Context, room *game.Room, expected int64) error {
	record, err := s.toRecord(room)
	if err != nil {
		return err
	}
	result := s.conn.WithContext(ctx).
		Model(&db.Room{}).
		Where("code = ? AND version = ?", room.Code, expected).
		Updates(map[string]any{
			"version":    record.Version,
			"document":   record.Document,
			"updated_at": record.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("update room: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		return nil
	}
	var count int64
	if err := s.conn.WithContext(ctx).Model(&db.Room{}).Where("code = ?", room.Code).Count(&count).Error; err != nil {
		return fmt.Errorf("count room: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return ErrVersionConflict
}

func (s *Postgres) Delete(ctx context.Context, code string) (bool, error) {
	result := s.conn.WithContext(ctx).Where("code = ?", code).Delete(&db.Room{})
	if result.Error != nil {
		return false, fmt.Errorf("delete room: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (s *Postgres) Sweep(ctx context.Context) (int, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	cutoff := s.now().Add(-s.ttl)
	result := s.conn.WithContext(ctx).Where("updated_at < ?", cutoff).Delete(&db.Room{})
	if result.Error != nil {
		return 0, fmt.Errorf("sweep rooms: %w", result.Error)
	}
	return int(result.RowsAffected), nil
}

func (s *Postgres) toRecord(room *game.Room) (db.Room, error) {
	data, err := json.Marshal(room)
	if err != nil {
		return db.Room{}, err
	}
	now := s.now().UTC()
	created, updated := room.CreatedAt, room.UpdatedAt
	if created.IsZero() {
		created = now
	}
	if updated.IsZero() {
		updated = now
	}
	return db.Room{
		Code:      room.Code,
		Version:   room.Version,
		Document:  datatypes.JSON(data),
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
