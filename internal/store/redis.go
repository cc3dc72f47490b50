package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis"

	"think-alike/internal/game"
)

// Redis stores each room as a JSON document with a sliding TTL, so idle rooms
// expire without a janitor.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	return &Redis{
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (s *Redis) key(code string) string {
	if s.prefix != "" {
		return s.prefix + ":room:" + code
	}
	return "room:" + code
}

func (s *Redis) Get(ctx context.Context, code string) (*game.Room, error) {
	data, err := s.client.WithContext(ctx).Get(s.key(code)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	return decodeRoom(data)
}

func (s *Redis) Create(ctx context.Context, room *game.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}
	ok, err := s.client.WithContext(ctx).SetNX(s.key(room.Code), data, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis setnx: %w", err)
	}
	if !ok {
		return ErrExists
	}
	return nil
}

func (s *Redis) CompareAndSet(ctx context.Context, room *game.Room, expected int64) error {
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}
	key := s.key(room.Code)
	err = s.client.WithContext(ctx).Watch(func(tx *redis.Tx) error {
		raw, err := tx.Get(key).Bytes()
		if err == redis.Nil {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		current, err := decodeRoom(raw)
		if err != nil {
			return err
		}
		if current.Version != expected {
			return ErrVersionConflict
		}
		_, err = tx.Pipelined(func(pipe redis.Pipeliner) error {
			pipe.Set(key, data, s.ttl)
			return nil
		})
		return err
	}, key)
	switch err {
	case nil, ErrNotFound, ErrVersionConflict:
		return err
	case redis.TxFailedErr:
		return ErrVersionConflict
	default:
		return fmt.Errorf("redis cas: %w", err)
	}
}

func (s *Redis) Delete(ctx context.Context, code string) (bool, error) {
	n, err := s.client.WithContext(ctx).Del(s.key(code)).Result()
	if err != nil {
		return false, fmt.Errorf("redis del: %w", err)
	}
	return n > 0, nil
}

func decodeRoom(data []byte) (*game.Room, error) {
	var room game.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, fmt.Errorf("decode room: %w", err)
	}
	return &room, nil
}
