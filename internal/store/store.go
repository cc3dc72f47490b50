// Package store persists room documents keyed by room code.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"think-alike/internal/game"
)

var (
	ErrNotFound        = errors.New("store: room not found")
	ErrExists          = errors.New("store: room already exists")
	ErrVersionConflict = errors.New("store: version conflict")
)

// Store is a keyed document store for rooms. Implementations never hand out
// references they keep: callers own every room they receive.
type Store interface {
	Get(ctx context.Context, code string) (*game.Room, error)
	// Create fails with ErrExists when the code is taken.
	Create(ctx context.Context, room *game.Room) error
	// CompareAndSet writes room only if the stored version equals expected,
	// failing with ErrVersionConflict otherwise.
	CompareAndSet(ctx context.Context, room *game.Room, expected int64) error
	// Delete reports whether a room was removed.
	Delete(ctx context.Context, code string) (bool, error)
}

// Sweeper is implemented by stores that do not expire rooms on their own.
type Sweeper interface {
	// Sweep removes rooms idle past the store's TTL and returns how many.
	Sweep(ctx context.Context) (int, error)
}

// RunJanitor sweeps s every interval until ctx is done.
func RunJanitor(ctx context.Context, s Sweeper, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := s.Sweep(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("room sweep failed")
				continue
			}
			if removed > 0 {
				log.Info().Int("removed", removed).Msg("idle rooms swept")
			}
		}
	}
}

func expired(room *game.Room, ttl time.Duration, now time.Time) bool {
	return ttl > 0 && now.Sub(room.UpdatedAt) > ttl
}
