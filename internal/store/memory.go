package store

import (
	"context"
	"sync"
	"time"

	"think-alike/internal/game"
)

// Memory keeps rooms in process. Rooms are cloned on the way in and out.
type Memory struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	rooms map[string]*game.Room
}

func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:   ttl,
		now:   time.Now,
		rooms: make(map[string]*game.Room),
	}
}

func (s *Memory) Get(_ context.Context, code string) (*game.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	room, ok := s.rooms[code]
	if !ok {
		return nil, ErrNotFound
	}
	return room.Clone(), nil
}

func (s *Memory) Create(_ context.Context, room *game.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[room.Code]; ok {
		return ErrExists
	}
	s.rooms[room.Code] = room.Clone()
	return nil
}

func (s *Memory) CompareAndSet(_ context.Context, room *game.Room, expected int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.rooms[room.Code]
	if !ok {
		return ErrNotFound
	}
	if current.Version != expected {
		return ErrVersionConflict
	}
	s.rooms[room.Code] = room.Clone()
	return nil
}

func (s *Memory) Delete(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[code]; !ok {
		return false, nil
	}
	delete(s.rooms, code)
	return true, nil
}

func (s *Memory) Sweep(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for code, room := range s.rooms {
		if expired(room, s.ttl, now) {
			delete(s.rooms, code)
			removed++
		}
	}
	return removed, nil
}
