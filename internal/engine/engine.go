// Package engine runs room actions against a store: load, validate, save,
// then notify subscribers.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"think-alike/internal/db"
	"think-alike/internal/game"
	"think-alike/internal/notify"
	"think-alike/internal/store"
)

const (
	createAttempts = 3
	publishTimeout = 5 * time.Second

	EventDiscarded = "discarded"
)

// Journal records applied actions. Failures are logged and otherwise ignored.
type Journal interface {
	Record(ctx context.Context, event db.Event, payload any) error
	DeleteRoom(ctx context.Context, code string) error
}

type Options struct {
	Store    store.Store
	Notifier notify.Notifier
	Machine  *game.Machine
	Journal  Journal
	// Retries bounds how many times an apply reloads after a version conflict.
	Retries int
	Now     func() time.Time
	NewCode func() string
	NewID   func() string
}

type Engine struct {
	store    store.Store
	notifier notify.Notifier
	machine  *game.Machine
	journal  Journal
	retries  int
	now      func() time.Time
	newCode  func() string
	newID    func() string

	locks *keyedMutex
	wg    sync.WaitGroup
}

func New(opts Options) *Engine {
	e := &Engine{
		store:    opts.Store,
		notifier: opts.Notifier,
		machine:  opts.Machine,
		journal:  opts.Journal,
		retries:  opts.Retries,
		now:      opts.Now,
		newCode:  opts.NewCode,
		newID:    opts.NewID,
		locks:    newKeyedMutex(),
	}
	if e.store == nil {
		e.store = store.NewMemory(time.Hour)
	}
	if e.notifier == nil {
		e.notifier = notify.Nop{}
	}
	if e.machine == nil {
		e.machine = game.NewMachine()
	}
	if e.retries <= 0 {
		e.retries = 3
	}
	if e.now == nil {
		e.now = func() time.Time { return time.Now().UTC() }
	}
	if e.newCode == nil {
		e.newCode = newJoinCode
	}
	if e.newID == nil {
		e.newID = uuid.NewString
	}
	return e
}

// Create opens a new room with hostName as host and returns the host's id.
func (e *Engine) Create(ctx context.Context, hostName string) (*game.Room, string, error) {
	hostID := e.newID()
	for attempt := 0; attempt < createAttempts; attempt++ {
		room, err := game.NewRoom(e.newCode(), hostID, hostName)
		if err != nil {
			return nil, "", err
		}
		now := e.now()
		room.Version = 1
		room.CreatedAt = now
		room.UpdatedAt = now

		err = e.store.Create(ctx, room)
		if errors.Is(err, store.ErrExists) {
			log.Debug().Str("room", room.Code).Msg("room code collision, retrying")
			continue
		}
		if err != nil {
			return nil, "", storageError(err)
		}
		log.Info().Str("room", room.Code).Str("player", hostID).Msg("room created")
		e.afterWrite(room, string(game.KindJoin), hostID, map[string]string{"name": room.Players[0].Name})
		return room, hostID, nil
	}
	return nil, "", fmt.Errorf("%w: could not allocate a room code", game.ErrConflict)
}

// Join adds a player named name and returns the new player's id.
func (e *Engine) Join(ctx context.Context, code, name string) (*game.Room, string, error) {
	playerID := e.newID()
	room, err := e.Apply(ctx, code, game.Join{PlayerID: playerID, Name: name})
	if err != nil {
		return nil, "", err
	}
	return room, playerID, nil
}

func (e *Engine) Get(ctx context.Context, code string) (*game.Room, error) {
	room, err := e.store.Get(ctx, NormalizeCode(code))
	if errors.Is(err, store.ErrNotFound) {
		return nil, game.ErrRoomNotFound
	}
	if err != nil {
		return nil, storageError(err)
	}
	return room, nil
}

// Apply runs action against the room under the room's lock. The write is a
// compare-and-set on the version; a conflicting writer from another process
// causes a reload, up to the configured number of attempts.
func (e *Engine) Apply(ctx context.Context, code string, action game.Action) (*game.Room, error) {
	code = NormalizeCode(code)
	unlock := e.locks.Lock(code)
	defer unlock()

	for attempt := 1; attempt <= e.retries; attempt++ {
		current, err := e.Get(ctx, code)
		if err != nil {
			return nil, err
		}
		next, err := e.machine.Apply(current, action)
		if err != nil {
			return nil, err
		}
		next.Version = current.Version + 1
		next.UpdatedAt = e.now()

		err = e.store.CompareAndSet(ctx, next, current.Version)
		switch {
		case err == nil:
			log.Info().
				Str("room", code).
				Str("action", string(action.Kind())).
				Str("player", action.Actor()).
				Str("phase", next.Phase.String()).
				Int64("version", next.Version).
				Msg("action applied")
			e.afterWrite(next, string(action.Kind()), action.Actor(), action)
			return next, nil
		case errors.Is(err, store.ErrVersionConflict):
			log.Debug().Str("room", code).Int("attempt", attempt).Msg("version conflict, reloading")
			continue
		case errors.Is(err, store.ErrNotFound):
			return nil, game.ErrRoomNotFound
		default:
			return nil, storageError(err)
		}
	}
	return nil, fmt.Errorf("%w: room %s changed concurrently", game.ErrConflict, code)
}

// Discard deletes an ended room on the host's request.
func (e *Engine) Discard(ctx context.Context, code, playerID string) error {
	code = NormalizeCode(code)
	unlock := e.locks.Lock(code)
	defer unlock()

	room, err := e.Get(ctx, code)
	if err != nil {
		return err
	}
	if _, ok := room.FindPlayer(playerID); !ok {
		return game.ErrPlayerNotFound
	}
	if !room.IsHost(playerID) {
		return game.ErrNotHost
	}
	if room.Phase != game.PhaseEnded {
		return fmt.Errorf("%w: room must be ended before it is discarded", game.ErrInvalidPhase)
	}
	if _, err := e.store.Delete(ctx, code); err != nil {
		return storageError(err)
	}
	log.Info().Str("room", code).Str("player", playerID).Msg("room discarded")
	e.purgeJournal(code)
	e.publish(room, EventDiscarded)
	return nil
}

func (e *Engine) purgeJournal(code string) {
	if e.journal == nil {
		return
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := e.journal.DeleteRoom(ctx, code); err != nil {
			log.Warn().Err(err).Str("room", code).Msg("journal purge failed")
		}
	}()
}

// Close waits for in-flight notifications and journal writes.
func (e *Engine) Close() {
	e.wg.Wait()
}

func (e *Engine) afterWrite(room *game.Room, kind, playerID string, payload any) {
	snapshot := room.Clone()
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if e.journal != nil {
			event := db.Event{
				RoomCode: snapshot.Code,
				Round:    snapshot.CurrentRound,
				PlayerID: playerID,
				Type:     kind,
			}
			if err := e.journal.Record(ctx, event, payload); err != nil {
				log.Warn().Err(err).Str("room", snapshot.Code).Str("action", kind).Msg("journal write failed")
			}
		}
		e.deliver(ctx, snapshot, notify.EventUpdate)
	}()
}

func (e *Engine) publish(room *game.Room, event string) {
	snapshot := room.Clone()
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		e.deliver(ctx, snapshot, event)
	}()
}

func (e *Engine) deliver(ctx context.Context, room *game.Room, event string) {
	if err := e.notifier.Publish(ctx, notify.Channel(room.Code), event, room); err != nil {
		log.Warn().Err(err).Str("room", room.Code).Str("event", event).Msg("publish failed")
	}
}

func storageError(err error) error {
	return fmt.Errorf("%w: %v", game.ErrStorage, err)
}
