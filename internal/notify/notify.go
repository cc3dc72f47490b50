// Package notify pushes room updates to subscribers.
package notify

import (
	"context"
	"encoding/json"
	"errors"

	"think-alike/internal/game"
)

const EventUpdate = "update"

// Notifier delivers a room snapshot on a channel. Delivery is best effort.
type Notifier interface {
	Publish(ctx context.Context, channel, event string, room *game.Room) error
}

// Message is the wire payload pushed to subscribers.
type Message struct {
	Event string     `json:"event"`
	Room  *game.Room `json:"room"`
}

// Channel names the per-room channel.
func Channel(code string) string {
	return "room-" + code
}

func encode(event string, room *game.Room) ([]byte, error) {
	return json.Marshal(Message{Event: event, Room: room})
}

// Fanout publishes to every notifier and joins their errors.
type Fanout []Notifier

func (f Fanout) Publish(ctx context.Context, channel, event string, room *game.Room) error {
	var errs []error
	for _, n := range f {
		if n == nil {
			continue
		}
		if err := n.Publish(ctx, channel, event, room); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop drops every message.
type Nop struct{}

func (Nop) Publish(context.Context, string, string, *game.Room) error {
	return nil
}
