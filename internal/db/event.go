package db

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// EventLog journals room actions to the events table.
type EventLog struct {
	conn *gorm.DB
}

func NewEventLog(conn *gorm.DB) *EventLog {
	return &EventLog{conn: conn}
}

func (l *EventLog) Record(ctx context.Context, event Event, payload any) error {
	if l == nil || l.conn == nil {
		return nil
	}
	if event.RoomCode == "" || event.Type == "" {
		return errors.New("event room code and type are required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	event.Payload = datatypes.JSON(data)
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	return l.conn.WithContext(ctx).Create(&event).Error
}

// List returns a room's events oldest first, at most limit when limit > 0.
func (l *EventLog) List(ctx context.Context, code string, limit int) ([]Event, error) {
	if l == nil || l.conn == nil {
		return []Event{}, nil
	}
	query := l.conn.WithContext(ctx).
		Where("room_code = ?", code).
		Order("id asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var events []Event
	if err := query.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

// DeleteRoom drops a discarded room's journal.
func (l *EventLog) DeleteRoom(ctx context.Context, code string) error {
	if l == nil || l.conn == nil {
		return nil
	}
	return l.conn.WithContext(ctx).Where("room_code = ?", code).Delete(&Event{}).Error
}
