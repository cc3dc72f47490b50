package db

import (
	"time"

	"gorm.io/datatypes"
)

// Room is the persisted room document; Version guards concurrent writers.
type Room struct {
	Code      string         `gorm:"primaryKey;size:12"`
	Version   int64          `gorm:"not null"`
	Document  datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
	UpdatedAt time.Time      `gorm:"not null;index"`
}

type Event struct {
	ID        uint           `gorm:"primaryKey"`
	RoomCode  string         `gorm:"size:12;index;not null"`
	Round     int            `gorm:"not null;default:0"`
	PlayerID  string         `gorm:"size:64;index"`
	Type      string         `gorm:"size:64;not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
}

type TopicLibrary struct {
	ID        uint      `gorm:"primaryKey"`
	Category  string    `gorm:"size:64;not null;default:'';uniqueIndex:idx_topic_library_category_text"`
	Text      string    `gorm:"size:50;not null;uniqueIndex:idx_topic_library_category_text"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (TopicLibrary) TableName() string {
	return "topic_library"
}
