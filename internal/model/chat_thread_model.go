package model

import (
	"time"

	"github.com/google/uuid"
)

type ChatThread struct {
	Id           uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId       uuid.UUID `gorm:"type:uuid;not null;index"` // owner; threads are only read through this scope
	Name         string    `gorm:"type:text;not null;default:'New Chat'"`
	AutoRenamed  bool      `gorm:"not null;default:false"`
	CreatedAt    time.Time `gorm:"not null"`
	LastActivity time.Time `gorm:"not null;index"`
}

func (ChatThread) TableName() string {
	return "chat_threads"
}
