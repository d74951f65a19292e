package model

import (
	"time"

	"github.com/google/uuid"
)

type ChatMessage struct {
	Id        uuid.UUID `gorm:"type:uuid;primaryKey"`
	ThreadId  uuid.UUID `gorm:"type:uuid;not null;index"`
	Role      string    `gorm:"type:varchar(20);not null"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"not null;index"`
}

func (ChatMessage) TableName() string {
	return "chat_messages"
}
