package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByThreadID struct {
	ThreadID uuid.UUID
}

func (s ByThreadID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("thread_id = ?", s.ThreadID)
}

// ThreadDisplayOrder sorts threads most recently active first. Ties fall back
// to the newest creation time and then the id so the order is total.
type ThreadDisplayOrder struct{}

func (s ThreadDisplayOrder) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("last_activity DESC").Order("created_at DESC").Order("id ASC")
}

// MessageTimeline sorts messages oldest first.
type MessageTimeline struct{}

func (s MessageTimeline) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("created_at ASC").Order("id ASC")
}
