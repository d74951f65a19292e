package dto

import (
	"time"

	"github.com/google/uuid"
)

type IdentityDTO struct {
	Kind          string    `json:"kind"`
	Id            uuid.UUID `json:"id"`
	DisplayName   string    `json:"display_name"`
	AvatarURL     string    `json:"avatar_url"`
	Authenticated bool      `json:"authenticated"`
}

type SessionStateResponse struct {
	Identity       IdentityDTO `json:"identity"`
	ActiveThreadId *uuid.UUID  `json:"active_thread_id"`
	Loading        bool        `json:"loading"`
	Banner         string      `json:"banner,omitempty"`
	SidebarOpen    bool        `json:"sidebar_open"`
	DarkMode       bool        `json:"dark_mode"`
}

type UpdatePreferencesRequest struct {
	SidebarOpen *bool `json:"sidebar_open"`
	DarkMode    *bool `json:"dark_mode"`
}

type ThreadResponse struct {
	Id           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	AutoRenamed  bool      `json:"auto_renamed"`
	Active       bool      `json:"active"`
}

type RenameThreadRequest struct {
	Name string `json:"name" validate:"required,max=120"`
}

type MessageResponse struct {
	Id        uuid.UUID `json:"id"`
	ThreadId  uuid.UUID `json:"thread_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type SendMessageRequest struct {
	Content string `json:"content" validate:"required,max=8000"`
}

type SendMessageResponse struct {
	UserMessage MessageResponse `json:"user_message"`
	Reply       MessageResponse `json:"reply"`
	Thread      ThreadResponse  `json:"thread"`
}
