package entity

import (
	"time"

	"github.com/google/uuid"
)

const DefaultAvatarURL = "/user.png"

type User struct {
	Id        uuid.UUID
	Email     string
	FullName  string
	AvatarURL *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type UserProvider struct {
	Id             uuid.UUID
	UserId         uuid.UUID
	ProviderName   string
	ProviderUserId string
	AvatarURL      string
	CreatedAt      time.Time
}

// Identity is who a session acts for: a signed-in user or an anonymous guest.
type Identity struct {
	Scope       Scope
	DisplayName string
	AvatarURL   string
}

func GuestIdentity(guestId uuid.UUID) Identity {
	return Identity{Scope: GuestScope(guestId), DisplayName: "Guest", AvatarURL: DefaultAvatarURL}
}

func (i Identity) Authenticated() bool {
	return i.Scope.Kind == ScopeUser
}

// Avatar returns the avatar URL or the local placeholder.
func (i Identity) Avatar() string {
	if i.AvatarURL == "" {
		return DefaultAvatarURL
	}
	return i.AvatarURL
}
