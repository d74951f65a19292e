package entity

import (
	"fmt"

	"github.com/google/uuid"
)

type ScopeKind string

const (
	ScopeUser  ScopeKind = "user"
	ScopeGuest ScopeKind = "guest"
)

// Scope identifies whose threads a store operation touches. User and guest
// scopes never resolve to the same storage key, even for equal ids.
type Scope struct {
	Kind ScopeKind
	Id   uuid.UUID
}

func UserScope(id uuid.UUID) Scope {
	return Scope{Kind: ScopeUser, Id: id}
}

func GuestScope(id uuid.UUID) Scope {
	return Scope{Kind: ScopeGuest, Id: id}
}

func (s Scope) IsGuest() bool {
	return s.Kind == ScopeGuest
}

func (s Scope) IsZero() bool {
	return s.Kind == "" || s.Id == uuid.Nil
}

// Key is the storage and feed-topic key for the scope.
func (s Scope) Key() string {
	return fmt.Sprintf("%s.%s", s.Kind, s.Id)
}

func (s Scope) String() string {
	return s.Key()
}
