package memory

import (
	"time"

	"arcane-chat-be/internal/entity"

	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps transient client sessions. Idle sessions expire.
type SessionRepository struct {
	cache *cache.Cache
}

func NewSessionRepository(ttl time.Duration) *SessionRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionRepository{
		cache: cache.New(ttl, 10*time.Minute),
	}
}

func (r *SessionRepository) Save(session *entity.Session) {
	r.cache.Set(session.Key, session, cache.DefaultExpiration)
}

func (r *SessionRepository) Get(key string) (*entity.Session, bool) {
	if x, found := r.cache.Get(key); found {
		return x.(*entity.Session), true
	}
	return nil, false
}

func (r *SessionRepository) Delete(key string) {
	r.cache.Delete(key)
}
