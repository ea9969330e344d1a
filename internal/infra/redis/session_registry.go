package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Maf1ck/kahoot-beck/internal/app"
	"github.com/Maf1ck/kahoot-beck/internal/domain"
)

// SessionRegistry decorates the in-memory registry with Redis liveness
// markers. Session state stays in-process (games die with the process by
// design); Redis only records which join codes are live, which an ops
// dashboard or a future multi-instance router can read.
type SessionRegistry struct {
	inner  *app.Registry
	client *redis.Client
	ttl    time.Duration
}

var _ app.SessionStore = (*SessionRegistry)(nil)

func NewSessionRegistry(inner *app.Registry, client *redis.Client, ttl time.Duration) *SessionRegistry {
	return &SessionRegistry{inner: inner, client: client, ttl: ttl}
}

func (s *SessionRegistry) CreateSession(hostConnectionID string, questions []domain.Question) (string, error) {
	code, err := s.inner.CreateSession(hostConnectionID, questions)
	if err != nil {
		return "", err
	}
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(code), hostConnectionID, s.ttl).Err()
	return code, nil
}

func (s *SessionRegistry) Get(code string) (*app.Session, bool) {
	return s.inner.Get(code)
}

func (s *SessionRegistry) AddParticipant(code string, p *domain.Participant) error {
	return s.inner.AddParticipant(code, p)
}

func (s *SessionRegistry) RemoveByConnection(connectionID string) (*app.Removal, bool) {
	removal, ok := s.inner.RemoveByConnection(connectionID)
	if ok && removal.Role == app.RoleHost {
		_ = s.client.Del(context.Background(), s.key(removal.Code)).Err()
	}
	return removal, ok
}

func (s *SessionRegistry) Members(code string) (string, []string, bool) {
	return s.inner.Members(code)
}

func (s *SessionRegistry) key(code string) string {
	return "game:session:" + code
}
