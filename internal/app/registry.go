package app

import (
	"math/rand"
	"sync"
	"time"

	"github.com/Maf1ck/kahoot-beck/internal/domain"
)

// Role distinguishes what a removed connection was to its session.
type Role string

const (
	RoleHost        Role = "host"
	RoleParticipant Role = "participant"
)

// Removal describes the outcome of resolving a disconnecting connection.
type Removal struct {
	Code string
	Role Role
	// Remaining is the roster after the removal (participant case) or the
	// former roster (host case, where the whole session is gone).
	Remaining []domain.Participant
	// Notify lists the connections that should hear about the removal.
	Notify []string
}

// SessionStore is how the engine reaches session state. The in-memory
// Registry is the canonical implementation; infra layers may decorate it.
type SessionStore interface {
	CreateSession(hostConnectionID string, questions []domain.Question) (string, error)
	Get(code string) (*Session, bool)
	AddParticipant(code string, p *domain.Participant) error
	RemoveByConnection(connectionID string) (*Removal, bool)
	Members(code string) (host string, participants []string, ok bool)
}

// Registry owns the collection of live sessions keyed by join code.
type Registry struct {
	mu       sync.RWMutex
	rnd      *rand.Rand
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
		sessions: make(map[string]*Session),
	}
}

// CreateSession generates a unique 6-digit join code and inserts a new lobby
// session for the host. A connection already bound to a session, in either
// role, cannot host another. A game with no questions could never start, so
// it is rejected up front instead of leaving the host stuck in the lobby.
func (r *Registry) CreateSession(hostConnectionID string, questions []domain.Question) (string, error) {
	if len(questions) == 0 {
		return "", domain.ErrNoQuestions
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.connectionInUseLocked(hostConnectionID) {
		return "", domain.ErrConnectionInUse
	}
	code := r.newCodeLocked()
	r.sessions[code] = newSession(code, hostConnectionID, questions)
	return code, nil
}

// newCodeLocked samples 6-digit numeric codes, resampling on collision with
// any currently-held code.
func (r *Registry) newCodeLocked() string {
	for {
		code := formatCode(r.rnd.Intn(1000000))
		if _, taken := r.sessions[code]; !taken {
			return code
		}
	}
}

func formatCode(n int) string {
	buf := [6]byte{}
	for i := 5; i >= 0; i-- {
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[:])
}

// Get is a pure lookup by join code.
func (r *Registry) Get(code string) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[code]
	return session, ok
}

// AddParticipant appends a participant to the session's roster. It fails if
// the code is unknown, the game has left the lobby, or the connection already
// holds a role somewhere.
func (r *Registry) AddParticipant(code string, p *domain.Participant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[code]
	if !ok {
		return domain.ErrSessionNotFound
	}
	if r.connectionInUseLocked(p.ConnectionID) {
		return domain.ErrConnectionInUse
	}
	return session.join(p)
}

// RemoveByConnection resolves a disconnecting connection to its session.
// A participant is dropped from the roster; a host takes the whole session
// down with it. The one-connection-one-role invariant, enforced at create and
// join time, guarantees at most one match.
func (r *Registry) RemoveByConnection(connectionID string) (*Removal, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for code, session := range r.sessions {
		if session.host == connectionID {
			roster := session.Participants()
			delete(r.sessions, code)
			notify := make([]string, 0, len(roster))
			for _, p := range roster {
				notify = append(notify, p.ConnectionID)
			}
			return &Removal{Code: code, Role: RoleHost, Remaining: roster, Notify: notify}, true
		}
		if session.removeParticipant(connectionID) {
			roster := session.Participants()
			notify := make([]string, 0, len(roster)+1)
			notify = append(notify, session.host)
			for _, p := range roster {
				notify = append(notify, p.ConnectionID)
			}
			return &Removal{Code: code, Role: RoleParticipant, Remaining: roster, Notify: notify}, true
		}
	}
	return nil, false
}

// Members reports the host and participant connection IDs for a session.
func (r *Registry) Members(code string) (string, []string, bool) {
	r.mu.RLock()
	session, ok := r.sessions[code]
	r.mu.RUnlock()
	if !ok {
		return "", nil, false
	}
	roster := session.Participants()
	ids := make([]string, 0, len(roster))
	for _, p := range roster {
		ids = append(ids, p.ConnectionID)
	}
	return session.host, ids, true
}

func (r *Registry) connectionInUseLocked(connectionID string) bool {
	for _, session := range r.sessions {
		if session.hasConnection(connectionID) {
			return true
		}
	}
	return false
}
