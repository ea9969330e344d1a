package app

import (
	"sort"
	"sync"

	"github.com/Maf1ck/kahoot-beck/internal/domain"
)

// leaderboardSize caps how many entries a standings broadcast carries.
const leaderboardSize = 5

// Session is the in-memory state of one live game. All mutation goes through
// its methods; callers never touch fields directly.
type Session struct {
	code string
	host string

	mu           sync.Mutex
	phase        domain.Phase
	questions    []domain.Question
	current      int
	participants []*domain.Participant
	answers      map[int]map[string]int
}

func newSession(code, host string, questions []domain.Question) *Session {
	return &Session{
		code:      code,
		host:      host,
		phase:     domain.PhaseLobby,
		questions: questions,
		current:   -1,
		answers:   make(map[int]map[string]int),
	}
}

// Code returns the session's join code.
func (s *Session) Code() string { return s.code }

// Host returns the controlling connection's identifier.
func (s *Session) Host() string { return s.host }

// Phase returns the session's current phase.
func (s *Session) Phase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Participants returns a snapshot of the roster in join order.
func (s *Session) Participants() []domain.Participant {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rosterLocked()
}

func (s *Session) rosterLocked() []domain.Participant {
	roster := make([]domain.Participant, 0, len(s.participants))
	for _, p := range s.participants {
		roster = append(roster, *p)
	}
	return roster
}

// join appends a participant. Only allowed while the session is in the lobby.
func (s *Session) join(p *domain.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseLobby {
		return domain.ErrJoinClosed
	}
	s.participants = append(s.participants, p)
	return nil
}

func (s *Session) removeParticipant(connectionID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, p := range s.participants {
		if p.ConnectionID == connectionID {
			s.participants = append(s.participants[:i], s.participants[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Session) hasConnection(connectionID string) bool {
	if s.host == connectionID {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.participants {
		if p.ConnectionID == connectionID {
			return true
		}
	}
	return false
}

// start moves the session from the lobby onto question 0.
func (s *Session) start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseLobby {
		return false
	}
	s.phase = domain.PhaseQuestion
	s.current = 0
	s.answers[0] = make(map[string]int)
	return true
}

// advance moves to the next question, or ends the game past the last one.
// It reports (finished, ok).
func (s *Session) advance() (bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current < 0 || s.phase == domain.PhaseEnd {
		return false, false
	}
	s.current++
	if s.current >= len(s.questions) {
		s.phase = domain.PhaseEnd
		return true, true
	}
	s.phase = domain.PhaseQuestion
	s.answers[s.current] = make(map[string]int)
	return false, true
}

// reveal flips the session to RESULT and returns the current question's
// correct index. Redundant reveals are allowed.
func (s *Session) reveal() (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current < 0 || s.current >= len(s.questions) {
		return 0, false
	}
	s.phase = domain.PhaseResult
	return s.questions[s.current].CorrectIndex, true
}

// currentViews returns the full question for the host and the redacted view
// for participants.
func (s *Session) currentViews() (domain.Question, domain.QuestionView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current < 0 || s.current >= len(s.questions) {
		return domain.Question{}, domain.QuestionView{}, false
	}
	q := s.questions[s.current]
	view := domain.QuestionView{
		Text:      q.Text,
		Options:   q.Options,
		TimeLimit: q.EffectiveTimeLimit(),
		Index:     s.current,
		Total:     len(s.questions),
	}
	return q, view, true
}

// recordAnswer stores a submission for the current question and applies the
// score. Duplicates and out-of-phase submissions are dropped without effect.
// The returned count is how many answers the current question has so far.
func (s *Session) recordAnswer(connectionID string, answerIndex, timeLeft int) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.phase != domain.PhaseQuestion || s.current < 0 || s.current >= len(s.questions) {
		return 0, false
	}

	var participant *domain.Participant
	for _, p := range s.participants {
		if p.ConnectionID == connectionID {
			participant = p
			break
		}
	}
	if participant == nil {
		return 0, false
	}

	bucket := s.answers[s.current]
	if bucket == nil {
		bucket = make(map[string]int)
		s.answers[s.current] = bucket
	}
	if _, dup := bucket[connectionID]; dup {
		return 0, false
	}
	bucket[connectionID] = answerIndex

	question := s.questions[s.current]
	if answerIndex == question.CorrectIndex {
		participant.Score += scorePoints(timeLeft, question.EffectiveTimeLimit())
		participant.Streak++
	} else {
		participant.Streak = 0
	}
	return len(bucket), true
}

// leaderboard returns the top entries by score, ties broken by join order.
func (s *Session) leaderboard() []domain.LeaderboardEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.leaderboardLocked()
}

func (s *Session) leaderboardLocked() []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(s.participants))
	for _, p := range s.participants {
		entries = append(entries, domain.LeaderboardEntry{
			Nickname: p.Nickname,
			Score:    p.Score,
			Streak:   p.Streak,
		})
	}
	// Stable sort over the join-ordered slice: equal scores keep join order.
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	if len(entries) > leaderboardSize {
		entries = entries[:leaderboardSize]
	}
	return entries
}

// scorePoints derives the award for a correct answer from the seconds left on
// the clock. timeLeft is client-reported and clamped so it can never push a
// score down or past the per-question maximum.
func scorePoints(timeLeft, timeLimit int) int {
	if timeLeft < 0 {
		timeLeft = 0
	}
	if timeLeft > timeLimit {
		timeLeft = timeLimit
	}
	return 500 + (500*timeLeft)/domain.DefaultTimeLimit
}
