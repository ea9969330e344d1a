package app

import (
	"context"

	"github.com/Maf1ck/kahoot-beck/internal/domain"
)

// QuestionSetRepository loads stored question content (from cache/backing store).
type QuestionSetRepository interface {
	GetQuestionSet(ctx context.Context, setID string) (domain.QuestionSet, error)
}

// Engine drives a single session's state machine: phase transitions, question
// dispatch, answer intake, scoring. Commands referencing unknown codes or
// issued by non-hosts are no-ops; the only user-visible errors are a rejected
// join and an unknown question set.
type Engine struct {
	store SessionStore
	sets  QuestionSetRepository
	cast  Broadcaster
}

func NewEngine(store SessionStore, sets QuestionSetRepository, cast Broadcaster) *Engine {
	return &Engine{store: store, sets: sets, cast: cast}
}

// CreateGame opens a lobby for the host and hands back the join code.
func (e *Engine) CreateGame(hostConnectionID string, questions []domain.Question) (string, error) {
	code, err := e.store.CreateSession(hostConnectionID, questions)
	if err != nil {
		e.cast.ToConnection(hostConnectionID, domain.EventError, domain.ErrorPayload{Message: err.Error()})
		return "", err
	}
	e.cast.ToConnection(hostConnectionID, domain.EventGameCreated, domain.GameCreated{Code: code})
	return code, nil
}

// CreateGameFromSet loads a stored question set and opens a lobby from it.
func (e *Engine) CreateGameFromSet(ctx context.Context, hostConnectionID, setID string) (string, error) {
	set, err := e.sets.GetQuestionSet(ctx, setID)
	if err != nil {
		e.cast.ToConnection(hostConnectionID, domain.EventError, domain.ErrorPayload{Message: domain.ErrQuestionSetNotFound.Error()})
		return "", domain.ErrQuestionSetNotFound
	}
	return e.CreateGame(hostConnectionID, set.Questions)
}

// JoinGame adds a participant to a lobby. Rejections are signalled to the
// joining connection only.
func (e *Engine) JoinGame(code, connectionID, nickname string) error {
	participant := &domain.Participant{ConnectionID: connectionID, Nickname: nickname}
	if err := e.store.AddParticipant(code, participant); err != nil {
		e.cast.ToConnection(connectionID, domain.EventError, domain.ErrorPayload{Message: err.Error()})
		return err
	}
	session, ok := e.store.Get(code)
	if !ok {
		return domain.ErrSessionNotFound
	}
	e.cast.ToSession(code, domain.EventPlayerJoined, domain.PlayerRoster{Participants: session.Participants()})
	e.cast.ToConnection(connectionID, domain.EventJoinedSuccess, domain.JoinedSuccess{Code: code, Nickname: nickname})
	return nil
}

// StartGame moves a lobby onto its first question. Host only.
func (e *Engine) StartGame(code, connectionID string) {
	session, ok := e.store.Get(code)
	if !ok || session.Host() != connectionID {
		return
	}
	if !session.start() {
		return
	}
	e.cast.ToSession(code, domain.EventGameStarted, nil)
	e.dispatchQuestion(session)
}

// NextQuestion advances the session: either the next question goes out with a
// fresh answer bucket, or the game ends with the final standings. Host only.
func (e *Engine) NextQuestion(code, connectionID string) {
	session, ok := e.store.Get(code)
	if !ok || session.Host() != connectionID {
		return
	}
	finished, ok := session.advance()
	if !ok {
		return
	}
	if finished {
		e.cast.ToSession(code, domain.EventGameOver, domain.GameOver{Leaderboard: session.leaderboard()})
		return
	}
	e.dispatchQuestion(session)
}

// ShowResults reveals the current question's correct option together with the
// standings. Host only; redundant reveals are permitted.
func (e *Engine) ShowResults(code, connectionID string) {
	session, ok := e.store.Get(code)
	if !ok || session.Host() != connectionID {
		return
	}
	correct, ok := session.reveal()
	if !ok {
		return
	}
	e.cast.ToSession(code, domain.EventQuestionResults, domain.QuestionResults{
		CorrectAnswer: correct,
		Leaderboard:   session.leaderboard(),
	})
}

// SubmitAnswer records a participant's answer for the current question.
// Duplicates and submissions outside the QUESTION phase are dropped silently.
// When a submission lands, the host hears the running answer count.
func (e *Engine) SubmitAnswer(code, connectionID string, answerIndex, timeLeft int) {
	session, ok := e.store.Get(code)
	if !ok {
		return
	}
	count, ok := session.recordAnswer(connectionID, answerIndex, timeLeft)
	if !ok {
		return
	}
	e.cast.ToHost(code, domain.EventPlayerAnswered, domain.PlayerAnswered{
		ParticipantID: connectionID,
		Count:         count,
	})
}

// HandleDisconnect resolves a dropped connection. A departing host takes the
// session with it; a departing participant leaves the roster.
func (e *Engine) HandleDisconnect(connectionID string) {
	removal, ok := e.store.RemoveByConnection(connectionID)
	if !ok {
		return
	}
	switch removal.Role {
	case RoleHost:
		// The session is already gone, so the former members are notified directly.
		for _, id := range removal.Notify {
			e.cast.ToConnection(id, domain.EventHostDisconnected, nil)
		}
	case RoleParticipant:
		e.cast.ToSession(removal.Code, domain.EventPlayerLeft, domain.PlayerRoster{Participants: removal.Remaining})
	}
}

// Leaderboard is a read-only projection of a session's standings.
func (e *Engine) Leaderboard(session *Session) []domain.LeaderboardEntry {
	return session.leaderboard()
}

// dispatchQuestion sends the full question to the host and the redacted view
// to everyone else.
func (e *Engine) dispatchQuestion(session *Session) {
	full, view, ok := session.currentViews()
	if !ok {
		return
	}
	e.cast.ToHost(session.Code(), domain.EventQuestion, full)
	e.cast.ToParticipants(session.Code(), domain.EventQuestion, view)
}
