package domain

import "errors"

var (
	// ErrSessionNotFound is returned when a join code resolves to nothing.
	ErrSessionNotFound = errors.New("game not found")
	// ErrJoinClosed is returned when a join arrives after the game left the lobby.
	ErrJoinClosed = errors.New("game already in progress")
	// ErrConnectionInUse is returned when a connection already holds a role in a session.
	ErrConnectionInUse = errors.New("connection already in a game")
	// ErrQuestionSetNotFound indicates the question content could not be loaded.
	ErrQuestionSetNotFound = errors.New("question set not found")
	// ErrNoQuestions is returned when a game is created without any questions.
	ErrNoQuestions = errors.New("game needs at least one question")
)
