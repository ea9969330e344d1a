package domain

// Outbound event names. The transport wraps these with their payload in a
// {type, payload} envelope.
const (
	EventGameCreated      = "game_created"
	EventGameStarted      = "game_started"
	EventQuestion         = "question"
	EventQuestionResults  = "question_results"
	EventGameOver         = "game_over"
	EventPlayerJoined     = "player_joined"
	EventJoinedSuccess    = "joined_success"
	EventPlayerAnswered   = "player_answered"
	EventPlayerLeft       = "player_left"
	EventHostDisconnected = "host_disconnected"
	EventError            = "error"
)

// GameCreated is sent to the host after a session is created.
type GameCreated struct {
	Code string `json:"code"`
}

// JoinedSuccess confirms a join to the joining connection.
type JoinedSuccess struct {
	Code     string `json:"code"`
	Nickname string `json:"nickname"`
}

// PlayerRoster carries the current participant list, in join order.
// Used for both player_joined and player_left broadcasts.
type PlayerRoster struct {
	Participants []Participant `json:"participants"`
}

// PlayerAnswered tells the host a participant has locked in an answer.
type PlayerAnswered struct {
	ParticipantID string `json:"participantId"`
	Count         int    `json:"count"`
}

// QuestionResults reveals the correct option and the current standings.
type QuestionResults struct {
	CorrectAnswer int                `json:"correctAnswer"`
	Leaderboard   []LeaderboardEntry `json:"leaderboard"`
}

// GameOver carries the final standings.
type GameOver struct {
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

// ErrorPayload is the user-visible error signal.
type ErrorPayload struct {
	Message string `json:"message"`
}
