package domain

// DefaultTimeLimit is applied to questions that do not carry their own limit.
const DefaultTimeLimit = 20

// Phase is a session's position in its lifecycle.
type Phase string

const (
	PhaseLobby    Phase = "LOBBY"
	PhaseQuestion Phase = "QUESTION"
	PhaseResult   Phase = "RESULT"
	PhaseEnd      Phase = "END"
)

// Participant represents a connection that joined a game to answer questions.
type Participant struct {
	ConnectionID string `json:"connectionId"`
	Nickname     string `json:"nickname"`
	Score        int    `json:"score"`
	Streak       int    `json:"streak"`
}

// Question models an MCQ question with one correct option. Question content
// is opaque input; the engine never validates it beyond the correct index.
type Question struct {
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	TimeLimit    int      `json:"timeLimit,omitempty"` // seconds, defaults to 20 if zero
}

// EffectiveTimeLimit returns the question's limit or the default.
func (q Question) EffectiveTimeLimit() int {
	if q.TimeLimit > 0 {
		return q.TimeLimit
	}
	return DefaultTimeLimit
}

// QuestionView is the redacted question sent to participants. The correct
// index must never reach a participant before results are revealed.
type QuestionView struct {
	Text      string   `json:"text"`
	Options   []string `json:"options"`
	TimeLimit int      `json:"timeLimit"`
	Index     int      `json:"index"`
	Total     int      `json:"total"`
}

// LeaderboardEntry is a snapshot-friendly view of a participant's standing.
type LeaderboardEntry struct {
	Nickname string `json:"nickname"`
	Score    int    `json:"score"`
	Streak   int    `json:"streak"`
}

// QuestionSet is a stored collection of questions a host can run a game from.
type QuestionSet struct {
	ID        string     `json:"id"`
	Title     string     `json:"title,omitempty"`
	Questions []Question `json:"questions"`
}
