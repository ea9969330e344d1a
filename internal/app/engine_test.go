package app_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/Maf1ck/kahoot-beck/internal/app"
	"github.com/Maf1ck/kahoot-beck/internal/domain"
)

// recorder captures broadcasts so tests can assert on what went where.
type recorder struct {
	mu   sync.Mutex
	sent []sentMessage
}

type sentMessage struct {
	target  string
	event   string
	payload any
}

func (r *recorder) record(target, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentMessage{target: target, event: event, payload: payload})
}

func (r *recorder) ToConnection(id, event string, payload any) {
	r.record("conn:"+id, event, payload)
}
func (r *recorder) ToHost(code, event string, payload any) {
	r.record("host:"+code, event, payload)
}
func (r *recorder) ToParticipants(code, event string, payload any) {
	r.record("participants:"+code, event, payload)
}
func (r *recorder) ToSession(code, event string, payload any) {
	r.record("session:"+code, event, payload)
}

func (r *recorder) last(target, event string) (any, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.sent) - 1; i >= 0; i-- {
		if r.sent[i].target == target && r.sent[i].event == event {
			return r.sent[i].payload, true
		}
	}
	return nil, false
}

func (r *recorder) count(target, event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, m := range r.sent {
		if m.target == target && m.event == event {
			n++
		}
	}
	return n
}

type fixture struct {
	registry *app.Registry
	engine   *app.Engine
	cast     *recorder
}

func newFixture() *fixture {
	registry := app.NewRegistry()
	cast := &recorder{}
	sets := staticSets{"set-1": {ID: "set-1", Questions: sampleQuestions()}}
	return &fixture{
		registry: registry,
		engine:   app.NewEngine(registry, sets, cast),
		cast:     cast,
	}
}

type staticSets map[string]domain.QuestionSet

func (s staticSets) GetQuestionSet(_ context.Context, id string) (domain.QuestionSet, error) {
	if set, ok := s[id]; ok {
		return set, nil
	}
	return domain.QuestionSet{}, domain.ErrQuestionSetNotFound
}

func TestCreateGameEmitsCode(t *testing.T) {
	f := newFixture()
	code, err := f.engine.CreateGame("host-1", sampleQuestions())
	if err != nil {
		t.Fatalf("create game: %v", err)
	}
	payload, ok := f.cast.last("conn:host-1", domain.EventGameCreated)
	if !ok {
		t.Fatalf("expected game_created for host")
	}
	if created := payload.(domain.GameCreated); created.Code != code {
		t.Fatalf("expected code %s, got %s", code, created.Code)
	}
	session, ok := f.registry.Get(code)
	if !ok || session.Phase() != domain.PhaseLobby {
		t.Fatalf("expected lobby session for %s", code)
	}
}

func TestCreateGameRequiresQuestions(t *testing.T) {
	f := newFixture()
	_, err := f.engine.CreateGame("host-1", nil)
	if err != domain.ErrNoQuestions {
		t.Fatalf("expected ErrNoQuestions, got %v", err)
	}
	payload, ok := f.cast.last("conn:host-1", domain.EventError)
	if !ok {
		t.Fatalf("expected error signal to host")
	}
	if msg := payload.(domain.ErrorPayload).Message; msg != domain.ErrNoQuestions.Error() {
		t.Fatalf("unexpected error message %q", msg)
	}
	if _, ok := f.cast.last("conn:host-1", domain.EventGameCreated); ok {
		t.Fatalf("no game must be created without questions")
	}
}

func TestCreateGameFromSet(t *testing.T) {
	f := newFixture()
	code, err := f.engine.CreateGameFromSet(context.Background(), "host-1", "set-1")
	if err != nil {
		t.Fatalf("create from set: %v", err)
	}
	if _, ok := f.registry.Get(code); !ok {
		t.Fatalf("expected session")
	}

	_, err = f.engine.CreateGameFromSet(context.Background(), "host-2", "missing")
	if err != domain.ErrQuestionSetNotFound {
		t.Fatalf("expected ErrQuestionSetNotFound, got %v", err)
	}
	if _, ok := f.cast.last("conn:host-2", domain.EventError); !ok {
		t.Fatalf("expected error signal to caller")
	}
}

func TestJoinBroadcastsRoster(t *testing.T) {
	f := newFixture()
	code, _ := f.engine.CreateGame("host-1", sampleQuestions())

	if err := f.engine.JoinGame(code, "c1", "Ana"); err != nil {
		t.Fatalf("join: %v", err)
	}
	payload, ok := f.cast.last("session:"+code, domain.EventPlayerJoined)
	if !ok {
		t.Fatalf("expected player_joined broadcast")
	}
	roster := payload.(domain.PlayerRoster)
	if len(roster.Participants) != 1 || roster.Participants[0].Nickname != "Ana" {
		t.Fatalf("unexpected roster %+v", roster)
	}
	success, ok := f.cast.last("conn:c1", domain.EventJoinedSuccess)
	if !ok {
		t.Fatalf("expected joined_success")
	}
	if s := success.(domain.JoinedSuccess); s.Code != code || s.Nickname != "Ana" {
		t.Fatalf("unexpected joined_success %+v", s)
	}
}

func TestJoinRejectedOutsideLobby(t *testing.T) {
	f := newFixture()
	code, _ := f.engine.CreateGame("host-1", sampleQuestions())
	f.engine.StartGame(code, "host-1")

	if err := f.engine.JoinGame(code, "late", "Late"); err != domain.ErrJoinClosed {
		t.Fatalf("expected ErrJoinClosed, got %v", err)
	}
	if _, ok := f.cast.last("conn:late", domain.EventError); !ok {
		t.Fatalf("expected error signal to late joiner")
	}
	session, _ := f.registry.Get(code)
	if len(session.Participants()) != 0 {
		t.Fatalf("late join must not mutate the roster")
	}
}

func TestJoinUnknownCode(t *testing.T) {
	f := newFixture()
	if err := f.engine.JoinGame("000000", "c1", "Ana"); err != domain.ErrSessionNotFound {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, ok := f.cast.last("conn:c1", domain.EventError); !ok {
		t.Fatalf("expected error signal")
	}
}

func TestStartGameHostOnly(t *testing.T) {
	f := newFixture()
	code, _ := f.engine.CreateGame("host-1", sampleQuestions())
	_ = f.engine.JoinGame(code, "c1", "Ana")

	f.engine.StartGame(code, "c1") // not the host: no-op
	session, _ := f.registry.Get(code)
	if session.Phase() != domain.PhaseLobby {
		t.Fatalf("non-host start must be ignored")
	}

	f.engine.StartGame(code, "host-1")
	if session.Phase() != domain.PhaseQuestion {
		t.Fatalf("expected QUESTION phase, got %s", session.Phase())
	}
	if f.cast.count("session:"+code, domain.EventGameStarted) != 1 {
		t.Fatalf("expected one game_started broadcast")
	}
}

func TestQuestionDispatchRedactsCorrectIndex(t *testing.T) {
	f := newFixture()
	code, _ := f.engine.CreateGame("host-1", sampleQuestions())
	_ = f.engine.JoinGame(code, "c1", "Ana")
	f.engine.StartGame(code, "host-1")

	hostPayload, ok := f.cast.last("host:"+code, domain.EventQuestion)
	if !ok {
		t.Fatalf("expected question for host")
	}
	full := hostPayload.(domain.Question)
	if full.CorrectIndex != 1 {
		t.Fatalf("host must receive the correct index, got %+v", full)
	}

	playerPayload, ok := f.cast.last("participants:"+code, domain.EventQuestion)
	if !ok {
		t.Fatalf("expected question for participants")
	}
	view, isView := playerPayload.(domain.QuestionView)
	if !isView {
		t.Fatalf("participants must receive the redacted view, got %T", playerPayload)
	}
	if view.Index != 0 || view.Total != 2 || view.TimeLimit != domain.DefaultTimeLimit {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestScoringIsDeterministic(t *testing.T) {
	cases := []struct {
		timeLeft int
		want     int
	}{
		{timeLeft: 20, want: 1000},
		{timeLeft: 0, want: 500},
		{timeLeft: 10, want: 750},
		{timeLeft: 15, want: 875},
		{timeLeft: -5, want: 500},  // clamped, score never decreases
		{timeLeft: 99, want: 1000}, // clamped to the question's limit
	}
	for _, tc := range cases {
		f := newFixture()
		code, _ := f.engine.CreateGame("host-1", sampleQuestions())
		_ = f.engine.JoinGame(code, "c1", "Ana")
		f.engine.StartGame(code, "host-1")

		f.engine.SubmitAnswer(code, "c1", 1, tc.timeLeft)

		session, _ := f.registry.Get(code)
		got := session.Participants()[0].Score
		if got != tc.want {
			t.Errorf("timeLeft=%d: expected %d points, got %d", tc.timeLeft, tc.want, got)
		}
	}
}

func TestDuplicateSubmissionIgnored(t *testing.T) {
	f := newFixture()
	code, _ := f.engine.CreateGame("host-1", sampleQuestions())
	_ = f.engine.JoinGame(code, "c1", "Ana")
	f.engine.StartGame(code, "host-1")

	f.engine.SubmitAnswer(code, "c1", 1, 20)
	f.engine.SubmitAnswer(code, "c1", 1, 20)

	session, _ := f.registry.Get(code)
	if score := session.Participants()[0].Score; score != 1000 {
		t.Fatalf("second submission must not change the score, got %d", score)
	}
	if n := f.cast.count("host:"+code, domain.EventPlayerAnswered); n != 1 {
		t.Fatalf("expected one player_answered notification, got %d", n)
	}
}

func TestSubmitOutsideQuestionPhaseIgnored(t *testing.T) {
	f := newFixture()
	code, _ := f.engine.CreateGame("host-1", sampleQuestions())
	_ = f.engine.JoinGame(code, "c1", "Ana")

	// Still in the lobby.
	f.engine.SubmitAnswer(code, "c1", 1, 20)
	session, _ := f.registry.Get(code)
	if session.Participants()[0].Score != 0 {
		t.Fatalf("lobby submission must be a no-op")
	}

	// Unknown code.
	f.engine.SubmitAnswer("000000", "c1", 1, 20)
	if n := f.cast.count("host:"+code, domain.EventPlayerAnswered); n != 0 {
		t.Fatalf("expected no answer notifications, got %d", n)
	}
}

func TestStreakIncrementAndReset(t *testing.T) {
	f := newFixture()
	code, _ := f.engine.CreateGame("host-1", sampleQuestions())
	_ = f.engine.JoinGame(code, "c1", "Ana")
	f.engine.StartGame(code, "host-1")

	f.engine.SubmitAnswer(code, "c1", 1, 10) // correct
	session, _ := f.registry.Get(code)
	if streak := session.Participants()[0].Streak; streak != 1 {
		t.Fatalf("expected streak 1, got %d", streak)
	}

	f.engine.NextQuestion(code, "host-1")
	f.engine.SubmitAnswer(code, "c1", 0, 10) // wrong
	if streak := session.Participants()[0].Streak; streak != 0 {
		t.Fatalf("wrong answer must reset streak, got %d", streak)
	}
}

func TestHostAnswerIgnored(t *testing.T) {
	f := newFixture()
	code, _ := f.engine.CreateGame("host-1", sampleQuestions())
	_ = f.engine.JoinGame(code, "c1", "Ana")
	f.engine.StartGame(code, "host-1")

	f.engine.SubmitAnswer(code, "host-1", 1, 20)
	if n := f.cast.count("host:"+code, domain.EventPlayerAnswered); n != 0 {
		t.Fatalf("host submissions must be ignored, got %d notifications", n)
	}
}

func TestShowResultsBroadcastsAnswerAndStandings(t *testing.T) {
	f := newFixture()
	code, _ := f.engine.CreateGame("host-1", sampleQuestions())
	_ = f.engine.JoinGame(code, "c1", "Ana")
	_ = f.engine.JoinGame(code, "c2", "Bo")
	f.engine.StartGame(code, "host-1")

	f.engine.SubmitAnswer(code, "c1", 1, 15) // correct, 875
	f.engine.SubmitAnswer(code, "c2", 0, 15) // wrong

	f.engine.ShowResults(code, "host-1")
	payload, ok := f.cast.last("session:"+code, domain.EventQuestionResults)
	if !ok {
		t.Fatalf("expected question_results broadcast")
	}
	results := payload.(domain.QuestionResults)
	if results.CorrectAnswer != 1 {
		t.Fatalf("expected correct answer 1, got %d", results.CorrectAnswer)
	}
	if len(results.Leaderboard) != 2 ||
		results.Leaderboard[0].Nickname != "Ana" || results.Leaderboard[0].Score != 875 ||
		results.Leaderboard[1].Nickname != "Bo" || results.Leaderboard[1].Score != 0 {
		t.Fatalf("unexpected leaderboard %+v", results.Leaderboard)
	}

	session, _ := f.registry.Get(code)
	if session.Phase() != domain.PhaseResult {
		t.Fatalf("expected RESULT phase, got %s", session.Phase())
	}

	// Redundant reveal is allowed.
	f.engine.ShowResults(code, "host-1")
	if n := f.cast.count("session:"+code, domain.EventQuestionResults); n != 2 {
		t.Fatalf("expected 2 reveals, got %d", n)
	}
}

func TestAdvanceResetsAnswersAndEndsGame(t *testing.T) {
	f := newFixture()
	code, _ := f.engine.CreateGame("host-1", sampleQuestions())
	_ = f.engine.JoinGame(code, "c1", "Ana")
	f.engine.StartGame(code, "host-1")
	f.engine.SubmitAnswer(code, "c1", 1, 20) // 1000 on question 0

	f.engine.NextQuestion(code, "host-1")
	// Fresh answer bucket: the same participant may answer again.
	f.engine.SubmitAnswer(code, "c1", 1, 0) // +500 on question 1

	session, _ := f.registry.Get(code)
	if score := session.Participants()[0].Score; score != 1500 {
		t.Fatalf("expected 1500 after both questions, got %d", score)
	}

	f.engine.NextQuestion(code, "host-1")
	if session.Phase() != domain.PhaseEnd {
		t.Fatalf("expected END phase, got %s", session.Phase())
	}
	payload, ok := f.cast.last("session:"+code, domain.EventGameOver)
	if !ok {
		t.Fatalf("expected game_over broadcast")
	}
	final := payload.(domain.GameOver)
	independent := f.engine.Leaderboard(session)
	if len(final.Leaderboard) != len(independent) || final.Leaderboard[0] != independent[0] {
		t.Fatalf("terminal leaderboard %+v does not match %+v", final.Leaderboard, independent)
	}

	// Advancing a finished game is a no-op.
	f.engine.NextQuestion(code, "host-1")
	if n := f.cast.count("session:"+code, domain.EventGameOver); n != 1 {
		t.Fatalf("expected a single game_over, got %d", n)
	}
}

func TestLeaderboardTopFiveWithJoinOrderTieBreak(t *testing.T) {
	f := newFixture()
	code, _ := f.engine.CreateGame("host-1", sampleQuestions())
	for i := 0; i < 7; i++ {
		_ = f.engine.JoinGame(code, fmt.Sprintf("c%d", i), fmt.Sprintf("P%d", i))
	}
	f.engine.StartGame(code, "host-1")

	// P1 and P3 answer correctly with the same time left; the rest miss.
	f.engine.SubmitAnswer(code, "c1", 1, 10)
	f.engine.SubmitAnswer(code, "c3", 1, 10)
	for _, id := range []string{"c0", "c2", "c4", "c5", "c6"} {
		f.engine.SubmitAnswer(code, id, 0, 10)
	}

	session, _ := f.registry.Get(code)
	lb := f.engine.Leaderboard(session)
	if len(lb) != 5 {
		t.Fatalf("expected top 5, got %d entries", len(lb))
	}
	if lb[0].Nickname != "P1" || lb[1].Nickname != "P3" {
		t.Fatalf("ties must keep join order, got %+v", lb[:2])
	}
	for i := 1; i < len(lb); i++ {
		if lb[i].Score > lb[i-1].Score {
			t.Fatalf("leaderboard not sorted: %+v", lb)
		}
	}

	// Idempotent: a second projection is identical.
	again := f.engine.Leaderboard(session)
	for i := range lb {
		if lb[i] != again[i] {
			t.Fatalf("leaderboard not idempotent: %+v vs %+v", lb, again)
		}
	}
}

func TestHostDisconnectDeletesSession(t *testing.T) {
	f := newFixture()
	code, _ := f.engine.CreateGame("host-1", sampleQuestions())
	_ = f.engine.JoinGame(code, "c1", "Ana")
	_ = f.engine.JoinGame(code, "c2", "Bo")

	f.engine.HandleDisconnect("host-1")

	if _, ok := f.registry.Get(code); ok {
		t.Fatalf("session must die with its host")
	}
	for _, id := range []string{"c1", "c2"} {
		if _, ok := f.cast.last("conn:"+id, domain.EventHostDisconnected); !ok {
			t.Fatalf("expected host_disconnected for %s", id)
		}
	}
}

func TestParticipantDisconnectBroadcastsRoster(t *testing.T) {
	f := newFixture()
	code, _ := f.engine.CreateGame("host-1", sampleQuestions())
	_ = f.engine.JoinGame(code, "c1", "Ana")
	_ = f.engine.JoinGame(code, "c2", "Bo")

	f.engine.HandleDisconnect("c1")

	payload, ok := f.cast.last("session:"+code, domain.EventPlayerLeft)
	if !ok {
		t.Fatalf("expected player_left broadcast")
	}
	roster := payload.(domain.PlayerRoster)
	if len(roster.Participants) != 1 || roster.Participants[0].Nickname != "Bo" {
		t.Fatalf("unexpected roster %+v", roster)
	}
}

// TestGameScenario walks the reference flow end to end: create, two joins,
// start, split submissions, reveal, advance.
func TestGameScenario(t *testing.T) {
	f := newFixture()
	code, err := f.engine.CreateGame("host-1", sampleQuestions())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_ = f.engine.JoinGame(code, "ana-conn", "Ana")
	_ = f.engine.JoinGame(code, "bo-conn", "Bo")
	f.engine.StartGame(code, "host-1")

	f.engine.SubmitAnswer(code, "ana-conn", 1, 15) // correct → 875, streak 1
	f.engine.SubmitAnswer(code, "bo-conn", 2, 15)  // wrong → 0, streak 0

	session, _ := f.registry.Get(code)
	roster := session.Participants()
	if roster[0].Score != 875 || roster[0].Streak != 1 {
		t.Fatalf("Ana expected 875/streak 1, got %d/%d", roster[0].Score, roster[0].Streak)
	}
	if roster[1].Score != 0 || roster[1].Streak != 0 {
		t.Fatalf("Bo expected 0/streak 0, got %d/%d", roster[1].Score, roster[1].Streak)
	}

	answered, _ := f.cast.last("host:"+code, domain.EventPlayerAnswered)
	if pa := answered.(domain.PlayerAnswered); pa.Count != 2 {
		t.Fatalf("expected answer count 2, got %d", pa.Count)
	}

	f.engine.ShowResults(code, "host-1")
	payload, _ := f.cast.last("session:"+code, domain.EventQuestionResults)
	results := payload.(domain.QuestionResults)
	if results.CorrectAnswer != 1 || results.Leaderboard[0].Nickname != "Ana" {
		t.Fatalf("unexpected results %+v", results)
	}

	f.engine.NextQuestion(code, "host-1")
	view, _ := f.cast.last("participants:"+code, domain.EventQuestion)
	if v := view.(domain.QuestionView); v.Index != 1 || v.TimeLimit != 30 {
		t.Fatalf("expected question 1 with its own limit, got %+v", v)
	}
	// Question 1 starts with an empty answer bucket; the speed bonus still
	// divides by the default 20s window, so 30s left is worth 500+750.
	f.engine.SubmitAnswer(code, "ana-conn", 1, 30)
	if score := session.Participants()[0].Score; score != 875+1250 {
		t.Fatalf("expected 2125 after question 1, got %d", score)
	}
}
