package game

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestMachine() (*Machine, *fakeClock) {
	clock := &fakeClock{now: t0}
	seq := 0
	m := &Machine{
		Now: clock.Now,
		NewID: func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		},
		NewJoinCode: func() string { return "ABC234" },
		Scoring:     DefaultScoring,
	}
	return m, clock
}

func intPtr(v int) *int { return &v }

func question(text string, correct int, limit *int) Question {
	return Question{
		Text:          text,
		Options:       []string{"a", "b", "c", "d"},
		CorrectOption: correct,
		TimeLimit:     limit,
	}
}

func waitingGame(t *testing.T, m *Machine, questions ...Question) Game {
	t.Helper()
	g, err := m.CreateGame("host", "Hannah")
	require.NoError(t, err)
	for _, id := range []string{"p1", "p2"} {
		g, err = m.AddPlayer(g, id, "Player "+id)
		require.NoError(t, err)
	}
	for _, q := range questions {
		g, err = m.AddQuestion(g, q)
		require.NoError(t, err)
	}
	return g
}

func TestCreateGame(t *testing.T) {
	m, _ := newTestMachine()

	g, err := m.CreateGame("host", "Hannah")
	require.NoError(t, err)

	assert.Equal(t, StatusWaiting, g.Status)
	assert.Equal(t, "ABC234", g.JoinCode)
	assert.Equal(t, "host", g.HostID)
	require.Len(t, g.Players, 1)
	host := g.Players["host"]
	assert.True(t, host.IsHost)
	assert.Equal(t, 0, host.Score)
	assert.Equal(t, t0, g.CreatedAt)
}

func TestCreateGameRequiresHostName(t *testing.T) {
	m, _ := newTestMachine()

	_, err := m.CreateGame("host", "   ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = m.CreateGame("", "Hannah")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestAddPlayer(t *testing.T) {
	m, _ := newTestMachine()
	g, _ := m.CreateGame("host", "Hannah")

	next, err := m.AddPlayer(g, "p1", "Pia")
	require.NoError(t, err)

	p := next.Players["p1"]
	assert.False(t, p.IsHost)
	assert.Equal(t, 0, p.Score)
	assert.Equal(t, 1, p.JoinOrder)
	assert.Len(t, g.Players, 1, "input game must not be mutated")

	_, err = m.AddPlayer(next, "p1", "Pia again")
	assert.ErrorIs(t, err, ErrDuplicatePlayer)
}

func TestAddPlayerLateJoin(t *testing.T) {
	m, _ := newTestMachine()
	g := waitingGame(t, m, question("q1", 0, nil))
	g, err := m.StartGame(g)
	require.NoError(t, err)

	_, err = m.AddPlayer(g, "late", "Laura")
	assert.ErrorIs(t, err, ErrInvalidState)

	g, err = m.SetAllowLateJoin(g, true)
	require.NoError(t, err)
	g, err = m.AddPlayer(g, "late", "Laura")
	require.NoError(t, err)
	assert.Contains(t, g.Players, "late")

	g, err = m.EndGame(g)
	require.NoError(t, err)
	_, err = m.AddPlayer(g, "later", "Leo")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestRemovePlayer(t *testing.T) {
	m, _ := newTestMachine()
	g := waitingGame(t, m)

	next, err := m.RemovePlayer(g, "p1")
	require.NoError(t, err)
	assert.NotContains(t, next.Players, "p1")
	assert.Contains(t, g.Players, "p1")

	_, err = m.RemovePlayer(g, "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemoveHostFails(t *testing.T) {
	m, _ := newTestMachine()
	g := waitingGame(t, m)

	next, err := m.RemovePlayer(g, "host")
	assert.ErrorIs(t, err, ErrInvalidOperation)
	assert.Equal(t, g, next)
	assert.Contains(t, g.Players, "host")
}

func TestAddQuestionValidation(t *testing.T) {
	m, _ := newTestMachine()
	g, _ := m.CreateGame("host", "Hannah")

	cases := map[string]Question{
		"empty text":     {Text: " ", Options: []string{"a", "b"}},
		"one option":     {Text: "q", Options: []string{"a"}},
		"seven options":  {Text: "q", Options: []string{"a", "b", "c", "d", "e", "f", "g"}},
		"blank option":   {Text: "q", Options: []string{"a", " "}},
		"correct range":  {Text: "q", Options: []string{"a", "b"}, CorrectOption: 2},
		"negative limit": {Text: "q", Options: []string{"a", "b"}, TimeLimit: intPtr(-5)},
	}
	for name, q := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := m.AddQuestion(g, q)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}

	next, err := m.AddQuestion(g, question("  capital?  ", 1, intPtr(20)))
	require.NoError(t, err)
	require.Len(t, next.Questions, 1)
	assert.NotEmpty(t, next.Questions[0].ID)
	assert.Equal(t, "capital?", next.Questions[0].Text)
	assert.Empty(t, g.Questions)
}

func TestQuestionsLockedAfterStart(t *testing.T) {
	m, _ := newTestMachine()
	g := waitingGame(t, m, question("q1", 0, nil), question("q2", 0, nil))
	g, err := m.StartGame(g)
	require.NoError(t, err)

	_, err = m.AddQuestion(g, question("q3", 0, nil))
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = m.RemoveQuestion(g, g.Questions[0].ID)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = m.ReorderQuestion(g, 0, 1)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestRemoveQuestion(t *testing.T) {
	m, _ := newTestMachine()
	g := waitingGame(t, m, question("q1", 0, nil), question("q2", 0, nil))

	next, err := m.RemoveQuestion(g, g.Questions[0].ID)
	require.NoError(t, err)
	require.Len(t, next.Questions, 1)
	assert.Equal(t, "q2", next.Questions[0].Text)
	assert.Len(t, g.Questions, 2)

	_, err = m.RemoveQuestion(g, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReorderQuestion(t *testing.T) {
	m, _ := newTestMachine()
	g := waitingGame(t, m, question("q1", 0, nil), question("q2", 0, nil), question("q3", 0, nil))

	texts := func(g Game) []string {
		out := make([]string, len(g.Questions))
		for i, q := range g.Questions {
			out[i] = q.Text
		}
		return out
	}

	next, err := m.ReorderQuestion(g, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"q2", "q3", "q1"}, texts(next))

	next, err = m.ReorderQuestion(g, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"q3", "q1", "q2"}, texts(next))

	next, err = m.ReorderQuestion(g, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"q1", "q2", "q3"}, texts(next))

	assert.Equal(t, []string{"q1", "q2", "q3"}, texts(g))

	_, err = m.ReorderQuestion(g, 3, 0)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	_, err = m.ReorderQuestion(g, 0, -1)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestStartGame(t *testing.T) {
	m, _ := newTestMachine()

	empty := waitingGame(t, m)
	_, err := m.StartGame(empty)
	assert.ErrorIs(t, err, ErrEmptyQuestionSet)

	g := waitingGame(t, m, question("q1", 0, nil))
	started, err := m.StartGame(g)
	require.NoError(t, err)
	assert.Equal(t, StatusPlaying, started.Status)
	assert.Equal(t, 0, started.CurrentQuestionIndex)
	assert.Equal(t, t0, started.CurrentQuestionStartedAt)
	require.NotNil(t, started.StartedAt)
	assert.Equal(t, StatusWaiting, g.Status)

	_, err = m.StartGame(started)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSubmitAnswerScoresOnce(t *testing.T) {
	m, clock := newTestMachine()
	g := waitingGame(t, m, question("q1", 2, intPtr(30)))
	g, err := m.StartGame(g)
	require.NoError(t, err)

	clock.Advance(15 * time.Second)
	g, err = m.SubmitAnswer(g, "p1", 2, clock.Now())
	require.NoError(t, err)

	p := g.Players["p1"]
	assert.Equal(t, 50, p.Score)
	assert.True(t, p.HasAnswered)
	assert.True(t, p.LastAnswerCorrect)
	assert.Equal(t, 50, p.LastQuestionScore)
	assert.Equal(t, 15*time.Second, p.ResponseTime)

	again, err := m.SubmitAnswer(g, "p1", 2, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 50, again.Players["p1"].Score)
	assert.Equal(t, g, again)
}

func TestSubmitAnswerErrors(t *testing.T) {
	m, _ := newTestMachine()
	g := waitingGame(t, m, question("q1", 0, nil))

	_, err := m.SubmitAnswer(g, "p1", 0, t0)
	assert.ErrorIs(t, err, ErrInvalidState)

	g, err = m.StartGame(g)
	require.NoError(t, err)

	_, err = m.SubmitAnswer(g, "ghost", 0, t0)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.SubmitAnswer(g, "host", 0, t0)
	assert.ErrorIs(t, err, ErrInvalidOperation)
	_, err = m.SubmitAnswer(g, "p1", 4, t0)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = m.SubmitAnswer(g, "p1", -1, t0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestSubmitAnswerUntimedAndWrong(t *testing.T) {
	m, clock := newTestMachine()
	g := waitingGame(t, m, question("q1", 1, nil))
	g, err := m.StartGame(g)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)
	g, err = m.SubmitAnswer(g, "p1", 1, clock.Now())
	require.NoError(t, err)
	g, err = m.SubmitAnswer(g, "p2", 0, clock.Now())
	require.NoError(t, err)

	assert.Equal(t, 100, g.Players["p1"].Score)
	assert.Equal(t, 0, g.Players["p2"].Score)
	assert.False(t, g.Players["p2"].LastAnswerCorrect)
	assert.True(t, g.Players["p2"].HasAnswered)
}

func TestWrongAnswerNeverLowersScore(t *testing.T) {
	m, clock := newTestMachine()
	m.Scoring = Scoring{MinScore: -10, MaxScore: 100}
	g := waitingGame(t, m, question("q1", 1, intPtr(30)), question("q2", 1, intPtr(30)))
	g, err := m.StartGame(g)
	require.NoError(t, err)

	g, err = m.SubmitAnswer(g, "p1", 1, clock.Now())
	require.NoError(t, err)
	require.Equal(t, 100, g.Players["p1"].Score)

	g, err = m.AdvanceQuestion(g)
	require.NoError(t, err)
	clock.Advance(time.Minute)
	g, err = m.SubmitAnswer(g, "p1", 0, clock.Now())
	require.NoError(t, err)
	g, err = m.SubmitAnswer(g, "p2", 0, clock.Now())
	require.NoError(t, err)

	assert.Equal(t, 100, g.Players["p1"].Score)
	assert.Equal(t, 0, g.Players["p1"].LastQuestionScore)
	assert.Equal(t, 0, g.Players["p2"].Score)
}

func TestAdvanceQuestionResetsAnswers(t *testing.T) {
	m, clock := newTestMachine()
	g := waitingGame(t, m, question("q1", 0, intPtr(30)), question("q2", 0, intPtr(30)))
	g, _ = m.StartGame(g)
	g, _ = m.SubmitAnswer(g, "p1", 0, clock.Now())

	clock.Advance(40 * time.Second)
	next, err := m.AdvanceQuestion(g)
	require.NoError(t, err)

	assert.Equal(t, 1, next.CurrentQuestionIndex)
	assert.Equal(t, clock.Now(), next.CurrentQuestionStartedAt)
	for id, p := range next.Players {
		assert.False(t, p.HasAnswered, id)
		assert.False(t, p.LastAnswerCorrect, id)
		assert.Zero(t, p.LastQuestionScore, id)
		assert.Zero(t, p.ResponseTime, id)
	}
	assert.Equal(t, 100, next.Players["p1"].Score, "score survives the reset")
	assert.True(t, g.Players["p1"].HasAnswered, "input game must not be mutated")
}

func TestAdvancePastLastQuestionFinishes(t *testing.T) {
	m, _ := newTestMachine()
	g := waitingGame(t, m, question("q1", 0, nil), question("q2", 0, nil))
	g, _ = m.StartGame(g)

	g, err := m.AdvanceQuestion(g)
	require.NoError(t, err)
	require.Equal(t, StatusPlaying, g.Status)

	g, err = m.AdvanceQuestion(g)
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, g.Status)
	assert.Equal(t, 1, g.CurrentQuestionIndex, "index stays pinned on the last question")
	assert.NotNil(t, g.EndedAt)

	_, err = m.AdvanceQuestion(g)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestEndGame(t *testing.T) {
	m, _ := newTestMachine()
	g := waitingGame(t, m, question("q1", 0, nil), question("q2", 0, nil))
	g, _ = m.StartGame(g)

	ended, err := m.EndGame(g)
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, ended.Status)
	assert.Equal(t, 0, ended.CurrentQuestionIndex)

	again, err := m.EndGame(ended)
	require.NoError(t, err)
	assert.Equal(t, ended, again)

	_, err = m.StartGame(ended)
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = m.SetAllowLateJoin(ended, true)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestEndToEndScenario(t *testing.T) {
	m, clock := newTestMachine()

	g, err := m.CreateGame("H", "Host")
	require.NoError(t, err)
	g, err = m.AddPlayer(g, "P1", "One")
	require.NoError(t, err)
	g, err = m.AddPlayer(g, "P2", "Two")
	require.NoError(t, err)
	g, err = m.AddQuestion(g, question("Q1", 0, intPtr(30)))
	require.NoError(t, err)
	g, err = m.AddQuestion(g, question("Q2", 3, intPtr(30)))
	require.NoError(t, err)

	g, err = m.StartGame(g)
	require.NoError(t, err)

	clock.Advance(10 * time.Second)
	g, err = m.SubmitAnswer(g, "P1", 0, clock.Now())
	require.NoError(t, err)
	g, err = m.SubmitAnswer(g, "P2", 1, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 67, g.Players["P1"].Score)
	assert.Equal(t, 0, g.Players["P2"].Score)

	g, err = m.AdvanceQuestion(g)
	require.NoError(t, err)
	assert.False(t, g.Players["P1"].HasAnswered)
	assert.False(t, g.Players["P2"].HasAnswered)

	clock.Advance(20 * time.Second)
	g, err = m.SubmitAnswer(g, "P1", 0, clock.Now())
	require.NoError(t, err)
	g, err = m.SubmitAnswer(g, "P2", 3, clock.Now())
	require.NoError(t, err)
	assert.Equal(t, 67, g.Players["P1"].Score)
	assert.Equal(t, 33, g.Players["P2"].Score)

	g, err = m.AdvanceQuestion(g)
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, g.Status)

	ranked := RankPlayers(g)
	require.Len(t, ranked, 2)
	assert.Equal(t, "P1", ranked[0].Player.ID)
	assert.Equal(t, "P2", ranked[1].Player.ID)
}
