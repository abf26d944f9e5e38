package game

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Machine applies game transitions. It keeps no state of its own: every
// method takes a Game value and returns a new one, leaving the input intact.
type Machine struct {
	Now         func() time.Time
	NewID       func() string
	NewJoinCode func() string
	Scoring     Scoring
}

func NewMachine() *Machine {
	return &Machine{
		Now:         func() time.Time { return time.Now().UTC() },
		NewID:       uuid.NewString,
		NewJoinCode: GenerateJoinCode,
		Scoring:     DefaultScoring,
	}
}

func (m *Machine) CreateGame(hostID, hostName string) (Game, error) {
	hostID = strings.TrimSpace(hostID)
	hostName = strings.TrimSpace(hostName)
	if hostID == "" {
		return Game{}, fmt.Errorf("%w: host id is required", ErrInvalidInput)
	}
	if hostName == "" {
		return Game{}, fmt.Errorf("%w: host name is required", ErrInvalidInput)
	}

	now := m.Now()
	return Game{
		ID:        m.NewID(),
		JoinCode:  m.NewJoinCode(),
		HostID:    hostID,
		Status:    StatusWaiting,
		Questions: []Question{},
		Players: map[string]Player{
			hostID: {
				ID:        hostID,
				Name:      hostName,
				IsHost:    true,
				JoinOrder: 0,
				JoinedAt:  now,
			},
		},
		JoinSeq:   1,
		CreatedAt: now,
	}, nil
}

func (m *Machine) AddPlayer(g Game, id, name string) (Game, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" || name == "" {
		return g, fmt.Errorf("%w: player id and name are required", ErrInvalidInput)
	}
	switch {
	case g.Status == StatusWaiting:
	case g.Status == StatusPlaying && g.AllowLateJoin:
	default:
		return g, fmt.Errorf("%w: cannot join a %s game", ErrInvalidState, g.Status)
	}
	if _, exists := g.Players[id]; exists {
		return g, fmt.Errorf("%w: %s", ErrDuplicatePlayer, id)
	}

	next := g.clone()
	if next.Players == nil {
		next.Players = make(map[string]Player)
	}
	next.Players[id] = Player{
		ID:        id,
		Name:      name,
		JoinOrder: next.JoinSeq,
		JoinedAt:  m.Now(),
	}
	next.JoinSeq++
	return next, nil
}

func (m *Machine) RemovePlayer(g Game, id string) (Game, error) {
	p, ok := g.Players[id]
	if !ok {
		return g, fmt.Errorf("%w: player %s", ErrNotFound, id)
	}
	if p.IsHost {
		return g, fmt.Errorf("%w: the host cannot be removed", ErrInvalidOperation)
	}

	next := g.clone()
	delete(next.Players, id)
	return next, nil
}

func (m *Machine) AddQuestion(g Game, q Question) (Game, error) {
	if g.Status != StatusWaiting {
		return g, fmt.Errorf("%w: questions are locked once the game starts", ErrInvalidState)
	}
	if err := ValidateQuestion(q); err != nil {
		return g, err
	}

	q = q.clone()
	q.Text = strings.TrimSpace(q.Text)
	if q.ID == "" {
		q.ID = m.NewID()
	}
	for _, existing := range g.Questions {
		if existing.ID == q.ID {
			return g, fmt.Errorf("%w: duplicate question id %s", ErrInvalidInput, q.ID)
		}
	}

	next := g.clone()
	next.Questions = append(next.Questions, q)
	return next, nil
}

func (m *Machine) RemoveQuestion(g Game, questionID string) (Game, error) {
	if g.Status != StatusWaiting {
		return g, fmt.Errorf("%w: questions are locked once the game starts", ErrInvalidState)
	}
	for i, q := range g.Questions {
		if q.ID != questionID {
			continue
		}
		next := g.clone()
		next.Questions = append(next.Questions[:i], next.Questions[i+1:]...)
		return next, nil
	}
	return g, fmt.Errorf("%w: question %s", ErrNotFound, questionID)
}

// ReorderQuestion moves the question at oldIndex so that it ends up at newIndex.
func (m *Machine) ReorderQuestion(g Game, oldIndex, newIndex int) (Game, error) {
	if g.Status != StatusWaiting {
		return g, fmt.Errorf("%w: questions are locked once the game starts", ErrInvalidState)
	}
	n := len(g.Questions)
	if oldIndex < 0 || oldIndex >= n || newIndex < 0 || newIndex >= n {
		return g, fmt.Errorf("%w: move %d -> %d with %d questions", ErrIndexOutOfRange, oldIndex, newIndex, n)
	}

	next := g.clone()
	moved := next.Questions[oldIndex]
	rest := append(next.Questions[:oldIndex:oldIndex], next.Questions[oldIndex+1:]...)
	reordered := make([]Question, 0, n)
	reordered = append(reordered, rest[:newIndex]...)
	reordered = append(reordered, moved)
	reordered = append(reordered, rest[newIndex:]...)
	next.Questions = reordered
	return next, nil
}

func (m *Machine) SetAllowLateJoin(g Game, allow bool) (Game, error) {
	if g.Status == StatusFinished {
		return g, fmt.Errorf("%w: game is finished", ErrInvalidState)
	}
	next := g.clone()
	next.AllowLateJoin = allow
	return next, nil
}

func (m *Machine) StartGame(g Game) (Game, error) {
	if g.Status != StatusWaiting {
		return g, fmt.Errorf("%w: game is already %s", ErrInvalidState, g.Status)
	}
	if len(g.Questions) == 0 {
		return g, ErrEmptyQuestionSet
	}

	now := m.Now()
	next := g.clone()
	next.Status = StatusPlaying
	next.CurrentQuestionIndex = 0
	next.CurrentQuestionStartedAt = now
	next.StartedAt = &now
	for id, p := range next.Players {
		next.Players[id] = p.resetAnswer()
	}
	return next, nil
}

// SubmitAnswer records playerID's answer to the current question. A second
// answer to the same question is ignored and returns g unchanged.
func (m *Machine) SubmitAnswer(g Game, playerID string, optionIndex int, answeredAt time.Time) (Game, error) {
	if g.Status != StatusPlaying {
		return g, fmt.Errorf("%w: game is %s", ErrInvalidState, g.Status)
	}
	p, ok := g.Players[playerID]
	if !ok {
		return g, fmt.Errorf("%w: player %s", ErrNotFound, playerID)
	}
	if p.IsHost {
		return g, fmt.Errorf("%w: the host does not answer questions", ErrInvalidOperation)
	}
	if p.HasAnswered {
		return g, nil
	}
	q, ok := CurrentQuestion(g)
	if !ok {
		return g, fmt.Errorf("%w: no active question", ErrInvalidState)
	}
	if optionIndex < 0 || optionIndex >= len(q.Options) {
		return g, fmt.Errorf("%w: option %d of %d", ErrInvalidInput, optionIndex, len(q.Options))
	}

	isCorrect := optionIndex == q.CorrectOption
	responseTime := answeredAt.Sub(g.CurrentQuestionStartedAt)
	if responseTime < 0 {
		responseTime = 0
	}
	points := m.Scoring.Compute(isCorrect, responseTime, q.Limit(), q.Timed())

	next := g.clone()
	p.Score += points
	p.HasAnswered = true
	p.LastAnswerCorrect = isCorrect
	p.LastQuestionScore = points
	p.ResponseTime = responseTime
	next.Players[playerID] = p
	return next, nil
}

// AdvanceQuestion moves to the next question, or finishes the game after the
// last one. On finish the index stays on the last question.
func (m *Machine) AdvanceQuestion(g Game) (Game, error) {
	if g.Status != StatusPlaying {
		return g, fmt.Errorf("%w: game is %s", ErrInvalidState, g.Status)
	}

	now := m.Now()
	next := g.clone()
	if g.CurrentQuestionIndex+1 >= len(g.Questions) {
		next.Status = StatusFinished
		next.EndedAt = &now
		return next, nil
	}

	next.CurrentQuestionIndex++
	next.CurrentQuestionStartedAt = now
	for id, p := range next.Players {
		next.Players[id] = p.resetAnswer()
	}
	return next, nil
}

// EndGame finishes the game regardless of progress. Ending a finished game is a no-op.
func (m *Machine) EndGame(g Game) (Game, error) {
	if g.Status == StatusFinished {
		return g, nil
	}
	now := m.Now()
	next := g.clone()
	next.Status = StatusFinished
	next.EndedAt = &now
	return next, nil
}

func ValidateQuestion(q Question) error {
	if strings.TrimSpace(q.Text) == "" {
		return fmt.Errorf("%w: question text is required", ErrInvalidInput)
	}
	if len(q.Options) < MinOptions || len(q.Options) > MaxOptions {
		return fmt.Errorf("%w: a question needs %d-%d options, got %d", ErrInvalidInput, MinOptions, MaxOptions, len(q.Options))
	}
	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("%w: option %d is empty", ErrInvalidInput, i)
		}
	}
	if q.CorrectOption < 0 || q.CorrectOption >= len(q.Options) {
		return fmt.Errorf("%w: correct option %d is out of range", ErrInvalidInput, q.CorrectOption)
	}
	if q.TimeLimit != nil && *q.TimeLimit <= 0 {
		return fmt.Errorf("%w: time limit must be positive", ErrInvalidInput)
	}
	return nil
}
