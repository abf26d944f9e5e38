package game

import (
	"fmt"
	"time"
)

// Action is a single recorded transition. Apply dispatches it to the
// matching Machine method.
type Action interface {
	actionName() string
}

type AddPlayerAction struct {
	PlayerID string
	Name     string
}

type RemovePlayerAction struct {
	PlayerID string
}

type AddQuestionAction struct {
	Question Question
}

type RemoveQuestionAction struct {
	QuestionID string
}

type ReorderQuestionAction struct {
	From int
	To   int
}

type SetLateJoinAction struct {
	Allow bool
}

type StartAction struct{}

type SubmitAnswerAction struct {
	PlayerID    string
	OptionIndex int
	AnsweredAt  time.Time
}

type AdvanceAction struct{}

type EndAction struct{}

func (AddPlayerAction) actionName() string       { return "add_player" }
func (RemovePlayerAction) actionName() string    { return "remove_player" }
func (AddQuestionAction) actionName() string     { return "add_question" }
func (RemoveQuestionAction) actionName() string  { return "remove_question" }
func (ReorderQuestionAction) actionName() string { return "reorder_question" }
func (SetLateJoinAction) actionName() string     { return "set_late_join" }
func (StartAction) actionName() string           { return "start" }
func (SubmitAnswerAction) actionName() string    { return "submit_answer" }
func (AdvanceAction) actionName() string         { return "advance" }
func (EndAction) actionName() string             { return "end" }

// ActionName reports the wire name of a, for logging.
func ActionName(a Action) string {
	if a == nil {
		return ""
	}
	return a.actionName()
}

func (m *Machine) Apply(g Game, a Action) (Game, error) {
	switch act := a.(type) {
	case AddPlayerAction:
		return m.AddPlayer(g, act.PlayerID, act.Name)
	case RemovePlayerAction:
		return m.RemovePlayer(g, act.PlayerID)
	case AddQuestionAction:
		return m.AddQuestion(g, act.Question)
	case RemoveQuestionAction:
		return m.RemoveQuestion(g, act.QuestionID)
	case ReorderQuestionAction:
		return m.ReorderQuestion(g, act.From, act.To)
	case SetLateJoinAction:
		return m.SetAllowLateJoin(g, act.Allow)
	case StartAction:
		return m.StartGame(g)
	case SubmitAnswerAction:
		return m.SubmitAnswer(g, act.PlayerID, act.OptionIndex, act.AnsweredAt)
	case AdvanceAction:
		return m.AdvanceQuestion(g)
	case EndAction:
		return m.EndGame(g)
	default:
		return g, fmt.Errorf("%w: unknown action %T", ErrInvalidInput, a)
	}
}

// Replay folds actions over g. It stops at the first failing action and
// returns the state reached before it.
func (m *Machine) Replay(g Game, actions ...Action) (Game, error) {
	for i, a := range actions {
		next, err := m.Apply(g, a)
		if err != nil {
			return g, fmt.Errorf("action %d (%s): %w", i, ActionName(a), err)
		}
		g = next
	}
	return g, nil
}
