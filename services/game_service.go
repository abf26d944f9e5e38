package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/thejoltjoker/crowdplay-sub000/game"
)

const createAttempts = 5

type CreateGameRequest struct {
	HostName string `json:"hostName" binding:"required,max=40"`
}

type JoinGameRequest struct {
	JoinCode string `json:"joinCode" binding:"required"`
	Name     string `json:"name" binding:"required,max=40"`
}

type AddQuestionRequest struct {
	Text          string   `json:"text" binding:"required"`
	Options       []string `json:"options" binding:"required,min=2,max=6,dive,required"`
	CorrectOption int      `json:"correctOption" binding:"min=0"`
	TimeLimit     *int     `json:"timeLimit" binding:"omitempty,min=1"`
}

func (r AddQuestionRequest) Question() game.Question {
	return game.Question{
		Text:          r.Text,
		Options:       r.Options,
		CorrectOption: r.CorrectOption,
		TimeLimit:     r.TimeLimit,
	}
}

type ReorderQuestionRequest struct {
	From int `json:"from" binding:"min=0"`
	To   int `json:"to" binding:"min=0"`
}

type SettingsRequest struct {
	AllowLateJoin *bool `json:"allowLateJoin" binding:"required"`
}

type SubmitAnswerRequest struct {
	OptionIndex *int `json:"optionIndex" binding:"required,min=0"`
}

// GameService runs the state machine against the live store and takes care
// of the side effects of each transition.
type GameService struct {
	store    *GameStore
	machine  *game.Machine
	archiver Archiver
	events   EventPublisher
	log      *logrus.Entry
}

func NewGameService(store *GameStore, machine *game.Machine, archiver Archiver, events EventPublisher, logger *logrus.Logger) *GameService {
	if events == nil {
		events = NopPublisher{}
	}
	return &GameService{
		store:    store,
		machine:  machine,
		archiver: archiver,
		events:   events,
		log:      logger.WithField("component", "game_service"),
	}
}

func (s *GameService) CreateGame(ctx context.Context, hostID, hostName string) (game.Game, error) {
	for i := 0; i < createAttempts; i++ {
		g, err := s.machine.CreateGame(hostID, hostName)
		if err != nil {
			return game.Game{}, err
		}
		err = s.store.Create(ctx, g)
		if errors.Is(err, ErrJoinCodeTaken) {
			s.log.WithField("join_code", g.JoinCode).Debug("Join code collision, retrying")
			continue
		}
		if err != nil {
			return game.Game{}, err
		}

		s.log.WithFields(logrus.Fields{"game_id": g.ID, "join_code": g.JoinCode}).Info("Game created")
		s.publish(ctx, Event{Type: EventGameCreated, GameID: g.ID, PlayerID: hostID})
		return g, nil
	}
	return game.Game{}, fmt.Errorf("could not allocate a join code after %d attempts: %w", createAttempts, ErrJoinCodeTaken)
}

func (s *GameService) JoinGame(ctx context.Context, joinCode, playerID, name string) (game.Game, error) {
	found, err := s.store.FindByJoinCode(ctx, joinCode)
	if err != nil {
		return game.Game{}, err
	}
	g, err := s.store.Update(ctx, found.ID, func(g game.Game) (game.Game, error) {
		return s.machine.AddPlayer(g, playerID, name)
	})
	if err != nil {
		return game.Game{}, err
	}

	s.log.WithFields(logrus.Fields{"game_id": g.ID, "player_id": playerID}).Info("Player joined")
	s.publish(ctx, Event{Type: EventPlayerJoined, GameID: g.ID, PlayerID: playerID, Payload: map[string]string{"name": name}})
	return game.ViewFor(g, playerID), nil
}

// GetGame returns the game as viewerID is allowed to see it. Only members
// of the game can read it.
func (s *GameService) GetGame(ctx context.Context, gameID, viewerID string) (game.Game, error) {
	g, err := s.memberGet(ctx, gameID, viewerID)
	if err != nil {
		return game.Game{}, err
	}
	return game.ViewFor(g, viewerID), nil
}

// RemovePlayer lets the host kick a player, or a player leave on their own.
func (s *GameService) RemovePlayer(ctx context.Context, gameID, actorID, playerID string) (game.Game, error) {
	return s.update(ctx, gameID, actorID, func(g game.Game) (game.Game, error) {
		if actorID != playerID && !game.IsHost(g, actorID) {
			return g, ErrNotHost
		}
		return s.machine.RemovePlayer(g, playerID)
	})
}

func (s *GameService) AddQuestion(ctx context.Context, gameID, actorID string, q game.Question) (game.Game, error) {
	return s.hostUpdate(ctx, gameID, actorID, func(g game.Game) (game.Game, error) {
		return s.machine.AddQuestion(g, q)
	})
}

// ImportQuestions appends every question or none of them.
func (s *GameService) ImportQuestions(ctx context.Context, gameID, actorID string, questions []game.Question) (game.Game, error) {
	if len(questions) == 0 {
		return game.Game{}, game.ErrEmptyQuestionSet
	}
	return s.hostUpdate(ctx, gameID, actorID, func(g game.Game) (game.Game, error) {
		var err error
		for i, q := range questions {
			if g, err = s.machine.AddQuestion(g, q); err != nil {
				return g, fmt.Errorf("question %d: %w", i+1, err)
			}
		}
		return g, nil
	})
}

func (s *GameService) RemoveQuestion(ctx context.Context, gameID, actorID, questionID string) (game.Game, error) {
	return s.hostUpdate(ctx, gameID, actorID, func(g game.Game) (game.Game, error) {
		return s.machine.RemoveQuestion(g, questionID)
	})
}

func (s *GameService) ReorderQuestion(ctx context.Context, gameID, actorID string, from, to int) (game.Game, error) {
	return s.hostUpdate(ctx, gameID, actorID, func(g game.Game) (game.Game, error) {
		return s.machine.ReorderQuestion(g, from, to)
	})
}

func (s *GameService) SetAllowLateJoin(ctx context.Context, gameID, actorID string, allow bool) (game.Game, error) {
	return s.hostUpdate(ctx, gameID, actorID, func(g game.Game) (game.Game, error) {
		return s.machine.SetAllowLateJoin(g, allow)
	})
}

func (s *GameService) StartGame(ctx context.Context, gameID, actorID string) (game.Game, error) {
	g, err := s.hostUpdate(ctx, gameID, actorID, s.machine.StartGame)
	if err != nil {
		return game.Game{}, err
	}
	s.log.WithFields(logrus.Fields{"game_id": gameID, "questions": len(g.Questions)}).Info("Game started")
	s.publish(ctx, Event{Type: EventGameStarted, GameID: gameID})
	return g, nil
}

// SubmitAnswer stamps the answer with the server clock.
func (s *GameService) SubmitAnswer(ctx context.Context, gameID, playerID string, optionIndex int) (game.Game, error) {
	return s.update(ctx, gameID, playerID, func(g game.Game) (game.Game, error) {
		return s.machine.SubmitAnswer(g, playerID, optionIndex, s.machine.Now())
	})
}

func (s *GameService) AdvanceQuestion(ctx context.Context, gameID, actorID string) (game.Game, error) {
	return s.hostUpdate(ctx, gameID, actorID, s.machine.AdvanceQuestion)
}

func (s *GameService) EndGame(ctx context.Context, gameID, actorID string) (game.Game, error) {
	return s.hostUpdate(ctx, gameID, actorID, s.machine.EndGame)
}

func (s *GameService) Leaderboard(ctx context.Context, gameID, viewerID string) ([]game.RankedPlayer, error) {
	g, err := s.memberGet(ctx, gameID, viewerID)
	if err != nil {
		return nil, err
	}
	return game.RankPlayers(g), nil
}

func (s *GameService) Stats(ctx context.Context, gameID, viewerID string) (game.AnswerStatistics, error) {
	g, err := s.memberGet(ctx, gameID, viewerID)
	if err != nil {
		return game.AnswerStatistics{}, err
	}
	return game.AnswerStats(g), nil
}

func (s *GameService) memberGet(ctx context.Context, gameID, viewerID string) (game.Game, error) {
	g, err := s.store.Get(ctx, gameID)
	if err != nil {
		return game.Game{}, err
	}
	if _, ok := g.Players[viewerID]; !ok {
		return game.Game{}, ErrNotInGame
	}
	return g, nil
}

func (s *GameService) hostUpdate(ctx context.Context, gameID, actorID string, fn func(game.Game) (game.Game, error)) (game.Game, error) {
	return s.update(ctx, gameID, actorID, func(g game.Game) (game.Game, error) {
		if !game.IsHost(g, actorID) {
			return g, ErrNotHost
		}
		return fn(g)
	})
}

// update commits fn atomically and returns the result as actorID sees it.
// A transition into finished triggers archiving.
func (s *GameService) update(ctx context.Context, gameID, actorID string, fn func(game.Game) (game.Game, error)) (game.Game, error) {
	var before game.Status
	g, err := s.store.Update(ctx, gameID, func(g game.Game) (game.Game, error) {
		before = g.Status
		return fn(g)
	})
	if err != nil {
		return game.Game{}, err
	}
	if before != game.StatusFinished && g.Status == game.StatusFinished {
		s.finished(ctx, g)
	}
	return game.ViewFor(g, actorID), nil
}

func (s *GameService) finished(ctx context.Context, g game.Game) {
	logCtx := s.log.WithField("game_id", g.ID)
	logCtx.Info("Game finished")

	if s.archiver != nil {
		if err := s.archiver.EnqueueArchive(ctx, g); err != nil {
			logCtx.WithError(err).Error("Failed to enqueue archive task")
		}
	}

	leaderboard := game.RankPlayers(g)
	s.publish(ctx, Event{Type: EventGameFinished, GameID: g.ID, Payload: leaderboard})
}

func (s *GameService) publish(ctx context.Context, e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = s.machine.Now()
	}
	if err := s.events.Publish(ctx, e); err != nil {
		s.log.WithError(err).WithField("event", e.Type).Warn("Failed to publish event")
	}
}
