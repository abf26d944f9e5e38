package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/thejoltjoker/crowdplay-sub000/game"
)

const (
	gameKeyPrefix     = "crowdplay:game:"
	codeKeyPrefix     = "crowdplay:code:"
	eventsKeyPrefix   = "crowdplay:events:"
	defaultGameTTL    = 2 * time.Hour
	defaultMaxRetries = 10
)

func gameKey(id string) string       { return gameKeyPrefix + id }
func codeKey(code string) string     { return codeKeyPrefix + code }
func eventsChannel(id string) string { return eventsKeyPrefix + id }

// EventsPattern matches the channel of every game.
const EventsPattern = eventsKeyPrefix + "*"

// GameIDFromChannel extracts the game id from a channel name.
func GameIDFromChannel(channel string) string {
	if len(channel) <= len(eventsKeyPrefix) {
		return ""
	}
	return channel[len(eventsKeyPrefix):]
}

// GameStore keeps live games in Redis. Every committed write is published on
// the game's events channel so hubs on any instance can fan it out.
type GameStore struct {
	redis      *redis.Client
	ttl        time.Duration
	maxRetries int
}

func NewGameStore(client *redis.Client, ttl time.Duration) *GameStore {
	if ttl <= 0 {
		ttl = defaultGameTTL
	}
	return &GameStore{redis: client, ttl: ttl, maxRetries: defaultMaxRetries}
}

// Create stores a new game and reserves its join code.
func (s *GameStore) Create(ctx context.Context, g game.Game) error {
	ok, err := s.redis.SetNX(ctx, codeKey(g.JoinCode), g.ID, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("reserve join code: %w", err)
	}
	if !ok {
		return ErrJoinCodeTaken
	}

	data, err := json.Marshal(g)
	if err != nil {
		s.redis.Del(ctx, codeKey(g.JoinCode))
		return fmt.Errorf("marshal game: %w", err)
	}
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, gameKey(g.ID), data, s.ttl)
		pipe.Publish(ctx, eventsChannel(g.ID), data)
		return nil
	})
	if err != nil {
		s.redis.Del(ctx, codeKey(g.JoinCode))
		return fmt.Errorf("store game: %w", err)
	}
	return nil
}

func (s *GameStore) Get(ctx context.Context, id string) (game.Game, error) {
	return s.get(ctx, s.redis, id)
}

func (s *GameStore) FindByJoinCode(ctx context.Context, code string) (game.Game, error) {
	code = game.NormalizeJoinCode(code)
	if !game.ValidJoinCode(code) {
		return game.Game{}, ErrGameNotFound
	}
	id, err := s.redis.Get(ctx, codeKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return game.Game{}, ErrGameNotFound
	}
	if err != nil {
		return game.Game{}, fmt.Errorf("lookup join code: %w", err)
	}
	return s.Get(ctx, id)
}

// Update runs fn against the current game inside an optimistic transaction.
// If another writer commits first the whole read-modify-write is retried.
// Errors returned by fn are passed through and nothing is written. When fn
// leaves the game unchanged nothing is written or published either; every
// real commit bumps Version.
func (s *GameStore) Update(ctx context.Context, id string, fn func(game.Game) (game.Game, error)) (game.Game, error) {
	var updated game.Game
	txf := func(tx *redis.Tx) error {
		current, err := s.get(ctx, tx, id)
		if err != nil {
			return err
		}
		before, err := json.Marshal(current)
		if err != nil {
			return fmt.Errorf("marshal game: %w", err)
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		next.Version = current.Version
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("marshal game: %w", err)
		}
		if bytes.Equal(before, data) {
			updated = current
			return nil
		}

		next.Version++
		if data, err = json.Marshal(next); err != nil {
			return fmt.Errorf("marshal game: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, gameKey(id), data, s.ttl)
			pipe.Expire(ctx, codeKey(next.JoinCode), s.ttl)
			pipe.Publish(ctx, eventsChannel(id), data)
			return nil
		})
		if err != nil {
			return err
		}
		updated = next
		return nil
	}

	for i := 0; i < s.maxRetries; i++ {
		err := s.redis.Watch(ctx, txf, gameKey(id))
		if err == nil {
			return updated, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return game.Game{}, err
	}
	return game.Game{}, ErrUpdateConflict
}

// Delete removes a game and its join code.
func (s *GameStore) Delete(ctx context.Context, g game.Game) error {
	return s.redis.Del(ctx, gameKey(g.ID), codeKey(g.JoinCode)).Err()
}

func (s *GameStore) Subscribe(ctx context.Context) *redis.PubSub {
	return s.redis.PSubscribe(ctx, EventsPattern)
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *GameStore) get(ctx context.Context, c stringGetter, id string) (game.Game, error) {
	data, err := c.Get(ctx, gameKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return game.Game{}, ErrGameNotFound
	}
	if err != nil {
		return game.Game{}, fmt.Errorf("load game: %w", err)
	}
	var g game.Game
	if err := json.Unmarshal(data, &g); err != nil {
		return game.Game{}, fmt.Errorf("decode game %s: %w", id, err)
	}
	return g, nil
}
