package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/thejoltjoker/crowdplay-sub000/game"
)

const (
	MessageGameState        = "game_state"
	MessageError            = "error"
	MessagePing             = "ping"
	MessagePong             = "pong"
	MessageRequestGameState = "request_game_state"
	MessageSubmitAnswer     = "submit_answer"
	MessageStartGame        = "start_game"
	MessageNextQuestion     = "next_question"
	MessageEndGame          = "end_game"
	MessageSetLateJoin      = "set_late_join"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBufferSize = 64
)

// GameCommands is the part of GameService that socket clients can drive.
type GameCommands interface {
	GetGame(ctx context.Context, gameID, viewerID string) (game.Game, error)
	SubmitAnswer(ctx context.Context, gameID, playerID string, optionIndex int) (game.Game, error)
	StartGame(ctx context.Context, gameID, actorID string) (game.Game, error)
	AdvanceQuestion(ctx context.Context, gameID, actorID string) (game.Game, error)
	EndGame(ctx context.Context, gameID, actorID string) (game.Game, error)
	SetAllowLateJoin(ctx context.Context, gameID, actorID string, allow bool) (game.Game, error)
}

// Hub fans committed game states out to the sockets connected to each game.
// Every client gets its own view of the game.
type Hub struct {
	games      map[string]map[*Client]bool
	unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex
	commands   GameCommands
	validate   *validator.Validate
	log        *logrus.Entry
}

type Client struct {
	hub        *Hub
	socket     *websocket.Conn
	send       chan []byte
	gameID     string
	playerID   string
	playerName string

	// stateMu guards version, the newest game version queued on send.
	stateMu sync.Mutex
	version int64
}

var (
	errSlowClient = errors.New("send buffer full")
	errLeftGame   = errors.New("player is no longer in the game")
)

// Message is the envelope for both directions.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type SubmitAnswerPayload struct {
	OptionIndex *int `json:"optionIndex" validate:"required,min=0,max=5"`
}

type SetLateJoinPayload struct {
	Allow *bool `json:"allow" validate:"required"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

func NewHub(commands GameCommands, logger *logrus.Logger) *Hub {
	return &Hub{
		games:      make(map[string]map[*Client]bool),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		commands:   commands,
		validate:   validator.New(),
		log:        logger.WithField("component", "hub"),
	}
}

// Run serves unregistrations until ctx is done, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case client := <-h.unregister:
			if h.removeClient(client) {
				h.log.WithFields(logrus.Fields{
					"game_id":   client.gameID,
					"player_id": client.playerID,
				}).Info("Client unregistered")
			}

		case <-ctx.Done():
			h.mutex.Lock()
			for _, clients := range h.games {
				for client := range clients {
					close(client.send)
				}
			}
			h.games = make(map[string]map[*Client]bool)
			close(h.done)
			h.mutex.Unlock()
			return
		}
	}
}

// Listen forwards every game state published on ps to the game's clients
// until ctx is done or the subscription closes.
func (h *Hub) Listen(ctx context.Context, ps *redis.PubSub) {
	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var g game.Game
			if err := json.Unmarshal([]byte(msg.Payload), &g); err != nil {
				h.log.WithError(err).WithField("channel", msg.Channel).Warn("Dropping undecodable game state")
				continue
			}
			h.BroadcastGame(g)
		}
	}
}

// BroadcastGame sends each client of g its own view. Clients whose buffer is
// full, or whose player has been removed from g, are disconnected.
func (h *Hub) BroadcastGame(g game.Game) {
	dropped := make(map[*Client]error)

	h.mutex.RLock()
	for client := range h.games[g.ID] {
		if err := client.offerState(g); err != nil {
			dropped[client] = err
		}
	}
	h.mutex.RUnlock()

	for client, err := range dropped {
		h.disconnect(client, err)
	}
}

func (h *Hub) ClientCount(gameID string) int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.games[gameID])
}

// ConnectedPlayers lists the player ids with an open socket to gameID.
func (h *Hub) ConnectedPlayers(gameID string) []string {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	var ids []string
	for client := range h.games[gameID] {
		ids = append(ids, client.playerID)
	}
	return ids
}

// RegisterClient attaches conn to the game in snapshot, the state the
// connection was admitted against. States older than snapshot are never sent
// to it.
func (h *Hub) RegisterClient(conn *websocket.Conn, snapshot game.Game, playerID, playerName string) *Client {
	gameID := snapshot.ID
	client := &Client{
		hub:        h,
		socket:     conn,
		send:       make(chan []byte, sendBufferSize),
		gameID:     gameID,
		playerID:   playerID,
		playerName: playerName,
		version:    snapshot.Version,
	}

	if !h.addClient(client) {
		conn.Close()
		return nil
	}
	h.log.WithFields(logrus.Fields{
		"game_id":   gameID,
		"player_id": playerID,
		"clients":   h.ClientCount(gameID),
	}).Info("Client registered")

	go client.writePump()
	go client.readPump()

	return client
}

func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// addClient reports false once the hub has shut down.
func (h *Hub) addClient(client *Client) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	select {
	case <-h.done:
		return false
	default:
	}
	clients, ok := h.games[client.gameID]
	if !ok {
		clients = make(map[*Client]bool)
		h.games[client.gameID] = clients
	}
	clients[client] = true
	return true
}

// SendState sends g to a single client, as that client may see it. A state
// older than one already queued for the client is dropped.
func (h *Hub) SendState(client *Client, g game.Game) {
	var err error
	h.mutex.RLock()
	if h.games[client.gameID][client] {
		err = client.offerState(g)
	}
	h.mutex.RUnlock()

	if err != nil {
		h.disconnect(client, err)
	}
}

func (h *Hub) disconnect(client *Client, reason error) {
	if !h.removeClient(client) {
		return
	}
	logCtx := h.log.WithFields(logrus.Fields{
		"game_id":   client.gameID,
		"player_id": client.playerID,
	})
	if errors.Is(reason, errSlowClient) {
		logCtx.Warn("Client send buffer full, closing connection")
		return
	}
	logCtx.WithField("reason", reason.Error()).Info("Closing client connection")
}

// removeClient drops client and closes its send channel. It reports false if
// the client was already gone.
func (h *Hub) removeClient(client *Client) bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	clients, ok := h.games[client.gameID]
	if !ok || !clients[client] {
		return false
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.games, client.gameID)
	}
	return true
}

func (c *Client) readPump() {
	defer func() {
		c.hub.UnregisterClient(c)
		c.socket.Close()
	}()

	c.socket.SetReadLimit(maxMessageSize)
	c.socket.SetReadDeadline(time.Now().Add(pongWait))
	c.socket.SetPongHandler(func(string) error {
		return c.socket.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.WithError(err).WithField("player_id", c.playerID).Warn("WebSocket read error")
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.sendError(errors.New("malformed message"))
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		c.handleMessage(ctx, msg)
		cancel()
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.socket.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.socket.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(ctx context.Context, msg Message) {
	cmd := c.hub.commands
	var err error

	switch msg.Type {
	case MessagePing:
		c.sendMessage(MessagePong, nil)
		return

	case MessageRequestGameState:
		var g game.Game
		if g, err = cmd.GetGame(ctx, c.gameID, c.playerID); err == nil {
			c.hub.SendState(c, g)
		}

	case MessageSubmitAnswer:
		var p SubmitAnswerPayload
		if err = c.decode(msg.Payload, &p); err == nil {
			_, err = cmd.SubmitAnswer(ctx, c.gameID, c.playerID, *p.OptionIndex)
		}

	case MessageStartGame:
		_, err = cmd.StartGame(ctx, c.gameID, c.playerID)

	case MessageNextQuestion:
		_, err = cmd.AdvanceQuestion(ctx, c.gameID, c.playerID)

	case MessageEndGame:
		_, err = cmd.EndGame(ctx, c.gameID, c.playerID)

	case MessageSetLateJoin:
		var p SetLateJoinPayload
		if err = c.decode(msg.Payload, &p); err == nil {
			_, err = cmd.SetAllowLateJoin(ctx, c.gameID, c.playerID, *p.Allow)
		}

	default:
		err = errors.New("unknown message type: " + msg.Type)
	}

	if err != nil {
		c.hub.log.WithFields(logrus.Fields{
			"game_id":   c.gameID,
			"player_id": c.playerID,
			"type":      msg.Type,
		}).WithError(err).Debug("Command rejected")
		c.sendError(err)
	}
}

func (c *Client) decode(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		return errors.New("payload is required")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return errors.New("malformed payload")
	}
	return c.hub.validate.Struct(v)
}

// offerState queues g for the client unless a newer version is already
// queued. The caller holds the hub lock so that send is still open.
func (c *Client) offerState(g game.Game) error {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()

	if g.Version < c.version {
		return nil
	}
	if _, ok := g.Players[c.playerID]; !ok {
		return errLeftGame
	}
	data, err := encodeMessage(MessageGameState, game.ViewFor(g, c.playerID))
	if err != nil {
		c.hub.log.WithError(err).Error("Error marshaling game state")
		return nil
	}
	select {
	case c.send <- data:
		c.version = g.Version
		return nil
	default:
		return errSlowClient
	}
}

func (c *Client) sendError(err error) {
	c.sendMessage(MessageError, ErrorPayload{Message: err.Error()})
}

// sendMessage queues a reply for this client only. A full buffer drops the
// reply; the next broadcast will disconnect the client.
func (c *Client) sendMessage(messageType string, payload interface{}) {
	data, err := encodeMessage(messageType, payload)
	if err != nil {
		c.hub.log.WithError(err).Error("Error marshaling message")
		return
	}
	c.hub.mutex.RLock()
	defer c.hub.mutex.RUnlock()
	if !c.hub.games[c.gameID][c] {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

func encodeMessage(messageType string, payload interface{}) ([]byte, error) {
	msg := Message{Type: messageType}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		msg.Payload = raw
	}
	return json.Marshal(msg)
}
