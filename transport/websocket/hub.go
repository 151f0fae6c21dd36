package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/wricardo/memory-match-game/game/engine"
	"github.com/wricardo/memory-match-game/game/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	// Outbound messages queued while the hub loop is busy
	broadcastBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Outbound event names
const (
	EventState      = "state"
	EventRenderCard = "render_card"
	EventTimer      = "timer"
	EventMessage    = "message"
	EventGrid       = "grid"
	EventGameOver   = "game_over"
	EventAudio      = "audio"
	EventFlipResult = "flip_result"
	EventError      = "error"
)

// Message represents an outbound WebSocket message
type Message struct {
	SessionID string            `json:"session_id"`
	Event     string            `json:"event"`
	GameState *engine.GameState `json:"game_state,omitempty"`
	Data      interface{}       `json:"data,omitempty"`
}

// Action is an inbound client request
type Action struct {
	Action     string `json:"action"` // flip, new_game, state, save, restore
	Index      *int   `json:"index,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
}

// CardData is the payload of a render_card event
type CardData struct {
	Index int         `json:"index"`
	Card  engine.Card `json:"card"`
}

// TextData is the payload of timer, message, game_over and error events
type TextData struct {
	Text string `json:"text"`
}

// Client represents a WebSocket client
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
}

type direct struct {
	client *Client
	data   []byte
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	mu sync.RWMutex
	// Registered clients by session ID
	sessions map[string]map[*Client]bool

	broadcast  chan *Message
	direct     chan direct
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	service service.GameService
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		sessions:   make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message, broadcastBuffer),
		direct:     make(chan direct, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// SetService sets the game service that inbound actions are routed to
func (h *Hub) SetService(svc service.GameService) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.service = svc
}

func (h *Hub) gameService() service.GameService {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.service
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)

		case d := <-h.direct:
			h.sendDirect(d)

		case <-h.done:
			return
		}
	}
}

// Stop ends the event loop
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// ClientCount returns the number of clients watching a session
func (h *Hub) ClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}

// ServeWS handles WebSocket requests from clients
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("session", sessionID).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, 256),
		sessionID: sessionID,
	}

	h.register <- client

	go client.writePump()
	go client.readPump()

	if svc := h.gameService(); svc != nil {
		state, err := svc.GetGameState(r.Context(), sessionID)
		if err == nil {
			h.reply(client, &Message{SessionID: sessionID, Event: EventState, GameState: state})
		}
	}
}

// Publish queues a message for every client of a session. Messages are
// dropped if the hub falls too far behind.
func (h *Hub) Publish(sessionID, event string, data interface{}) {
	h.enqueue(&Message{SessionID: sessionID, Event: event, Data: data})
}

// BroadcastToSession sends a full game state to all clients in a session
func (h *Hub) BroadcastToSession(sessionID string, state *engine.GameState) {
	h.enqueue(&Message{SessionID: sessionID, Event: EventState, GameState: state})
}

func (h *Hub) enqueue(m *Message) {
	select {
	case h.broadcast <- m:
	default:
		log.Warn().Str("session", m.SessionID).Str("event", m.Event).Msg("websocket hub backlog full, dropping message")
	}
}

func (h *Hub) reply(c *Client, m *Message) {
	data, err := json.Marshal(m)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal websocket reply")
		return
	}
	select {
	case h.direct <- direct{client: c, data: data}:
	default:
		log.Warn().Str("session", c.sessionID).Msg("websocket hub backlog full, dropping reply")
	}
}

// registerClient adds a client to a session
func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sessions[client.sessionID] == nil {
		h.sessions[client.sessionID] = make(map[*Client]bool)
	}
	h.sessions[client.sessionID][client] = true

	log.Debug().Str("session", client.sessionID).Int("clients", len(h.sessions[client.sessionID])).Msg("websocket client registered")
}

// unregisterClient removes a client from a session
func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unregisterLocked(client)
}

func (h *Hub) unregisterLocked(client *Client) {
	clients, ok := h.sessions[client.sessionID]
	if !ok {
		return
	}
	if _, ok := clients[client]; !ok {
		return
	}

	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.sessions, client.sessionID)
	}

	log.Debug().Str("session", client.sessionID).Int("clients", len(clients)).Msg("websocket client unregistered")
}

// broadcastMessage sends a message to all clients in a session
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal broadcast message")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.sessions[message.SessionID] {
		select {
		case client.send <- data:
		default:
			h.unregisterLocked(client)
		}
	}
}

func (h *Hub) sendDirect(d direct) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.sessions[d.client.sessionID][d.client] {
		return
	}
	select {
	case d.client.send <- d.data:
	default:
		h.unregisterLocked(d.client)
	}
}

// handleAction routes one inbound action to the game service
func (c *Client) handleAction(a Action) {
	svc := c.hub.gameService()
	if svc == nil {
		c.hub.reply(c, &Message{SessionID: c.sessionID, Event: EventError, Data: TextData{Text: "game service unavailable"}})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()

	var (
		msg *Message
		err error
	)
	switch a.Action {
	case "flip":
		if a.Index == nil {
			msg = &Message{SessionID: c.sessionID, Event: EventError, Data: TextData{Text: "index is required"}}
			break
		}
		var result *service.FlipResult
		result, err = svc.Flip(ctx, c.sessionID, *a.Index)
		if err == nil {
			msg = &Message{SessionID: c.sessionID, Event: EventFlipResult, GameState: result.GameState, Data: result}
		}
	case "new_game":
		var state *engine.GameState
		state, err = svc.NewGame(ctx, c.sessionID, a.Difficulty)
		if err == nil {
			msg = &Message{SessionID: c.sessionID, Event: EventState, GameState: state}
		}
	case "state":
		var state *engine.GameState
		state, err = svc.GetGameState(ctx, c.sessionID)
		if err == nil {
			msg = &Message{SessionID: c.sessionID, Event: EventState, GameState: state}
		}
	case "save":
		var saved *service.SaveResult
		saved, err = svc.SaveGame(ctx, c.sessionID)
		if err == nil {
			msg = &Message{SessionID: c.sessionID, Event: "saved", Data: saved}
		}
	case "restore":
		var state *engine.GameState
		state, err = svc.RestoreGame(ctx, c.sessionID)
		if err == nil {
			msg = &Message{SessionID: c.sessionID, Event: EventState, GameState: state}
		}
	default:
		msg = &Message{SessionID: c.sessionID, Event: EventError, Data: TextData{Text: "unknown action: " + a.Action}}
	}

	if err != nil {
		log.Debug().Err(err).Str("session", c.sessionID).Str("action", a.Action).Msg("websocket action failed")
		msg = &Message{SessionID: c.sessionID, Event: EventError, Data: TextData{Text: err.Error()}}
	}
	c.hub.reply(c, msg)
}

// readPump pumps inbound actions from the WebSocket connection
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("session", c.sessionID).Msg("websocket read error")
			}
			break
		}

		var a Action
		if err := json.Unmarshal(data, &a); err != nil {
			c.hub.reply(c, &Message{SessionID: c.sessionID, Event: EventError, Data: TextData{Text: "invalid message"}})
			continue
		}
		c.handleAction(a)
	}
}

// writePump pumps messages from the hub to the WebSocket connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current WebSocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
