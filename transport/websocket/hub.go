package websocket

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/callbreaklive/server/game/service"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer. Viewers only send
	// keepalives, so this stays small.
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Viewer links are shared freely; any origin may subscribe.
		return true
	},
}

// Message is the envelope pushed to subscribers.
type Message struct {
	Type     string            `json:"type"`
	GameID   string            `json:"gameId"`
	Snapshot *service.Snapshot `json:"snapshot,omitempty"`
	ToGameID string            `json:"toGameId,omitempty"`
}

// Client is one subscribed viewer connection.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	gameID string
	id     string
}

// Hub maintains the set of subscribers per game and fans snapshots out
// to them.
type Hub struct {
	svc service.GameService

	// Subscribers keyed by game id.
	games map[string]map[*Client]bool

	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
}

// NewHub creates a hub that reads snapshots from svc.
func NewHub(svc service.GameService) *Hub {
	return &Hub{
		svc:        svc,
		games:      make(map[string]map[*Client]bool),
		broadcast:  make(chan *Message),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run starts the hub's event loop.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case message := <-h.broadcast:
			h.broadcastMessage(message)
		}
	}
}

// HandleWebSocket upgrades a viewer connection. The game id comes from
// the ?game query parameter.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	gameID := r.URL.Query().Get("game")
	if gameID == "" {
		http.Error(w, "game query parameter is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	// A superseded game gets a one-shot redirect instead of a
	// subscription.
	if toGameID, ok := h.svc.Redirect(gameID); ok {
		h.sendRedirect(conn, gameID, toGameID)
		return
	}

	client := &Client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, 256),
		gameID: gameID,
		id:     uuid.NewString(),
	}

	client.hub.register <- client

	go client.writePump()
	go client.readPump()

	// Initial snapshot so the viewer renders without waiting for the
	// next mutation.
	if snapshot, err := h.svc.Snapshot(r.Context(), gameID); err == nil {
		if data, err := json.Marshal(&Message{Type: "snapshot", GameID: gameID, Snapshot: snapshot}); err == nil {
			select {
			case client.send <- data:
			default:
			}
		}
	}
}

func (h *Hub) sendRedirect(conn *websocket.Conn, gameID, toGameID string) {
	data, err := json.Marshal(&Message{Type: "redirect", GameID: gameID, ToGameID: toGameID})
	if err == nil {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		conn.WriteMessage(websocket.TextMessage, data)
	}
	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "game superseded"))
	conn.Close()
}

// BroadcastGame pushes the current snapshot of a game to all of its
// subscribers. Mutation handlers call this after every successful
// state change.
func (h *Hub) BroadcastGame(ctx context.Context, gameID string) {
	snapshot, err := h.svc.Snapshot(ctx, gameID)
	if err != nil {
		return
	}
	h.broadcast <- &Message{Type: "snapshot", GameID: gameID, Snapshot: snapshot}
}

// BroadcastRedirect tells subscribers of a superseded game where its
// successor lives. The redirect is terminal: after the frame is
// delivered the hub drops every subscription to the old game and the
// server closes the connections.
func (h *Hub) BroadcastRedirect(gameID, toGameID string) {
	h.broadcast <- &Message{Type: "redirect", GameID: gameID, ToGameID: toGameID}
}

// registerClient adds a client to its game's subscriber set.
func (h *Hub) registerClient(client *Client) {
	if h.games[client.gameID] == nil {
		h.games[client.gameID] = make(map[*Client]bool)
	}
	h.games[client.gameID][client] = true

	log.Printf("Viewer %s subscribed to game %s (total viewers: %d)",
		client.id, client.gameID, len(h.games[client.gameID]))
}

// unregisterClient removes a client from its game's subscriber set.
func (h *Hub) unregisterClient(client *Client) {
	if clients, ok := h.games[client.gameID]; ok {
		if _, ok := clients[client]; ok {
			delete(clients, client)
			close(client.send)

			if len(clients) == 0 {
				delete(h.games, client.gameID)
			}

			log.Printf("Viewer %s left game %s (remaining viewers: %d)",
				client.id, client.gameID, len(clients))
		}
	}
}

// broadcastMessage sends a message to all subscribers of its game.
// A subscriber that cannot keep up is dropped rather than allowed to
// stall the rest.
func (h *Hub) broadcastMessage(message *Message) {
	data, err := json.Marshal(message)
	if err != nil {
		log.Printf("Failed to marshal broadcast message: %v", err)
		return
	}

	clients, ok := h.games[message.GameID]
	if !ok {
		return
	}
	for client := range clients {
		select {
		case client.send <- data:
		default:
			h.unregisterClient(client)
		}
	}

	// A redirect is the last frame a subscriber of the superseded game
	// receives. Unregistering closes each send channel; the write pump
	// drains the queued redirect, sends a close frame, and hangs up.
	if message.Type == "redirect" {
		for client := range clients {
			h.unregisterClient(client)
		}
	}
}

// readPump drains the connection to service pings and detect closure.
// Incoming frames are otherwise ignored.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
	}
}

// writePump pumps messages from the hub to the WebSocket connection.
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
