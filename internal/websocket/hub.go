package websocket

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/entwine-app/entwine/internal/events"
	"github.com/entwine-app/entwine/internal/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// Allow connections from any origin for development
		// In production, implement proper origin checking
		return true
	},
}

// Hub fans broadcast events out to clients grouped by topic (one room per
// garden or game session).
type Hub struct {
	rooms      map[string]map[*Client]bool
	broadcast  chan roomMessage
	register   chan *Client
	unregister chan *Client
	log        *logger.Log
}

type roomMessage struct {
	topic   string
	payload []byte
}

type Client struct {
	hub   *Hub
	topic string
	conn  *websocket.Conn
	send  chan []byte
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		broadcast:  make(chan roomMessage, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        logger.New(),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			if h.rooms[client.topic] == nil {
				h.rooms[client.topic] = make(map[*Client]bool)
			}
			h.rooms[client.topic][client] = true

		case client := <-h.unregister:
			if room, ok := h.rooms[client.topic]; ok {
				if _, ok := room[client]; ok {
					delete(room, client)
					close(client.send)
					if len(room) == 0 {
						delete(h.rooms, client.topic)
					}
				}
			}

		case message := <-h.broadcast:
			for client := range h.rooms[message.topic] {
				select {
				case client.send <- message.payload:
				default:
					close(client.send)
					delete(h.rooms[message.topic], client)
				}
			}
		}
	}
}

// Publish implements events.Publisher. Delivery is fire-and-forget: if the
// hub is saturated the event is dropped rather than blocking the caller.
func (h *Hub) Publish(topic string, event events.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.WithError(err).Warn("dropping unmarshalable event")
		return
	}

	select {
	case h.broadcast <- roomMessage{topic: topic, payload: payload}:
	default:
		h.log.Warn("broadcast channel full, dropping event " + event.Type)
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.New().WithError(err).Warn("websocket read")
			}
			break
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			logger.New().WithError(err).Warn("websocket write")
			return
		}
	}
	c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

func (h *Hub) handleWebSocket(topic string, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithError(err).Warn("websocket upgrade")
		return
	}

	client := &Client{hub: h, topic: topic, conn: conn, send: make(chan []byte, 256)}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// RegisterRoutes wires the per-garden and per-game subscription endpoints and
// starts the hub loop. The returned hub satisfies events.Publisher.
func RegisterRoutes(r *mux.Router) *Hub {
	hub := NewHub()
	go hub.Run()

	r.HandleFunc("/ws/garden/{id}", func(w http.ResponseWriter, r *http.Request) {
		hub.handleWebSocket(events.GardenTopic(mux.Vars(r)["id"]), w, r)
	})
	r.HandleFunc("/ws/game/{id}", func(w http.ResponseWriter, r *http.Request) {
		hub.handleWebSocket(events.GameTopic(mux.Vars(r)["id"]), w, r)
	})

	return hub
}
