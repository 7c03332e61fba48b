// Package realtime pushes tee-sheet changes to connected front-desk terminals.
package realtime

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Event types.
const (
	EventDraftUpdated        = "draft.updated"
	EventDraftDiscarded      = "draft.discarded"
	EventFlightUpdated       = "flight.updated"
	EventSettlementCompleted = "settlement.completed"
)

// Event is pushed to every terminal subscribed to Channel.
type Event struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
	Payload any    `json:"payload,omitempty"`
}

// Channel names the stream for one course on one play date.
func Channel(courseID int64, date string) string {
	return fmt.Sprintf("course:%d:%s", courseID, date)
}

type connection struct {
	staffID  int64
	conn     *websocket.Conn
	send     chan []byte
	channels map[string]bool
}

// Hub tracks terminal connections. A staff member may hold several.
type Hub struct {
	mu          sync.RWMutex
	connections map[*connection]struct{}
}

func NewHub() *Hub {
	return &Hub{connections: make(map[*connection]struct{})}
}

func (h *Hub) register(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c] = struct{}{}
}

func (h *Hub) unregister(c *connection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.connections[c]; ok {
		delete(h.connections, c)
		close(c.send)
	}
}

// Notify broadcasts an event to the course/date channel.
func (h *Hub) Notify(courseID int64, date, eventType string, payload any) {
	h.Broadcast(&Event{Type: eventType, Channel: Channel(courseID, date), Payload: payload})
}

func (h *Hub) Broadcast(event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("realtime_encode_error type=%s error=%q", event.Type, err.Error())
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.connections {
		if !c.channels[event.Channel] {
			continue
		}
		select {
		case c.send <- data:
		default:
			// slow client, skip
		}
	}
}

// Connected reports how many terminals are attached.
func (h *Hub) Connected() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// ServeWS registers conn and blocks until it disconnects.
func (h *Hub) ServeWS(conn *websocket.Conn, staffID int64, initial []string) {
	c := &connection{
		staffID:  staffID,
		conn:     conn,
		send:     make(chan []byte, 256),
		channels: make(map[string]bool),
	}
	for _, ch := range initial {
		c.channels[ch] = true
	}

	h.register(c)

	go h.writePump(c)
	h.readPump(c)
}

type clientMessage struct {
	Type     string `json:"type"`
	CourseID int64  `json:"course_id"`
	Date     string `json:"date"`
}

func (h *Hub) readPump(c *connection) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("realtime_read_error staff_id=%d error=%q", c.staffID, err.Error())
			}
			return
		}

		var m clientMessage
		if err := json.Unmarshal(msg, &m); err != nil {
			continue
		}

		switch m.Type {
		case "subscribe":
			h.mu.Lock()
			c.channels[Channel(m.CourseID, m.Date)] = true
			h.mu.Unlock()
		case "unsubscribe":
			h.mu.Lock()
			delete(c.channels, Channel(m.CourseID, m.Date))
			h.mu.Unlock()
		}
	}
}

func (h *Hub) writePump(c *connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
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
