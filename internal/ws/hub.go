package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"pharmacy-pos/internal/session"
)

// Event types pushed to connected clients.
const (
	EventStockUpdate      = "stock_update"
	EventSaleCompleted    = "sale_completed"
	EventPurchaseReceived = "purchase_received"
	EventLowStock         = "low_stock"
	EventUserStatus       = "user_status_update"
)

// Client is the part of a websocket connection the hub writes to.
type Client interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Message is the JSON envelope of every broadcast.
type Message struct {
	Type    string    `json:"type"`
	Payload any       `json:"payload"`
	SentAt  time.Time `json:"sent_at"`
}

type subscription struct {
	client Client
	sess   *session.Session
}

type outbound struct {
	raw      []byte
	audience Audience
}

type Hub struct {
	clients    map[Client]*session.Session
	register   chan subscription
	unregister chan Client
	broadcast  chan outbound
	done       chan struct{}
	mutex      sync.Mutex
	log        logrus.FieldLogger
}

func NewHub(log logrus.FieldLogger) *Hub {
	return &Hub{
		clients:    make(map[Client]*session.Session),
		register:   make(chan subscription),
		unregister: make(chan Client),
		broadcast:  make(chan outbound, 256),
		done:       make(chan struct{}),
		log:        log.WithField("module", "ws"),
	}
}

// Run serves registrations and broadcasts until ctx is done. Add and Remove
// return immediately once Run has exited.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mutex.Lock()
			for conn := range h.clients {
				_ = conn.Close()
				delete(h.clients, conn)
			}
			h.mutex.Unlock()
			return

		case sub := <-h.register:
			h.mutex.Lock()
			h.clients[sub.client] = sub.sess
			h.mutex.Unlock()
			h.log.WithFields(logrus.Fields{"user_id": sub.sess.UserID, "role": sub.sess.Role}).Debug("client connected")

		case conn := <-h.unregister:
			h.mutex.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				_ = conn.Close()
			}
			h.mutex.Unlock()

		case msg := <-h.broadcast:
			h.mutex.Lock()
			for conn, sess := range h.clients {
				if !msg.audience(sess) {
					continue
				}
				if err := conn.WriteMessage(websocket.TextMessage, msg.raw); err != nil {
					_ = conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mutex.Unlock()
		}
	}
}

// Add subscribes c on behalf of sess. It reports false when the hub has stopped.
func (h *Hub) Add(c Client, sess *session.Session) bool {
	if sess == nil {
		return false
	}
	select {
	case h.register <- subscription{client: c, sess: sess}:
		return true
	case <-h.done:
		return false
	}
}

// Remove unsubscribes and closes c.
func (h *Hub) Remove(c Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish queues an event for the sessions allowed to see it. When the queue is
// full the event is dropped so callers never wait on slow clients.
func (h *Hub) Publish(eventType string, payload any) {
	if h == nil {
		return
	}
	raw, err := json.Marshal(Message{Type: eventType, Payload: payload, SentAt: time.Now()})
	if err != nil {
		h.log.WithError(err).WithField("type", eventType).Error("encode event")
		return
	}
	select {
	case h.broadcast <- outbound{raw: raw, audience: audienceFor(eventType, payload)}:
	default:
		h.log.WithField("type", eventType).Warn("broadcast queue full, event dropped")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// FollowSessions rebroadcasts session events as user status updates. A user who
// signs out, changes password or changes role loses their open sockets, so the
// privileges captured at connect time never outlive the token.
func (h *Hub) FollowSessions(n *session.Notifier) func() {
	return n.Subscribe(func(e session.Event) {
		h.Publish(EventUserStatus, e)
		if e.Type != session.EventSignedIn {
			h.disconnect(e.UserID)
		}
	})
}

func (h *Hub) disconnect(userID uuid.UUID) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn, sess := range h.clients {
		if sess.UserID == userID {
			_ = conn.Close()
			delete(h.clients, conn)
		}
	}
}
