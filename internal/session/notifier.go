package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"pharmacy-pos/internal/access"
)

type EventType string

const (
	EventSignedIn        EventType = "signed_in"
	EventSignedOut       EventType = "signed_out"
	EventRoleChanged     EventType = "role_changed"
	EventPasswordChanged EventType = "password_changed"
)

// Event describes a change to a user's session state.
type Event struct {
	Type   EventType `json:"type"`
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role,omitempty"`
	At     time.Time `json:"at"`
}

// Notifier fans session events out to subscribers. Subscribers run synchronously
// on the publishing goroutine and must not block.
type Notifier struct {
	mu   sync.RWMutex
	next int
	subs map[int]func(Event)
}

func NewNotifier() *Notifier {
	return &Notifier{subs: make(map[int]func(Event))}
}

// Subscribe registers fn and returns a func that removes it.
func (n *Notifier) Subscribe(fn func(Event)) func() {
	n.mu.Lock()
	id := n.next
	n.next++
	n.subs[id] = fn
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
		})
	}
}

func (n *Notifier) Publish(e Event) {
	if n == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	n.mu.RLock()
	subs := make([]func(Event), 0, len(n.subs))
	for _, fn := range n.subs {
		subs = append(subs, fn)
	}
	n.mu.RUnlock()

	for _, fn := range subs {
		fn(e)
	}
}

type capEntry struct {
	version string
	role    string
	screens []access.Screen
}

// Capabilities caches the screen list per user, token version and role. Any
// session event for a user drops the entry. A lookup that raced a role change
// may store screens for the old role, but the role key keeps them from being
// served once the store reports the new one.
type Capabilities struct {
	mu          sync.RWMutex
	entries     map[uuid.UUID]capEntry
	unsubscribe func()
}

func NewCapabilities(n *Notifier) *Capabilities {
	c := &Capabilities{entries: make(map[uuid.UUID]capEntry)}
	if n != nil {
		c.unsubscribe = n.Subscribe(func(e Event) {
			c.forget(e.UserID)
		})
	}
	return c
}

// Screens returns the cached screens for (userID, version, role), computing them on a miss.
func (c *Capabilities) Screens(userID uuid.UUID, version, role string) []access.Screen {
	if c == nil {
		return access.ScreensFor(role)
	}
	c.mu.RLock()
	entry, ok := c.entries[userID]
	c.mu.RUnlock()
	if ok && entry.version == version && entry.role == role {
		return entry.screens
	}

	screens := access.ScreensFor(role)
	c.mu.Lock()
	c.entries[userID] = capEntry{version: version, role: role, screens: screens}
	c.mu.Unlock()
	return screens
}

func (c *Capabilities) forget(userID uuid.UUID) {
	c.mu.Lock()
	delete(c.entries, userID)
	c.mu.Unlock()
}

func (c *Capabilities) Close() {
	if c != nil && c.unsubscribe != nil {
		c.unsubscribe()
	}
}
