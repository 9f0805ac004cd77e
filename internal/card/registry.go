// Package card tracks the card reader and the card presented to it.
package card

import (
	"sync"

	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/model"
)

// EventType identifies a registry notification.
type EventType string

const (
	CardConnected      EventType = "card_connected"
	CardDisconnected   EventType = "card_disconnected"
	ReaderConnected    EventType = "reader_connected"
	ReaderDisconnected EventType = "reader_disconnected"
)

// Event is delivered to listeners after the registry state has changed.
type Event struct {
	Type       EventType
	CardID     string
	ReaderName string
	Generation uint64
}

// Listener handles registry events.
type Listener func(Event)

// Snapshot is a read-only view of the registry.
type Snapshot struct {
	Card            model.CardToken
	ReaderConnected bool
	Generation      uint64
	Latched         bool
}

type subscription struct {
	key string
	fn  Listener
}

// Registry holds the single modeled card slot. A connect while a card is
// present replaces it.
type Registry struct {
	mu sync.Mutex

	id              string
	readerName      string
	connected       bool
	lastKnownID     string
	readerConnected bool

	generation uint64
	latched    bool

	listeners []subscription
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Subscribe registers fn under key and returns a function that removes it.
// Subscribing again under the same key replaces the previous listener.
func (r *Registry) Subscribe(key string, fn Listener) func() {
	r.mu.Lock()
	defer r.mu.Unlock()
	replaced := false
	for i := range r.listeners {
		if r.listeners[i].key == key {
			r.listeners[i].fn = fn
			replaced = true
			break
		}
	}
	if !replaced {
		r.listeners = append(r.listeners, subscription{key: key, fn: fn})
	}
	return func() {
		r.unsubscribe(key)
	}
}

func (r *Registry) unsubscribe(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.listeners {
		if r.listeners[i].key == key {
			r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
			return
		}
	}
}

// Connect records a card presented to the reader and starts a new connection.
func (r *Registry) Connect(id, readerName string) {
	if id == "" {
		return
	}
	r.mu.Lock()
	r.id = id
	r.connected = true
	r.lastKnownID = id
	if readerName != "" {
		r.readerName = readerName
	}
	r.generation++
	r.latched = false
	ev := Event{Type: CardConnected, CardID: id, ReaderName: r.readerName, Generation: r.generation}
	r.mu.Unlock()
	r.notify(ev)
}

// Disconnect marks the card as removed. The id stays available as the last
// known id.
func (r *Registry) Disconnect() {
	r.mu.Lock()
	if !r.connected {
		r.mu.Unlock()
		return
	}
	id := r.id
	r.id = ""
	r.connected = false
	r.latched = false
	ev := Event{Type: CardDisconnected, CardID: id, ReaderName: r.readerName, Generation: r.generation}
	r.mu.Unlock()
	r.notify(ev)
}

// ReaderAttached records that the physical reader is available.
func (r *Registry) ReaderAttached(name string) {
	r.mu.Lock()
	r.readerConnected = true
	r.readerName = name
	ev := Event{Type: ReaderConnected, ReaderName: name, Generation: r.generation}
	r.mu.Unlock()
	r.notify(ev)
}

// ReaderDetached records that the physical reader went away.
func (r *Registry) ReaderDetached() {
	r.mu.Lock()
	r.readerConnected = false
	name := r.readerName
	r.readerName = ""
	ev := Event{Type: ReaderDisconnected, ReaderName: name, Generation: r.generation}
	r.mu.Unlock()
	r.notify(ev)
}

// UsableID returns the connected card id, falling back to the last known id.
func (r *Registry) UsableID() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.connected && r.id != "" {
		return r.id, true
	}
	if r.lastKnownID != "" {
		return r.lastKnownID, true
	}
	return "", false
}

// ClaimRegistration sets the registration latch for the current connection.
// It returns the id to register and true only for the first claim since the
// latch was last reset.
func (r *Registry) ClaimRegistration() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.latched {
		return "", false
	}
	id := r.id
	if !r.connected || id == "" {
		id = r.lastKnownID
	}
	if id == "" {
		return "", false
	}
	r.latched = true
	return id, true
}

// ResetLatch allows one more registration for the current card.
func (r *Registry) ResetLatch() {
	r.mu.Lock()
	r.latched = false
	r.mu.Unlock()
}

// Snapshot returns the current registry state.
func (r *Registry) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		Card: model.CardToken{
			ID:          r.id,
			ReaderName:  r.readerName,
			Connected:   r.connected,
			LastKnownID: r.lastKnownID,
		},
		ReaderConnected: r.readerConnected,
		Generation:      r.generation,
		Latched:         r.latched,
	}
}

func (r *Registry) notify(ev Event) {
	r.mu.Lock()
	listeners := make([]Listener, len(r.listeners))
	for i, sub := range r.listeners {
		listeners[i] = sub.fn
	}
	r.mu.Unlock()
	for _, fn := range listeners {
		fn(ev)
	}
}
