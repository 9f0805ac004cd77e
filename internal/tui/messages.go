package tui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/card"
	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/resultsync"
)

// CardMsg carries a registry event into the UI loop.
type CardMsg struct {
	Event card.Event
}

// SyncMsg carries a result sync event into the UI loop.
type SyncMsg struct {
	Event resultsync.Event
}

// tickMsg drives the session clock and the results countdown.
type tickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Sender is the part of tea.Program the listeners need.
type Sender interface {
	Send(msg tea.Msg)
}

// Forwarder hands listener events to the program in the order they fired.
// Queuing never blocks, since events can fire from inside Update while the
// program loop is busy.
type Forwarder struct {
	p       Sender
	mu      sync.Mutex
	queue   []tea.Msg
	running bool
}

// NewForwarder returns a Forwarder sending to p.
func NewForwarder(p Sender) *Forwarder {
	return &Forwarder{p: p}
}

// CardListener forwards registry events as CardMsg.
func (f *Forwarder) CardListener() card.Listener {
	return func(ev card.Event) {
		f.push(CardMsg{Event: ev})
	}
}

// SyncListener forwards result sync events as SyncMsg.
func (f *Forwarder) SyncListener() resultsync.Listener {
	return func(ev resultsync.Event) {
		f.push(SyncMsg{Event: ev})
	}
}

func (f *Forwarder) push(msg tea.Msg) {
	f.mu.Lock()
	f.queue = append(f.queue, msg)
	if f.running {
		f.mu.Unlock()
		return
	}
	f.running = true
	f.mu.Unlock()
	go f.drain()
}

// drain sends queued messages one at a time until the queue is empty.
func (f *Forwarder) drain() {
	for {
		f.mu.Lock()
		if len(f.queue) == 0 {
			f.running = false
			f.mu.Unlock()
			return
		}
		msg := f.queue[0]
		f.queue[0] = nil
		f.queue = f.queue[1:]
		f.mu.Unlock()
		f.p.Send(msg)
	}
}
