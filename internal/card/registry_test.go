package card

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectDisconnectKeepsLastKnownID(t *testing.T) {
	r := NewRegistry()
	_, ok := r.UsableID()
	require.False(t, ok)

	r.Connect("A1", "ACS ACR122")
	id, ok := r.UsableID()
	require.True(t, ok)
	assert.Equal(t, "A1", id)

	r.Disconnect()
	snap := r.Snapshot()
	assert.False(t, snap.Card.Connected)
	assert.Empty(t, snap.Card.ID)
	assert.Equal(t, "A1", snap.Card.LastKnownID)

	id, ok = r.UsableID()
	require.True(t, ok)
	assert.Equal(t, "A1", id)
}

func TestSecondConnectOverwrites(t *testing.T) {
	r := NewRegistry()
	r.Connect("A1", "reader")
	r.Connect("B2", "")
	snap := r.Snapshot()
	assert.Equal(t, "B2", snap.Card.ID)
	assert.Equal(t, "reader", snap.Card.ReaderName)
	assert.Equal(t, uint64(2), snap.Generation)
}

func TestRegistrationLatchOncePerConnection(t *testing.T) {
	r := NewRegistry()
	_, ok := r.ClaimRegistration()
	assert.False(t, ok, "no card means nothing to register")

	r.Connect("A1", "reader")
	id, ok := r.ClaimRegistration()
	require.True(t, ok)
	assert.Equal(t, "A1", id)
	_, ok = r.ClaimRegistration()
	assert.False(t, ok)

	r.Connect("A1", "reader")
	_, ok = r.ClaimRegistration()
	assert.True(t, ok, "new connection resets the latch")

	r.ResetLatch()
	_, ok = r.ClaimRegistration()
	assert.True(t, ok)
}

func TestListenersSeeStateAndAreKeyed(t *testing.T) {
	r := NewRegistry()
	var events []Event
	var seen []string
	listener := func(ev Event) {
		events = append(events, ev)
		id, _ := r.UsableID()
		seen = append(seen, id)
	}
	r.Subscribe("ui", listener)
	r.Subscribe("ui", listener)

	r.Connect("A1", "reader")
	require.Len(t, events, 1)
	assert.Equal(t, CardConnected, events[0].Type)
	assert.Equal(t, "A1", events[0].CardID)
	assert.Equal(t, []string{"A1"}, seen)

	r.Disconnect()
	require.Len(t, events, 2)
	assert.Equal(t, CardDisconnected, events[1].Type)
	assert.Equal(t, "A1", events[1].CardID)

	r.Disconnect()
	assert.Len(t, events, 2, "disconnect without a card is silent")
}

func TestUnsubscribe(t *testing.T) {
	r := NewRegistry()
	calls := 0
	stop := r.Subscribe("a", func(Event) { calls++ })
	r.Connect("A1", "")
	stop()
	r.Connect("A2", "")
	assert.Equal(t, 1, calls)
}

func TestReaderEvents(t *testing.T) {
	r := NewRegistry()
	var types []EventType
	r.Subscribe("t", func(ev Event) { types = append(types, ev.Type) })
	r.ReaderAttached("ACS ACR122")
	assert.True(t, r.Snapshot().ReaderConnected)
	assert.Equal(t, "ACS ACR122", r.Snapshot().Card.ReaderName)
	r.ReaderDetached()
	assert.False(t, r.Snapshot().ReaderConnected)
	assert.Equal(t, []EventType{ReaderConnected, ReaderDisconnected}, types)
}

func TestConnectIgnoresEmptyID(t *testing.T) {
	r := NewRegistry()
	r.Connect("", "reader")
	assert.Zero(t, r.Snapshot().Generation)
}
