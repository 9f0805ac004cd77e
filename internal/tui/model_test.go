package tui

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/card"
	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/identity"
	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/model"
	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/resultsync"
	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/scene"
	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/session"
)

const testScene = `name = Test
radius = 0
[picture]
abcdefgh
abc
abcdefgh
[errors]
0,1 X | First | The first error.
2,6 Y | Second | The second error.
`

var testBase = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

type fakeClient struct {
	mu          sync.Mutex
	submissions []identity.ScorePayload
}

func (f *fakeClient) Register(context.Context, string) (int, error) {
	return http.StatusCreated, nil
}

func (f *fakeClient) SubmitScore(_ context.Context, p identity.ScorePayload) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submissions = append(f.submissions, p)
	return http.StatusNoContent, nil
}

func (f *fakeClient) FetchAttributes(context.Context, string) (*model.CardAttributes, error) {
	return nil, nil
}

func mustScene(t *testing.T) *scene.Scene {
	t.Helper()
	s, err := scene.Parse(strings.NewReader(testScene))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return s
}

func newTestModel(t *testing.T, client resultsync.Client) *Model {
	t.Helper()
	reg := card.NewRegistry()
	svc := resultsync.New(client, reg, resultsync.Options{
		Logger:   zerolog.Nop(),
		Executor: func(f func()) { f() },
	})
	t.Cleanup(svc.Close)
	cfg := model.GameConfig{
		TimeLimit:        10 * time.Second,
		TotalErrors:      2,
		MaxWrongAttempts: 2,
		Scoring:          model.DefaultScoreConfig(),
	}
	now := func() time.Time { return testBase }
	sess, err := session.New(cfg, svc, session.WithNow(now))
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	return NewModel(Options{
		Session:  sess,
		Scene:    mustScene(t),
		Registry: reg,
		Sync:     svc,
		DemoCard: "DEMO",
		Logger:   zerolog.Nop(),
		Now:      now,
	})
}

func press(m *Model, key string) tea.Cmd {
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "right":
		msg = tea.KeyMsg{Type: tea.KeyRight}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	_, cmd := m.Update(msg)
	return cmd
}

func TestFindAllErrorsThenDeliverOnCardTap(t *testing.T) {
	client := &fakeClient{}
	m := newTestModel(t, client)

	if cmd := press(m, "enter"); cmd == nil {
		t.Fatalf("expected tick command on start")
	}
	if m.screen != screenPlaying {
		t.Fatalf("expected playing screen")
	}

	m.cursor = scene.Point{Row: 0, Col: 1}
	press(m, "enter")
	if got := m.session.State().ErrorsFound; got != 1 {
		t.Fatalf("expected 1 error found, got %d", got)
	}
	if m.popup == nil || m.popup.Title != "First" {
		t.Fatalf("expected popup for first error")
	}
	if !strings.Contains(m.View(), "The first error.") {
		t.Fatalf("expected popup message in view")
	}

	press(m, "enter")
	if got := m.session.State().ErrorsFound; got != 1 {
		t.Fatalf("re-selecting a found error must not count, got %d", got)
	}
	if got := m.session.State().WrongAttempts; got != 0 {
		t.Fatalf("re-selecting a found error is not a miss, got %d", got)
	}

	m.cursor = scene.Point{Row: 2, Col: 6}
	press(m, "enter")
	if m.screen != screenResults {
		t.Fatalf("expected results screen after finding all errors")
	}
	view := m.View()
	if !containsAll(view, []string{DefaultMessages().Completed, "Errors found: 2/2", "Time remaining: 00:10", DefaultMessages().WaitingCard}) {
		t.Fatalf("unexpected results view:\n%s", view)
	}
	if m.sync.Snapshot().Pending == nil {
		t.Fatalf("expected result buffered while no card is present")
	}

	press(m, "c")
	if len(client.submissions) != 1 {
		t.Fatalf("expected buffered result delivered on card tap, got %d submissions", len(client.submissions))
	}
	if client.submissions[0].NfcID != "DEMO" {
		t.Fatalf("unexpected card id %q", client.submissions[0].NfcID)
	}
	if !strings.Contains(m.View(), "Score saved for card DEMO.") {
		t.Fatalf("expected delivery status in view")
	}
}

func TestWrongAttemptsEndSession(t *testing.T) {
	m := newTestModel(t, &fakeClient{})
	press(m, "enter")
	m.cursor = scene.Point{Row: 1, Col: 0}
	press(m, "enter")
	press(m, "right")
	press(m, "enter")
	if m.screen != screenResults {
		t.Fatalf("expected results screen after max wrong attempts")
	}
	result, ok := m.session.Result()
	if !ok || result.EndCause != model.EndTooManyWrongAttempts {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(m.misses) != 2 {
		t.Fatalf("expected 2 recorded misses, got %d", len(m.misses))
	}
	if !strings.Contains(m.View(), DefaultMessages().TooManyWrong) {
		t.Fatalf("expected wrong attempts message")
	}
}

func TestTickTimesOutAndReturnsToIdle(t *testing.T) {
	m := newTestModel(t, &fakeClient{})
	press(m, "enter")

	if cmd := m.handleTick(testBase.Add(4 * time.Second)); cmd == nil {
		t.Fatalf("expected next tick while playing")
	}
	if got := m.session.State().RemainingTime; got != 6*time.Second {
		t.Fatalf("expected 6s remaining, got %v", got)
	}
	m.handleTick(testBase.Add(11 * time.Second))
	if m.screen != screenResults {
		t.Fatalf("expected results screen after timeout")
	}
	result, _ := m.session.Result()
	if result.EndCause != model.EndTimedOut || result.TimeRemaining != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
	if !strings.Contains(m.View(), "back to start in 30s") {
		t.Fatalf("expected countdown in results view")
	}

	if cmd := m.handleTick(testBase.Add(41 * time.Second)); cmd != nil {
		t.Fatalf("expected tick loop to stop on idle")
	}
	if m.screen != screenIdle || m.session.Phase() != model.PhaseIdle {
		t.Fatalf("expected idle after results countdown")
	}
	if m.ticking {
		t.Fatalf("expected ticking to stop")
	}
}

func TestPlayAgainFromResults(t *testing.T) {
	m := newTestModel(t, &fakeClient{})
	press(m, "enter")
	firstID := m.session.ID()
	m.handleTick(testBase.Add(20 * time.Second))
	if m.screen != screenResults {
		t.Fatalf("expected results screen")
	}
	if cmd := press(m, "enter"); cmd != nil {
		t.Fatalf("tick loop is already running; no second loop expected")
	}
	if m.screen != screenPlaying || m.session.ID() == firstID {
		t.Fatalf("expected a fresh session")
	}
	if m.played != 1 {
		t.Fatalf("expected footer totals updated, got %d", m.played)
	}
}

func TestIdleKeys(t *testing.T) {
	m := newTestModel(t, &fakeClient{})
	press(m, "r")
	if !strings.Contains(m.View(), "Retry not possible") {
		t.Fatalf("expected retry error flash")
	}
	press(m, "c")
	if snap := m.registry.Snapshot(); !snap.Card.Connected || snap.Card.ID != "DEMO" {
		t.Fatalf("expected demo card connected")
	}
	press(m, "d")
	if m.registry.Snapshot().Card.Connected {
		t.Fatalf("expected demo card removed")
	}
	if !strings.Contains(m.View(), "DEMO (removed)") {
		t.Fatalf("expected last known card in view")
	}
	if cmd := press(m, "q"); cmd == nil {
		t.Fatalf("expected quit command")
	}
}

func TestCardMessagesFlash(t *testing.T) {
	m := newTestModel(t, &fakeClient{})
	m.Update(CardMsg{Event: card.Event{Type: card.CardConnected, CardID: "04AA"}})
	if !strings.Contains(m.View(), "Card 04AA connected.") {
		t.Fatalf("expected card flash")
	}
	m.now = func() time.Time { return testBase.Add(time.Minute) }
	if strings.Contains(m.View(), "Card 04AA connected.") {
		t.Fatalf("expected flash to expire")
	}
}

type chanSender chan tea.Msg

func (c chanSender) Send(msg tea.Msg) { c <- msg }

func TestForwarderKeepsEventOrder(t *testing.T) {
	ch := make(chanSender)
	fw := NewForwarder(ch)
	onCard := fw.CardListener()
	onSync := fw.SyncListener()

	// Nothing reads ch yet, so every call below returns while the first send
	// is still blocked.
	const n = 20
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			onCard(card.Event{Type: card.CardConnected, CardID: fmt.Sprintf("%02d", i)})
		} else {
			onSync(resultsync.Event{Kind: resultsync.EventBuffered, SessionID: fmt.Sprintf("%02d", i)})
		}
	}
	for i := 0; i < n; i++ {
		want := fmt.Sprintf("%02d", i)
		select {
		case msg := <-ch:
			var got string
			switch msg := msg.(type) {
			case CardMsg:
				got = msg.Event.CardID
			case SyncMsg:
				got = msg.Event.SessionID
			}
			if got != want {
				t.Fatalf("message %d: got %q, want %q", i, got, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for message %d", i)
		}
	}
}
