// Package tui provides the Bubble Tea game interface.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/card"
	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/model"
	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/resultsync"
	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/scene"
	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/session"
	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/store"
)

const (
	tickInterval          = 100 * time.Millisecond
	popupDuration         = 3 * time.Second
	flashDuration         = 2 * time.Second
	DefaultResultsTimeout = 30 * time.Second
)

type screen int

const (
	screenIdle screen = iota
	screenPlaying
	screenResults
)

var (
	titleStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
	pictureStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0"))
	foundStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	missStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cursorStyle     = lipgloss.NewStyle().Reverse(true)
	panelStyle      = lipgloss.NewStyle().Padding(0, 1).Border(lipgloss.RoundedBorder(), true).BorderForeground(lipgloss.Color("#4A4A4A"))
	panelTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	popupStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder(), true).BorderForeground(lipgloss.Color("#52C41A")).Padding(0, 2)
	mutedStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	warnStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	valueStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	footerStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
)

// Messages holds the player-facing texts that depend on how a session ended.
type Messages struct {
	Completed    string
	TimedOut     string
	TooManyWrong string
	WaitingCard  string
}

// DefaultMessages returns the built-in texts.
func DefaultMessages() Messages {
	return Messages{
		Completed:    "Congratulations! You found all the errors.",
		TimedOut:     "Time is up! Better luck next time.",
		TooManyWrong: "Too many wrong guesses! Try again.",
		WaitingCard:  "Tap your card on the reader to save your score.",
	}
}

// ForCause returns the message for an end cause.
func (m Messages) ForCause(cause model.EndCause) string {
	switch cause {
	case model.EndCompleted:
		return m.Completed
	case model.EndTimedOut:
		return m.TimedOut
	case model.EndTooManyWrongAttempts:
		return m.TooManyWrong
	default:
		return ""
	}
}

// Options wires the model to its collaborators.
type Options struct {
	Session        *session.Session
	Scene          *scene.Scene
	Registry       *card.Registry
	Sync           *resultsync.Service
	Store          *store.Store // nil disables the history footer
	Messages       Messages
	ResultsTimeout time.Duration
	DemoCard       string
	Logger         zerolog.Logger
	Now            func() time.Time
}

// Model implements the Bubble Tea game UI.
type Model struct {
	session  *session.Session
	scene    *scene.Scene
	registry *card.Registry
	sync     *resultsync.Service
	store    *store.Store
	messages Messages
	demoCard string
	log      zerolog.Logger
	now      func() time.Time

	resultsTimeout time.Duration

	width  int
	height int

	screen  screen
	cursor  scene.Point
	misses  map[scene.Point]struct{}
	spinner spinner.Model

	ticking     bool
	lastTick    time.Time
	resultsLeft time.Duration

	popup      *scene.Error
	popupUntil time.Time
	flash      string
	flashUntil time.Time
	errMsg     string

	played     int
	totalFound int
	bestFound  int
	last       *model.Result
}

// NewModel constructs the game UI model.
func NewModel(opts Options) *Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.ResultsTimeout <= 0 {
		opts.ResultsTimeout = DefaultResultsTimeout
	}
	if opts.Messages == (Messages{}) {
		opts.Messages = DefaultMessages()
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	m := &Model{
		session:        opts.Session,
		scene:          opts.Scene,
		registry:       opts.Registry,
		sync:           opts.Sync,
		store:          opts.Store,
		messages:       opts.Messages,
		demoCard:       opts.DemoCard,
		log:            opts.Logger.With().Str("component", "tui").Logger(),
		now:            opts.Now,
		resultsTimeout: opts.ResultsTimeout,
		misses:         map[scene.Point]struct{}{},
		spinner:        sp,
	}
	m.loadFooterStats()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tickMsg:
		return m, m.handleTick(time.Time(msg))
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case CardMsg:
		m.handleCardEvent(msg.Event)
		return m, nil
	case SyncMsg:
		m.handleSyncEvent(msg.Event)
		return m, nil
	default:
		return m, nil
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}
	if m.handleCommonKey(key) {
		return m, nil
	}
	switch m.screen {
	case screenIdle:
		switch key {
		case "enter", " ":
			return m, m.startSession()
		case "q", "esc":
			return m, tea.Quit
		}
	case screenPlaying:
		switch key {
		case "up", "k":
			m.cursor = moveCursor(m.scene, m.cursor, -1, 0)
		case "down", "j":
			m.cursor = moveCursor(m.scene, m.cursor, 1, 0)
		case "left", "h":
			m.cursor = moveCursor(m.scene, m.cursor, 0, -1)
		case "right", "l":
			m.cursor = moveCursor(m.scene, m.cursor, 0, 1)
		case "enter", " ":
			m.click()
		}
	case screenResults:
		switch key {
		case "enter", " ":
			return m, m.startSession()
		case "esc", "q":
			m.goIdle()
		}
	}
	return m, nil
}

// handleCommonKey handles keys that work on the idle and results screens.
func (m *Model) handleCommonKey(key string) bool {
	if m.screen == screenPlaying {
		return false
	}
	switch key {
	case "r":
		m.retrySync()
		return true
	case "f":
		m.sync.Refresh()
		return true
	}
	if m.demoCard == "" {
		return false
	}
	switch key {
	case "c":
		m.registry.Connect(m.demoCard, "demo")
		return true
	case "d":
		m.registry.Disconnect()
		return true
	}
	return false
}

func (m *Model) startSession() tea.Cmd {
	if m.session.Phase() != model.PhaseIdle {
		m.session.Reset()
	}
	if _, err := m.session.Start(); err != nil {
		m.errMsg = fmt.Sprintf("failed to start session: %v", err)
		m.log.Error().Err(err).Msg("failed to start session")
		return nil
	}
	m.errMsg = ""
	m.screen = screenPlaying
	m.cursor = scene.Point{Row: m.scene.Height() / 2, Col: m.scene.Width() / 2}
	m.misses = map[scene.Point]struct{}{}
	m.popup = nil
	m.log.Info().Str("session", m.session.ID()).Msg("session started")
	m.lastTick = m.now()
	if m.ticking {
		return nil
	}
	m.ticking = true
	return tickCmd()
}

func (m *Model) click() {
	if idx, ok := m.scene.ErrorAt(m.cursor); ok {
		if m.session.IsFound(idx) {
			m.setFlash("Already found.")
			return
		}
		if m.session.ErrorFound(idx) {
			e := m.scene.Errors[idx]
			m.popup = &e
			m.popupUntil = m.now().Add(popupDuration)
			m.log.Debug().Str("session", m.session.ID()).Int("error", idx).Msg("error found")
		}
	} else {
		m.misses[m.cursor] = struct{}{}
		m.session.WrongAttempt()
		m.popup = nil
	}
	m.checkEnded()
}

func (m *Model) handleTick(at time.Time) tea.Cmd {
	dt := at.Sub(m.lastTick)
	m.lastTick = at
	switch m.screen {
	case screenPlaying:
		m.session.Tick(dt)
		m.checkEnded()
	case screenResults:
		m.resultsLeft -= dt
		if m.resultsLeft <= 0 {
			m.goIdle()
		}
	}
	if m.screen == screenIdle {
		m.ticking = false
		return nil
	}
	return tickCmd()
}

func (m *Model) checkEnded() {
	if m.screen != screenPlaying || m.session.Phase() != model.PhaseEnded {
		return
	}
	result, ok := m.session.Result()
	if !ok {
		return
	}
	m.screen = screenResults
	m.resultsLeft = m.resultsTimeout
	m.popup = nil
	m.addToTotals(result)
	m.log.Info().Str("session", result.SessionID).Str("cause", string(result.EndCause)).
		Int("found", result.ErrorsFound).Int("wrong", result.WrongAttempts).Msg("session ended")
}

func (m *Model) goIdle() {
	m.session.Reset()
	m.screen = screenIdle
	m.popup = nil
}

func (m *Model) retrySync() {
	if err := m.sync.Retry(); err != nil {
		m.setFlash(fmt.Sprintf("Retry not possible: %v", err))
		return
	}
	m.setFlash("Retrying score submission...")
}

func (m *Model) handleCardEvent(ev card.Event) {
	switch ev.Type {
	case card.CardConnected:
		m.setFlash(fmt.Sprintf("Card %s connected.", ev.CardID))
	case card.CardDisconnected:
		m.setFlash("Card removed.")
	case card.ReaderConnected:
		m.setFlash("Card reader connected.")
	case card.ReaderDisconnected:
		m.setFlash("Card reader disconnected.")
	}
}

func (m *Model) handleSyncEvent(ev resultsync.Event) {
	if ev.Kind != resultsync.EventOutcome || ev.Outcome == nil {
		return
	}
	m.setFlash(outcomeText(*ev.Outcome))
}

func (m *Model) setFlash(text string) {
	m.flash = text
	m.flashUntil = m.now().Add(flashDuration)
}

// View implements tea.Model.
func (m *Model) View() string {
	var body string
	switch m.screen {
	case screenPlaying:
		body = m.viewPlaying()
	case screenResults:
		body = m.viewResults()
	default:
		body = m.viewIdle()
	}
	if m.width == 0 || m.height == 0 {
		return body + "\n" + m.renderFooter()
	}
	footer := m.renderFooter()
	if footer == "" || m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, body)
	}
	content := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, body)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return content + "\n" + footerLine
}

func (m *Model) viewIdle() string {
	lines := []string{
		titleStyle.Render("Spot the seven errors"),
		mutedStyle.Render(m.scene.Name),
		"",
		"Press Enter to start.",
		"",
		m.renderCardLine(),
	}
	lines = append(lines, m.renderSyncLines()...)
	lines = append(lines, m.renderMessageLines()...)
	lines = append(lines, "", mutedStyle.Render(m.idleHelp()))
	return strings.Join(lines, "\n")
}

func (m *Model) idleHelp() string {
	help := "enter start · r retry sync · f refresh card · q quit"
	if m.demoCard != "" {
		help += " · c tap demo card · d remove card"
	}
	return help
}

func (m *Model) viewPlaying() string {
	state := m.session.State()
	found := m.session.IsFound
	left := renderPanel(m.scene, "Original", panelState{found: found})
	cursor := m.cursor
	right := renderPanel(m.scene, "Find the errors", panelState{
		modified: true,
		found:    found,
		misses:   m.misses,
		cursor:   &cursor,
	})
	panels := lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right)
	lines := []string{m.renderStatus(state), panels}
	if m.popup != nil && m.now().Before(m.popupUntil) {
		lines = append(lines, popupStyle.Render(valueStyle.Render(m.popup.Title)+"\n"+m.popup.Message))
	}
	lines = append(lines, m.renderMessageLines()...)
	lines = append(lines, mutedStyle.Render("arrows/hjkl move · enter select"))
	return strings.Join(lines, "\n")
}

func (m *Model) renderStatus(state model.SessionState) string {
	cfg := m.session.Config()
	segments := []string{
		fmt.Sprintf("Time %s", formatClock(state.RemainingTime)),
		fmt.Sprintf("Found %d/%d", state.ErrorsFound, cfg.TotalErrors),
	}
	misses := fmt.Sprintf("Misses %d/%d", state.WrongAttempts, cfg.MaxWrongAttempts)
	if state.WrongAttempts > 0 {
		misses = warnStyle.Render(misses)
	}
	segments = append(segments, misses)
	return strings.Join(segments, "   ")
}

func (m *Model) viewResults() string {
	result, ok := m.session.Result()
	if !ok {
		return ""
	}
	cfg := m.session.Config()
	lines := []string{
		titleStyle.Render(m.messages.ForCause(result.EndCause)),
		"",
		fmt.Sprintf("Errors found: %d/%d", result.ErrorsFound, cfg.TotalErrors),
	}
	if result.EndCause == model.EndCompleted {
		lines = append(lines, fmt.Sprintf("Time remaining: %s", formatClock(result.TimeRemaining)))
	} else if result.EndCause == model.EndTimedOut {
		lines = append(lines, "Time is up!")
	}
	lines = append(lines,
		"",
		renderScore("This game", result.Score),
	)
	snap := m.sync.Snapshot()
	if snap.Attributes != nil {
		lines = append(lines, renderScore("Card total", model.ScoreTriple{
			Empathy:        snap.Attributes.Empathy,
			Creativity:     snap.Attributes.Creativity,
			ProblemSolving: snap.Attributes.ProblemSolving,
		}))
	}
	lines = append(lines, "", m.renderCardLine())
	lines = append(lines, m.renderSyncLines()...)
	lines = append(lines, m.renderMessageLines()...)
	secs := int((m.resultsLeft + time.Second - 1) / time.Second)
	if secs < 0 {
		secs = 0
	}
	lines = append(lines, "", mutedStyle.Render(fmt.Sprintf("enter play again · esc back · r retry sync · back to start in %ds", secs)))
	return strings.Join(lines, "\n")
}

func renderScore(label string, s model.ScoreTriple) string {
	return fmt.Sprintf("%-10s  Empathy %s  Creativity %s  Problem solving %s",
		label,
		valueStyle.Render(fmt.Sprintf("%d", s.Empathy)),
		valueStyle.Render(fmt.Sprintf("%d", s.Creativity)),
		valueStyle.Render(fmt.Sprintf("%d", s.ProblemSolving)),
	)
}

func (m *Model) renderCardLine() string {
	snap := m.registry.Snapshot()
	reader := "not connected"
	if snap.ReaderConnected {
		reader = "connected"
		if snap.Card.ReaderName != "" {
			reader = snap.Card.ReaderName
		}
	}
	cardText := "none"
	switch {
	case snap.Card.Connected:
		cardText = snap.Card.ID
	case snap.Card.LastKnownID != "":
		cardText = fmt.Sprintf("%s (removed)", snap.Card.LastKnownID)
	}
	return mutedStyle.Render(fmt.Sprintf("Reader: %s   Card: %s", reader, cardText))
}

func (m *Model) renderSyncLines() []string {
	snap := m.sync.Snapshot()
	switch {
	case snap.InFlight:
		return []string{m.spinner.View() + " Sending score..."}
	case snap.Pending != nil:
		return []string{m.spinner.View() + " " + m.messages.WaitingCard}
	case snap.LastOutcome != nil:
		text := outcomeText(*snap.LastOutcome)
		if snap.LastOutcome.Status != model.DeliveryDelivered {
			text = warnStyle.Render(text)
		}
		return []string{text}
	default:
		return nil
	}
}

func (m *Model) renderMessageLines() []string {
	var lines []string
	if m.flash != "" && m.now().Before(m.flashUntil) {
		lines = append(lines, mutedStyle.Render(m.flash))
	}
	if m.errMsg != "" {
		lines = append(lines, warnStyle.Render(m.errMsg))
	}
	return lines
}

func outcomeText(o model.Outcome) string {
	switch o.Status {
	case model.DeliveryDelivered:
		return fmt.Sprintf("Score saved for card %s.", o.CardID)
	case model.DeliveryRejected:
		return fmt.Sprintf("Card %s is not registered on the server.", o.CardID)
	default:
		return "Could not reach the server. Press r to retry."
	}
}

func (m *Model) loadFooterStats() {
	if m.store == nil {
		return
	}
	records, err := m.store.ListResults(context.Background(), model.HistoryConfig{})
	if err != nil {
		m.log.Error().Err(err).Msg("failed to load result history")
		return
	}
	for _, rec := range records {
		m.addToTotals(rec.Result)
	}
}

func (m *Model) addToTotals(r model.Result) {
	m.played++
	m.totalFound += r.ErrorsFound
	if r.ErrorsFound > m.bestFound {
		m.bestFound = r.ErrorsFound
	}
	last := r
	m.last = &last
}

func (m *Model) renderFooter() string {
	total := m.session.Config().TotalErrors
	segments := []string{}
	if m.last != nil {
		segments = append(segments, fmt.Sprintf("Last %d/%d", m.last.ErrorsFound, total))
	}
	if m.played > 0 {
		avg := float64(m.totalFound) / float64(m.played)
		segments = append(segments,
			fmt.Sprintf("Best %d/%d", m.bestFound, total),
			fmt.Sprintf("Avg %.1f", avg),
			fmt.Sprintf("Played %d", m.played),
		)
	}
	if len(segments) == 0 {
		return ""
	}
	return footerStyle.Render(strings.Join(segments, "  "))
}

func formatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
