// Package session implements the game session state machine.
package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/model"
	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/score"
)

var (
	// ErrNotIdle is returned by Start when the session has not been reset.
	ErrNotIdle = errors.New("session is not idle")
	// ErrInvalidConfig is returned by New for budgets that cannot start a session.
	ErrInvalidConfig = errors.New("invalid game config")
)

// Sink receives session lifecycle notifications.
type Sink interface {
	SessionStarted(id string)
	SessionEnded(result model.Result)
}

// Sinks fans notifications out to several sinks in order.
type Sinks []Sink

// SessionStarted implements Sink.
func (s Sinks) SessionStarted(id string) {
	for _, sink := range s {
		if sink != nil {
			sink.SessionStarted(id)
		}
	}
}

// SessionEnded implements Sink.
func (s Sinks) SessionEnded(result model.Result) {
	for _, sink := range s {
		if sink != nil {
			sink.SessionEnded(result)
		}
	}
}

// Option configures a Session.
type Option func(*Session)

// WithNow overrides the wall clock used for result timestamps.
func WithNow(now func() time.Time) Option {
	return func(s *Session) {
		s.now = now
	}
}

// WithIDFunc overrides session id generation.
func WithIDFunc(newID func() string) Option {
	return func(s *Session) {
		s.newID = newID
	}
}

// Session owns one play-through: Idle -> Running -> Ended.
// It is not safe for concurrent use; drive it from a single loop.
type Session struct {
	cfg      model.GameConfig
	sink     Sink
	clock    *Clock
	progress *Progress

	id        string
	phase     model.Phase
	cause     model.EndCause
	startedAt time.Time
	result    *model.Result

	now   func() time.Time
	newID func() string
}

// New returns an idle session for cfg. sink may be nil.
func New(cfg model.GameConfig, sink Sink, opts ...Option) (*Session, error) {
	if cfg.TimeLimit <= 0 {
		return nil, fmt.Errorf("%w: time limit must be > 0", ErrInvalidConfig)
	}
	if cfg.TotalErrors <= 0 {
		return nil, fmt.Errorf("%w: total errors must be > 0", ErrInvalidConfig)
	}
	if cfg.MaxWrongAttempts <= 0 {
		return nil, fmt.Errorf("%w: max wrong attempts must be > 0", ErrInvalidConfig)
	}
	s := &Session{
		cfg:      cfg,
		sink:     sink,
		clock:    NewClock(cfg.TimeLimit),
		progress: NewProgress(cfg.TotalErrors, cfg.MaxWrongAttempts),
		phase:    model.PhaseIdle,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Config returns the game configuration.
func (s *Session) Config() model.GameConfig {
	return s.cfg
}

// Start moves an idle session to Running and returns the new session id.
func (s *Session) Start() (string, error) {
	if s.phase != model.PhaseIdle {
		return "", ErrNotIdle
	}
	s.progress.Reset()
	s.clock.Reset()
	s.id = s.newID()
	s.cause = model.EndNone
	s.result = nil
	s.startedAt = s.now()
	s.phase = model.PhaseRunning
	if s.sink != nil {
		s.sink.SessionStarted(s.id)
	}
	return s.id, nil
}

// Reset discards the current session and returns to Idle.
func (s *Session) Reset() {
	s.progress.Reset()
	s.clock.Reset()
	s.id = ""
	s.cause = model.EndNone
	s.result = nil
	s.startedAt = time.Time{}
	s.phase = model.PhaseIdle
}

// ErrorFound records error index as found. It returns true when the count
// changed. Signals outside Running, repeated and out-of-range indices are
// ignored.
func (s *Session) ErrorFound(index int) bool {
	if s.phase != model.PhaseRunning {
		return false
	}
	if !s.progress.FoundError(index) {
		return false
	}
	if s.progress.AllFound() {
		s.end(model.EndCompleted)
	}
	return true
}

// WrongAttempt records a wrong click. It returns true when the count changed.
func (s *Session) WrongAttempt() bool {
	if s.phase != model.PhaseRunning {
		return false
	}
	s.progress.WrongAttempt()
	if s.progress.MaxWrongReached() {
		s.end(model.EndTooManyWrongAttempts)
	}
	return true
}

// Tick advances the clock by dt. Count-based end conditions are checked first
// so they take precedence over a timeout in the same tick.
func (s *Session) Tick(dt time.Duration) {
	if s.phase != model.PhaseRunning {
		return
	}
	switch {
	case s.progress.AllFound():
		s.end(model.EndCompleted)
		return
	case s.progress.MaxWrongReached():
		s.end(model.EndTooManyWrongAttempts)
		return
	}
	s.clock.Advance(dt)
	if s.clock.Expired() {
		s.end(model.EndTimedOut)
	}
}

// IsFound reports whether error index was found in the current session.
func (s *Session) IsFound(index int) bool {
	return s.progress.IsFound(index)
}

// ID returns the current session id, empty while idle.
func (s *Session) ID() string {
	return s.id
}

// Phase returns the current phase.
func (s *Session) Phase() model.Phase {
	return s.phase
}

// State returns a snapshot of the session.
func (s *Session) State() model.SessionState {
	return model.SessionState{
		ID:            s.id,
		Phase:         s.phase,
		RemainingTime: s.clock.Remaining(),
		ErrorsFound:   s.progress.ErrorsFound(),
		WrongAttempts: s.progress.WrongAttempts(),
		EndCause:      s.cause,
	}
}

// Result returns the session result once the session has ended.
func (s *Session) Result() (model.Result, bool) {
	if s.result == nil {
		return model.Result{}, false
	}
	return *s.result, true
}

func (s *Session) end(cause model.EndCause) {
	if s.phase != model.PhaseRunning {
		return
	}
	s.phase = model.PhaseEnded
	s.cause = cause

	remaining := s.clock.Remaining()
	if cause == model.EndTimedOut {
		remaining = 0
	}
	found := s.progress.ErrorsFound()
	s.result = &model.Result{
		SessionID:     s.id,
		ErrorsFound:   found,
		WrongAttempts: s.progress.WrongAttempts(),
		TimeRemaining: remaining,
		EndCause:      cause,
		Score:         score.Calculate(found, s.cfg.Scoring),
		StartedAt:     s.startedAt,
		EndedAt:       s.now(),
	}
	if s.sink != nil {
		s.sink.SessionEnded(*s.result)
	}
}
