// Package resultsync delivers finished session results to the identity server.
package resultsync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/card"
	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/identity"
	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/model"
)

var (
	// ErrNothingToRetry is returned by Retry when no result is buffered or was
	// ever attempted.
	ErrNothingToRetry = errors.New("no submission to retry")
	// ErrNoCard is returned by Retry when no card id is known.
	ErrNoCard = errors.New("no card id available")
	// ErrInFlight is returned by Retry while a delivery is running.
	ErrInFlight = errors.New("delivery already in flight")
)

// Client is the identity server contract used by the service.
type Client interface {
	Register(ctx context.Context, id string) (int, error)
	SubmitScore(ctx context.Context, payload identity.ScorePayload) (int, error)
	FetchAttributes(ctx context.Context, id string) (*model.CardAttributes, error)
}

// RetryPolicy decides what happens to a result whose delivery was incomplete.
type RetryPolicy string

const (
	// RetryManual keeps an incomplete result for an explicit Retry only.
	RetryManual RetryPolicy = "manual"
	// RetryOnNextConnect re-buffers an incomplete result so the next card
	// connection flushes it.
	RetryOnNextConnect RetryPolicy = "next-connect"
)

// ParseRetryPolicy validates a policy name. Empty selects RetryManual.
func ParseRetryPolicy(value string) (RetryPolicy, error) {
	switch RetryPolicy(strings.ToLower(strings.TrimSpace(value))) {
	case "", RetryManual:
		return RetryManual, nil
	case RetryOnNextConnect:
		return RetryOnNextConnect, nil
	default:
		return "", fmt.Errorf("unknown retry policy %q (want %q or %q)", value, RetryManual, RetryOnNextConnect)
	}
}

// EventKind identifies a service notification.
type EventKind string

const (
	EventBuffered   EventKind = "buffered"
	EventDelivering EventKind = "delivering"
	EventOutcome    EventKind = "outcome"
	EventAttributes EventKind = "attributes"
)

// Event is delivered to listeners after the service state has changed.
type Event struct {
	Kind       EventKind
	SessionID  string
	Outcome    *model.Outcome
	Attributes *model.CardAttributes
}

// Listener handles service events.
type Listener func(Event)

// Options configures a Service.
type Options struct {
	GameID         int
	RetryPolicy    RetryPolicy
	FetchOnConnect bool
	Logger         zerolog.Logger
	// Executor runs background work. Nil runs each job on its own goroutine.
	Executor func(func())
	Now      func() time.Time
}

// Snapshot is a read-only view of the service.
type Snapshot struct {
	Pending       *model.Result
	InFlight      bool
	LastOutcome   *model.Outcome
	LastScoreSent *model.ScoreTriple
	Attributes    *model.CardAttributes
}

type subscription struct {
	key string
	fn  Listener
}

// Service submits results for the card known to the registry, buffering the
// most recent result while no card is available.
type Service struct {
	client   Client
	registry *card.Registry
	opts     Options
	log      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu            sync.Mutex
	pending       *model.Result
	drain         bool
	inFlight      bool
	last          *model.Result
	lastOutcome   *model.Outcome
	lastScoreSent *model.ScoreTriple
	attributes    *model.CardAttributes
	closed        bool
	listeners     []subscription

	unsubscribe func()
}

// New creates a service and subscribes it to registry events.
func New(client Client, registry *card.Registry, opts Options) *Service {
	if opts.GameID == 0 {
		opts.GameID = model.GameID
	}
	if opts.RetryPolicy == "" {
		opts.RetryPolicy = RetryManual
	}
	if opts.Executor == nil {
		opts.Executor = func(f func()) { go f() }
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Service{
		client:   client,
		registry: registry,
		opts:     opts,
		log:      opts.Logger.With().Str("component", "resultsync").Logger(),
		ctx:      ctx,
		cancel:   cancel,
	}
	s.unsubscribe = registry.Subscribe("resultsync", s.handleCardEvent)
	return s
}

// Close stops listening for card events, cancels outstanding calls and waits
// for running jobs to return.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.unsubscribe()
	s.cancel()
	s.wg.Wait()
}

// OnEvent registers fn under key. Registering again under the same key
// replaces the previous listener. The returned function removes it.
func (s *Service) OnEvent(key string, fn Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.listeners {
		if s.listeners[i].key == key {
			s.listeners[i].fn = fn
			return func() { s.removeListener(key) }
		}
	}
	s.listeners = append(s.listeners, subscription{key: key, fn: fn})
	return func() { s.removeListener(key) }
}

func (s *Service) removeListener(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.listeners {
		if s.listeners[i].key == key {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return
		}
	}
}

// SessionStarted clears the registration latch so the next delivery
// registers the card again.
func (s *Service) SessionStarted(_ string) {
	s.registry.ResetLatch()
}

// SessionEnded submits the finished session's result.
func (s *Service) SessionEnded(result model.Result) {
	s.Submit(result)
}

// Submit delivers result in the background when a card id is known and
// buffers it otherwise. It reports whether a delivery was started. Either way
// result supersedes any earlier buffered one.
func (s *Service) Submit(result model.Result) bool {
	id, ok := s.registry.UsableID()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	if !ok || s.inFlight {
		r := result
		s.pending = &r
		s.drain = ok
		s.mu.Unlock()
		if ok {
			s.log.Info().Str("session", result.SessionID).Msg("delivery in flight; result queued")
		} else {
			s.log.Info().Str("session", result.SessionID).Msg("no card available; result buffered until a card connects")
		}
		s.emit(Event{Kind: EventBuffered, SessionID: result.SessionID})
		return false
	}
	stale := s.pending
	s.pending = nil
	s.drain = false
	s.inFlight = true
	s.mu.Unlock()

	if stale != nil {
		s.log.Info().Str("session", stale.SessionID).Str("superseded_by", result.SessionID).Msg("dropping older buffered result")
	}
	s.dispatch(func() {
		s.deliver(id, result, false)
	})
	return true
}

// Retry delivers the most recent result using the connected or last known
// card id: the buffered one when present, otherwise the last attempted one.
func (s *Service) Retry() error {
	id, ok := s.registry.UsableID()

	s.mu.Lock()
	if s.last == nil && s.pending == nil {
		s.mu.Unlock()
		return ErrNothingToRetry
	}
	if !ok {
		s.mu.Unlock()
		return ErrNoCard
	}
	if s.inFlight {
		s.mu.Unlock()
		return ErrInFlight
	}
	result := s.last
	if s.pending != nil {
		result = s.pending
	}
	retry := *result
	s.pending = nil
	s.drain = false
	s.inFlight = true
	s.mu.Unlock()

	s.log.Info().Str("card", id).Str("session", retry.SessionID).Msg("retrying submission")
	s.dispatch(func() {
		s.deliver(id, retry, false)
	})
	return nil
}

// Refresh fetches the attributes of the connected card in the background.
func (s *Service) Refresh() {
	snap := s.registry.Snapshot()
	if !snap.Card.Connected {
		s.log.Warn().Msg("no card connected; attributes not refreshed")
		return
	}
	id := snap.Card.ID
	s.dispatch(func() {
		s.fetchAttributes(id)
	})
}

// Snapshot returns the current service state.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{InFlight: s.inFlight}
	if s.pending != nil {
		r := *s.pending
		snap.Pending = &r
	}
	if s.lastOutcome != nil {
		o := *s.lastOutcome
		snap.LastOutcome = &o
	}
	if s.lastScoreSent != nil {
		sc := *s.lastScoreSent
		snap.LastScoreSent = &sc
	}
	if s.attributes != nil {
		a := *s.attributes
		snap.Attributes = &a
	}
	return snap
}

func (s *Service) handleCardEvent(ev card.Event) {
	switch ev.Type {
	case card.CardConnected:
		s.dispatch(func() {
			s.onConnected(ev.CardID)
		})
	case card.CardDisconnected:
		s.mu.Lock()
		s.attributes = nil
		s.mu.Unlock()
		s.log.Info().Str("card", ev.CardID).Msg("card disconnected")
	}
}

func (s *Service) onConnected(id string) {
	s.log.Info().Str("card", id).Msg("card connected")
	if s.opts.FetchOnConnect {
		s.ensureRegistration()
		s.fetchAttributes(id)
	}
	s.flush()
}

// flush delivers the buffered result, if any, unless a delivery is running.
func (s *Service) flush() {
	id, ok := s.registry.UsableID()

	s.mu.Lock()
	if s.pending == nil || s.inFlight || s.closed || !ok {
		s.mu.Unlock()
		return
	}
	result := *s.pending
	s.pending = nil
	s.drain = false
	s.inFlight = true
	s.mu.Unlock()

	s.log.Info().Str("card", id).Str("session", result.SessionID).Msg("flushing buffered result")
	s.deliver(id, result, true)
}

func (s *Service) deliver(id string, result model.Result, buffered bool) {
	s.emit(Event{Kind: EventDelivering, SessionID: result.SessionID})
	s.ensureRegistration()

	payload := identity.NewScorePayload(id, s.opts.GameID, result.Score)
	code, err := s.client.SubmitScore(s.ctx, payload)
	outcome := model.Outcome{
		SessionID:   result.SessionID,
		CardID:      id,
		Status:      classify(code, err),
		StatusCode:  code,
		Buffered:    buffered,
		AttemptedAt: s.opts.Now(),
	}
	if err != nil {
		outcome.Err = err.Error()
	}

	switch outcome.Status {
	case model.DeliveryDelivered:
		s.log.Info().Str("card", id).Str("session", result.SessionID).Int("status", code).
			Int("skill1", payload.Skill1).Int("skill2", payload.Skill2).Int("skill3", payload.Skill3).
			Msg("score delivered")
	case model.DeliveryRejected:
		s.log.Warn().Str("card", id).Str("session", result.SessionID).Int("status", code).
			Msg("card not authorized; it must be provisioned on the server")
	default:
		if err != nil {
			s.log.Error().Err(err).Str("card", id).Str("session", result.SessionID).Msg("score delivery failed")
		} else {
			s.log.Warn().Str("card", id).Str("session", result.SessionID).Int("status", code).Msg("unexpected status from score submission")
		}
	}

	s.mu.Lock()
	s.inFlight = false
	r := result
	s.last = &r
	sc := result.Score
	s.lastScoreSent = &sc
	o := outcome
	s.lastOutcome = &o
	if outcome.Status == model.DeliveryIncomplete && s.opts.RetryPolicy == RetryOnNextConnect && s.pending == nil {
		s.pending = &r
		s.drain = false
	}
	drain := s.pending != nil && s.drain
	s.mu.Unlock()

	s.emit(Event{Kind: EventOutcome, SessionID: result.SessionID, Outcome: &outcome})

	if outcome.Status == model.DeliveryDelivered {
		s.fetchAttributes(id)
	}
	if drain {
		s.flush()
	}
}

func (s *Service) ensureRegistration() {
	id, ok := s.registry.ClaimRegistration()
	if !ok {
		return
	}
	code, err := s.client.Register(s.ctx, id)
	if err != nil {
		s.log.Warn().Err(err).Str("card", id).Msg("card registration failed")
		return
	}
	if code < 200 || code > 299 {
		s.log.Warn().Str("card", id).Int("status", code).Msg("card registration returned non-success status")
		return
	}
	s.log.Debug().Str("card", id).Int("status", code).Msg("card registered")
}

func (s *Service) fetchAttributes(id string) {
	attrs, err := s.client.FetchAttributes(s.ctx, id)
	if err != nil {
		s.log.Error().Err(err).Str("card", id).Msg("failed to fetch card attributes")
		return
	}
	if attrs == nil {
		s.log.Warn().Str("card", id).Msg("server returned no attributes for card")
		return
	}
	s.mu.Lock()
	a := *attrs
	s.attributes = &a
	s.mu.Unlock()
	s.log.Info().Str("card", id).
		Int("empathy", attrs.Empathy).Int("creativity", attrs.Creativity).Int("problem_solving", attrs.ProblemSolving).
		Msg("card attributes updated")
	s.emit(Event{Kind: EventAttributes, Attributes: &a})
}

func (s *Service) dispatch(job func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()
	s.opts.Executor(func() {
		defer s.wg.Done()
		job()
	})
}

func (s *Service) emit(ev Event) {
	s.mu.Lock()
	listeners := make([]Listener, len(s.listeners))
	for i, sub := range s.listeners {
		listeners[i] = sub.fn
	}
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(ev)
	}
}

func classify(code int, err error) model.DeliveryStatus {
	if err != nil {
		return model.DeliveryIncomplete
	}
	switch code {
	case http.StatusOK, http.StatusCreated, http.StatusAccepted, http.StatusNoContent:
		return model.DeliveryDelivered
	case http.StatusForbidden:
		return model.DeliveryRejected
	default:
		return model.DeliveryIncomplete
	}
}
