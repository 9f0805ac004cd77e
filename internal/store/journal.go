package store

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/model"
)

const journalWriteTimeout = 5 * time.Second

// Journal records results and delivery outcomes as they happen. Write
// failures are logged and never surface to the caller.
type Journal struct {
	store *Store
	log   zerolog.Logger
}

// NewJournal wraps st for event-driven writes.
func NewJournal(st *Store, logger zerolog.Logger) *Journal {
	return &Journal{
		store: st,
		log:   logger.With().Str("component", "journal").Logger(),
	}
}

// SessionStarted is part of the session sink contract; starts are not journaled.
func (j *Journal) SessionStarted(string) {}

// SessionEnded journals the result.
func (j *Journal) SessionEnded(r model.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), journalWriteTimeout)
	defer cancel()
	if _, err := j.store.InsertResult(ctx, r); err != nil {
		j.log.Error().Err(err).Str("session", r.SessionID).Msg("failed to journal result")
		return
	}
	j.log.Debug().Str("session", r.SessionID).Str("cause", string(r.EndCause)).Msg("result journaled")
}

// RecordOutcome journals a delivery attempt.
func (j *Journal) RecordOutcome(o model.Outcome) {
	ctx, cancel := context.WithTimeout(context.Background(), journalWriteTimeout)
	defer cancel()
	if _, err := j.store.InsertDelivery(ctx, o); err != nil {
		j.log.Error().Err(err).Str("session", o.SessionID).Msg("failed to journal delivery")
	}
}
