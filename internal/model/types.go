// Package model defines shared data structures.
package model

import "time"

// Game defaults used when the config file leaves a value unset.
const (
	DefaultTimeLimit        = 120 * time.Second
	DefaultTotalErrors      = 7
	DefaultMaxWrongAttempts = 3
	DefaultHighThreshold    = 5
	DefaultMediumThreshold  = 2
)

// GameID identifies this game on the identity server.
const GameID = 3

// ScoreTriple holds the three skill values credited to a card.
type ScoreTriple struct {
	Empathy        int
	Creativity     int
	ProblemSolving int
}

// ScoreConfig defines score thresholds and bands.
type ScoreConfig struct {
	HighThreshold   int
	MediumThreshold int
	High            ScoreTriple
	Medium          ScoreTriple
	Low             ScoreTriple
}

// GameConfig defines session budgets and scoring. It is loaded once and not
// mutated afterwards.
type GameConfig struct {
	TimeLimit        time.Duration
	TotalErrors      int
	MaxWrongAttempts int
	Scoring          ScoreConfig
}

// DefaultScoreConfig returns the stock thresholds and bands.
func DefaultScoreConfig() ScoreConfig {
	return ScoreConfig{
		HighThreshold:   DefaultHighThreshold,
		MediumThreshold: DefaultMediumThreshold,
		High:            ScoreTriple{Empathy: 8, Creativity: 7, ProblemSolving: 6},
		Medium:          ScoreTriple{Empathy: 7, Creativity: 6, ProblemSolving: 5},
		Low:             ScoreTriple{Empathy: 6, Creativity: 5, ProblemSolving: 4},
	}
}

// DefaultGameConfig returns the stock game configuration.
func DefaultGameConfig() GameConfig {
	return GameConfig{
		TimeLimit:        DefaultTimeLimit,
		TotalErrors:      DefaultTotalErrors,
		MaxWrongAttempts: DefaultMaxWrongAttempts,
		Scoring:          DefaultScoreConfig(),
	}
}

// Phase is the lifecycle position of a game session.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseRunning Phase = "running"
	PhaseEnded   Phase = "ended"
)

// EndCause is the reason a session ended. Exactly one is recorded per session.
type EndCause string

const (
	EndNone                 EndCause = ""
	EndCompleted            EndCause = "completed"
	EndTimedOut             EndCause = "timed_out"
	EndTooManyWrongAttempts EndCause = "too_many_wrong_attempts"
)

// SessionState is a read-only view of a session.
type SessionState struct {
	ID            string
	Phase         Phase
	RemainingTime time.Duration
	ErrorsFound   int
	WrongAttempts int
	EndCause      EndCause
}

// Result is the immutable outcome of a finished session.
type Result struct {
	SessionID     string
	ErrorsFound   int
	WrongAttempts int
	TimeRemaining time.Duration
	EndCause      EndCause
	Score         ScoreTriple
	StartedAt     time.Time
	EndedAt       time.Time
}

// CardToken describes the card currently (or last) seen by the reader.
type CardToken struct {
	ID          string
	ReaderName  string
	Connected   bool
	LastKnownID string
}

// CardAttributes are the accumulated skill totals stored for a card.
type CardAttributes struct {
	NfcID          string
	Empathy        int
	Creativity     int
	ProblemSolving int
}

// DeliveryStatus classifies a submission attempt.
type DeliveryStatus string

const (
	DeliveryDelivered  DeliveryStatus = "delivered"
	DeliveryRejected   DeliveryStatus = "rejected"
	DeliveryIncomplete DeliveryStatus = "incomplete"
)

// Outcome records one delivery attempt of a result.
type Outcome struct {
	SessionID   string
	CardID      string
	Status      DeliveryStatus
	StatusCode  int
	Err         string
	Buffered    bool
	AttemptedAt time.Time
}

// HistoryConfig defines filters for the result journal.
type HistoryConfig struct {
	Since  *time.Time
	Last   int
	Cause  EndCause
	Window int
	// Scoring places the band thresholds on the errors-found curve.
	Scoring ScoreConfig
}

// ResultRecord is a journaled result.
type ResultRecord struct {
	ID     int64
	Result Result
}

// DeliveryRecord is a journaled delivery attempt.
type DeliveryRecord struct {
	ID      int64
	Outcome Outcome
}
