// Package score maps a session's errors found to skill values.
package score

import "github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/model"

// Band names the score band a result falls into.
type Band string

const (
	BandHigh   Band = "high"
	BandMedium Band = "medium"
	BandLow    Band = "low"
)

// BandFor returns the band for errorsFound. Thresholds are compared in
// descending order; their ordering is not validated.
func BandFor(errorsFound int, cfg model.ScoreConfig) Band {
	switch {
	case errorsFound >= cfg.HighThreshold:
		return BandHigh
	case errorsFound >= cfg.MediumThreshold:
		return BandMedium
	default:
		return BandLow
	}
}

// Calculate returns the skill values for errorsFound.
func Calculate(errorsFound int, cfg model.ScoreConfig) model.ScoreTriple {
	switch BandFor(errorsFound, cfg) {
	case BandHigh:
		return cfg.High
	case BandMedium:
		return cfg.Medium
	default:
		return cfg.Low
	}
}
