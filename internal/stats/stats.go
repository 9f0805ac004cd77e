// Package stats contains result history calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/model"
)

const sparkChars = " .:-=+*#%@"

const tableTimeLayout = "2006-01-02 15:04"

// Summary aggregates a slice of journaled results.
type Summary struct {
	Sessions     int
	Completed    int
	TimedOut     int
	TooManyWrong int
	BestFound    int
	AvgFound     float64
	AvgWrong     float64
	AvgPoints    float64
	AvgRemaining time.Duration
}

// CompletionRate is the share of sessions in which every error was found.
func (s Summary) CompletionRate() float64 {
	if s.Sessions == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Sessions)
}

// Points sums the three skill values of a score.
func Points(score model.ScoreTriple) int {
	return score.Empathy + score.Creativity + score.ProblemSolving
}

// Summarize computes the aggregate view of records.
func Summarize(records []model.ResultRecord) Summary {
	var sum Summary
	if len(records) == 0 {
		return sum
	}
	var found, wrong, points int
	var remaining time.Duration
	for _, rec := range records {
		r := rec.Result
		switch r.EndCause {
		case model.EndCompleted:
			sum.Completed++
		case model.EndTimedOut:
			sum.TimedOut++
		case model.EndTooManyWrongAttempts:
			sum.TooManyWrong++
		}
		if r.ErrorsFound > sum.BestFound {
			sum.BestFound = r.ErrorsFound
		}
		found += r.ErrorsFound
		wrong += r.WrongAttempts
		points += Points(r.Score)
		remaining += r.TimeRemaining
	}
	n := len(records)
	sum.Sessions = n
	sum.AvgFound = float64(found) / float64(n)
	sum.AvgWrong = float64(wrong) / float64(n)
	sum.AvgPoints = float64(points) / float64(n)
	sum.AvgRemaining = remaining / time.Duration(n)
	return sum
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// FoundSeries returns errors found per session, oldest first.
func FoundSeries(records []model.ResultRecord) []float64 {
	out := make([]float64, len(records))
	for i, rec := range records {
		out[i] = float64(rec.Result.ErrorsFound)
	}
	return out
}

// RemainingSeries returns seconds left on the clock per session.
func RemainingSeries(records []model.ResultRecord) []float64 {
	out := make([]float64, len(records))
	for i, rec := range records {
		out[i] = rec.Result.TimeRemaining.Seconds()
	}
	return out
}

// CauseLabel returns a short human label for an end cause.
func CauseLabel(c model.EndCause) string {
	switch c {
	case model.EndCompleted:
		return "completed"
	case model.EndTimedOut:
		return "timed out"
	case model.EndTooManyWrongAttempts:
		return "too many wrong"
	default:
		return "-"
	}
}

// DeliveryLabel describes the latest delivery attempt of a session.
func DeliveryLabel(o model.Outcome, ok bool) string {
	if !ok {
		return "unsent"
	}
	switch o.Status {
	case model.DeliveryDelivered:
		return "delivered"
	case model.DeliveryRejected:
		return fmt.Sprintf("rejected (%d)", o.StatusCode)
	case model.DeliveryIncomplete:
		if o.StatusCode != 0 {
			return fmt.Sprintf("incomplete (%d)", o.StatusCode)
		}
		return "incomplete"
	default:
		return string(o.Status)
	}
}

// RenderSummary prints a summary block for results.
func RenderSummary(w io.Writer, records []model.ResultRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	sum := Summarize(records)
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d", sum.Sessions),
		fmt.Sprintf("Completed: %d (%.1f%%)", sum.Completed, sum.CompletionRate()*100),
		fmt.Sprintf("Timed out: %d", sum.TimedOut),
		fmt.Sprintf("Too many wrong: %d", sum.TooManyWrong),
		fmt.Sprintf("Avg found: %.2f", sum.AvgFound),
		fmt.Sprintf("Best found: %d", sum.BestFound),
		fmt.Sprintf("Avg wrong: %.2f", sum.AvgWrong),
		fmt.Sprintf("Avg time left: %s", sum.AvgRemaining.Round(time.Second)),
		fmt.Sprintf("Avg points: %.2f", sum.AvgPoints),
		fmt.Sprintf("Trend: %s", Sparkline(FoundSeries(records))),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderCurves prints the errors-found and time-left curves, smoothed over
// cfg.Window sessions, with the score thresholds of cfg.Scoring as guides.
func RenderCurves(w io.Writer, records []model.ResultRecord, cfg model.HistoryConfig) error {
	return RenderCurvesWithSize(w, records, cfg, 0, defaultPlotHeight, false)
}

// RenderCurvesWithSize is RenderCurves fitted to totalWidth terminal cells.
func RenderCurvesWithSize(w io.Writer, records []model.ResultRecord, cfg model.HistoryConfig, totalWidth, height int, useColor bool) error {
	if len(records) == 0 {
		return nil
	}
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	found := Curve{
		Title:  "Errors Found",
		Values: MovingAverage(FoundSeries(records), cfg.Window),
		Guides: []float64{float64(cfg.Scoring.MediumThreshold), float64(cfg.Scoring.HighThreshold)},
	}
	if err := PlotCurve(w, found, width, height, useColor); err != nil {
		return err
	}
	left := Curve{
		Title:  "Time Left (s)",
		Values: MovingAverage(RemainingSeries(records), cfg.Window),
	}
	return PlotCurve(w, left, width, height, useColor)
}

// ResultRows formats records as table rows, newest first.
func ResultRows(records []model.ResultRecord, latest map[string]model.Outcome) [][]string {
	rows := make([][]string, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i].Result
		o, ok := latest[r.SessionID]
		rows = append(rows, []string{
			r.EndedAt.Local().Format(tableTimeLayout),
			fmt.Sprintf("%d", r.ErrorsFound),
			fmt.Sprintf("%d", r.WrongAttempts),
			fmt.Sprintf("%ds", int(r.TimeRemaining.Round(time.Second).Seconds())),
			CauseLabel(r.EndCause),
			fmt.Sprintf("%d/%d/%d", r.Score.Empathy, r.Score.Creativity, r.Score.ProblemSolving),
			DeliveryLabel(o, ok),
		})
	}
	return rows
}

// RenderResultTable prints one line per result with its latest delivery.
func RenderResultTable(w io.Writer, records []model.ResultRecord, latest map[string]model.Outcome) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	return writeTable(w, "Results", resultColumns, ResultRows(records, latest))
}

// RenderCauseTable prints how sessions ended.
func RenderCauseTable(w io.Writer, records []model.ResultRecord) error {
	counts := CauseBreakdown(records)
	if len(counts) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(counts))
	for _, c := range counts {
		rows = append(rows, []string{
			CauseLabel(c.Cause),
			fmt.Sprintf("%d", c.Count),
			fmt.Sprintf("%.1f%%", float64(c.Count)/float64(len(records))*100),
		})
	}
	return writeTable(w, "End Causes", causeColumns, rows)
}
