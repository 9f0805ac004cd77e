package store

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "nested", "journal.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() {
		if cerr := st.Close(); cerr != nil {
			t.Errorf("close: %v", cerr)
		}
	})
	return st
}

func testResult(id string, ended time.Time, cause model.EndCause, found int) model.Result {
	return model.Result{
		SessionID:     id,
		ErrorsFound:   found,
		WrongAttempts: 1,
		TimeRemaining: 42500 * time.Millisecond,
		EndCause:      cause,
		Score:         model.ScoreTriple{Empathy: 7, Creativity: 6, ProblemSolving: 5},
		StartedAt:     ended.Add(-time.Minute),
		EndedAt:       ended,
	}
}

func TestInsertAndListResults(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	inputs := []model.Result{
		testResult("a", base, model.EndCompleted, 7),
		testResult("b", base.Add(time.Hour), model.EndTimedOut, 3),
		testResult("c", base.Add(500*time.Millisecond), model.EndTooManyWrongAttempts, 1),
	}
	for _, r := range inputs {
		if _, err := st.InsertResult(ctx, r); err != nil {
			t.Fatalf("InsertResult: %v", err)
		}
	}

	records, err := st.ListResults(ctx, model.HistoryConfig{})
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}
	order := []string{records[0].Result.SessionID, records[1].Result.SessionID, records[2].Result.SessionID}
	if strings.Join(order, ",") != "a,c,b" {
		t.Fatalf("unexpected order: %v", order)
	}
	got := records[0].Result
	if got.TimeRemaining != 42500*time.Millisecond {
		t.Fatalf("unexpected remaining time: %v", got.TimeRemaining)
	}
	if got.Score != (model.ScoreTriple{Empathy: 7, Creativity: 6, ProblemSolving: 5}) {
		t.Fatalf("unexpected score: %+v", got.Score)
	}
	if !got.EndedAt.Equal(base) || got.EndCause != model.EndCompleted {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestListResultsFilters(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	for i, cause := range []model.EndCause{model.EndCompleted, model.EndTimedOut, model.EndCompleted, model.EndCompleted} {
		r := testResult(string(rune('a'+i)), base.Add(time.Duration(i)*time.Hour), cause, 7)
		if _, err := st.InsertResult(ctx, r); err != nil {
			t.Fatalf("InsertResult: %v", err)
		}
	}

	since := base.Add(90 * time.Minute)
	records, err := st.ListResults(ctx, model.HistoryConfig{Since: &since})
	if err != nil {
		t.Fatalf("ListResults since: %v", err)
	}
	if len(records) != 2 || records[0].Result.SessionID != "c" {
		t.Fatalf("unexpected since filter result: %+v", records)
	}

	records, err = st.ListResults(ctx, model.HistoryConfig{Last: 2, Cause: model.EndCompleted})
	if err != nil {
		t.Fatalf("ListResults last: %v", err)
	}
	if len(records) != 2 || records[0].Result.SessionID != "c" || records[1].Result.SessionID != "d" {
		t.Fatalf("unexpected last/cause filter result: %+v", records)
	}
}

func TestInsertResultDuplicateSession(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	r := testResult("dup", time.Now(), model.EndCompleted, 7)
	if _, err := st.InsertResult(ctx, r); err != nil {
		t.Fatalf("InsertResult: %v", err)
	}
	if _, err := st.InsertResult(ctx, r); err == nil {
		t.Fatalf("expected unique constraint error")
	}
}

func TestDeliveries(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	outcomes := []model.Outcome{
		{SessionID: "s1", CardID: "X", Status: model.DeliveryIncomplete, Err: "connection refused", AttemptedAt: base},
		{SessionID: "s1", CardID: "X", Status: model.DeliveryDelivered, StatusCode: 204, Buffered: true, AttemptedAt: base.Add(time.Minute)},
		{SessionID: "s2", CardID: "Y", Status: model.DeliveryRejected, StatusCode: 403, AttemptedAt: base.Add(2 * time.Minute)},
	}
	for _, o := range outcomes {
		if _, err := st.InsertDelivery(ctx, o); err != nil {
			t.Fatalf("InsertDelivery: %v", err)
		}
	}

	records, err := st.ListDeliveries(ctx, "s1")
	if err != nil {
		t.Fatalf("ListDeliveries: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 deliveries, got %d", len(records))
	}
	if records[0].Outcome.Err != "connection refused" || records[0].Outcome.Buffered {
		t.Fatalf("unexpected first delivery: %+v", records[0].Outcome)
	}
	if !records[1].Outcome.Buffered || records[1].Outcome.StatusCode != 204 {
		t.Fatalf("unexpected second delivery: %+v", records[1].Outcome)
	}

	latest, err := st.LatestDeliveries(ctx, []string{"s1", "s2", "none"})
	if err != nil {
		t.Fatalf("LatestDeliveries: %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(latest))
	}
	if latest["s1"].Status != model.DeliveryDelivered || latest["s2"].Status != model.DeliveryRejected {
		t.Fatalf("unexpected latest deliveries: %+v", latest)
	}
}

func TestJournalLogsWriteFailures(t *testing.T) {
	st := openTestStore(t)
	var buf bytes.Buffer
	j := NewJournal(st, zerolog.New(&buf))
	r := testResult("s1", time.Now(), model.EndCompleted, 7)
	j.SessionStarted("s1")
	j.SessionEnded(r)
	j.SessionEnded(r)
	j.RecordOutcome(model.Outcome{SessionID: "s1", CardID: "X", Status: model.DeliveryDelivered, AttemptedAt: time.Now()})

	records, err := st.ListResults(context.Background(), model.HistoryConfig{})
	if err != nil {
		t.Fatalf("ListResults: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 result, got %d", len(records))
	}
	if !strings.Contains(buf.String(), "failed to journal result") {
		t.Fatalf("expected duplicate write to be logged, got %q", buf.String())
	}
	deliveries, err := st.ListDeliveries(context.Background(), "s1")
	if err != nil {
		t.Fatalf("ListDeliveries: %v", err)
	}
	if len(deliveries) != 1 {
		t.Fatalf("expected 1 delivery, got %d", len(deliveries))
	}
}
