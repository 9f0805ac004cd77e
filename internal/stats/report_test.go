package stats

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/model"
	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/store"
)

func TestBuildReport(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "seteerros.db")
	st, err := store.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	causes := []model.EndCause{model.EndCompleted, model.EndTimedOut, model.EndCompleted}
	ids := []string{"s0", "s1", "s2"}
	for i, id := range ids {
		end := base.Add(time.Duration(i) * time.Minute)
		r := model.Result{
			SessionID:     id,
			ErrorsFound:   3 + 2*i,
			WrongAttempts: i,
			TimeRemaining: time.Duration(10*i) * time.Second,
			EndCause:      causes[i],
			Score:         model.ScoreTriple{Empathy: 7, Creativity: 6, ProblemSolving: 5},
			StartedAt:     end.Add(-90 * time.Second),
			EndedAt:       end,
		}
		if _, err := st.InsertResult(ctx, r); err != nil {
			t.Fatalf("insert result: %v", err)
		}
	}
	if _, err := st.InsertDelivery(ctx, model.Outcome{SessionID: "s1", CardID: "X", Status: model.DeliveryIncomplete, AttemptedAt: base}); err != nil {
		t.Fatalf("insert delivery: %v", err)
	}
	if _, err := st.InsertDelivery(ctx, model.Outcome{SessionID: "s2", CardID: "X", Status: model.DeliveryDelivered, StatusCode: 204, AttemptedAt: base}); err != nil {
		t.Fatalf("insert delivery: %v", err)
	}

	report, err := BuildReport(ctx, st, model.HistoryConfig{Last: 2, Window: 2})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(report.Results))
	}
	if report.Results[0].Result.SessionID != "s1" || report.Results[1].Result.SessionID != "s2" {
		t.Fatalf("unexpected results: %+v", report.Results)
	}
	if len(report.Latest) != 2 {
		t.Fatalf("expected 2 latest deliveries, got %d", len(report.Latest))
	}
	if len(report.Undelivered) != 1 || report.Undelivered[0].Result.SessionID != "s1" {
		t.Fatalf("unexpected undelivered: %+v", report.Undelivered)
	}

	sum := Summarize(report.Results)
	if sum.Sessions != 2 || sum.Completed != 1 || sum.TimedOut != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if sum.BestFound != 7 || sum.AvgFound != 6 {
		t.Fatalf("unexpected found stats: %+v", sum)
	}
	if sum.AvgRemaining != 15*time.Second {
		t.Fatalf("unexpected avg remaining: %v", sum.AvgRemaining)
	}
	if sum.CompletionRate() != 0.5 {
		t.Fatalf("unexpected completion rate: %v", sum.CompletionRate())
	}

	var buf bytes.Buffer
	if err := RenderSummary(&buf, report.Results); err != nil {
		t.Fatalf("render summary: %v", err)
	}
	if !strings.Contains(buf.String(), "Completed: 1 (50.0%)") {
		t.Fatalf("unexpected summary output: %q", buf.String())
	}
}

func TestMovingAverage(t *testing.T) {
	got := MovingAverage([]float64{2, 4, 6, 8}, 2)
	want := []float64{2, 3, 5, 7}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("MovingAverage[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}
