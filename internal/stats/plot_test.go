package stats

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/model"
)

func TestPlotCurveAxisStartsAtZero(t *testing.T) {
	var buf bytes.Buffer
	err := PlotCurve(&buf, Curve{Title: "Found", Values: []float64{2, 4, 7}}, 10, 3, false)
	if err != nil {
		t.Fatalf("PlotCurve failed: %v", err)
	}
	lines := strings.Split(buf.String(), "\n")
	if len(lines) < 5 {
		t.Fatalf("unexpected output: %q", buf.String())
	}
	if lines[0] != "Found" {
		t.Fatalf("expected title first, got %q", lines[0])
	}
	for i, want := range []string{"7 │", "3.5 │", "0 │"} {
		if !strings.HasPrefix(strings.TrimSpace(lines[i+1]), want) {
			t.Fatalf("row %d: expected prefix %q, got %q", i, want, lines[i+1])
		}
	}
	if !strings.Contains(lines[4], "latest 7  peak 7  sessions 3") {
		t.Fatalf("unexpected footer %q", lines[4])
	}
}

func TestPlotCurveDrawsGuides(t *testing.T) {
	var buf bytes.Buffer
	err := PlotCurve(&buf, Curve{Values: []float64{0, 0, 0}, Guides: []float64{0, 5}}, 10, 4, false)
	if err != nil {
		t.Fatalf("PlotCurve failed: %v", err)
	}
	lines := strings.Split(buf.String(), "\n")
	top := []rune(strings.SplitN(lines[0], axisSeparator, 2)[1])
	if strings.TrimSpace(strings.SplitN(lines[0], axisSeparator, 2)[0]) != "5" {
		t.Fatalf("expected the guide to set the axis top, got %q", lines[0])
	}
	if top[0] != '⠁' || top[1] != '⠀' || top[2] != '⠁' {
		t.Fatalf("expected a dotted rule on the top row, got %q", string(top))
	}
	bottom := []rune(strings.SplitN(lines[3], axisSeparator, 2)[1])
	for i, r := range bottom {
		if r == '⠀' {
			t.Fatalf("expected the flat curve along the bottom row, blank at %d: %q", i, string(bottom))
		}
	}
}

func TestPlotCurveEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := PlotCurve(&buf, Curve{Title: "Nothing"}, 10, 3, false); err != nil {
		t.Fatalf("PlotCurve failed: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestResample(t *testing.T) {
	cases := []struct {
		in    []float64
		width int
		want  []float64
	}{
		{[]float64{1, 3}, 3, []float64{1, 2, 3}},
		{[]float64{1, 2, 3, 4}, 2, []float64{1.5, 3.5}},
		{[]float64{4}, 3, []float64{4, 4, 4}},
	}
	for _, tc := range cases {
		got := resample(tc.in, tc.width)
		if len(got) != len(tc.want) {
			t.Fatalf("resample(%v, %d) = %v", tc.in, tc.width, got)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("resample(%v, %d) = %v, want %v", tc.in, tc.width, got, tc.want)
			}
		}
	}
}

func TestRenderCurvesUsesScoring(t *testing.T) {
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	var records []model.ResultRecord
	for i, found := range []int{1, 3, 6} {
		records = append(records, model.ResultRecord{ID: int64(i + 1), Result: model.Result{
			SessionID:     string(rune('a' + i)),
			ErrorsFound:   found,
			TimeRemaining: time.Duration(10*i) * time.Second,
			EndedAt:       base.Add(time.Duration(i) * time.Minute),
		}})
	}
	cfg := model.HistoryConfig{Window: 1, Scoring: model.DefaultScoreConfig()}
	var buf bytes.Buffer
	if err := RenderCurvesWithSize(&buf, records, cfg, 40, 8, false); err != nil {
		t.Fatalf("RenderCurvesWithSize failed: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Errors Found", "Time Left (s)", "latest 6  peak 6  sessions 3", "latest 20  peak 20"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}
