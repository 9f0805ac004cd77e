package stats

import (
	"sort"

	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/model"
)

// CauseCount is the number of sessions that ended with Cause.
type CauseCount struct {
	Cause model.EndCause
	Count int
}

// CauseBreakdown counts sessions per end cause, most frequent first.
func CauseBreakdown(records []model.ResultRecord) []CauseCount {
	if len(records) == 0 {
		return nil
	}
	counts := map[model.EndCause]int{}
	for _, rec := range records {
		counts[rec.Result.EndCause]++
	}
	out := make([]CauseCount, 0, len(counts))
	for cause, n := range counts {
		out = append(out, CauseCount{Cause: cause, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count == out[j].Count {
			return out[i].Cause < out[j].Cause
		}
		return out[i].Count > out[j].Count
	})
	return out
}
