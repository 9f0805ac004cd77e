package stats

import (
	"context"

	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/model"
	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/store"
)

// Report contains precomputed data for history rendering.
type Report struct {
	Results     []model.ResultRecord
	Latest      map[string]model.Outcome
	Undelivered []model.ResultRecord
}

// BuildReport loads and prepares data for history rendering.
func BuildReport(ctx context.Context, st *store.Store, cfg model.HistoryConfig) (Report, error) {
	results, err := st.ListResults(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	latest, err := st.LatestDeliveries(ctx, sessionIDs(results))
	if err != nil {
		return Report{}, err
	}
	return Report{
		Results:     results,
		Latest:      latest,
		Undelivered: SelectUndelivered(results, latest),
	}, nil
}

func sessionIDs(records []model.ResultRecord) []string {
	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.Result.SessionID
	}
	return ids
}
