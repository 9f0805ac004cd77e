package stats

import (
	"github.com/Real-Games-Studio/FIRJAN-SeteErros/internal/model"
)

// SelectUndelivered returns the results whose latest delivery attempt did not
// reach the identity server, oldest first. Results never attempted count as
// undelivered.
func SelectUndelivered(records []model.ResultRecord, latest map[string]model.Outcome) []model.ResultRecord {
	var out []model.ResultRecord
	for _, rec := range records {
		o, ok := latest[rec.Result.SessionID]
		if ok && o.Status == model.DeliveryDelivered {
			continue
		}
		out = append(out, rec)
	}
	return out
}
