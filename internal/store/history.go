package store

import (
	"errors"
	"time"

	"github.com/i474232898/airport-weather/internal/weather"
)

var (
	// ErrNotFound is returned when a snapshot id does not exist.
	ErrNotFound = errors.New("snapshot not found")
)

const snapshotKeyLayout = "2006년 01월 02일(Mon) 15:04:05(KST)"

var kst = time.FixedZone("KST", 9*60*60)

// SnapshotKey is the unique key of a history batch: the first record's observation
// time, or the current KST time when the batch carries none.
func SnapshotKey(airports []weather.AirportSnapshot, now time.Time) string {
	if len(airports) > 0 && airports[0].Time != "" {
		return airports[0].Time
	}
	return now.In(kst).Format(snapshotKeyLayout)
}

// LatestRecord is the payload mirrored to the latest-snapshot stores.
type LatestRecord struct {
	Data           []weather.AirportSnapshot     `json:"data"`
	SpecialReports []weather.SpecialReportRecord `json:"special_reports"`
	UpdatedAt      time.Time                     `json:"updated_at"`
}

func newLatestRecord(snap weather.Snapshot, updatedAt time.Time) LatestRecord {
	rec := LatestRecord{
		Data:           snap.Airports,
		SpecialReports: snap.SpecialReports,
		UpdatedAt:      updatedAt.UTC(),
	}
	if rec.SpecialReports == nil {
		rec.SpecialReports = []weather.SpecialReportRecord{}
	}
	return rec
}
