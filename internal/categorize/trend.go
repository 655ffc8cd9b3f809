package categorize

import (
	"math"
	"time"

	"github.com/Veraticus/crypto-complaints/internal/model"
)

// TrendWindowDays is the width of each trend window.
const TrendWindowDays = 30

// ComputeTrend compares complaints received in the last 30 days (age 0 to 29 days
// relative to now) with the 30 days before that. Undated and future-dated
// complaints are left out of both windows.
func ComputeTrend(records []model.ComplaintRecord, now time.Time) model.Trend {
	today := dateOnly(now)

	var recent, previous int
	for _, r := range records {
		t, ok := r.ReceivedAt()
		if !ok {
			continue
		}
		age := int(today.Sub(dateOnly(t)).Hours() / 24)
		switch {
		case age < 0:
		case age < TrendWindowDays:
			recent++
		case age < 2*TrendWindowDays:
			previous++
		}
	}
	return NewTrend(recent, previous)
}

// NewTrend builds a trend from window counts. A previous window of zero saturates
// at +100% when the recent window is non-empty.
func NewTrend(recent, previous int) model.Trend {
	trend := model.Trend{Recent: recent, Previous: previous, Direction: model.TrendNeutral}

	switch {
	case previous == 0 && recent == 0:
		return trend
	case previous == 0:
		trend.Direction = model.TrendUp
		trend.Percent = 100
		return trend
	}

	change := float64(recent-previous) / float64(previous) * 100
	trend.Percent = int(math.Round(math.Abs(change)))
	switch {
	case recent > previous:
		trend.Direction = model.TrendUp
	case recent < previous:
		trend.Direction = model.TrendDown
	}
	return trend
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
