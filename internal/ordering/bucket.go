package ordering

import (
	"time"

	"github.com/tada-app/tada/internal/types"
)

// Reclassify maps a drag target's bucket to a concrete due date.
// It is consulted only when a drag crosses bucket boundaries.
//
// Rules:
//   - nodate clears the due date.
//   - today/next7days/later/overdue anchor to start-of-day for today,
//     tomorrow, today+8 and yesterday respectively.
//   - A non-midnight time-of-day on the original due date is preserved on
//     the new date.
//   - If the resulting calendar day equals the original calendar day the
//     move is reported as "no change", suppressing a redundant write.
//
// The boolean result is false when nothing should be written.
func Reclassify(due *types.Millis, target types.Bucket, now time.Time) (*types.Millis, bool) {
	if target == types.BucketNoDate {
		if due == nil {
			return nil, false
		}
		return nil, true
	}

	today := types.StartOfDay(now)
	var day time.Time
	switch target {
	case types.BucketToday:
		day = today
	case types.BucketNext7Days:
		day = today.AddDate(0, 0, 1)
	case types.BucketLater:
		day = today.AddDate(0, 0, 8)
	case types.BucketOverdue:
		day = today.AddDate(0, 0, -1)
	default:
		return nil, false
	}

	result := day
	if due != nil {
		orig := time.UnixMilli(*due).In(now.Location())
		if hasTimeOfDay(orig) {
			result = day.Add(timeOfDay(orig))
		}
		if types.StartOfDay(orig).Equal(day) {
			return nil, false
		}
	}

	v := result.UnixMilli()
	return &v, true
}

func hasTimeOfDay(t time.Time) bool {
	return timeOfDay(t) != 0
}

func timeOfDay(t time.Time) time.Duration {
	return t.Sub(types.StartOfDay(t))
}
