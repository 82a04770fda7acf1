package types

import "time"

// Bucket is a date-derived grouping used by the grouped task view.
type Bucket string

const (
	BucketOverdue   Bucket = "overdue"
	BucketToday     Bucket = "today"
	BucketNext7Days Bucket = "next7days"
	BucketLater     Bucket = "later"
	BucketNoDate    Bucket = "nodate"
)

// ValidBucket reports whether b is one of the known date buckets.
func ValidBucket(b Bucket) bool {
	switch b {
	case BucketOverdue, BucketToday, BucketNext7Days, BucketLater, BucketNoDate:
		return true
	}
	return false
}

func millisToTime(m Millis) time.Time {
	return time.UnixMilli(m)
}

// StartOfDay truncates t to local midnight.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// BucketForDueDate classifies a due date relative to "now".
// A nil due date is nodate. Day boundaries are local midnights:
// anything before today is overdue, today is today, the next seven
// calendar days are next7days, everything beyond is later.
func BucketForDueDate(due *Millis, now time.Time) Bucket {
	if due == nil {
		return BucketNoDate
	}
	day := StartOfDay(time.UnixMilli(*due).In(now.Location()))
	today := StartOfDay(now)
	switch {
	case day.Before(today):
		return BucketOverdue
	case day.Equal(today):
		return BucketToday
	case !day.After(today.AddDate(0, 0, 7)):
		return BucketNext7Days
	default:
		return BucketLater
	}
}
