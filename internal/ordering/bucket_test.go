package ordering

import (
	"testing"
	"time"

	"github.com/tada-app/tada/internal/types"
)

func millis(t time.Time) *types.Millis {
	v := t.UnixMilli()
	return &v
}

func TestReclassifyTargets(t *testing.T) {
	// Tuesday January 9, 2024, 11:00 local.
	now := time.Date(2024, 1, 9, 11, 0, 0, 0, time.Local)
	today := time.Date(2024, 1, 9, 0, 0, 0, 0, time.Local)

	tests := []struct {
		name    string
		due     *types.Millis
		target  types.Bucket
		want    time.Time
		noWrite bool
	}{
		{
			name:   "no date to today",
			due:    nil,
			target: types.BucketToday,
			want:   today,
		},
		{
			name:   "no date to next7days lands tomorrow",
			due:    nil,
			target: types.BucketNext7Days,
			want:   today.AddDate(0, 0, 1),
		},
		{
			name:   "no date to later lands a week past tomorrow",
			due:    nil,
			target: types.BucketLater,
			want:   today.AddDate(0, 0, 8),
		},
		{
			name:   "no date to overdue lands yesterday",
			due:    nil,
			target: types.BucketOverdue,
			want:   today.AddDate(0, 0, -1),
		},
		{
			name:    "clearing an absent date is a no-op",
			due:     nil,
			target:  types.BucketNoDate,
			noWrite: true,
		},
		{
			name:    "same calendar day suppresses the write",
			due:     millis(time.Date(2024, 1, 9, 16, 0, 0, 0, time.Local)),
			target:  types.BucketToday,
			noWrite: true,
		},
		{
			name:   "overdue with time of day keeps it",
			due:    millis(time.Date(2024, 1, 10, 14, 30, 0, 0, time.Local)),
			target: types.BucketLater,
			want:   time.Date(2024, 1, 17, 14, 30, 0, 0, time.Local),
		},
		{
			name:   "midnight due stays midnight",
			due:    millis(time.Date(2024, 1, 2, 0, 0, 0, 0, time.Local)),
			target: types.BucketToday,
			want:   today,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := Reclassify(tt.due, tt.target, now)
			if tt.noWrite {
				if changed {
					t.Fatalf("Reclassify() changed = true, want no write (got %v)", got)
				}
				return
			}
			if !changed {
				t.Fatal("Reclassify() changed = false, want a write")
			}
			if got == nil {
				t.Fatal("Reclassify() returned nil date for a dated target")
			}
			if *got != tt.want.UnixMilli() {
				t.Errorf("Reclassify() = %s, want %s",
					time.UnixMilli(*got).Format(time.RFC3339),
					tt.want.Format(time.RFC3339))
			}
		})
	}
}

func TestReclassifyClearsDate(t *testing.T) {
	now := time.Date(2024, 1, 9, 11, 0, 0, 0, time.Local)
	due := millis(time.Date(2024, 1, 20, 9, 0, 0, 0, time.Local))

	got, changed := Reclassify(due, types.BucketNoDate, now)
	if !changed {
		t.Fatal("Reclassify() changed = false, want true when clearing a date")
	}
	if got != nil {
		t.Errorf("Reclassify() = %v, want nil date", *got)
	}
}

func TestReclassifyUnknownBucket(t *testing.T) {
	now := time.Date(2024, 1, 9, 11, 0, 0, 0, time.Local)

	got, changed := Reclassify(nil, types.Bucket("someday"), now)
	if changed || got != nil {
		t.Errorf("Reclassify(unknown) = (%v, %v), want no write", got, changed)
	}
}
