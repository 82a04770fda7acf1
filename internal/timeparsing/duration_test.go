package timeparsing

import (
	"testing"
	"time"
)

// anchor is the fixed "now" for due-date arithmetic: a Tuesday afternoon,
// so day/week offsets land on unambiguous dates.
var anchor = time.Date(2025, 3, 11, 14, 30, 0, 0, time.UTC)

func TestParseCompactDuration(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Time
		wantErr bool
	}{
		// Forward offsets, the common case for due dates.
		{input: "+1d", want: time.Date(2025, 3, 12, 14, 30, 0, 0, time.UTC)},
		{input: "+8d", want: time.Date(2025, 3, 19, 14, 30, 0, 0, time.UTC)},
		{input: "+2w", want: time.Date(2025, 3, 25, 14, 30, 0, 0, time.UTC)},
		{input: "+6h", want: time.Date(2025, 3, 11, 20, 30, 0, 0, time.UTC)},
		{input: "+1m", want: time.Date(2025, 4, 11, 14, 30, 0, 0, time.UTC)},
		{input: "+1y", want: time.Date(2026, 3, 11, 14, 30, 0, 0, time.UTC)},

		// Backward offsets push a task into the overdue bucket.
		{input: "-1d", want: time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)},
		{input: "-1w", want: time.Date(2025, 3, 4, 14, 30, 0, 0, time.UTC)},

		// Sign is optional; bare means forward.
		{input: "3d", want: time.Date(2025, 3, 14, 14, 30, 0, 0, time.UTC)},
		{input: "12h", want: time.Date(2025, 3, 12, 2, 30, 0, 0, time.UTC)},

		// Rejected shapes.
		{input: "", wantErr: true},
		{input: "d", wantErr: true},
		{input: "5", wantErr: true},
		{input: "5q", wantErr: true},
		{input: "+ 1d", wantErr: true},
		{input: "1d+", wantErr: true},
		{input: "--2w", wantErr: true},
		{input: "tomorrow", wantErr: true},
		{input: "2025-03-12", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseCompactDuration(tt.input, anchor)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCompactDuration(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(tt.want) {
				t.Errorf("ParseCompactDuration(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// Day and week offsets must keep the task's time of day; bucket
// reclassification depends on that component surviving the shift.
func TestCompactDurationKeepsTimeOfDay(t *testing.T) {
	for _, input := range []string{"+1d", "+2w", "-1d", "+1m"} {
		got, err := ParseCompactDuration(input, anchor)
		if err != nil {
			t.Fatalf("ParseCompactDuration(%q): %v", input, err)
		}
		if got.Hour() != 14 || got.Minute() != 30 {
			t.Errorf("ParseCompactDuration(%q) = %v, time of day not preserved", input, got)
		}
	}
}

func TestCompactDurationCalendarEdges(t *testing.T) {
	// A due date on Feb 28 of a leap year moves to Feb 29, not March 1.
	feb28 := time.Date(2024, 2, 28, 9, 0, 0, 0, time.UTC)
	got, err := ParseCompactDuration("+1d", feb28)
	if err != nil {
		t.Fatalf("ParseCompactDuration: %v", err)
	}
	if want := time.Date(2024, 2, 29, 9, 0, 0, 0, time.UTC); !got.Equal(want) {
		t.Errorf("+1d from Feb 28 2024 = %v, want %v", got, want)
	}

	// Month arithmetic from Jan 31 normalizes past February. AddDate
	// overflow is deliberate; a due date never silently clamps.
	jan31 := time.Date(2025, 1, 31, 9, 0, 0, 0, time.UTC)
	got, err = ParseCompactDuration("+1m", jan31)
	if err != nil {
		t.Fatalf("ParseCompactDuration: %v", err)
	}
	if got.Month() != time.March || got.Day() != 3 {
		t.Errorf("+1m from Jan 31 = %v, want Mar 3 (normalized)", got)
	}
}

func TestCompactDurationKeepsLocation(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("Europe/Berlin not available")
	}
	got, err := ParseCompactDuration("+1w", anchor.In(loc))
	if err != nil {
		t.Fatalf("ParseCompactDuration: %v", err)
	}
	if got.Location() != loc {
		t.Errorf("location = %v, want %v", got.Location(), loc)
	}
}

func TestIsCompactDuration(t *testing.T) {
	valid := []string{"+1d", "-2w", "6h", "3m", "1y", "+365d"}
	for _, s := range valid {
		if !IsCompactDuration(s) {
			t.Errorf("IsCompactDuration(%q) = false", s)
		}
	}
	invalid := []string{"", "next friday", "2025-03-12", "1x", "h", "+d"}
	for _, s := range invalid {
		if IsCompactDuration(s) {
			t.Errorf("IsCompactDuration(%q) = true", s)
		}
	}
}
