package dateparse

import (
	"testing"
	"time"
)

// Fixed reference time: Wednesday, 2026-02-18 12:00:00 UTC
var testNow = time.Date(2026, 2, 18, 12, 0, 0, 0, time.UTC)

func TestParseDate_ExactDate(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"2026-03-01", "2026-03-01"},
		{"2025-12-31", "2025-12-31"},
		{"2026-01-01", "2026-01-01"},
	}
	for _, tt := range tests {
		got, err := ParseDateFrom(tt.input, testNow)
		if err != nil {
			t.Errorf("ParseDateFrom(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDateFrom(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseDate_RelativeOffsets(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"+0d", "2026-02-18"},
		{"+1d", "2026-02-19"},
		{"+7d", "2026-02-25"},
		{"+10d", "2026-02-28"},
		{"+14d", "2026-03-04"},
		{"+1w", "2026-02-25"},
		{"+2w", "2026-03-04"},
		{"+1m", "2026-03-18"},
		{"+1y", "2027-02-18"},
		// past offsets for backfilled transactions
		{"-1d", "2026-02-17"},
		{"-3d", "2026-02-15"},
		{"-2w", "2026-02-04"},
		{"-1m", "2026-01-18"},
	}
	for _, tt := range tests {
		got, err := ParseDateFrom(tt.input, testNow)
		if err != nil {
			t.Errorf("ParseDateFrom(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDateFrom(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseDate_Keywords(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"today", "2026-02-18"},
		{"yesterday", "2026-02-17"},
		{"tomorrow", "2026-02-19"},
		{"next-week", "2026-02-23"},  // next Monday
		{"last-week", "2026-02-09"},  // Monday of previous week
		{"next-month", "2026-03-01"}, // 1st of next month
		{"last-month", "2026-01-01"}, // 1st of previous month
		{"eom", "2026-02-28"},        // 2026 is not a leap year
		{"TODAY", "2026-02-18"},      // case insensitive
		{"  tomorrow  ", "2026-02-19"},
	}
	for _, tt := range tests {
		got, err := ParseDateFrom(tt.input, testNow)
		if err != nil {
			t.Errorf("ParseDateFrom(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDateFrom(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseDate_EndOfMonthVariants(t *testing.T) {
	tests := []struct {
		now  time.Time
		want string
	}{
		{time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC), "2026-01-31"},
		{time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), "2026-04-30"},
		{time.Date(2028, 2, 10, 0, 0, 0, 0, time.UTC), "2028-02-29"}, // leap year
		{time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), "2026-12-31"},
	}
	for _, tt := range tests {
		got, err := ParseDateFrom("eom", tt.now)
		if err != nil {
			t.Errorf("eom from %v: unexpected error: %v", tt.now, err)
			continue
		}
		if got != tt.want {
			t.Errorf("eom from %v = %q, want %q", tt.now, got, tt.want)
		}
	}
}

func TestParseDate_DayNames(t *testing.T) {
	// testNow is a Wednesday
	tests := []struct {
		input string
		want  string
	}{
		{"thursday", "2026-02-19"},
		{"friday", "2026-02-20"},
		{"monday", "2026-02-23"},
		{"wednesday", "2026-02-25"}, // same day advances a full week
	}
	for _, tt := range tests {
		got, err := ParseDateFrom(tt.input, testNow)
		if err != nil {
			t.Errorf("ParseDateFrom(%q): unexpected error: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseDateFrom(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestParseDate_Invalid(t *testing.T) {
	inputs := []string{
		"",
		"not-a-date",
		"+5x",
		"+d",
		"2026-13-01",
		"02/18/2026",
	}
	for _, input := range inputs {
		if _, err := ParseDateFrom(input, testNow); err == nil {
			t.Errorf("ParseDateFrom(%q): expected error, got nil", input)
		}
	}
}

func TestToTime(t *testing.T) {
	got, err := ToTime("2026-02-18")
	if err != nil {
		t.Fatalf("ToTime: %v", err)
	}
	want := time.Date(2026, 2, 18, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ToTime = %v, want %v", got, want)
	}

	if _, err := ToTime("18-02-2026"); err == nil {
		t.Error("ToTime should reject non-ISO input")
	}
}
