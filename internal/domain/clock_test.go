package domain

import (
	"testing"
	"time"
)

func TestLocalTime_PositiveOffset(t *testing.T) {
	// Server at 09:00 UTC, user at UTC+5 → local 14:00.
	ref := time.Date(2025, time.May, 5, 9, 0, 0, 0, time.UTC)
	local := LocalTime(ref, 5)
	if got := ClockKey(local); got != "14:00" {
		t.Fatalf("want 14:00, got %s", got)
	}
	if got := DayKey(local); got != "2025-05-05" {
		t.Fatalf("want 2025-05-05, got %s", got)
	}
}

func TestLocalTime_NegativeOffsetCrossesDay(t *testing.T) {
	ref := time.Date(2025, time.May, 5, 2, 30, 0, 0, time.UTC)
	local := LocalTime(ref, -5)
	if got := ClockKey(local); got != "21:30" {
		t.Fatalf("want 21:30, got %s", got)
	}
	if got := DayKey(local); got != "2025-05-04" {
		t.Fatalf("want previous local day, got %s", got)
	}
}

func TestLocalTime_InvalidOffsetFallsBackToUTC(t *testing.T) {
	ref := time.Date(2025, time.May, 5, 9, 0, 0, 0, time.UTC)
	for _, off := range []int{-13, 15, 99} {
		if got := ClockKey(LocalTime(ref, off)); got != "09:00" {
			t.Fatalf("offset %d: want 09:00, got %s", off, got)
		}
	}
}

func TestOffsetFromLocalClock(t *testing.T) {
	now := time.Date(2025, time.May, 5, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		userClock string
		want      int
		wantLabel string
	}{
		{"15:00", 3, "UTC+3"},
		{"12:00", 0, "UTC+0"},
		{"07:00", -5, "UTC-5"},
		{"15:30", 4, "UTC+4"},   // rounded up
		{"23:30", 12, "UTC+12"}, // 11.5h ahead rounds to +12
		{"00:00", -12, "UTC-12"},
	}
	for _, tc := range tests {
		got, label, err := OffsetFromLocalClock(tc.userClock, now)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", tc.userClock, err)
		}
		if got != tc.want || label != tc.wantLabel {
			t.Fatalf("%s: want (%d, %s), got (%d, %s)", tc.userClock, tc.want, tc.wantLabel, got, label)
		}
	}
}

func TestOffsetFromLocalClock_DayBoundary(t *testing.T) {
	// 23:00 UTC on the server, user says 02:00 → they are 3 hours ahead on
	// the next calendar day, not 21 hours behind.
	now := time.Date(2025, time.May, 5, 23, 0, 0, 0, time.UTC)
	got, _, err := OffsetFromLocalClock("02:00", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 3 {
		t.Fatalf("want +3, got %d", got)
	}
}

func TestOffsetFromLocalClock_Invalid(t *testing.T) {
	now := time.Now()
	for _, bad := range []string{"", "25:00", "12:61", "noon", "12"} {
		if _, _, err := OffsetFromLocalClock(bad, now); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}

func TestNormalizeClock(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"9:00", "09:00"},
		{"09:5", "09:05"},
		{"16:54", "16:54"},
		{" 10:00", "10:00"},
	}
	for _, tc := range tests {
		got, err := NormalizeClock(tc.in)
		if err != nil {
			t.Fatalf("%q: unexpected error %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("%q: want %q, got %q", tc.in, tc.want, got)
		}
	}

	for _, bad := range []string{"", "25:00", "12:61", "noon"} {
		if _, err := NormalizeClock(bad); err == nil {
			t.Fatalf("%q: expected error", bad)
		}
	}
}

func TestBandFor(t *testing.T) {
	tests := []struct {
		hour int
		want GreetingBand
	}{
		{6, BandMorning},
		{11, BandMorning},
		{12, BandAfternoon},
		{16, BandAfternoon},
		{17, BandEvening},
		{21, BandEvening},
		{22, BandNight},
		{3, BandNight},
	}
	for _, tc := range tests {
		if got := BandFor(tc.hour); got != tc.want {
			t.Fatalf("hour %d: want %v, got %v", tc.hour, tc.want, got)
		}
	}
}
