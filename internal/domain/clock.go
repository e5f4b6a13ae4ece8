package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Valid whole-hour UTC offsets. Anything outside is treated as unset.
const (
	MinUTCOffset = -12
	MaxUTCOffset = 14
)

// ClampOffset returns the offset if it is a valid whole-hour UTC offset,
// otherwise 0. An invalid offset must never block notification delivery.
func ClampOffset(hours int) int {
	if hours < MinUTCOffset || hours > MaxUTCOffset {
		return 0
	}
	return hours
}

// LocalTime converts a reference instant to the user's local wall-clock time
// for the given whole-hour UTC offset. Pure and total: out-of-range offsets
// fall back to UTC.
func LocalTime(ref time.Time, offsetHours int) time.Time {
	offsetHours = ClampOffset(offsetHours)
	zone := time.FixedZone(FormatOffset(offsetHours), offsetHours*3600)
	return ref.In(zone)
}

// DayKey formats t's calendar date for dedup bookkeeping.
func DayKey(t time.Time) string { return t.Format("2006-01-02") }

// ClockKey formats t's time of day at minute resolution.
func ClockKey(t time.Time) string { return t.Format("15:04") }

// FormatOffset renders a whole-hour offset as "UTC+3" / "UTC-5" / "UTC+0".
func FormatOffset(hours int) string {
	if hours >= 0 {
		return fmt.Sprintf("UTC+%d", hours)
	}
	return fmt.Sprintf("UTC%d", hours)
}

// GreetingBand is the part of the local day a reminder lands in.
type GreetingBand int

const (
	BandNight GreetingBand = iota
	BandMorning
	BandAfternoon
	BandEvening
)

// BandFor maps a local hour to its greeting band: morning 06–12,
// afternoon 12–17, evening 17–22, night otherwise.
func BandFor(hour int) GreetingBand {
	switch {
	case hour >= 6 && hour < 12:
		return BandMorning
	case hour >= 12 && hour < 17:
		return BandAfternoon
	case hour >= 17 && hour < 22:
		return BandEvening
	default:
		return BandNight
	}
}

var ErrBadClock = errors.New("expected time as HH:MM")

// ParseClock parses "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, ErrBadClock
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("%w: invalid hour", ErrBadClock)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("%w: invalid minute", ErrBadClock)
	}
	return h*60 + m, nil
}

// NormalizeClock parses s and returns it in the zero-padded "HH:MM" form that
// ClockKey produces, so configured times like "9:00" compare correctly.
func NormalizeClock(s string) (string, error) {
	m, err := ParseClock(s)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60), nil
}

// OffsetFromLocalClock derives the user's whole-hour UTC offset from the
// wall-clock time they report ("what time is it for you right now?") and the
// current instant. The difference is rounded to whole hours, adjusted across
// day boundaries, and clamped to the valid offset range.
func OffsetFromLocalClock(userClock string, now time.Time) (int, string, error) {
	userM, err := ParseClock(userClock)
	if err != nil {
		return 0, "", err
	}

	utc := now.UTC()
	serverM := utc.Hour()*60 + utc.Minute()

	diff := userM - serverM
	// The reported time can fall on the previous or next calendar day.
	if diff > 12*60 {
		diff -= 24 * 60
	} else if diff < -12*60 {
		diff += 24 * 60
	}

	offset := int(roundHalfAway(float64(diff) / 60.0))
	if offset < MinUTCOffset {
		offset = MinUTCOffset
	} else if offset > MaxUTCOffset {
		offset = MaxUTCOffset
	}
	return offset, FormatOffset(offset), nil
}

func roundHalfAway(f float64) int {
	if f >= 0 {
		return int(f + 0.5)
	}
	return int(f - 0.5)
}
