package schedule

import (
	"errors"
	"fmt"
)

const minutesPerDay = 24 * 60

var (
	ErrInvalidClock    = errors.New("time must be zero-padded HH:MM")
	ErrInvalidInterval = errors.New("interval must be a positive number of minutes")
)

// ParseClock converts a zero-padded "HH:MM" string to minutes since midnight.
// "24:00" is accepted as the end of the day.
func ParseClock(s string) (int, error) {
	if len(s) != 5 || s[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	for _, i := range []int{0, 1, 3, 4} {
		if s[i] < '0' || s[i] > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
		}
	}
	hours := int(s[0]-'0')*10 + int(s[1]-'0')
	mins := int(s[3]-'0')*10 + int(s[4]-'0')
	if mins > 59 || hours > 24 || (hours == 24 && mins != 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return hours*60 + mins, nil
}

// FormatClock converts minutes since midnight to "HH:MM". Values are clamped to [00:00, 24:00].
func FormatClock(m int) string {
	if m < 0 {
		m = 0
	}
	if m > minutesPerDay {
		m = minutesPerDay
	}
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// ValidClock reports whether s is a well-formed "HH:MM" string.
func ValidClock(s string) bool {
	_, err := ParseClock(s)
	return err == nil
}
