// Package dates handles the fixed-width YYYYMMDD date keys used by the fare
// source and their display forms.
package dates

import (
	"fmt"
	"time"
)

const (
	keyLayout     = "20060102"
	displayLayout = "2006-01-02"

	// DefaultWindowDays is the length of the lookahead window used when a
	// caller does not supply a date range.
	DefaultWindowDays = 10
)

// weekdayNames is indexed Monday=0 .. Sunday=6.
var weekdayNames = []rune("日一二三四五六")

// Format converts a YYYYMMDD key to YYYY-MM-DD by position only. Short
// inputs yield short or empty segments, so "2025" becomes "2025--".
func Format(key string) string {
	return slice(key, 0, 4) + "-" + slice(key, 4, 6) + "-" + slice(key, 6, len(key))
}

func slice(s string, from, to int) string {
	if from >= len(s) {
		return ""
	}
	return s[from:min(to, len(s))]
}

// Weekday returns the weekday label for a YYYY-MM-DD date.
func Weekday(display string) (string, error) {
	t, err := time.Parse(displayLayout, display)
	if err != nil {
		return "", fmt.Errorf("parsing date %q: %w", display, err)
	}
	return weekdayLabel(t), nil
}

func weekdayLabel(t time.Time) string {
	// time.Weekday is Sunday=0; shift to Monday=0.
	idx := (int(t.Weekday()) + 6) % 7
	return "星期" + string(weekdayNames[idx])
}

// Validate reports whether key is exactly eight digits forming a real
// calendar date.
func Validate(key string) error {
	if len(key) != 8 {
		return fmt.Errorf("date %q must be 8 digits in YYYYMMDD form", key)
	}
	for _, r := range key {
		if r < '0' || r > '9' {
			return fmt.Errorf("date %q must be 8 digits in YYYYMMDD form", key)
		}
	}
	t, err := time.Parse(keyLayout, key)
	if err != nil || t.Format(keyLayout) != key {
		return fmt.Errorf("date %q is not a valid calendar date", key)
	}
	return nil
}

// Key formats t as a YYYYMMDD key.
func Key(t time.Time) string {
	return t.Format(keyLayout)
}

// Window is an inclusive [Start, End] range of YYYYMMDD keys. An empty bound
// is unbounded on that side.
type Window struct {
	Start string
	End   string
}

// IsZero reports whether neither bound is set.
func (w Window) IsZero() bool {
	return w.Start == "" && w.End == ""
}

// Contains reports whether key falls inside the window. Comparison is
// lexicographic, which matches date order only for fixed-width keys.
func (w Window) Contains(key string) bool {
	if w.Start != "" && key < w.Start {
		return false
	}
	if w.End != "" && key > w.End {
		return false
	}
	return true
}

// DefaultWindow returns [today, today+10 days] for the calendar date of now.
func DefaultWindow(now time.Time) Window {
	return Window{
		Start: Key(now),
		End:   Key(now.AddDate(0, 0, DefaultWindowDays)),
	}
}
