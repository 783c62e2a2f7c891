package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	// DateTimeLocalLayout is the value format of an HTML datetime-local input.
	DateTimeLocalLayout = "2006-01-02T15:04"

	// DisplayLayout matches the en-US medium date with hour and minute.
	DisplayLayout = "Jan 2, 2006, 03:04 PM"

	// DueSoonDays is the inclusive window for the "Due soon" label.
	DueSoonDays = 2
)

// DueLabel is the display annotation for a task due date.
type DueLabel string

const (
	DueNone    DueLabel = ""
	DueOverdue DueLabel = "Overdue"
	DueSoon    DueLabel = "Due soon"
)

// Due describes how a due date is displayed.
type Due struct {
	At        time.Time
	Formatted string
	DaysLeft  int
	Label     DueLabel
}

// Class returns the CSS class list for the due date element.
func (d Due) Class() string {
	switch d.Label {
	case DueOverdue:
		return "due-date overdue"
	case DueSoon:
		return "due-date due-soon"
	}
	return "due-date"
}

// DaysUntil returns ceil((due - now) / 24h).
func DaysUntil(due, now time.Time) int {
	diff := due.Sub(now)
	return int(math.Ceil(float64(diff) / float64(24*time.Hour)))
}

// LabelFor returns the annotation for a due instant relative to now.
// Anything already in the past is overdue, even when the day count rounds to zero.
func LabelFor(due, now time.Time) DueLabel {
	if due.Before(now) {
		return DueOverdue
	}
	if DaysUntil(due, now) <= DueSoonDays {
		return DueSoon
	}
	return DueNone
}

// Annotate computes the due date annotation for t. ok is false when t has no due date.
func Annotate(t Task, now time.Time, loc *time.Location) (Due, bool) {
	if t.DueDate == nil {
		return Due{}, false
	}
	if loc == nil {
		loc = time.Local
	}
	at := time.Unix(*t.DueDate, 0).In(loc)
	return Due{
		At:        at,
		Formatted: at.Format(DisplayLayout),
		DaysLeft:  DaysUntil(at, now),
		Label:     LabelFor(at, now),
	}, true
}

// ParseDateTimeLocal converts a datetime-local value to epoch seconds.
// An empty value yields nil.
func ParseDateTimeLocal(s string, loc *time.Location) (*int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateTimeLocalLayout, s, loc)
	if err != nil {
		// Some browsers submit seconds as well.
		t, err = time.ParseInLocation(DateTimeLocalLayout+":05", s, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid due date %q: %w", s, err)
		}
	}
	sec := t.Unix()
	return &sec, nil
}

// FormatDateTimeLocal renders epoch seconds as a datetime-local value.
func FormatDateTimeLocal(epoch *int64, loc *time.Location) string {
	if epoch == nil {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	return time.Unix(*epoch, 0).In(loc).Format(DateTimeLocalLayout)
}
