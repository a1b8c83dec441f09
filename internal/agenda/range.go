package agenda

import (
	"fmt"
	"strings"
	"time"
)

// ViewMode identifies a calendar view with its own fetch window.
type ViewMode string

const (
	ViewMonth ViewMode = "month"
	ViewWeek  ViewMode = "week"
	ViewDay   ViewMode = "day"
	ViewList  ViewMode = "list"
)

// ParseViewMode validates a caller supplied view mode string.
func ParseViewMode(value string) (ViewMode, error) {
	switch ViewMode(strings.ToLower(strings.TrimSpace(value))) {
	case ViewMonth:
		return ViewMonth, nil
	case ViewWeek:
		return ViewWeek, nil
	case ViewDay:
		return ViewDay, nil
	case ViewList:
		return ViewList, nil
	}
	return "", fmt.Errorf("agenda: unknown view mode %q", value)
}

// Range derives the half-open fetch window [start, end) for a view mode and
// reference date. The month view fetches the month before through the month
// after the reference so the grid can show adjacent-month days.
func Range(view ViewMode, reference time.Time) (time.Time, time.Time) {
	switch view {
	case ViewMonth:
		first := StartOfMonth(reference)
		return first.AddDate(0, -1, 0), first.AddDate(0, 2, 0)
	case ViewWeek:
		start := StartOfWeek(reference)
		return start, start.AddDate(0, 0, 7)
	case ViewDay:
		start := StartOfDay(reference)
		return start, start.AddDate(0, 0, 1)
	case ViewList:
		start := StartOfDay(reference)
		return start, start.AddDate(0, 0, 14)
	default:
		start := StartOfDay(reference)
		return start, start.AddDate(0, 0, 1)
	}
}

// StartOfDay truncates a timestamp to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StartOfWeek returns the Monday midnight starting the ISO week containing t.
func StartOfWeek(t time.Time) time.Time {
	start := StartOfDay(t)
	// In Go, Monday == 1 and Sunday == 0.
	offset := (int(start.Weekday()) + 6) % 7
	return start.AddDate(0, 0, -offset)
}

// StartOfMonth returns midnight on the first day of the month containing t.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// Segment is the portion of an event that falls on a single day.
type Segment struct {
	Day   time.Time
	Start time.Time
	End   time.Time
}

// DaySegments splits the half-open interval [start, end) into per-day
// segments: the first day runs from the real start to midnight, middle days
// cover the full day, and the last day runs from midnight to the real end.
// The segments reconstruct the original interval with no gaps or overlaps.
func DaySegments(start, end time.Time) []Segment {
	if !end.After(start) {
		return nil
	}

	segments := make([]Segment, 0, 2)
	cursor := start
	for cursor.Before(end) {
		day := StartOfDay(cursor)
		next := day.AddDate(0, 0, 1)
		segEnd := next
		if end.Before(next) {
			segEnd = end
		}
		segments = append(segments, Segment{Day: day, Start: cursor, End: segEnd})
		cursor = next
	}
	return segments
}
