package window

import (
	"fmt"
	"time"
)

// Midnight returns 00:00 of t's calendar day in t's location.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ForDays covers backfill days before anchor's day through days days after it.
// Used for the refresh horizon and for API requests without explicit bounds.
func ForDays(anchor time.Time, backfill, days int) (DateWindow, error) {
	if backfill < 0 || days <= 0 {
		return DateWindow{}, fmt.Errorf("window: invalid day span backfill=%d days=%d", backfill, days)
	}
	day := Midnight(anchor)
	return New(day.AddDate(0, 0, -backfill), day.AddDate(0, 0, days))
}

// ForWeek returns the seven days containing anchor, starting on weekStart.
func ForWeek(anchor time.Time, weekStart time.Weekday) (DateWindow, error) {
	day := Midnight(anchor)
	offset := (int(day.Weekday()) - int(weekStart) + 7) % 7
	start := day.AddDate(0, 0, -offset)
	return New(start, start.AddDate(0, 0, 7))
}

// ForMonth returns the calendar month containing anchor.
func ForMonth(anchor time.Time) (DateWindow, error) {
	start := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, anchor.Location())
	return New(start, start.AddDate(0, 1, 0))
}

// ParseInstant accepts RFC 3339 or a bare YYYY-MM-DD, the latter taken as
// midnight in loc.
func ParseInstant(v string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.In(loc), nil
	}
	t, err := time.ParseInLocation(time.DateOnly, v, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("window: %q is neither RFC 3339 nor YYYY-MM-DD", v)
	}
	return t, nil
}

// Resolve builds a window from optional textual bounds. With neither bound
// set it covers backfill days before anchor through days after; a single
// missing bound sits days away from the other one.
func Resolve(rawStart, rawEnd string, anchor time.Time, backfill, days int) (DateWindow, error) {
	if rawStart == "" && rawEnd == "" {
		return ForDays(anchor, backfill, days)
	}

	loc := anchor.Location()
	var start, end time.Time
	var err error
	if rawStart != "" {
		if start, err = ParseInstant(rawStart, loc); err != nil {
			return DateWindow{}, err
		}
	}
	if rawEnd != "" {
		if end, err = ParseInstant(rawEnd, loc); err != nil {
			return DateWindow{}, err
		}
	}
	switch {
	case rawStart == "":
		start = end.AddDate(0, 0, -days)
	case rawEnd == "":
		end = start.AddDate(0, 0, days)
	}
	return New(start, end)
}

// Span is the calendar unit a resolved window covers.
type Span string

const (
	SpanDay   Span = "day"
	SpanWeek  Span = "week"
	SpanMonth Span = "month"
)

// ParseSpan accepts "", "day", "week" or "month"; empty means SpanDay.
func ParseSpan(v string) (Span, error) {
	switch s := Span(v); s {
	case "":
		return SpanDay, nil
	case SpanDay, SpanWeek, SpanMonth:
		return s, nil
	default:
		return "", fmt.Errorf("window: unknown span %q (want day, week or month)", v)
	}
}

// ResolveSpan is Resolve with a calendar unit. For SpanWeek and SpanMonth
// without an explicit end, the window is the week (starting on weekStart)
// or month containing rawStart, or anchor when rawStart is empty. An
// explicit end always wins.
func ResolveSpan(span Span, rawStart, rawEnd string, anchor time.Time, weekStart time.Weekday, backfill, days int) (DateWindow, error) {
	if span == SpanDay || rawEnd != "" {
		return Resolve(rawStart, rawEnd, anchor, backfill, days)
	}

	at := anchor
	if rawStart != "" {
		t, err := ParseInstant(rawStart, anchor.Location())
		if err != nil {
			return DateWindow{}, err
		}
		at = t
	}

	switch span {
	case SpanWeek:
		return ForWeek(at, weekStart)
	case SpanMonth:
		return ForMonth(at)
	default:
		return DateWindow{}, fmt.Errorf("window: unknown span %q", span)
	}
}
