// Package window models the half-open date range a calendar view shows.
package window

import (
	"fmt"
	"time"

	"calview/internal/model"
)

// ConfigurationError is returned when a window would not satisfy start < end.
type ConfigurationError struct {
	Start time.Time
	End   time.Time
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("window: start %s must be before end %s",
		e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
}

// DateWindow is an immutable [Start, End) interval.
type DateWindow struct {
	start time.Time
	end   time.Time
}

// New builds a window, rejecting start >= end with *ConfigurationError.
func New(start, end time.Time) (DateWindow, error) {
	if !start.Before(end) {
		return DateWindow{}, &ConfigurationError{Start: start, End: end}
	}
	return DateWindow{start: start, end: end}, nil
}

func (w DateWindow) Start() time.Time { return w.start }
func (w DateWindow) End() time.Time   { return w.end }

func (w DateWindow) Duration() time.Duration {
	return w.end.Sub(w.start)
}

// Overlaps reports whether ev is at least partly visible in the window:
// ev.Start < End and ev.End > Start. A zero-length event at Start touches
// the window without entering it.
func (w DateWindow) Overlaps(ev model.Event) bool {
	return ev.Start.Before(w.end) && ev.End.After(w.start)
}

// Clamp pins t into [Start, End].
func (w DateWindow) Clamp(t time.Time) time.Time {
	if t.Before(w.start) {
		return w.start
	}
	if t.After(w.end) {
		return w.end
	}
	return t
}

func (w DateWindow) String() string {
	return "[" + w.start.Format(time.RFC3339) + ", " + w.end.Format(time.RFC3339) + ")"
}
