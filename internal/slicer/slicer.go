// Package slicer cuts calendar events into the segments visible in a window.
//
// Slice is pure: it never logs, never mutates its inputs and holds no state,
// so concurrent render cycles can call it freely.
package slicer

import (
	"errors"
	"fmt"

	"calview/internal/model"
	"calview/internal/window"
)

// MalformedEventError marks an event whose end precedes its start.
type MalformedEventError struct {
	EventID string
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("slicer: event %q ends before it starts", e.EventID)
}

// Result is the output of one Slice call.
type Result struct {
	// Segments follow the input order of the events they came from.
	Segments []model.Segment
	// Skipped lists the IDs of malformed events, in input order.
	Skipped []string
}

// Err joins one *MalformedEventError per skipped event, or returns nil.
func (r Result) Err() error {
	if len(r.Skipped) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Skipped))
	for _, id := range r.Skipped {
		errs = append(errs, &MalformedEventError{EventID: id})
	}
	return errors.Join(errs...)
}

// Slice returns one segment per event visible in w, clamped to its bounds.
//
// With allDayOnly set, timed events are ignored before anything else,
// including the malformed check. Segment bounds and flags always refer to
// the event's own start and end.
func Slice(w window.DateWindow, events []model.Event, allDayOnly bool) Result {
	res := Result{Segments: make([]model.Segment, 0, len(events))}

	for _, ev := range events {
		if allDayOnly && !ev.AllDay {
			continue
		}
		if ev.End.Before(ev.Start) {
			res.Skipped = append(res.Skipped, ev.ID)
			continue
		}

		if !w.Overlaps(ev) {
			continue
		}

		clampedStart := w.Clamp(ev.Start)
		clampedEnd := w.Clamp(ev.End)
		res.Segments = append(res.Segments, model.Segment{
			EventID: ev.ID,
			Start:   clampedStart,
			End:     clampedEnd,
			IsStart: clampedStart.Equal(ev.Start),
			IsEnd:   clampedEnd.Equal(ev.End),
			AllDay:  ev.AllDay,
		})
	}

	return res
}
