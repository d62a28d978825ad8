package ics

import (
	"errors"
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	appLog "calview/internal/log"
	"calview/internal/model"
	"calview/internal/window"
)

const defaultMaxOccurrences = 5000

// MaterializeOptions controls recurrence expansion.
type MaterializeOptions struct {
	// Location is the display zone every Event is converted into. Nil means
	// time.Local.
	Location *time.Location
	// MaxOccurrences caps instances per recurring UID. Zero means 5000.
	MaxOccurrences int
}

// MaterializeResult holds the concrete events and the UIDs that hit the cap.
type MaterializeResult struct {
	Events    []model.Event
	Truncated []string
}

// Materialize turns components into concrete events visible in w: RRULEs
// are expanded, EXDATEs removed and RECURRENCE-ID overrides applied. The
// output is sorted by (start, id).
func Materialize(components []Component, w window.DateWindow, opts MaterializeOptions) MaterializeResult {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.MaxOccurrences <= 0 {
		opts.MaxOccurrences = defaultMaxOccurrences
	}

	type series struct {
		bases     []Component
		overrides []Component
	}
	byKey := make(map[string]*series)
	var order []string
	for _, c := range components {
		key := c.Feed.ID + "\x00" + c.UID
		s, ok := byKey[key]
		if !ok {
			s = &series{}
			byKey[key] = s
			order = append(order, key)
		}
		if c.IsOverride() {
			s.overrides = append(s.overrides, c)
		} else {
			s.bases = append(s.bases, c)
		}
	}

	var res MaterializeResult
	res.Events = make([]model.Event, 0, len(components))
	for _, key := range order {
		s := byKey[key]
		s.overrides = latestOverrides(s.overrides)
		for _, base := range s.bases {
			if base.RRule == "" {
				res.Events = append(res.Events, expandSingle(base, s.overrides, w, opts.Location)...)
				continue
			}
			events, hitCap := expandRecurring(base, s.overrides, w, opts)
			res.Events = append(res.Events, events...)
			if hitCap {
				res.Truncated = append(res.Truncated, base.UID)
				appLog.Error("ics: recurrence truncated", errors.New("max occurrences reached"),
					"uid", base.UID, "cap", opts.MaxOccurrences)
			}
		}
	}

	sort.SliceStable(res.Events, func(i, j int) bool {
		a, b := res.Events[i], res.Events[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		return a.ID < b.ID
	})
	return res
}

func expandSingle(c Component, overrides []Component, w window.DateWindow, loc *time.Location) []model.Event {
	if i, ok := findOverride(overrides, c.Start); ok {
		c = overrides[i]
	}
	ev := toEvent(c, c.Start, c.End, loc, false)
	if !w.Overlaps(ev) {
		return nil
	}
	return []model.Event{ev}
}

func expandRecurring(c Component, overrides []Component, w window.DateWindow, opts MaterializeOptions) ([]model.Event, bool) {
	r, err := rrule.StrToRRule(c.RRule)
	if err != nil {
		appLog.Error("ics: bad RRULE", err, "uid", c.UID, "rrule", c.RRule)
		return nil, false
	}
	r.DTStart(c.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range c.ExDates {
		set.ExDate(ex.In(c.Start.Location()))
	}

	// Look back one event length so instances already running at the window
	// start are not lost.
	dur := c.End.Sub(c.Start)
	days := calendarDays(c.Start, c.End)
	from := w.Start().Add(-dur).In(c.Start.Location())
	to := w.End().In(c.Start.Location())
	starts := set.Between(from, to, true)

	hitCap := false
	if len(starts) > opts.MaxOccurrences {
		starts = starts[:opts.MaxOccurrences]
		hitCap = true
	}

	used := make(map[int]bool, len(overrides))
	out := make([]model.Event, 0, len(starts))
	for _, s := range starts {
		e := s.Add(dur)
		if c.AllDay {
			e = s.AddDate(0, 0, days)
		}
		inst := c
		if i, ok := findOverride(overrides, s); ok {
			used[i] = true
			inst, s, e = overrides[i], overrides[i].Start, overrides[i].End
		}
		ev := toEvent(inst, s, e, opts.Location, true)
		if w.Overlaps(ev) {
			out = append(out, ev)
		}
	}

	// Overrides moved into the window from an instance outside it.
	for i, o := range overrides {
		if used[i] {
			continue
		}
		rid := o.RecurrenceID.In(c.Start.Location())
		if len(set.Between(rid, rid, true)) == 0 {
			continue
		}
		ev := toEvent(o, o.Start, o.End, opts.Location, true)
		if w.Overlaps(ev) {
			out = append(out, ev)
		}
	}
	return out, hitCap
}

// findOverride returns the index of the override whose RECURRENCE-ID equals
// start.
func findOverride(overrides []Component, start time.Time) (int, bool) {
	for i, o := range overrides {
		if o.RecurrenceID.Equal(start) {
			return i, true
		}
	}
	return -1, false
}

// latestOverrides keeps one override per RECURRENCE-ID, the one with the
// highest SEQUENCE. Ties go to the later VEVENT.
func latestOverrides(overrides []Component) []Component {
	out := make([]Component, 0, len(overrides))
	for _, o := range overrides {
		i, ok := findOverride(out, *o.RecurrenceID)
		switch {
		case !ok:
			out = append(out, o)
		case o.Sequence >= out[i].Sequence:
			out[i] = o
		}
	}
	return out
}

// toEvent converts a component instance into the display zone. All-day dates
// are re-anchored on display-zone midnights instead of being shifted.
func toEvent(c Component, start, end time.Time, loc *time.Location, recurring bool) model.Event {
	if c.AllDay {
		start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
		end = time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, loc)
	} else {
		start = start.In(loc)
		end = end.In(loc)
	}

	id := c.Feed.ID + ":" + c.UID
	if recurring {
		id += "@" + start.Format(time.RFC3339)
	}

	return model.Event{
		ID:          id,
		SourceID:    c.Feed.ID,
		Summary:     c.Summary,
		Description: c.Description,
		Location:    c.Location,
		URL:         c.URL,
		Categories:  c.Categories,
		AllDay:      c.AllDay,
		Start:       start,
		End:         end,
	}
}

func calendarDays(start, end time.Time) int {
	s := window.Midnight(start)
	e := window.Midnight(end)
	n := 0
	for s.Before(e) {
		s = s.AddDate(0, 0, 1)
		n++
	}
	return n
}
