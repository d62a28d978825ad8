package ics

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "calview/internal/log"
)

// Component is one VEVENT as read from a feed, before recurrence expansion.
type Component struct {
	Feed Feed

	UID      string
	Sequence int

	Summary     string
	Description string
	Location    string
	URL         string
	Categories  []string

	Start  time.Time
	End    time.Time
	AllDay bool

	RRule   string
	ExDates []time.Time
	// RecurrenceID is set when this VEVENT overrides one instance of a
	// recurring series.
	RecurrenceID *time.Time
}

// IsOverride reports whether c replaces a single recurring instance.
func (c Component) IsOverride() bool {
	return c.RecurrenceID != nil
}

// Parse reads every VEVENT of an ICS payload. Broken VEVENTs are logged and
// skipped so one bad entry never hides the rest of the feed. When the feed
// has Categories, only matching VEVENTs are kept.
func Parse(feed Feed, body []byte) ([]Component, error) {
	if len(body) == 0 {
		return nil, errors.New("ics: empty body")
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("ics: parse feed %s: %w", feed.ID, err)
	}

	out := make([]Component, 0)
	skipped := 0
	for _, ve := range cal.Events() {
		c, err := parseVEvent(feed, ve)
		if err != nil {
			skipped++
			appLog.Warn("ics vevent skipped", "id", feed.ID, "reason", err.Error())
			continue
		}
		if !matchesCategories(c.Categories, feed.Categories) {
			continue
		}
		out = append(out, c)
	}

	appLog.Debug("ics parse completed", "id", feed.ID, "events", len(out), "skipped", skipped)
	return out, nil
}

func parseVEvent(feed Feed, ve *ical.VEvent) (Component, error) {
	c := Component{Feed: feed}

	uid := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uid == nil || uid.Value == "" {
		return c, errors.New("missing UID")
	}
	c.UID = uid.Value

	if p := ve.GetProperty(ical.ComponentPropertySequence); p != nil {
		if n, err := strconv.Atoi(strings.TrimSpace(p.Value)); err == nil {
			c.Sequence = n
		}
	}
	c.Summary = propValue(ve, ical.ComponentPropertySummary)
	c.Description = propValue(ve, ical.ComponentPropertyDescription)
	c.Location = propValue(ve, ical.ComponentPropertyLocation)
	c.URL = propValue(ve, ical.ComponentPropertyUrl)

	for _, p := range ve.GetProperties(ical.ComponentPropertyCategories) {
		for _, cat := range strings.Split(p.Value, ",") {
			if cat = strings.TrimSpace(cat); cat != "" {
				c.Categories = append(c.Categories, cat)
			}
		}
	}

	dtStart := ve.GetProperty(ical.ComponentPropertyDtStart)
	if dtStart == nil {
		return c, fmt.Errorf("uid %s: missing DTSTART", c.UID)
	}
	start, err := ve.GetStartAt()
	if err != nil {
		return c, fmt.Errorf("uid %s: DTSTART: %w", c.UID, err)
	}
	c.Start = start
	c.AllDay = isDateValue(dtStart)

	if end, err := ve.GetEndAt(); err == nil {
		c.End = end
	} else if c.AllDay {
		c.End = start.AddDate(0, 0, 1)
	} else {
		c.End = start.Add(time.Hour)
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		c.RRule = p.Value
	}

	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			t, err := parsePropTime(p, strings.TrimSpace(part), start.Location())
			if err != nil {
				continue
			}
			c.ExDates = append(c.ExDates, t)
		}
	}

	if p := ve.GetProperty("RECURRENCE-ID"); p != nil {
		if t, err := parsePropTime(p, p.Value, start.Location()); err == nil {
			c.RecurrenceID = &t
		}
	}

	return c, nil
}

func propValue(ve *ical.VEvent, name ical.ComponentProperty) string {
	if p := ve.GetProperty(name); p != nil {
		return p.Value
	}
	return ""
}

// isDateValue detects VALUE=DATE or a bare YYYYMMDD value.
func isDateValue(p *ical.IANAProperty) bool {
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}

// parsePropTime parses a DATE or DATE-TIME value of p. TZID wins over
// fallback; a trailing Z means UTC.
func parsePropTime(p *ical.IANAProperty, v string, fallback *time.Location) (time.Time, error) {
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}
	loc := fallback
	if tzs, ok := p.ICalParameters["TZID"]; ok && len(tzs) > 0 {
		if l, err := time.LoadLocation(tzs[0]); err == nil {
			loc = l
		}
	}

	switch {
	case strings.HasSuffix(v, "Z"):
		return time.Parse("20060102T150405Z", v)
	case strings.Contains(v, "T"):
		return time.ParseInLocation("20060102T150405", v, loc)
	default:
		return time.ParseInLocation("20060102", v, loc)
	}
}

func matchesCategories(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}
