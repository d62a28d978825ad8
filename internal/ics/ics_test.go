package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"calview/internal/model"
	"calview/internal/window"
)

func crlf(s string) []byte {
	return []byte(strings.ReplaceAll(strings.TrimLeft(s, "\n"), "\n", "\r\n"))
}

var sampleFeed = crlf(`
BEGIN:VCALENDAR
VERSION:2.0
PRODID:-//test//EN
BEGIN:VEVENT
UID:allday-1
DTSTAMP:20240101T000000Z
DTSTART;VALUE=DATE:20240103
DTEND;VALUE=DATE:20240105
SUMMARY:Conference
CATEGORIES:meeting,week-end
END:VEVENT
BEGIN:VEVENT
UID:timed-1
DTSTAMP:20240101T000000Z
DTSTART:20240104T090000Z
SUMMARY:No end
URL:https://example.com/e
END:VEVENT
BEGIN:VEVENT
DTSTAMP:20240101T000000Z
DTSTART:20240104T090000Z
SUMMARY:No UID
END:VEVENT
BEGIN:VEVENT
UID:daily
DTSTAMP:20240101T000000Z
DTSTART:20240101T100000Z
DTEND:20240101T110000Z
RRULE:FREQ=DAILY;COUNT=5
EXDATE:20240103T100000Z
SUMMARY:Standup
END:VEVENT
BEGIN:VEVENT
UID:daily
DTSTAMP:20240101T000000Z
RECURRENCE-ID:20240104T100000Z
DTSTART:20240104T150000Z
DTEND:20240104T160000Z
SUMMARY:Standup (moved)
END:VEVENT
END:VCALENDAR
`)

func utc(y int, m time.Month, d, h int) time.Time {
	return time.Date(y, m, d, h, 0, 0, 0, time.UTC)
}

func janWeek(t *testing.T) window.DateWindow {
	t.Helper()
	w, err := window.New(utc(2024, 1, 1, 0), utc(2024, 1, 8, 0))
	require.NoError(t, err)
	return w
}

func byID(events []model.Event) map[string]model.Event {
	m := make(map[string]model.Event, len(events))
	for _, e := range events {
		m[e.ID] = e
	}
	return m
}

func TestParse(t *testing.T) {
	comps, err := Parse(Feed{ID: "cal"}, sampleFeed)
	require.NoError(t, err)
	require.Len(t, comps, 4, "VEVENT without UID is skipped")

	allDay := comps[0]
	assert.Equal(t, "allday-1", allDay.UID)
	assert.True(t, allDay.AllDay)
	assert.Equal(t, []string{"meeting", "week-end"}, allDay.Categories)
	assert.Equal(t, 2, calendarDays(allDay.Start, allDay.End))

	timed := comps[1]
	assert.False(t, timed.AllDay)
	assert.Equal(t, time.Hour, timed.End.Sub(timed.Start), "missing DTEND defaults to one hour")
	assert.Equal(t, "https://example.com/e", timed.URL)

	series := comps[2]
	assert.Equal(t, "FREQ=DAILY;COUNT=5", series.RRule)
	require.Len(t, series.ExDates, 1)
	assert.True(t, series.ExDates[0].Equal(utc(2024, 1, 3, 10)))

	override := comps[3]
	require.True(t, override.IsOverride())
	assert.True(t, override.RecurrenceID.Equal(utc(2024, 1, 4, 10)))
}

func TestParseCategoryFilter(t *testing.T) {
	comps, err := Parse(Feed{ID: "cal", Categories: []string{"Week-End"}}, sampleFeed)
	require.NoError(t, err)

	require.Len(t, comps, 1)
	assert.Equal(t, "allday-1", comps[0].UID)
}

func TestParseRejectsEmptyOrBrokenBody(t *testing.T) {
	_, err := Parse(Feed{ID: "x"}, nil)
	assert.Error(t, err)
}

func TestMaterialize(t *testing.T) {
	comps, err := Parse(Feed{ID: "cal"}, sampleFeed)
	require.NoError(t, err)

	res := Materialize(comps, janWeek(t), MaterializeOptions{Location: time.UTC})
	assert.Empty(t, res.Truncated)

	events := byID(res.Events)
	assert.Len(t, res.Events, 6)

	conf, ok := events["cal:allday-1"]
	require.True(t, ok)
	assert.True(t, conf.AllDay)
	assert.Equal(t, utc(2024, 1, 3, 0), conf.Start)
	assert.Equal(t, utc(2024, 1, 5, 0), conf.End)
	assert.Equal(t, "cal", conf.SourceID)

	assert.Contains(t, events, "cal:daily@2024-01-01T10:00:00Z")
	assert.Contains(t, events, "cal:daily@2024-01-02T10:00:00Z")
	assert.NotContains(t, events, "cal:daily@2024-01-03T10:00:00Z", "EXDATE removes the instance")
	assert.NotContains(t, events, "cal:daily@2024-01-04T10:00:00Z", "override replaces the instance")
	moved, ok := events["cal:daily@2024-01-04T15:00:00Z"]
	require.True(t, ok)
	assert.Equal(t, "Standup (moved)", moved.Summary)
	assert.Contains(t, events, "cal:daily@2024-01-05T10:00:00Z")

	for i := 1; i < len(res.Events); i++ {
		assert.False(t, res.Events[i].Start.Before(res.Events[i-1].Start), "events sorted by start")
	}
}

func TestMaterializeReanchorsAllDayDates(t *testing.T) {
	seoul := time.FixedZone("KST", 9*3600)
	comps := []Component{{
		Feed:   Feed{ID: "cal"},
		UID:    "holiday",
		AllDay: true,
		Start:  utc(2024, 1, 3, 0),
		End:    utc(2024, 1, 4, 0),
	}}

	res := Materialize(comps, janWeek(t), MaterializeOptions{Location: seoul})

	require.Len(t, res.Events, 1)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, seoul), res.Events[0].Start)
	assert.Equal(t, time.Date(2024, 1, 4, 0, 0, 0, 0, seoul), res.Events[0].End)
}

func TestMaterializeCapsOccurrences(t *testing.T) {
	comps := []Component{{
		Feed:  Feed{ID: "cal"},
		UID:   "hourly",
		Start: utc(2024, 1, 1, 0),
		End:   utc(2024, 1, 1, 0).Add(30 * time.Minute),
		RRule: "FREQ=HOURLY",
	}}

	res := Materialize(comps, janWeek(t), MaterializeOptions{Location: time.UTC, MaxOccurrences: 10})

	assert.Len(t, res.Events, 10)
	assert.Equal(t, []string{"hourly"}, res.Truncated)
}

func TestMaterializeKeepsInstanceRunningAtWindowStart(t *testing.T) {
	comps := []Component{{
		Feed:  Feed{ID: "cal"},
		UID:   "night-shift",
		Start: utc(2023, 12, 30, 22),
		End:   utc(2023, 12, 31, 6),
		RRule: "FREQ=DAILY;COUNT=3",
	}}

	res := Materialize(comps, janWeek(t), MaterializeOptions{Location: time.UTC})

	ids := make([]string, 0, len(res.Events))
	for _, e := range res.Events {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{
		"cal:night-shift@2023-12-31T22:00:00Z",
		"cal:night-shift@2024-01-01T22:00:00Z",
	}, ids)
}

func TestMaterializeOverrideMovedIntoWindow(t *testing.T) {
	rid := utc(2023, 12, 28, 10)
	comps := []Component{
		{
			Feed:  Feed{ID: "cal"},
			UID:   "weekly",
			Start: utc(2023, 12, 21, 10),
			End:   utc(2023, 12, 21, 11),
			RRule: "FREQ=WEEKLY;COUNT=2",
		},
		{
			Feed:         Feed{ID: "cal"},
			UID:          "weekly",
			Summary:      "Rescheduled",
			Start:        utc(2024, 1, 3, 10),
			End:          utc(2024, 1, 3, 11),
			RecurrenceID: &rid,
		},
	}

	res := Materialize(comps, janWeek(t), MaterializeOptions{Location: time.UTC})

	require.Len(t, res.Events, 1)
	assert.Equal(t, "cal:weekly@2024-01-03T10:00:00Z", res.Events[0].ID)
	assert.Equal(t, "Rescheduled", res.Events[0].Summary)
}

func TestMaterializeIgnoresOverrideOfUnknownInstance(t *testing.T) {
	rid := utc(2023, 12, 29, 10)
	comps := []Component{
		{Feed: Feed{ID: "cal"}, UID: "weekly", Start: utc(2023, 12, 21, 10), End: utc(2023, 12, 21, 11), RRule: "FREQ=WEEKLY;COUNT=2"},
		{Feed: Feed{ID: "cal"}, UID: "weekly", Start: utc(2024, 1, 3, 10), End: utc(2024, 1, 3, 11), RecurrenceID: &rid},
	}

	res := Materialize(comps, janWeek(t), MaterializeOptions{Location: time.UTC})

	assert.Empty(t, res.Events)
}

func TestMaterializeHighestSequenceOverrideWins(t *testing.T) {
	rid := utc(2024, 1, 2, 10)
	override := func(seq int, summary string, hour int) Component {
		return Component{
			Feed:         Feed{ID: "cal"},
			UID:          "daily",
			Sequence:     seq,
			Summary:      summary,
			Start:        utc(2024, 1, 2, hour),
			End:          utc(2024, 1, 2, hour+1),
			RecurrenceID: &rid,
		}
	}
	comps := []Component{
		{Feed: Feed{ID: "cal"}, UID: "daily", Start: utc(2024, 1, 1, 10), End: utc(2024, 1, 1, 11), RRule: "FREQ=DAILY;COUNT=2"},
		override(2, "Newest", 14),
		override(1, "Stale", 12),
	}

	res := Materialize(comps, janWeek(t), MaterializeOptions{Location: time.UTC})

	events := byID(res.Events)
	assert.Len(t, res.Events, 2)
	newest, ok := events["cal:daily@2024-01-02T14:00:00Z"]
	require.True(t, ok)
	assert.Equal(t, "Newest", newest.Summary)
	assert.NotContains(t, events, "cal:daily@2024-01-02T12:00:00Z")
}

func TestExportRoundTrip(t *testing.T) {
	events := []model.Event{
		{ID: "a", Summary: "Conference", AllDay: true, Start: utc(2024, 1, 3, 0), End: utc(2024, 1, 5, 0), Categories: []string{"meeting"}},
		{ID: "b", Summary: "Call", Location: "Room 1", Start: utc(2024, 1, 4, 9), End: utc(2024, 1, 4, 10)},
	}

	doc := Export(events, utc(2024, 1, 1, 0))
	assert.Contains(t, doc, productID)

	comps, err := Parse(Feed{ID: "export"}, []byte(doc))
	require.NoError(t, err)
	require.Len(t, comps, 2)

	assert.Equal(t, "a@calview", comps[0].UID)
	assert.True(t, comps[0].AllDay)
	assert.Equal(t, "Conference", comps[0].Summary)
	assert.Equal(t, []string{"meeting"}, comps[0].Categories)

	assert.False(t, comps[1].AllDay)
	assert.Equal(t, "Room 1", comps[1].Location)
	assert.True(t, comps[1].Start.Equal(utc(2024, 1, 4, 9)))
}
