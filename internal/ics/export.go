package ics

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"calview/internal/model"
)

const productID = "-//calview//Events to ICS//EN"

// Export renders events as an iCalendar document. All-day events are written
// as DATE values with an exclusive DTEND; now stamps DTSTAMP.
func Export(events []model.Event, now time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	for _, ev := range events {
		ve := cal.AddEvent(ev.ID + "@calview")
		ve.SetDtStampTime(now.UTC())
		if ev.AllDay {
			ve.SetAllDayStartAt(ev.Start)
			ve.SetAllDayEndAt(ev.End)
		} else {
			ve.SetStartAt(ev.Start)
			ve.SetEndAt(ev.End)
		}
		if ev.Summary != "" {
			ve.SetSummary(ev.Summary)
		}
		if ev.Description != "" {
			ve.SetDescription(ev.Description)
		}
		if ev.Location != "" {
			ve.SetLocation(ev.Location)
		}
		if ev.URL != "" {
			ve.SetURL(ev.URL)
		}
		if len(ev.Categories) > 0 {
			ve.AddProperty(ical.ComponentPropertyCategories, strings.Join(ev.Categories, ","))
		}
	}

	return cal.Serialize()
}
