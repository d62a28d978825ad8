package model

import "time"

// Event is a single concrete calendar entry as seen by a view. Recurring
// events arrive here already materialized into one Event per occurrence
// (see internal/ics).
type Event struct {
	// ID is unique within one render cycle. For recurring instances it is
	// derived from the iCalendar UID plus the occurrence start.
	ID string `json:"id"`

	// SourceID names the feed the event came from (config ICS ID).
	SourceID string `json:"source_id,omitempty"`

	Summary     string   `json:"summary,omitempty"`
	Description string   `json:"description,omitempty"`
	Location    string   `json:"location,omitempty"`
	URL         string   `json:"url,omitempty"`
	Categories  []string `json:"categories,omitempty"`

	// AllDay means Start/End are whole-day boundaries rather than exact times.
	AllDay bool `json:"all_day"`

	// End == Start is a point event.
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// HasCategory reports whether the event is tagged with name. An empty name
// matches every event.
func (e Event) HasCategory(name string) bool {
	if name == "" {
		return true
	}
	for _, c := range e.Categories {
		if c == name {
			return true
		}
	}
	return false
}

// Segment is the part of one Event that falls inside a view window.
type Segment struct {
	EventID string    `json:"event_id"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`

	// IsStart is false when the segment was cut at the window's left edge.
	IsStart bool `json:"is_start"`
	// IsEnd is false when the segment was cut at the window's right edge.
	IsEnd bool `json:"is_end"`

	AllDay bool `json:"all_day"`
}
