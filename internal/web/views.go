package web

import (
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"calview/internal/ics"
	appLog "calview/internal/log"
	"calview/internal/model"
	"calview/internal/view"
	"calview/internal/window"
)

// requestWindow reads ?start=, ?end= (RFC 3339 or YYYY-MM-DD in the display
// zone) and ?span=day|week|month. Missing bounds fall back to the configured
// horizon, or the week or month around start.
func (s *Server) requestWindow(q url.Values) (window.DateWindow, error) {
	span, err := window.ParseSpan(q.Get("span"))
	if err != nil {
		return window.DateWindow{}, err
	}
	anchor := s.now().In(s.cfg.Location())
	return window.ResolveSpan(span, q.Get("start"), q.Get("end"), anchor, s.cfg.Weekday(), s.cfg.BackfillDays, s.cfg.HorizonDays)
}

// render resolves the window and runs the named view over the catalog.
// The returned events are the ones the view was given, for lookups.
func (s *Server) render(r *http.Request, name string) (view.Output, []model.Event, int, error) {
	if name == "" {
		name = s.cfg.DefaultView
	}
	w, err := s.requestWindow(r.URL.Query())
	if err != nil {
		return view.Output{}, nil, http.StatusBadRequest, err
	}

	events := s.catalog.Filter(r.URL.Query().Get("category"))
	out, err := s.views.Render(name, w, events)
	if err != nil {
		if errors.Is(err, view.ErrUnknownView) {
			return view.Output{}, nil, http.StatusNotFound, err
		}
		appLog.Error("view render failed", err, "view", name)
		return view.Output{}, nil, http.StatusInternalServerError, err
	}
	return out, events, http.StatusOK, nil
}

func (s *Server) handleViewList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"views":   s.views.Names(),
		"default": s.cfg.DefaultView,
	})
}

func (s *Server) handleViewJSON(w http.ResponseWriter, r *http.Request) {
	out, _, status, err := s.render(r, r.PathValue("name"))
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type eventsResponse struct {
	Events          []model.Event `json:"events"`
	TruncatedUIDs   []string      `json:"truncated_uids,omitempty"`
	RangeStart      time.Time     `json:"range_start"`
	RangeEnd        time.Time     `json:"range_end"`
	DisplayTimeZone string        `json:"display_timezone"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// handleEvents returns raw catalog events overlapping the requested window.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	win, err := s.requestWindow(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, eventsResponse{
		Events:          s.catalog.Query(win, r.URL.Query().Get("category")),
		TruncatedUIDs:   s.catalog.Truncated(),
		RangeStart:      win.Start(),
		RangeEnd:        win.End(),
		DisplayTimeZone: s.cfg.Location().String(),
		UpdatedAt:       s.catalog.UpdatedAt(),
	})
}

// handleExport writes the events behind a view's segments as iCalendar.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	out, events, status, err := s.render(r, r.URL.Query().Get("view"))
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+out.Name+`.ics"`)
	_, _ = w.Write([]byte(ics.Export(segmentEvents(out.Segments, events), s.now())))
}

func segmentEvents(segs []model.Segment, events []model.Event) []model.Event {
	byID := make(map[string]model.Event, len(events))
	for _, ev := range events {
		byID[ev.ID] = ev
	}
	out := make([]model.Event, 0, len(segs))
	for _, seg := range segs {
		if ev, ok := byID[seg.EventID]; ok {
			out = append(out, ev)
		}
	}
	return out
}

var pageTmpl = template.Must(template.New("view").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>{{.Title}}</title></head>
<body>
<div data-ready="true" data-view="{{.Name}}">
<h1>{{.Title}}</h1>
<p class="count">{{.CountLabel}}</p>
<ul>
{{- range .Rows}}
<li{{with .Continued}} data-continued="{{.}}"{{end}}>{{.Label}}</li>
{{- end}}
</ul>
</div>
</body>
</html>
`))

type pageRow struct {
	Label string
	// Continued is "left", "right" or "both" for segments cut by the window.
	Continued string
}

type pageData struct {
	Name       string
	Title      string
	CountLabel string
	Rows       []pageRow
}

// handleViewHTML is the minimal page the capture command screenshots.
func (s *Server) handleViewHTML(w http.ResponseWriter, r *http.Request) {
	out, events, status, err := s.render(r, r.PathValue("name"))
	if err != nil {
		http.Error(w, err.Error(), status)
		return
	}

	summaries := make(map[string]string, len(events))
	for _, ev := range events {
		summaries[ev.ID] = ev.Summary
	}

	data := pageData{
		Name:       out.Name,
		Title:      out.Title,
		CountLabel: countLabel(out.Count),
		Rows:       make([]pageRow, 0, len(out.Segments)),
	}
	for _, seg := range out.Segments {
		label := summaries[seg.EventID]
		if strings.TrimSpace(label) == "" {
			label = seg.EventID
		}
		data.Rows = append(data.Rows, pageRow{Label: label, Continued: continued(seg)})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTmpl.Execute(w, data); err != nil {
		appLog.Error("view page render failed", err, "view", out.Name)
	}
}

func continued(seg model.Segment) string {
	switch {
	case !seg.IsStart && !seg.IsEnd:
		return "both"
	case !seg.IsStart:
		return "left"
	case !seg.IsEnd:
		return "right"
	default:
		return ""
	}
}

func countLabel(n int) string {
	if n == 1 {
		return "1 event"
	}
	return fmt.Sprintf("%d events", n)
}
