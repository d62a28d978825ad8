// Package view maps view names to view functions. A view is a pure function
// from (window, events) to renderable data; the HTTP layer and the CLI only
// ever go through a Registry.
package view

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	appLog "calview/internal/log"
	"calview/internal/metrics"
	"calview/internal/model"
	"calview/internal/slicer"
	"calview/internal/window"
)

const (
	Custom = "custom"
	Agenda = "agenda"

	DefaultTitleLayout = "January 2, 2006"
)

var (
	ErrUnknownView   = errors.New("view: unknown view")
	ErrDuplicateView = errors.New("view: view already registered")
)

// Output is what a renderer needs: a title, a count and the segments.
type Output struct {
	Name       string          `json:"view"`
	Title      string          `json:"title"`
	Count      int             `json:"count"`
	RangeStart time.Time       `json:"range_start"`
	RangeEnd   time.Time       `json:"range_end"`
	Segments   []model.Segment `json:"segments"`
	Skipped    []string        `json:"skipped,omitempty"`
}

// Func is the capability contract every view satisfies.
type Func func(w window.DateWindow, events []model.Event) (Output, error)

// Slicing returns a view that slices events and titles the output with the
// window start formatted by titleLayout.
func Slicing(name string, allDayOnly bool, titleLayout string) Func {
	if titleLayout == "" {
		titleLayout = DefaultTitleLayout
	}
	return func(w window.DateWindow, events []model.Event) (Output, error) {
		res := slicer.Slice(w, events, allDayOnly)
		return Output{
			Name:       name,
			Title:      w.Start().Format(titleLayout),
			Count:      len(res.Segments),
			RangeStart: w.Start(),
			RangeEnd:   w.End(),
			Segments:   res.Segments,
			Skipped:    res.Skipped,
		}, nil
	}
}

// Registry is a name -> Func table, safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	views map[string]Func
	rec   *metrics.Recorder
}

func NewRegistry(rec *metrics.Recorder) *Registry {
	return &Registry{
		views: make(map[string]Func),
		rec:   rec,
	}
}

// Default returns a registry holding the "custom" (all-day) and "agenda"
// (all events) views.
func Default(titleLayout string, rec *metrics.Recorder) *Registry {
	r := NewRegistry(rec)
	r.MustRegister(Custom, Slicing(Custom, true, titleLayout))
	r.MustRegister(Agenda, Slicing(Agenda, false, titleLayout))
	return r
}

// MustRegister is Register for built-in views; it panics on error.
func (r *Registry) MustRegister(name string, fn Func) {
	if err := r.Register(name, fn); err != nil {
		panic(err)
	}
}

func (r *Registry) Register(name string, fn Func) error {
	if name == "" {
		return errors.New("view: empty view name")
	}
	if fn == nil {
		return fmt.Errorf("view: nil function for %q", name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.views[name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateView, name)
	}
	r.views[name] = fn
	return nil
}

func (r *Registry) Lookup(name string) (Func, error) {
	r.mu.RLock()
	fn, ok := r.views[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownView, name)
	}
	return fn, nil
}

// Names returns the registered view names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.views))
	for n := range r.views {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Render looks up name, runs it and records the outcome.
func (r *Registry) Render(name string, w window.DateWindow, events []model.Event) (Output, error) {
	fn, err := r.Lookup(name)
	if err != nil {
		return Output{}, err
	}

	out, err := fn(w, events)
	if err != nil {
		return Output{}, fmt.Errorf("view %q: %w", name, err)
	}

	r.rec.RecordRender(name, len(out.Segments), len(out.Skipped))
	if len(out.Skipped) > 0 {
		appLog.Warn("view: skipped malformed events",
			"view", name,
			"window", w.String(),
			"skipped", out.Skipped,
		)
	}
	appLog.Debug("view rendered", "view", name, "window", w.String(), "span", w.Duration(), "count", out.Count)

	return out, nil
}
