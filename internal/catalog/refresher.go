package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"calview/internal/config"
	"calview/internal/ics"
	appLog "calview/internal/log"
	"calview/internal/metrics"
	"calview/internal/window"
)

// RefreshOptions bounds what a refresh materializes.
type RefreshOptions struct {
	Location       *time.Location
	BackfillDays   int
	HorizonDays    int
	MaxOccurrences int
}

// Refresher pulls feeds into a Catalog.
type Refresher struct {
	catalog *Catalog
	fetcher *ics.Fetcher
	feeds   []ics.Feed
	opts    RefreshOptions
	rec     *metrics.Recorder

	// now is swapped in tests.
	now func() time.Time
}

func NewRefresher(cat *Catalog, fetcher *ics.Fetcher, feeds []ics.Feed, opts RefreshOptions, rec *metrics.Recorder) *Refresher {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Refresher{
		catalog: cat,
		fetcher: fetcher,
		feeds:   feeds,
		opts:    opts,
		rec:     rec,
		now:     time.Now,
	}
}

// FromConfig wires a Refresher from the application config.
func FromConfig(cfg *config.Config, cat *Catalog, fetcher *ics.Fetcher, rec *metrics.Recorder) *Refresher {
	return NewRefresher(cat, fetcher, FeedsFromConfig(cfg), RefreshOptions{
		Location:       cfg.Location(),
		BackfillDays:   cfg.BackfillDays,
		HorizonDays:    cfg.HorizonDays,
		MaxOccurrences: cfg.MaxOccurrences,
	}, rec)
}

// FeedsFromConfig maps config ICS entries to feeds, skipping empty URLs.
func FeedsFromConfig(cfg *config.Config) []ics.Feed {
	feeds := make([]ics.Feed, 0, len(cfg.ICS))
	for _, f := range cfg.ICS {
		if f.URL == "" {
			continue
		}
		feeds = append(feeds, ics.Feed{ID: f.ID, URL: f.URL, Categories: f.Categories})
	}
	return feeds
}

// Horizon is the window a refresh materializes, anchored on now.
func (r *Refresher) Horizon() (window.DateWindow, error) {
	return window.ForDays(r.now().In(r.opts.Location), r.opts.BackfillDays, r.opts.HorizonDays)
}

// Refresh runs fetch, parse and materialize once. When every feed fails the
// previous snapshot is kept and the joined error returned; partial failures
// are logged and the snapshot still replaced.
func (r *Refresher) Refresh(ctx context.Context) error {
	began := time.Now()

	w, err := r.Horizon()
	if err != nil {
		return err
	}

	results, fetchErr := r.fetcher.FetchAll(ctx, r.feeds)
	if len(r.feeds) > 0 && len(results) == 0 {
		r.rec.RecordRefresh("failed", time.Since(began), 0)
		return fmt.Errorf("catalog: every feed failed: %w", fetchErr)
	}

	var errs []error
	if fetchErr != nil {
		errs = append(errs, fetchErr)
	}
	comps := make([]ics.Component, 0)
	for _, res := range results {
		parsed, err := ics.Parse(res.Feed, res.Body)
		if err != nil {
			appLog.Error("catalog: parse failed", err, "id", res.Feed.ID)
			errs = append(errs, err)
			continue
		}
		comps = append(comps, parsed...)
	}

	mat := ics.Materialize(comps, w, ics.MaterializeOptions{
		Location:       r.opts.Location,
		MaxOccurrences: r.opts.MaxOccurrences,
	})
	r.catalog.Replace(mat.Events, mat.Truncated)

	result := "ok"
	if len(errs) > 0 {
		result = "partial"
	}
	took := time.Since(began)
	r.rec.RecordRefresh(result, took, len(mat.Events))
	appLog.Info("catalog refreshed",
		"window", w.String(),
		"feeds", len(r.feeds),
		"events", len(mat.Events),
		"truncated", len(mat.Truncated),
		"result", result,
		"took", took.Round(time.Millisecond),
	)

	if len(errs) > 0 {
		// Partial data is served; the error is informational.
		return errors.Join(errs...)
	}
	return nil
}

// Start schedules Refresh on spec until ctx is done. Overlapping runs are
// skipped.
func (r *Refresher) Start(ctx context.Context, spec string) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, func() {
		if err := r.Refresh(ctx); err != nil {
			appLog.Error("scheduled refresh failed", err)
		}
	}); err != nil {
		return fmt.Errorf("catalog: schedule %q: %w", spec, err)
	}

	c.Start()
	appLog.Info("refresh scheduler started", "schedule", spec)

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		appLog.Info("refresh scheduler stopped")
	}()
	return nil
}
