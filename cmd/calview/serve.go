package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"calview/internal/catalog"
	"calview/internal/config"
	"calview/internal/ics"
	appLog "calview/internal/log"
	"calview/internal/metrics"
	"calview/internal/view"
	"calview/internal/web"
)

// app bundles the pieces serve and render share.
type app struct {
	cfg       *config.Config
	rec       *metrics.Recorder
	catalog   *catalog.Catalog
	refresher *catalog.Refresher
	views     *view.Registry
}

func newApp(cfg *config.Config) *app {
	rec := metrics.New()
	cat := catalog.New()
	fetcher := ics.NewFetcher(filepath.Join(cfg.CacheDir, "ics-cache"), nil)
	return &app{
		cfg:       cfg,
		rec:       rec,
		catalog:   cat,
		refresher: catalog.FromConfig(cfg, cat, fetcher, rec),
		views:     view.Default(cfg.TitleFormat, rec),
	}
}

func previewPath(cfg *config.Config) string {
	return filepath.Join(cfg.CacheDir, "preview.png")
}

func newServeCmd(root *rootFlags) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve views over HTTP and refresh feeds on schedule",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, newApp(cfg))
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config)")
	return cmd
}

func runServe(ctx context.Context, a *app) error {
	// A failed first refresh is not fatal; the schedule retries.
	if err := a.refresher.Refresh(ctx); err != nil {
		appLog.Error("initial refresh incomplete", err)
	}
	if err := a.refresher.Start(ctx, a.cfg.RefreshCron); err != nil {
		return err
	}

	srv := web.NewServer(a.cfg, a.views, a.catalog, a.rec, previewPath(a.cfg))
	err := srv.ListenAndServe(ctx)
	appLog.Info("calview exiting")
	return err
}
