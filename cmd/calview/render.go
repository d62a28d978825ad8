package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"calview/internal/view"
	"calview/internal/window"
)

type renderFlags struct {
	view     string
	start    string
	end      string
	span     string
	category string
	asJSON   bool
}

func newRenderCmd(root *rootFlags) *cobra.Command {
	flags := &renderFlags{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Refresh feeds once and print one view",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			a := newApp(cfg)
			if err := a.refresher.Refresh(cmd.Context()); err != nil && a.catalog.Len() == 0 {
				return err
			}
			return runRender(cmd.OutOrStdout(), a, flags, time.Now())
		},
	}

	cmd.Flags().StringVar(&flags.view, "view", "", "View name (default from config)")
	cmd.Flags().StringVar(&flags.start, "start", "", "Window start, RFC 3339 or YYYY-MM-DD")
	cmd.Flags().StringVar(&flags.end, "end", "", "Window end (exclusive), RFC 3339 or YYYY-MM-DD")
	cmd.Flags().StringVar(&flags.span, "span", "day", "Window span when --end is omitted: day, week or month")
	cmd.Flags().StringVar(&flags.category, "category", "", "Only events with this category")
	cmd.Flags().BoolVar(&flags.asJSON, "json", false, "Print the view output as JSON")
	return cmd
}

func runRender(out io.Writer, a *app, flags *renderFlags, now time.Time) error {
	name := flags.view
	if name == "" {
		name = a.cfg.DefaultView
	}

	span, err := window.ParseSpan(flags.span)
	if err != nil {
		return err
	}
	w, err := window.ResolveSpan(span, flags.start, flags.end, now.In(a.cfg.Location()), a.cfg.Weekday(), a.cfg.BackfillDays, a.cfg.HorizonDays)
	if err != nil {
		return err
	}

	res, err := a.views.Render(name, w, a.catalog.Filter(flags.category))
	if err != nil {
		return err
	}

	if flags.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	return writeText(out, res)
}

func writeText(out io.Writer, res view.Output) error {
	if _, err := fmt.Fprintf(out, "%s\n%d event(s)\n", res.Title, res.Count); err != nil {
		return err
	}
	for _, seg := range res.Segments {
		marker := ""
		if !seg.IsStart {
			marker += "<"
		}
		if !seg.IsEnd {
			marker += ">"
		}
		if _, err := fmt.Fprintf(out, "  %s  %s .. %s %s\n", seg.EventID,
			seg.Start.Format(time.RFC3339), seg.End.Format(time.RFC3339), marker); err != nil {
			return err
		}
	}
	for _, id := range res.Skipped {
		if _, err := fmt.Fprintf(out, "  skipped malformed event %s\n", id); err != nil {
			return err
		}
	}
	return nil
}
