package main

import (
	"time"

	"github.com/spf13/cobra"

	"calview/internal/capture"
	"calview/internal/config"
	appLog "calview/internal/log"
)

func newCaptureCmd(root *rootFlags) *cobra.Command {
	var (
		url     string
		output  string
		width   int
		height  int
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Screenshot a view page of a running server to PNG",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}
			if url == "" {
				url = "http://" + cfg.Listen + "/view/" + cfg.DefaultView
			}
			if output == "" {
				output = previewPath(cfg)
			}

			if err := capture.CapturePNG(cmd.Context(), captureOptions(cfg, url, output, width, height, timeout)); err != nil {
				return err
			}
			appLog.Info("view captured", "url", url, "output", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "View page URL (default: this config's server and default view)")
	cmd.Flags().StringVar(&output, "output", "", "PNG output path (default: <cache_dir>/preview.png)")
	cmd.Flags().IntVar(&width, "width", capture.DefaultWidth, "Viewport width in pixels")
	cmd.Flags().IntVar(&height, "height", capture.DefaultHeight, "Viewport height in pixels")
	cmd.Flags().DurationVar(&timeout, "timeout", capture.DefaultTimeout, "Overall capture timeout")
	return cmd
}

// captureOptions carries the server's basic auth credentials so the view
// page loads behind the middleware.
func captureOptions(cfg *config.Config, url, output string, width, height int, timeout time.Duration) capture.Options {
	opts := capture.Options{
		URL:        url,
		OutputPath: output,
		Width:      width,
		Height:     height,
		Timeout:    timeout,
	}
	if cfg.BasicAuth != nil {
		opts.Username = cfg.BasicAuth.Username
		opts.Password = cfg.BasicAuth.Password
	}
	return opts
}
