package main

import (
	"github.com/spf13/cobra"

	"calview/internal/config"
	appLog "calview/internal/log"
)

const defaultConfigPath = "/etc/calview/config.yaml"

type rootFlags struct {
	configPath string
	debug      bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "calview",
		Short: "Calendar view host: slices ICS events into the visible window",
		Long: `calview fetches ICS feeds, materializes their events and serves
calendar views that slice those events into the visible date window.

Examples:
  calview serve --listen 0.0.0.0:8080
  calview render --view custom --start 2024-01-01 --end 2024-01-08
  calview render --view agenda --json
  calview capture --url http://127.0.0.1:8080/view/custom`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&flags.configPath, "config", defaultConfigPath,
		"Path to config file (created with defaults if missing)")
	cmd.PersistentFlags().BoolVar(&flags.debug, "debug", false,
		"Enable debug logging")

	cmd.AddCommand(
		newServeCmd(flags),
		newRenderCmd(flags),
		newCaptureCmd(flags),
	)
	return cmd
}

// loadConfig reads the config and applies the log level; --debug wins.
func (f *rootFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}

	level := appLog.ParseLevel(cfg.LogLevel)
	if f.debug {
		level = appLog.LevelDebug
	}
	appLog.SetLevel(level)

	appLog.Info("effective config",
		"config_path", f.configPath,
		"listen", cfg.Listen,
		"timezone", cfg.Timezone,
		"refresh", cfg.RefreshCron,
		"horizon_days", cfg.HorizonDays,
		"backfill_days", cfg.BackfillDays,
		"default_view", cfg.DefaultView,
		"ics_count", len(cfg.ICS),
	)
	return cfg, nil
}
