package main

import (
	"context"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/artpar/ctrlgen/config"
	"github.com/artpar/ctrlgen/core/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [paths...]",
	Short: "Regenerate controllers when definitions change",
	Long: `Generate once, then watch the given paths and the config file and
regenerate whenever a definition changes. A change to the config file reloads
it first. SIGHUP reloads the config file as well. Stop with Ctrl-C.

Examples:
  ctrlgen watch
  ctrlgen watch ./internal/controllers`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	holder, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer holder.Stop()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cmd.SetContext(ctx)

	paths := inputPaths(args)
	regenerate := func(cfg *config.Config, logger zerolog.Logger) {
		g, err := newGenerator(cfg, logger, false, nil)
		if err != nil {
			logger.Error().Err(err).Msg("cannot build generator")
			return
		}
		if err := generate(cmd, g, paths); err != nil && err != errReported {
			logger.Error().Err(err).Msg("generation failed")
		}
	}
	regenerate(holder.Get(), logger)

	w, err := watch.New(holder.Get().Watch.Debounce, logger)
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(paths...); err != nil {
		return err
	}
	if _, err := os.Stat(holder.Path()); err == nil {
		if err := w.Add(holder.Path()); err != nil {
			return err
		}
	}
	holder.WatchSignals()

	logger.Info().Strs("paths", paths).Msg("watching for changes")
	return w.Run(ctx, func(ctx context.Context, changed []string) {
		if slices.Contains(changed, holder.Path()) {
			if err := holder.Reload(); err != nil {
				return
			}
			logger = newLogger(holder.Get())
		}
		regenerate(holder.Get(), logger)
	})
}
