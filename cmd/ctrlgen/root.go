package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/zoobzio/capitan"
	"golang.org/x/term"

	"github.com/artpar/ctrlgen/config"
	"github.com/artpar/ctrlgen/core/diag"
	"github.com/artpar/ctrlgen/core/events"
)

var (
	// Global flags
	cfgFile   string
	logLevel  string
	colorMode string
)

// errReported is returned by commands whose failure was already printed.
var errReported = errors.New("failed")

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "ctrlgen",
	Short: "Generate concurrent controllers with published state and signals",
	Long: `ctrlgen turns a controller definition into a Go controller.

The controller owns its state on a single goroutine. Published fields are
observable through latest-value or history channels, signals are broadcast
as events and clients call operations through a command queue.

Commands:
  ctrlgen generate ./...   # write <name>_ctrl.gen.go next to each definition
  ctrlgen validate .       # check definitions without writing
  ctrlgen inspect x.ctrl.go
  ctrlgen watch .          # regenerate on change`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		switch colorMode {
		case "on":
			color.NoColor = false
		case "off":
			color.NoColor = true
		case "auto":
			color.NoColor = os.Getenv("NO_COLOR") != "" || !term.IsTerminal(int(os.Stderr.Fd()))
		default:
			return fmt.Errorf("--color must be auto, on or off, got %q", colorMode)
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	capitan.Shutdown()
	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&colorMode, "color", "auto", "colored output (auto, on, off)")
}

// loadConfig opens the configuration holder and builds the logger it describes.
func loadConfig() (*config.Holder, zerolog.Logger, error) {
	holder, err := config.NewHolder(cfgFile, zerolog.Nop())
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	logger := newLogger(holder.Get())
	holder.SetLogger(logger)
	events.LogTo(logger)
	return holder, logger, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	lc := cfg.Logging
	if logLevel != "" {
		lc.Level = logLevel
	}
	return config.NewLogger(lc, os.Stderr)
}

func checkMark() string { return color.GreenString("✓") }

func crossMark() string { return color.RedString("✗") }

func printDiagnostics(list diag.List) {
	if len(list) == 0 {
		return
	}
	list.Sort()
	diag.Pretty(os.Stderr, list, diag.PrettyOpts{Color: !color.NoColor})
}
