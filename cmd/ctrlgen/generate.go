package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/artpar/ctrlgen/config"
	"github.com/artpar/ctrlgen/core/generator"
	"github.com/artpar/ctrlgen/core/schema"
)

var generateCmd = &cobra.Command{
	Use:   "generate [paths...]",
	Short: "Generate controllers from definitions",
	Long: `Generate a controller for every definition found under the given paths.

Directories are searched recursively for *.ctrl.go, *.ctrl.yaml and *.ctrl.yml
files, skipping hidden, underscore, testdata and vendor directories. Each
definition produces <name>_ctrl.gen.go next to it. A definition with errors
produces no output.

Examples:
  ctrlgen generate
  ctrlgen generate ./internal/... --jobs 4
  ctrlgen generate lamp.ctrl.yaml --stdout`,
	RunE: runGenerate,
}

var (
	generateDryRun   bool
	generateStdout   bool
	generateJobs     int
	generateStrategy string
)

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().BoolVar(&generateDryRun, "dry-run", false, "check every definition without writing")
	generateCmd.Flags().BoolVar(&generateStdout, "stdout", false, "print generated sources instead of writing them")
	generateCmd.Flags().IntVar(&generateJobs, "jobs", -1, "definitions generated at once (0 = GOMAXPROCS, default from config)")
	generateCmd.Flags().StringVar(&generateStrategy, "strategy", "", "default strategy of published fields (latest, history)")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	holder, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer holder.Stop()

	var stdout io.Writer
	if generateStdout {
		stdout = cmd.OutOrStdout()
	}
	g, err := newGenerator(holder.Get(), logger, generateDryRun, stdout)
	if err != nil {
		return err
	}

	return generate(cmd, g, inputPaths(args))
}

// newGenerator builds a generator from the configuration and the generate flags.
func newGenerator(cfg *config.Config, logger zerolog.Logger, dryRun bool, stdout io.Writer) (*generator.Generator, error) {
	conv := cfg.ConventionOptions()
	if generateStrategy != "" {
		s, ok := schema.ParseStrategy(generateStrategy)
		if !ok {
			return nil, fmt.Errorf("--strategy must be latest or history, got %q", generateStrategy)
		}
		conv.DefaultStrategy = s
	}

	jobs := cfg.Generate.Jobs
	if generateJobs >= 0 {
		jobs = generateJobs
	}

	return generator.New(generator.Options{
		Convention: conv,
		Suffix:     cfg.Generate.Suffix,
		Jobs:       jobs,
		DryRun:     dryRun,
		Stdout:     stdout,
	}, logger), nil
}

func generate(cmd *cobra.Command, g *generator.Generator, paths []string) error {
	report, err := g.Run(cmd.Context(), paths)
	if err != nil {
		return err
	}

	printDiagnostics(report.Diagnostics())

	out := cmd.ErrOrStderr()
	for _, f := range report.Files {
		switch {
		case f.Failed():
			fmt.Fprintf(out, "  %s %s\n", crossMark(), f.Input)
		case f.Written:
			fmt.Fprintf(out, "  %s %s -> %s\n", checkMark(), f.Input, f.Output)
		default:
			fmt.Fprintf(out, "  %s %s\n", checkMark(), f.Input)
		}
	}

	if report.HasErrors() {
		fmt.Fprintf(out, "\n%d of %d definitions failed\n", report.Failed(), len(report.Files))
		return errReported
	}
	return nil
}

func inputPaths(args []string) []string {
	if len(args) == 0 {
		return []string{"."}
	}
	paths := make([]string, 0, len(args))
	for _, a := range args {
		// Accept the go tool's ./... pattern.
		if trimmed, ok := strings.CutSuffix(a, "..."); ok {
			a = strings.TrimSuffix(trimmed, "/")
			if a == "" {
				a = "."
			}
		}
		paths = append(paths, a)
	}
	return paths
}
