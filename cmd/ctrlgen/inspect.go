package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/artpar/ctrlgen/core/generator"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <path>",
	Short: "Print the published fields and signals of a controller",
	Long: `Print the collaborator contract of a definition: every published field and
signal with its channel key, strategy, payload and subscriber type, and every
accessor generated for the controller.

Examples:
  ctrlgen inspect lamp.ctrl.yaml
  ctrlgen inspect machine.ctrl.go --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

var inspectFormat string

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVar(&inspectFormat, "format", "yaml", "output format (yaml, json)")
}

func runInspect(cmd *cobra.Command, args []string) error {
	if inspectFormat != "yaml" && inspectFormat != "json" {
		return fmt.Errorf("--format must be yaml or json, got %q", inspectFormat)
	}

	holder, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer holder.Stop()

	cfg := holder.Get()
	g := generator.New(generator.Options{
		Convention: cfg.ConventionOptions(),
		Suffix:     cfg.Generate.Suffix,
	}, logger)

	contract, diags, err := g.Inspect(args[0])
	if err != nil {
		return err
	}
	printDiagnostics(diags)
	if diags.HasErrors() {
		return errReported
	}

	out := cmd.OutOrStdout()
	if inspectFormat == "json" {
		data, err := json.MarshalIndent(contract, "", "  ")
		if err != nil {
			return fmt.Errorf("encode contract: %w", err)
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(contract); err != nil {
		return fmt.Errorf("encode contract: %w", err)
	}
	return enc.Close()
}
