package main

import (
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [paths...]",
	Short: "Check definitions without generating",
	Long: `Parse and validate every definition under the given paths and print the
diagnostics. Nothing is written.

Examples:
  ctrlgen validate
  ctrlgen validate lamp.ctrl.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	holder, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer holder.Stop()

	g, err := newGenerator(holder.Get(), logger, true, nil)
	if err != nil {
		return err
	}

	return generate(cmd, g, inputPaths(args))
}
