package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/ugrc/lsli-skid/internal/pipeline"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load, validate, and join without publishing or emailing",
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := buildPipeline(pipeline.WithDryRun()).Run(cmd.Context())
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	addSourceFlags(validateCmd)
	rootCmd.AddCommand(validateCmd)
}
