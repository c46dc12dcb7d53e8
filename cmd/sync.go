package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a full sync: load, validate, publish, notify",
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := buildPipeline().Run(cmd.Context())
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	},
}

func init() {
	addSourceFlags(syncCmd)
	rootCmd.AddCommand(syncCmd)
}
