package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"donecheck/internal/version"
)

var versionFormat string

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if versionFormat == "json" {
			data, err := json.MarshalIndent(version.Current(), "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, string(data))
			return err
		}
		_, err := fmt.Fprintln(out, version.Full())
		return err
	},
}

func init() {
	versionCmd.Flags().StringVar(&versionFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(versionCmd)
}
