package main

import (
	"github.com/spf13/cobra"
)

func addCheckFlags(cmd *cobra.Command, opts *checkOptions) {
	f := cmd.Flags()
	f.StringVar(&opts.Format, "format", "human", "Output format (human, json, markdown, csv)")
	f.StringVar(&opts.GroupBy, "group-by", "document", "Group results by: document, file, directory, band, status")
	f.StringVarP(&opts.Output, "output", "o", "", "Write the report to a file instead of stdout")
	f.BoolVar(&opts.NoColor, "no-color", false, "Disable colored output")
	f.BoolVar(&opts.Reasons, "reasons", false, "List the evidence reasons under each result")
	f.BoolVar(&opts.Breakdown, "breakdown", false, "Include per-category score breakdowns")
	f.BoolVar(&opts.NoHistory, "no-history", false, "Do not record this run or compare it with the previous one")
	f.BoolVar(&opts.NoSCIP, "no-scip", false, "Ignore the SCIP index and use textual usage search")
	f.IntVar(&opts.Workers, "workers", 0, "Concurrent evaluations (default: from config)")
	f.IntVar(&opts.MinProgress, "min-progress", -1, "Exit with status 2 when progress is below this percentage")
}

// executeCheck runs a check command against the resolved repository.
func executeCheck(cmd *cobra.Command, opts checkOptions) error {
	repoRoot, err := resolveRepoRoot()
	if err != nil {
		return err
	}
	s, err := openSession(repoRoot, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	_, err = runCheck(cmd.Context(), s, opts, cmd.OutOrStdout())
	return err
}
