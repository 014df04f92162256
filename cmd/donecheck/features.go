package main

import (
	"github.com/spf13/cobra"

	"donecheck/internal/candidate"
)

var featuresOpts = checkOptions{Kind: candidate.KindFeature}

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Check planned features against the code",
	Long: `Extract planned features from roadmap documents and score how likely each
one is implemented.

Planning documents are read from the configured planning paths: markdown
checklists and bullets under planned headings, YAML/TOML front matter and
YAML roadmaps. Claims from the feature registry are attached when present.

Examples:
  donecheck features
  donecheck features --format markdown --output docs/status.md
  donecheck features --group-by status --reasons
  donecheck features --min-progress 80       # exit 2 when below 80%`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeCheck(cmd, featuresOpts)
	},
}

func init() {
	addCheckFlags(featuresCmd, &featuresOpts)
	featuresCmd.Flags().BoolVar(&featuresOpts.SyncRegistry, "sync-registry", false,
		"Record the observed status of registry entries back into the registry file")
	rootCmd.AddCommand(featuresCmd)
}
