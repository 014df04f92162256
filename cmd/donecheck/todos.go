package main

import (
	"github.com/spf13/cobra"

	"donecheck/internal/candidate"
)

var todosOpts = checkOptions{Kind: candidate.KindTodo}

var todosCmd = &cobra.Command{
	Use:   "todos",
	Short: "Find TODO comments that look already done",
	Long: `Extract TODO, FIXME and similar markers from source comments and score how
likely each one is already resolved, so stale markers can be cleaned up.

Examples:
  donecheck todos
  donecheck todos --group-by band
  donecheck todos --format csv --output todos.csv
  donecheck todos --no-git                   # skip blame-based ages`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return executeCheck(cmd, todosOpts)
	},
}

func init() {
	addCheckFlags(todosCmd, &todosOpts)
	todosCmd.Flags().BoolVar(&todosOpts.NoGit, "no-git", false, "Do not read TODO ages from git blame")
	rootCmd.AddCommand(todosCmd)
}
