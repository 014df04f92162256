package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"donecheck/internal/paths"
	"donecheck/internal/slogutil"
	"donecheck/internal/version"
)

var (
	verbosity int
	quiet     bool
	repoFlag  string
)

var rootCmd = &cobra.Command{
	Use:   "donecheck",
	Short: "donecheck - evidence-weighted completion checks",
	Long: `donecheck estimates whether planned features are implemented and whether
TODO comments are already done, by weighing evidence found in the repository:
matching files, usage sites, tests and code patterns.

Every verdict comes with a confidence score and the reasons behind it.`,
	Version:       version.Info(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("donecheck version {{.Version}}\n")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all log output")
	rootCmd.PersistentFlags().StringVar(&repoFlag, "repo", "",
		"Repository root (default: nearest directory with .git or .donecheck)")
}

// resolveRepoRoot returns the --repo flag or the root above the working directory.
func resolveRepoRoot() (string, error) {
	if repoFlag != "" {
		return filepath.Abs(repoFlag)
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return paths.FindRepoRoot(wd)
}

// cliLevel maps -v/-q to a console log level.
func cliLevel() slog.Level {
	return slogutil.LevelFromVerbosity(verbosity, quiet)
}
