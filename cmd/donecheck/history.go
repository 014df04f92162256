package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"donecheck/internal/candidate"
	"donecheck/internal/history"
	"donecheck/internal/paths"
	"donecheck/internal/report"
	"donecheck/internal/slogutil"
)

var (
	historyKind   string
	historyLimit  int
	historyFormat string
	historyKeep   int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded runs",
	Long:  "List, show and prune the runs recorded in .donecheck/history.db",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := parseKind(historyKind)
		if err != nil {
			return err
		}
		return withHistory(cmd, func(ctx context.Context, store *history.Store) error {
			return listRuns(ctx, store, kind, historyLimit, historyFormat, cmd.OutOrStdout())
		})
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Re-render a recorded run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := report.ParseFormat(historyFormat)
		if err != nil {
			return err
		}
		return withHistory(cmd, func(ctx context.Context, store *history.Store) error {
			return showRun(ctx, store, args[0], format, cmd.OutOrStdout())
		})
	},
}

var historyItemCmd = &cobra.Command{
	Use:   "item <candidate-id>",
	Short: "Show how one candidate changed across runs",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(cmd, func(ctx context.Context, store *history.Store) error {
			return showItem(ctx, store, args[0], historyFormat, cmd.OutOrStdout())
		})
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the newest runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withHistory(cmd, func(ctx context.Context, store *history.Store) error {
			total := 0
			for _, kind := range []candidate.Kind{candidate.KindFeature, candidate.KindTodo} {
				n, err := store.Prune(ctx, kind, historyKeep)
				if err != nil {
					return err
				}
				total += n
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run(s), kept the newest %d per kind.\n", total, historyKeep)
			return err
		})
	},
}

func init() {
	historyListCmd.Flags().StringVar(&historyKind, "kind", "", "Only list runs of this kind (features, todos)")
	historyListCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of runs to list")
	historyListCmd.Flags().StringVar(&historyFormat, "format", "human", "Output format (json, human)")
	historyShowCmd.Flags().StringVar(&historyFormat, "format", "human", "Output format (human, json, markdown, csv)")
	historyItemCmd.Flags().StringVar(&historyFormat, "format", "human", "Output format (json, human)")
	historyPruneCmd.Flags().IntVar(&historyKeep, "keep", 10, "Runs to keep per kind")

	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyItemCmd, historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}

// withHistory opens the history database of the current repository.
func withHistory(cmd *cobra.Command, fn func(context.Context, *history.Store) error) error {
	repoRoot, err := resolveRepoRoot()
	if err != nil {
		return err
	}
	logger := slogutil.NewLogger(cmd.ErrOrStderr(), cliLevel())
	store, err := openHistory(repoRoot, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(cmd.Context(), store)
}

func openHistory(repoRoot string, logger *slog.Logger) (*history.Store, error) {
	return history.Open(paths.HistoryDBPath(repoRoot), logger)
}

// parseKind accepts singular and plural kind names; empty means all kinds.
func parseKind(s string) (candidate.Kind, error) {
	switch s {
	case "":
		return "", nil
	case "feature", "features":
		return candidate.KindFeature, nil
	case "todo", "todos":
		return candidate.KindTodo, nil
	}
	return "", fmt.Errorf("unknown kind %q (use features or todos)", s)
}

func listRuns(ctx context.Context, store *history.Store, kind candidate.Kind, limit int, format string, w io.Writer) error {
	runs, err := store.List(ctx, kind, limit)
	if err != nil {
		return err
	}
	if format == "json" {
		return writeJSON(w, runs)
	}
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs recorded.")
		return err
	}
	fmt.Fprintf(w, "%-36s  %-8s  %-20s  %6s  %8s  %7s\n", "RUN", "KIND", "CREATED", "ITEMS", "PROGRESS", "CLEANUP")
	for _, r := range runs {
		fmt.Fprintf(w, "%-36s  %-8s  %-20s  %6d  %7d%%  %7d\n",
			r.RunID, r.Kind, r.CreatedAt.Local().Format("2006-01-02 15:04:05"), r.Total, r.ProgressPercent, r.CleanupCount)
	}
	return nil
}

func showRun(ctx context.Context, store *history.Store, runID string, format report.Format, w io.Writer) error {
	doc, err := store.Load(ctx, runID)
	if stderrors.Is(err, history.ErrNotFound) {
		return fmt.Errorf("no run with id %s", runID)
	}
	if err != nil {
		return err
	}
	renderer, err := report.NewRenderer(format, report.Options{Verbose: true})
	if err != nil {
		return err
	}
	return renderer.Render(w, doc)
}

func showItem(ctx context.Context, store *history.Store, candidateID, format string, w io.Writer) error {
	points, err := store.ItemHistory(ctx, candidateID)
	if err != nil {
		return err
	}
	if format == "json" {
		return writeJSON(w, points)
	}
	if len(points) == 0 {
		_, err := fmt.Fprintf(w, "No recorded runs mention %s.\n", candidateID)
		return err
	}
	for _, p := range points {
		moved := ""
		if p.CandidateID != candidateID {
			moved = "  (as " + p.CandidateID + ")"
		}
		fmt.Fprintf(w, "%s  %-14s %3d%%  %s%s\n", p.CreatedAt.Local().Format("2006-01-02 15:04"), p.Status, p.Confidence, p.RunID, moved)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
