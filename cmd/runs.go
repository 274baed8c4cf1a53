package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/cwbudde/esmax/internal/trace"
	"github.com/spf13/cobra"
)

var (
	runsDataDir   string
	keepLast      int
	olderThanDays int
	forceClean    bool
	showEvery     int
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect and manage recorded runs",
	Long:  `List, show and clean runs recorded with "esmax run --data-dir".`,
}

var listRunsCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs",
	RunE:  runListRuns,
}

var showRunCmd = &cobra.Command{
	Use:   "show [run-id]",
	Short: "Show the summary and score trace of a run",
	Args:  cobra.ExactArgs(1),
	RunE:  runShowRun,
}

var cleanRunsCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete old runs",
	Long: `Delete recorded runs based on a retention policy: keep only the newest N
runs, or delete runs older than N days.`,
	RunE: runCleanRuns,
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.AddCommand(listRunsCmd)
	runsCmd.AddCommand(showRunCmd)
	runsCmd.AddCommand(cleanRunsCmd)

	runsCmd.PersistentFlags().StringVar(&runsDataDir, "data-dir", "./data", "Directory holding recorded runs")

	showRunCmd.Flags().IntVar(&showEvery, "every", 10, "Print every Nth generation of the trace")

	cleanRunsCmd.Flags().IntVar(&keepLast, "keep-last", 0, "Keep only the newest N runs (0 = keep all)")
	cleanRunsCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete runs older than N days (0 = no age limit)")
	cleanRunsCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
}

func runListRuns(cmd *cobra.Command, args []string) error {
	runs, err := trace.ListRuns(runsDataDir)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tTIMESTAMP\tOBJECTIVE\tSEED\tGENERATIONS\tFINAL SCORE\tWEIGHT\tSIZE")
	fmt.Fprintln(w, "------\t---------\t---------\t----\t-----------\t-----------\t------\t----")
	for _, s := range runs {
		sizeStr := "unknown"
		if size, err := runSize(s.RunID); err == nil {
			sizeStr = formatBytes(size)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.6g\t%.6g\t%s\n",
			shortID(s.RunID),
			s.Timestamp.Format("2006-01-02 15:04:05"),
			s.Objective,
			s.Config.Seed,
			s.Result.Generations,
			s.Result.FinalScore,
			s.Result.FinalParam,
			sizeStr,
		)
	}
	w.Flush()

	fmt.Fprintf(out, "\nTotal runs: %d\n", len(runs))
	return nil
}

func runShowRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	out := cmd.OutOrStdout()

	s, err := trace.LoadSummary(runsDataDir, runID)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Run:         %s\n", s.RunID)
	fmt.Fprintf(out, "Objective:   %s (target %g)\n", s.Objective, s.Target)
	fmt.Fprintf(out, "Seed:        %d\n", s.Config.Seed)
	fmt.Fprintf(out, "Population:  %d (sigma %g, alpha %g)\n", s.Config.PopSize, s.Config.Sigma, s.Config.Alpha)
	fmt.Fprintf(out, "Generations: %d of %d (converged: %v)\n", s.Result.Generations, s.Config.Generations, s.Result.Converged)
	fmt.Fprintf(out, "Weight:      %g -> %g\n", s.Result.InitialParam, s.Result.FinalParam)
	fmt.Fprintf(out, "Score:       final %g, best %g at %g\n", s.Result.FinalScore, s.Result.BestScore, s.Result.BestParam)

	reader, err := trace.NewReader(runsDataDir, runID)
	if err != nil {
		return err
	}
	defer reader.Close()

	entries, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read trace: %w", err)
	}

	every := max(showEvery, 1)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nGENERATION\tSCORE\tWEIGHT\tGRADIENT")
	for i, e := range entries {
		if i%every != 0 && i != len(entries)-1 {
			continue
		}
		fmt.Fprintf(w, "%d\t%.6g\t%.6g\t%.6g\n", e.Generation, e.Score, e.Param, e.Gradient)
	}
	return w.Flush()
}

func runCleanRuns(cmd *cobra.Command, args []string) error {
	if keepLast == 0 && olderThanDays == 0 {
		return fmt.Errorf("must specify either --keep-last or --older-than")
	}

	out := cmd.OutOrStdout()
	runs, err := trace.ListRuns(runsDataDir)
	if err != nil {
		return fmt.Errorf("failed to list runs: %w", err)
	}

	toDelete := selectRunsForDeletion(runs, keepLast, olderThanDays, time.Now())
	if len(toDelete) == 0 {
		fmt.Fprintln(out, "No runs match deletion criteria.")
		return nil
	}

	fmt.Fprintf(out, "Found %d run(s) to delete:\n", len(toDelete))
	for _, s := range toDelete {
		fmt.Fprintf(out, "  - %s (%s, %s)\n", shortID(s.RunID), s.Objective, s.Timestamp.Format("2006-01-02 15:04:05"))
	}

	if !forceClean {
		fmt.Fprint(out, "\nProceed with deletion? [y/N]: ")
		var response string
		fmt.Fscanln(cmd.InOrStdin(), &response)
		if response != "y" && response != "Y" {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	deleted, failed := 0, 0
	for _, s := range toDelete {
		if err := trace.DeleteRun(runsDataDir, s.RunID); err != nil {
			slog.Error("Failed to delete run", "run_id", s.RunID, "error", err)
			failed++
			continue
		}
		slog.Info("Deleted run", "run_id", s.RunID)
		deleted++
	}

	fmt.Fprintf(out, "\nDeleted %d run(s), %d failed.\n", deleted, failed)
	return nil
}

// selectRunsForDeletion applies the retention policy. A run matching both
// rules is listed once.
func selectRunsForDeletion(runs []trace.Summary, keepLast, olderThanDays int, now time.Time) []trace.Summary {
	var toDelete []trace.Summary
	selected := make(map[string]bool)

	if olderThanDays > 0 {
		cutoff := now.AddDate(0, 0, -olderThanDays)
		for _, s := range runs {
			if s.Timestamp.Before(cutoff) {
				toDelete = append(toDelete, s)
				selected[s.RunID] = true
			}
		}
	}

	if keepLast > 0 && len(runs) > keepLast {
		sorted := append([]trace.Summary{}, runs...)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].Timestamp.Before(sorted[j].Timestamp)
		})

		for _, s := range sorted[:len(sorted)-keepLast] {
			if !selected[s.RunID] {
				toDelete = append(toDelete, s)
				selected[s.RunID] = true
			}
		}
	}

	return toDelete
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12] + "..."
	}
	return id
}

// runSize returns the bytes used by a run directory.
func runSize(runID string) (int64, error) {
	var size int64
	err := filepath.Walk(filepath.Join(runsDataDir, "runs", runID), func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}

// formatBytes formats bytes as human-readable string
func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
