package main

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/cwbudde/distortfit/internal/store"
)

var (
	resultsDataDir string
	olderThanDays  int
	forceClean     bool
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Manage stored solve results",
}

var listResultsCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored results",
	RunE:  runListResults,
}

var cleanResultsCmd = &cobra.Command{
	Use:   "clean",
	Short: "Delete old results",
	Long:  `Delete stored results older than the given number of days.`,
	RunE:  runCleanResults,
}

func init() {
	rootCmd.AddCommand(resultsCmd)
	resultsCmd.AddCommand(listResultsCmd)
	resultsCmd.AddCommand(cleanResultsCmd)

	resultsCmd.PersistentFlags().StringVar(&resultsDataDir, "data-dir", "./data", "Base directory for result storage")
	cleanResultsCmd.Flags().IntVar(&olderThanDays, "older-than", 0, "Delete results older than N days (required)")
	cleanResultsCmd.Flags().BoolVarP(&forceClean, "force", "f", false, "Skip confirmation prompt")
}

func runListResults(cmd *cobra.Command, args []string) error {
	resultStore, err := store.NewFSStore(resultsDataDir)
	if err != nil {
		return fmt.Errorf("failed to create result store: %w", err)
	}

	infos, err := resultStore.ListResults()
	if err != nil {
		return fmt.Errorf("failed to list results: %w", err)
	}

	if len(infos) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIMESTAMP\tN\tSTATUS\tD\tBACKEND")
	fmt.Fprintln(w, "--\t---------\t-\t------\t-\t-------")

	for _, info := range infos {
		displayID := info.ID
		if len(displayID) > 12 {
			displayID = displayID[:12] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%.6f\t%s\n",
			displayID,
			info.Timestamp.Format("2006-01-02 15:04:05"),
			info.N,
			info.Status,
			info.D,
			info.Backend,
		)
	}
	w.Flush()

	fmt.Printf("\nTotal results: %d\n", len(infos))
	return nil
}

func runCleanResults(cmd *cobra.Command, args []string) error {
	if olderThanDays <= 0 {
		return fmt.Errorf("must specify --older-than")
	}

	resultStore, err := store.NewFSStore(resultsDataDir)
	if err != nil {
		return fmt.Errorf("failed to create result store: %w", err)
	}

	infos, err := resultStore.ListResults()
	if err != nil {
		return fmt.Errorf("failed to list results: %w", err)
	}

	cutoff := time.Now().AddDate(0, 0, -olderThanDays)
	var toDelete []store.ResultInfo
	for _, info := range infos {
		if info.Timestamp.Before(cutoff) {
			toDelete = append(toDelete, info)
		}
	}

	if len(toDelete) == 0 {
		fmt.Println("No results match deletion criteria.")
		return nil
	}

	fmt.Printf("Found %d result(s) to delete:\n", len(toDelete))
	for _, info := range toDelete {
		fmt.Printf("  - %s (%s)\n", info.ID, info.Timestamp.Format("2006-01-02 15:04:05"))
	}

	if !forceClean {
		fmt.Print("\nProceed with deletion? [y/N]: ")
		var response string
		fmt.Scanln(&response)
		if response != "y" && response != "Y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	deleted := 0
	failed := 0
	for _, info := range toDelete {
		if err := resultStore.DeleteResult(info.ID); err != nil {
			slog.Error("Failed to delete result", "id", info.ID, "error", err)
			failed++
		} else {
			deleted++
		}
	}

	fmt.Printf("\nDeleted %d result(s), %d failed.\n", deleted, failed)
	return nil
}
