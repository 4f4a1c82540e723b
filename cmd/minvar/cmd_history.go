package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent optimize runs",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var historyLimit int

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of runs to show")
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, closeDB, err := openStore(cfg.Server.DBPath)
	if err != nil {
		return err
	}
	defer closeDB()

	runs, err := store.RecentRuns(0, historyLimit)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tWHEN\tMETHOD\tTARGET\tSPAN\tVARIANCE\tTOP")
	for _, r := range runs {
		top := "-"
		if len(r.Positions) > 0 {
			top = fmt.Sprintf("%s %.1f%%", r.Positions[0].Ticker, r.Positions[0].Position)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\t%.4f\t%s\n",
			shortID(r.ID), r.CreatedAt.Format("2006-01-02 15:04"), r.Method, r.Target, r.Span, r.Variance, top)
	}
	return w.Flush()
}

func shortID(id string) string {
	return id[:min(8, len(id))]
}
