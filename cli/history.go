package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/petal-labs/petalgen/store"
)

// NewHistoryCmd creates the "history" subcommand.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent conversions",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}

	cmd.Flags().IntP("limit", "n", 20, "Maximum entries to list")
	cmd.Flags().String("db", "", "Path to the history database (default: ~/.petalgen/petalgen.db)")

	return cmd
}

func runHistory(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	dbPath, _ := cmd.Flags().GetString("db")
	out := cmd.OutOrStdout()

	var (
		st  *store.Store
		err error
	)
	if dbPath != "" {
		st, err = store.Open(dbPath)
	} else {
		st, err = store.OpenDefault()
	}
	if err != nil {
		return fmt.Errorf("opening history store: %w", err)
	}
	defer st.Close()

	records, err := st.List(cmd.Context(), limit)
	if err != nil {
		return fmt.Errorf("listing history: %w", err)
	}

	if len(records) == 0 {
		fmt.Fprintln(out, "No conversions recorded.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tGRAPH\tNODES\tWARNINGS\tSOURCE\tOUTPUT")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
			r.CreatedAt.Local().Format(time.DateTime),
			r.GraphName, r.Nodes, r.Warnings, r.SourcePath, r.OutputPath)
	}
	return w.Flush()
}
