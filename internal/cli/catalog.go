package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/opensource-finance/claimguard/internal/catalog"
	"github.com/spf13/cobra"
)

var catalogJSON bool

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Show the trained models and dataset statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		models := catalog.Models()
		summary, err := catalog.Summarize(models)
		if err != nil {
			return err
		}

		if catalogJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]interface{}{
				"overview":     catalog.GetOverview(),
				"dataset":      catalog.GetDataset(),
				"distribution": catalog.Distribution(),
				"models":       models,
				"summary":      summary,
			})
		}
		return printCatalog(cmd.OutOrStdout(), models, summary)
	},
}

func init() {
	catalogCmd.Flags().BoolVar(&catalogJSON, "json", false, "print as JSON")
	rootCmd.AddCommand(catalogCmd)
}

func printCatalog(out io.Writer, models []catalog.Model, summary catalog.Summary) error {
	ds := catalog.GetDataset()
	fmt.Fprintln(out, catalog.GetOverview().Title)
	fmt.Fprintf(out, "Dataset: %d records, %d after cleaning (%.1f%% removed), %d features\n",
		ds.OriginalRecords, ds.CleanedRecords, ds.ReductionPercent(), ds.Features)
	for _, share := range catalog.Distribution() {
		fmt.Fprintf(out, "  %-10s %5d (%.1f%%)\n", share.Label, share.Count, share.Percent)
	}
	fmt.Fprintln(out)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tMODEL\tACCURACY\tPRECISION\tRECALL\tF1\tSTATUS")
	for _, m := range models {
		met := m.Confusion.Metrics()
		fmt.Fprintf(tw, "%s\t%s\t%.2f%%\t%.4f\t%.4f\t%.4f\t%s\n",
			m.ID, m.DisplayName, m.ReportedAccuracy(), met.Precision, met.Recall, met.F1, m.Status)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Accuracy mean %.4f, median %.4f, max %.4f, std dev %.4f (best: %s)\n",
		summary.Mean, summary.Median, summary.Max, summary.StdDev, summary.Best)
	return nil
}
