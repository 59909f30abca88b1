package cli

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/opensource-finance/claimguard/internal/catalog"
	"github.com/opensource-finance/claimguard/internal/domain"
	"github.com/opensource-finance/claimguard/internal/predict"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// LabelColumn holds the ground truth in evaluation files.
const LabelColumn = "fraud_reported"

var (
	evalModel   string
	evalLimit   int
	evalVerbose bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <claims.csv>",
	Short: "Replay labelled claims and report accuracy",
	Long: `Evaluate sends every row of a labelled CSV through the prediction
workflow, one at a time, and compares the result with the fraud_reported
column (1/0, Y/N, yes/no, true/false).

Columns are form keys or scoring wire keys; missing columns keep the
example claim's values.

Example:
  claimguard evaluate claims.csv
  claimguard evaluate claims.csv --model rf --limit 500`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

func init() {
	evaluateCmd.Flags().StringVarP(&evalModel, "model", "m", string(domain.DefaultModel), "model id: lr, rf, l1 or l2")
	evaluateCmd.Flags().IntVar(&evalLimit, "limit", 0, "maximum rows to process (0 = all)")
	evaluateCmd.Flags().BoolVar(&evalVerbose, "verbose-rows", false, "print each row result")

	rootCmd.AddCommand(evaluateCmd)
}

// Report summarises an evaluation run.
type Report struct {
	Confusion catalog.Confusion
	Fallbacks int
	Rejected  int
	Skipped   int
	Duration  time.Duration
}

// Processed is the number of rows that produced a result.
func (r *Report) Processed() int {
	return r.Confusion.Total()
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	setupLogging(os.Stderr, cfg.Logging)

	file, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer file.Close()

	workflow, err := newWorkflow(cfg)
	if err != nil {
		return err
	}

	var rowOut io.Writer
	if evalVerbose {
		rowOut = cmd.OutOrStdout()
	}

	report, err := evaluateCSV(cmd.Context(), file, workflow, domain.ModelID(evalModel), evalLimit, rowOut)
	if err != nil {
		return err
	}
	printReport(cmd.OutOrStdout(), report)
	return nil
}

// evaluateCSV replays rows sequentially. Rows with an unreadable label
// are skipped; rejected rows are counted but not scored.
func evaluateCSV(ctx context.Context, r io.Reader, workflow *predict.Workflow, model domain.ModelID, limit int, rowOut io.Writer) (*Report, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	columns, labelIdx, err := mapColumns(header)
	if err != nil {
		return nil, err
	}

	report := &Report{}
	start := time.Now()
	latch := &predict.LocalLatch{}

	for row := 1; ; row++ {
		if limit > 0 && report.Processed()+report.Rejected >= limit {
			break
		}

		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil || labelIdx >= len(record) {
			report.Skipped++
			continue
		}

		actual, ok := parseLabel(record[labelIdx])
		if !ok {
			report.Skipped++
			continue
		}

		form := domain.DefaultClaimForm()
		for idx, key := range columns {
			if idx < len(record) {
				form[key] = record[idx]
			}
		}

		result, err := workflow.Submit(ctx, latch, predict.Submission{
			SessionID: "evaluate",
			ModelID:   model,
			Form:      form,
		})
		var rejection *predict.RejectionError
		if errors.As(err, &rejection) {
			report.Rejected++
			slog.Debug("row rejected", "row", row, "message", rejection.Message)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", row, err)
		}

		predicted := result.Classification == domain.ClassFraud
		report.Confusion.Add(actual, predicted)
		if result.IsFallback {
			report.Fallbacks++
		}

		if rowOut != nil {
			mark := "ok"
			if predicted != actual {
				mark = "MISS"
			}
			fmt.Fprintf(rowOut, "%-4s row %-6d actual=%-5v predicted=%-9s p=%.2f fallback=%v\n",
				mark, row, actual, result.Classification, result.Probability, result.IsFallback)
		}
	}

	report.Duration = time.Since(start)
	return report, nil
}

// mapColumns resolves header names to form keys. Unknown columns are ignored.
func mapColumns(header []string) (map[int]string, int, error) {
	byWire := make(map[string]string)
	for _, f := range domain.ClaimFields() {
		byWire[f.WireKey] = f.Key
	}

	columns := make(map[int]string)
	labelIdx := -1
	for i, col := range header {
		name := strings.ToLower(strings.TrimSpace(col))
		if name == LabelColumn {
			labelIdx = i
			continue
		}
		if _, ok := domain.LookupField(name); ok {
			columns[i] = name
			continue
		}
		if key, ok := byWire[name]; ok {
			columns[i] = key
		}
	}

	if labelIdx < 0 {
		return nil, 0, fmt.Errorf("missing %s column", LabelColumn)
	}
	return columns, labelIdx, nil
}

func parseLabel(s string) (fraud bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "y", "yes", "true", "fraud":
		return true, true
	case "0", "n", "no", "false", "not fraud":
		return false, true
	default:
		return false, false
	}
}

func printReport(out io.Writer, r *Report) {
	c := r.Confusion
	m := c.Metrics()

	fmt.Fprintln(out, "EVALUATION RESULTS")
	fmt.Fprintf(out, "  Processed:  %d\n", r.Processed())
	fmt.Fprintf(out, "  Fallbacks:  %d\n", r.Fallbacks)
	fmt.Fprintf(out, "  Rejected:   %d\n", r.Rejected)
	fmt.Fprintf(out, "  Skipped:    %d\n", r.Skipped)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "CONFUSION MATRIX")
	fmt.Fprintln(out, "                    Predicted")
	fmt.Fprintln(out, "                  Fraud   Not Fraud")
	fmt.Fprintf(out, "  Actual  Fraud  %7d %11d   (TP, FN)\n", c.TP, c.FN)
	fmt.Fprintf(out, "      Not Fraud  %7d %11d   (FP, TN)\n", c.FP, c.TN)
	fmt.Fprintln(out)
	fmt.Fprintf(out, "  Accuracy:    %.4f\n", m.Accuracy)
	fmt.Fprintf(out, "  Precision:   %.4f\n", m.Precision)
	fmt.Fprintf(out, "  Recall:      %.4f\n", m.Recall)
	fmt.Fprintf(out, "  F1-Score:    %.4f\n", m.F1)
	fmt.Fprintf(out, "  Specificity: %.4f\n", m.Specificity)
	fmt.Fprintf(out, "  Duration:    %v\n", r.Duration.Round(time.Millisecond))
}
