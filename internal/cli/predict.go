package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/opensource-finance/claimguard/internal/domain"
	"github.com/opensource-finance/claimguard/internal/predict"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	predictModel  string
	predictFields []string
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Classify one claim",
	Long: `Predict submits the example claim, with any --field overrides, to the
scoring service and prints the result as JSON. When the service cannot be
reached the local fallback heuristic answers and demoMode is true.

A rejection from the scoring service is printed to stderr and exits with
status 2.

Example:
  claimguard predict
  claimguard predict --model rf --field total_claim=42000 --field "form_defects=7"`,
	RunE: runPredict,
}

func init() {
	predictCmd.Flags().StringVarP(&predictModel, "model", "m", string(domain.DefaultModel), "model id: lr, rf, l1 or l2")
	predictCmd.Flags().StringArrayVarP(&predictFields, "field", "f", nil, "form override as key=value (repeatable)")

	rootCmd.AddCommand(predictCmd)
}

// PredictOutput is the JSON printed by the predict command.
type PredictOutput struct {
	*domain.PredictionResult
	Recommendation string `json:"recommendation"`
	DemoMode       bool   `json:"demoMode"`
}

func runPredict(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	setupLogging(os.Stderr, cfg.Logging)

	form, err := parseFieldFlags(predictFields)
	if err != nil {
		return err
	}

	workflow, err := newWorkflow(cfg)
	if err != nil {
		return err
	}

	out, err := predictOnce(cmd.Context(), workflow, domain.ModelID(predictModel), form)
	var rejection *predict.RejectionError
	if errors.As(err, &rejection) {
		return &ExitError{Code: 2, Err: errors.New(rejection.Message)}
	}
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// predictOnce runs a single submission with a private latch.
func predictOnce(ctx context.Context, workflow *predict.Workflow, model domain.ModelID, form domain.ClaimForm) (*PredictOutput, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	result, err := workflow.Submit(ctx, &predict.LocalLatch{}, predict.Submission{
		SessionID: "cli",
		ModelID:   model,
		Form:      form,
	})
	if err != nil {
		return nil, err
	}
	return &PredictOutput{
		PredictionResult: result,
		Recommendation:   result.Recommendation(),
		DemoMode:         result.IsFallback,
	}, nil
}

// parseFieldFlags applies key=value overrides to the default form.
func parseFieldFlags(pairs []string) (domain.ClaimForm, error) {
	form := domain.DefaultClaimForm()
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid --field %q: expected key=value", pair)
		}
		key = strings.TrimSpace(key)
		if _, known := domain.LookupField(key); !known {
			return nil, fmt.Errorf("invalid --field %q: unknown field %q", pair, key)
		}
		form[key] = value
	}
	return form, nil
}
