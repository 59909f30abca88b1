package cli

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/opensource-finance/claimguard/internal/domain"
	"github.com/opensource-finance/claimguard/internal/predict"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(viper.New())
	require.NoError(t, err)

	assert.Equal(t, domain.TierCommunity, cfg.Tier)
	assert.Equal(t, "http://localhost:5000", cfg.Scoring.Endpoint)
	assert.Zero(t, cfg.Scoring.Timeout)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
	assert.Equal(t, "sqlite", cfg.Repository.Driver)
	assert.Equal(t, domain.DefaultHeuristic(), cfg.Heuristic)
}

func TestLoadConfigEnvironment(t *testing.T) {
	t.Setenv("CLAIMGUARD_SCORING_ENDPOINT", "http://model:5000")
	t.Setenv("CLAIMGUARD_SCORING_TIMEOUT", "3s")
	t.Setenv("CLAIMGUARD_SERVER_PORT", "9090")
	t.Setenv("CLAIMGUARD_HEURISTIC_FRAUD_BAND_LOWER", "0.8")
	t.Setenv("CLAIMGUARD_DEBUG", "true")

	cfg, err := LoadConfig(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "http://model:5000", cfg.Scoring.Endpoint)
	assert.Equal(t, 3*time.Second, cfg.Scoring.Timeout)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 0.8, cfg.Heuristic.FraudBand.Lower)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadConfigProTier(t *testing.T) {
	t.Setenv("CLAIMGUARD_TIER", "pro")

	cfg, err := LoadConfig(viper.New())
	require.NoError(t, err)

	assert.Equal(t, domain.TierPro, cfg.Tier)
	assert.Equal(t, "postgres", cfg.Repository.Driver)
	assert.Equal(t, "redis", cfg.Cache.Type)
	assert.True(t, cfg.Cache.EnableTwoPhase)
	assert.Equal(t, "nats", cfg.EventBus.Type)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
scoring:
  endpoint: http://scoring.internal:5000
heuristic:
  expression: "total_claim > 50000.0 || form_defects > 8.0"
  fraud_band:
    lower: 0.7
    upper: 0.95
session:
  ttl: 2h
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := LoadConfig(v)
	require.NoError(t, err)

	assert.Equal(t, "http://scoring.internal:5000", cfg.Scoring.Endpoint)
	assert.Equal(t, "total_claim > 50000.0 || form_defects > 8.0", cfg.Heuristic.Expression)
	assert.Equal(t, domain.ProbabilityBand{Lower: 0.7, Upper: 0.95}, cfg.Heuristic.FraudBand)
	assert.Equal(t, domain.DefaultHeuristic().ClearBand, cfg.Heuristic.ClearBand)
	assert.Equal(t, 2*time.Hour, cfg.Session.TTL)
}

func TestLoadConfigRejectsUnknownTier(t *testing.T) {
	t.Setenv("CLAIMGUARD_TIER", "enterprise")

	_, err := LoadConfig(viper.New())
	assert.Error(t, err)
}

func TestFlattenKeys(t *testing.T) {
	keys, err := flatten(domain.DefaultConfig())
	require.NoError(t, err)

	for _, k := range []string{"scoring.endpoint", "heuristic.fraud_band.lower", "session.latch_ttl", "rate_limit.burst"} {
		assert.Contains(t, keys, k)
	}
}

func TestRedacted(t *testing.T) {
	cfg := domain.ProConfig()
	cfg.Repository.PostgresPassword = "secret"
	cfg.Cache.RedisPassword = "secret"

	out := redacted(*cfg)
	assert.Equal(t, "********", out.Repository.PostgresPassword)
	assert.Equal(t, "********", out.Cache.RedisPassword)
	assert.Empty(t, out.EventBus.NATSToken)
	assert.Equal(t, "secret", cfg.Repository.PostgresPassword, "original must be untouched")
}

func TestParseFieldFlags(t *testing.T) {
	form, err := parseFieldFlags([]string{"total_claim=42000", "form_defects= 7", "vehicle_color=dark=blue"})
	require.NoError(t, err)

	assert.Equal(t, "42000", form["total_claim"])
	assert.Equal(t, " 7", form["form_defects"], "values are not trimmed or validated")
	assert.Equal(t, "dark=blue", form["vehicle_color"])
	assert.Equal(t, "38", form["age_of_driver"], "untouched fields keep defaults")

	_, err = parseFieldFlags([]string{"total_claim"})
	assert.Error(t, err)

	_, err = parseFieldFlags([]string{"nope=1"})
	assert.Error(t, err)
}

func newTestWorkflow(t *testing.T, endpoint string) *predict.Workflow {
	t.Helper()
	cfg := domain.DefaultConfig()
	cfg.Scoring.Endpoint = endpoint
	wf, err := newWorkflow(cfg)
	require.NoError(t, err)
	return wf
}

func scoringServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func deadEndpoint() string {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	return url
}

func TestPredictOnce(t *testing.T) {
	t.Run("Authoritative", func(t *testing.T) {
		srv := scoringServer(t, `{"success":true,"prediction":"Not Fraud","probability":0.12}`)
		out, err := predictOnce(context.Background(), newTestWorkflow(t, srv.URL), domain.ModelRandomForest, domain.DefaultClaimForm())
		require.NoError(t, err)

		assert.Equal(t, domain.ClassNotFraud, out.Classification)
		assert.Equal(t, 0.12, out.Probability)
		assert.Equal(t, "Random Forest", out.ModelName)
		assert.False(t, out.DemoMode)
	})

	t.Run("Fallback", func(t *testing.T) {
		out, err := predictOnce(context.Background(), newTestWorkflow(t, deadEndpoint()), domain.ModelLasso, domain.DefaultClaimForm())
		require.NoError(t, err)

		assert.Equal(t, domain.ClassFraud, out.Classification, "default claim totals 27000")
		assert.True(t, out.DemoMode)
		assert.InDelta(t, 0.825, out.Probability, 0.075)
	})

	t.Run("Rejected", func(t *testing.T) {
		srv := scoringServer(t, `{"success":false,"error":"Missing feature: zip_code"}`)
		_, err := predictOnce(context.Background(), newTestWorkflow(t, srv.URL), domain.ModelLasso, domain.DefaultClaimForm())

		var rejection *predict.RejectionError
		require.ErrorAs(t, err, &rejection)
		assert.Equal(t, "Missing feature: zip_code", rejection.Message)
	})
}

func TestEvaluateCSV(t *testing.T) {
	csvData := strings.Join([]string{
		"total_claim,policy deductible,fraud_reported",
		"30000,1000,Y",
		"5000,500,N",
		"25000,1000,0",
		"1000,1000,1",
		"99999,1000,maybe",
	}, "\n")

	var rows bytes.Buffer
	report, err := evaluateCSV(context.Background(), strings.NewReader(csvData), newTestWorkflow(t, deadEndpoint()), domain.ModelLasso, 0, &rows)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Confusion.TP)
	assert.Equal(t, 1, report.Confusion.TN)
	assert.Equal(t, 1, report.Confusion.FP)
	assert.Equal(t, 1, report.Confusion.FN)
	assert.Equal(t, 4, report.Processed())
	assert.Equal(t, 4, report.Fallbacks)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 4, strings.Count(rows.String(), "\n"))

	var out bytes.Buffer
	printReport(&out, report)
	assert.Contains(t, out.String(), "Accuracy:    0.5000")
}

func TestEvaluateCSVLimitAndRejections(t *testing.T) {
	srv := scoringServer(t, `{"success":false,"error":"bad input"}`)
	csvData := "total_claim,fraud_reported\n1,0\n2,0\n3,1\n"

	report, err := evaluateCSV(context.Background(), strings.NewReader(csvData), newTestWorkflow(t, srv.URL), domain.ModelLasso, 2, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Rejected)
	assert.Zero(t, report.Processed())
}

func TestEvaluateCSVRequiresLabel(t *testing.T) {
	_, err := evaluateCSV(context.Background(), strings.NewReader("total_claim\n1\n"), newTestWorkflow(t, deadEndpoint()), domain.ModelLasso, 0, nil)
	assert.ErrorContains(t, err, LabelColumn)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLevel("debug").String())
	assert.Equal(t, "WARN", parseLevel("warning").String())
	assert.Equal(t, "INFO", parseLevel("").String())
}
