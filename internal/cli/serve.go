package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opensource-finance/claimguard/internal/api"
	"github.com/opensource-finance/claimguard/internal/domain"
	"github.com/opensource-finance/claimguard/internal/predict"
	"github.com/opensource-finance/claimguard/internal/session"
	"github.com/opensource-finance/claimguard/internal/worker"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard backend",
	Long: `Serve starts the HTTP API, the session store and the settled-prediction
worker using the configured tier.

Example:
  claimguard serve
  claimguard serve --tier pro --port 9090
  CLAIMGUARD_SCORING_ENDPOINT=http://model:5000 claimguard serve`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("host", "", "listen host")
	serveCmd.Flags().Int("port", 0, "listen port")
	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := LoadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	setupLogging(os.Stdout, cfg.Logging)

	slog.Info("starting claimguard",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)
	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"scoring_endpoint", cfg.Scoring.Endpoint,
	)

	if !cfg.Tracing.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	comps, err := openComponents(cfg)
	if err != nil {
		return err
	}
	defer comps.Close()

	workflow, err := newWorkflow(cfg,
		predict.WithRepository(comps.repo),
		predict.WithEventBus(comps.bus),
	)
	if err != nil {
		return err
	}

	asyncWorker := worker.NewWorker(comps.bus, comps.cache)
	if err := asyncWorker.Start(); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}

	srv := api.NewServer(cfg.Server, api.Deps{
		Repository: comps.repo,
		Cache:      comps.cache,
		EventBus:   comps.bus,
		Sessions:   session.NewStore(comps.cache, cfg.Session),
		Workflow:   workflow,
		Worker:     asyncWorker,
		Limiter:    api.NewSessionLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, cfg.Session.TTL),
		Version:    Version,

		HistoryLimit: cfg.Session.HistoryLimit,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		// Stop consuming events before the bus closes.
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop worker", "error", err)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
		return nil
	})

	slog.Info("claimguard is ready", "addr", srv.Addr())
	printBanner(cmd.ErrOrStderr(), cfg)

	err = g.Wait()
	slog.Info("claimguard shutdown complete")
	return err
}

func printBanner(w io.Writer, cfg *domain.Config) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  ClaimGuard - insurance claim fraud screening")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Version:  %s\n", Version)
	fmt.Fprintf(w, "  Tier:     %s\n", cfg.Tier)
	fmt.Fprintf(w, "  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Fprintf(w, "  Scoring:  %s/predict\n", cfg.Scoring.Endpoint)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "  Endpoints:")
	fmt.Fprintln(w, "    GET    /dashboard          - Overview and dataset statistics")
	fmt.Fprintln(w, "    GET    /models             - Model catalog")
	fmt.Fprintln(w, "    GET    /features           - Feature correlations")
	fmt.Fprintln(w, "    GET    /session            - Session state (X-Session-ID)")
	fmt.Fprintln(w, "    PATCH  /session/form       - Edit claim fields")
	fmt.Fprintln(w, "    POST   /predict            - Classify the current claim")
	fmt.Fprintln(w, "    GET    /predictions        - Prediction history")
	fmt.Fprintln(w, "    GET    /stats/predictions  - Outcome counters")
	fmt.Fprintln(w, "    GET    /health             - Health check")
	fmt.Fprintln(w)
}
