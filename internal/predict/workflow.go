// Package predict runs one claim submission from coercion to settlement.
package predict

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/opensource-finance/claimguard/internal/catalog"
	"github.com/opensource-finance/claimguard/internal/domain"
	"github.com/opensource-finance/claimguard/internal/rules"
	"github.com/opensource-finance/claimguard/internal/scoring"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// ErrBusy is returned when the session already has a submission in flight.
var ErrBusy = errors.New("prediction already in progress")

// errNoVerdict marks a body that is neither a success nor an explicit refusal.
var errNoVerdict = errors.New("scoring service returned no verdict")

var tracer = otel.Tracer("claimguard-predict")

// RejectionError is an application-level refusal from the scoring service.
// Message is the service's text, unmodified.
type RejectionError struct {
	Message string
}

func (e *RejectionError) Error() string {
	return "prediction rejected: " + e.Message
}

// Scorer is the outbound prediction call.
type Scorer interface {
	Predict(ctx context.Context, record domain.ClaimRecord) (*scoring.Response, error)
}

// Submission is one request to classify the current form.
type Submission struct {
	SessionID string
	TraceID   string
	ModelID   domain.ModelID
	Form      domain.ClaimForm

	// Prepare runs once the latch is held, before the outbound call.
	// A failure releases the latch and aborts the submission.
	Prepare func(ctx context.Context) error
}

// Workflow coordinates the scorer, the fallback heuristic and settlement.
type Workflow struct {
	scorer    Scorer
	heuristic *rules.Heuristic
	repo      domain.Repository
	bus       domain.EventBus
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithRepository stores every settled submission.
func WithRepository(repo domain.Repository) Option {
	return func(w *Workflow) { w.repo = repo }
}

// WithEventBus publishes every settled submission.
func WithEventBus(bus domain.EventBus) Option {
	return func(w *Workflow) { w.bus = bus }
}

// WithLogger replaces slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(w *Workflow) { w.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) { w.now = now }
}

// NewWorkflow creates a workflow.
func NewWorkflow(scorer Scorer, heuristic *rules.Heuristic, opts ...Option) *Workflow {
	w := &Workflow{
		scorer:    scorer,
		heuristic: heuristic,
		logger:    slog.Default(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Submit scores the form with the selected model. It yields exactly one of:
// an authoritative result, a fallback result, or a *RejectionError.
// Transport and parse failures never surface; they become fallback results.
//
// The latch is held from before the outbound call until settlement and is
// released on every path. Cancelling ctx does not abort an issued call.
func (w *Workflow) Submit(ctx context.Context, latch Latch, sub Submission) (*domain.PredictionResult, error) {
	model, err := catalog.Lookup(sub.ModelID)
	if err != nil {
		return nil, err
	}

	acquired, err := latch.TryAcquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire prediction latch: %w", err)
	}
	if !acquired {
		return nil, ErrBusy
	}

	ctx = context.WithoutCancel(ctx)
	defer func() {
		if err := latch.Release(ctx); err != nil {
			w.logger.Error("failed to release prediction latch", "session_id", sub.SessionID, "error", err)
		}
	}()

	if sub.Prepare != nil {
		if err := sub.Prepare(ctx); err != nil {
			return nil, fmt.Errorf("failed to prepare submission: %w", err)
		}
	}

	ctx, span := tracer.Start(ctx, "predict.submit")
	defer span.End()

	claim := domain.NewClaimRecord(sub.Form)
	rec := &domain.PredictionRecord{
		ID:        uuid.New().String(),
		SessionID: sub.SessionID,
		ModelID:   model.ID,
		ModelName: model.DisplayName,
		Claim:     claim,
		TraceID:   sub.TraceID,
		CreatedAt: w.now().UTC(),
	}

	resp, callErr := w.scorer.Predict(ctx, claim)
	switch {
	case callErr != nil:
		w.fallback(rec, callErr)
	case resp.Succeeded():
		c, p, verr := resp.Verdict()
		if verr != nil {
			w.fallback(rec, verr)
			break
		}
		rec.Outcome = domain.OutcomeAuthoritative
		rec.Classification = c
		rec.Probability = p
	case resp.Declined():
		rec.Outcome = domain.OutcomeRejected
		rec.Error = resp.Error
	default:
		w.fallback(rec, errNoVerdict)
	}

	span.SetAttributes(
		attribute.String("prediction.model", string(rec.ModelID)),
		attribute.String("prediction.outcome", string(rec.Outcome)),
		attribute.String("prediction.fallback_cause", rec.FallbackCause),
	)

	w.settle(ctx, rec)

	if rec.Outcome == domain.OutcomeRejected {
		return nil, &RejectionError{Message: rec.Error}
	}
	return rec.Result(), nil
}

func (w *Workflow) fallback(rec *domain.PredictionRecord, cause error) {
	verdict, err := w.heuristic.Evaluate(rec.Claim)
	if err != nil {
		w.logger.Error("fallback heuristic failed", "session_id", rec.SessionID, "error", err)
	}

	rec.Outcome = domain.OutcomeFallback
	rec.Classification = verdict.Classification
	rec.Probability = verdict.Probability
	rec.FallbackCause = cause.Error()

	w.logger.Warn("scoring service unavailable, using fallback",
		"session_id", rec.SessionID,
		"prediction_id", rec.ID,
		"model", rec.ModelID,
		"cause", cause,
		"classification", verdict.Classification,
	)
}

// settle records the outcome. Storage and publish failures are logged only.
func (w *Workflow) settle(ctx context.Context, rec *domain.PredictionRecord) {
	if w.repo != nil {
		if err := w.repo.SavePrediction(ctx, rec.SessionID, rec); err != nil {
			w.logger.Error("failed to save prediction", "prediction_id", rec.ID, "error", err)
		}
	}

	if w.bus != nil {
		payload, err := json.Marshal(rec)
		if err != nil {
			w.logger.Error("failed to encode prediction event", "prediction_id", rec.ID, "error", err)
			return
		}
		if err := w.bus.Publish(ctx, domain.GlobalNamespace, domain.TopicPredictionSettled, payload); err != nil {
			w.logger.Error("failed to publish prediction event", "prediction_id", rec.ID, "error", err)
		}
	}

	w.logger.Info("prediction settled",
		"session_id", rec.SessionID,
		"prediction_id", rec.ID,
		"model", rec.ModelID,
		"outcome", rec.Outcome,
		"classification", rec.Classification,
	)
}
