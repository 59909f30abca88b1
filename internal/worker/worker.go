// Package worker consumes settled predictions from the EventBus.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/opensource-finance/claimguard/internal/domain"
)

// Counter keys maintained in domain.GlobalNamespace.
const (
	CounterAuthoritative = "authoritative"
	CounterFallback      = "fallback"
	CounterRejected      = "rejected"
	CounterFraud         = "fraud"
)

// CounterKeys lists every counter in report order.
func CounterKeys() []string {
	return []string{CounterAuthoritative, CounterFallback, CounterRejected, CounterFraud}
}

// Worker tallies outcomes and republishes Fraud results.
type Worker struct {
	bus   domain.EventBus
	cache domain.Cache

	mu            sync.Mutex
	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, cache domain.Cache) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:    bus,
		cache:  cache,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start subscribes to settled predictions.
func (w *Worker) Start() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.GlobalNamespace, domain.TopicPredictionSettled, w.handleSettled)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", domain.TopicPredictionSettled, err)
	}

	w.mu.Lock()
	w.subscriptions = append(w.subscriptions, sub)
	w.mu.Unlock()

	slog.Info("worker started", "topic", domain.TopicPredictionSettled)
	return nil
}

// handleSettled processes one settled prediction record.
func (w *Worker) handleSettled(ctx context.Context, msg *domain.Message) error {
	var rec domain.PredictionRecord
	if err := json.Unmarshal(msg.Payload, &rec); err != nil {
		slog.Error("failed to parse prediction event",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	if _, err := w.cache.IncrementCounter(ctx, domain.GlobalNamespace, string(rec.Outcome), 0); err != nil {
		slog.Error("failed to increment outcome counter",
			"prediction_id", rec.ID,
			"outcome", rec.Outcome,
			"error", err,
		)
	}

	if rec.Outcome != domain.OutcomeRejected && rec.Classification == domain.ClassFraud {
		if _, err := w.cache.IncrementCounter(ctx, domain.GlobalNamespace, CounterFraud, 0); err != nil {
			slog.Error("failed to increment fraud counter",
				"prediction_id", rec.ID,
				"error", err,
			)
		}
		if err := w.bus.Publish(ctx, domain.GlobalNamespace, domain.TopicPredictionFlagged, msg.Payload); err != nil {
			slog.Error("failed to publish flagged prediction",
				"prediction_id", rec.ID,
				"error", err,
			)
		}
	}

	slog.Debug("prediction event processed",
		"prediction_id", rec.ID,
		"session_id", rec.SessionID,
		"outcome", rec.Outcome,
	)
	return nil
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() error {
	w.cancel()

	w.mu.Lock()
	defer w.mu.Unlock()
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	slog.Info("worker stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}

// Counters reads every outcome counter.
func Counters(ctx context.Context, cache domain.Cache) (map[string]int64, error) {
	out := make(map[string]int64, len(CounterKeys()))
	for _, key := range CounterKeys() {
		n, err := cache.GetCounter(ctx, domain.GlobalNamespace, key)
		if err != nil {
			return nil, fmt.Errorf("failed to read counter %s: %w", key, err)
		}
		out[key] = n
	}
	return out, nil
}
