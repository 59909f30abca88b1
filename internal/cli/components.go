package cli

import (
	"fmt"
	"log/slog"

	"github.com/opensource-finance/claimguard/internal/bus"
	"github.com/opensource-finance/claimguard/internal/cache"
	"github.com/opensource-finance/claimguard/internal/domain"
	"github.com/opensource-finance/claimguard/internal/predict"
	"github.com/opensource-finance/claimguard/internal/repository"
	"github.com/opensource-finance/claimguard/internal/rules"
	"github.com/opensource-finance/claimguard/internal/scoring"
)

// newWorkflow builds the scorer and fallback heuristic from cfg.
func newWorkflow(cfg *domain.Config, opts ...predict.Option) (*predict.Workflow, error) {
	heuristic, err := rules.NewHeuristic(cfg.Heuristic, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize fallback heuristic: %w", err)
	}
	client := scoring.NewClient(cfg.Scoring, nil)
	return predict.NewWorkflow(client, heuristic, opts...), nil
}

// components are the stateful backends used by the server.
type components struct {
	repo  domain.Repository
	cache domain.Cache
	bus   domain.EventBus
}

// openComponents connects repository, cache and event bus in that order.
// On failure everything already opened is closed.
func openComponents(cfg *domain.Config) (*components, error) {
	c := &components{}

	repo, err := repository.New(cfg.Repository)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize repository: %w", err)
	}
	c.repo = repo
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}
	c.cache = cacheImpl
	slog.Info("cache initialized", "type", cfg.Cache.Type, "two_phase", cfg.Cache.EnableTwoPhase)

	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("failed to initialize event bus: %w", err)
	}
	c.bus = busImpl
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	return c, nil
}

// Close releases the backends in reverse order.
func (c *components) Close() {
	if c.bus != nil {
		if err := c.bus.Close(); err != nil {
			slog.Error("failed to close event bus", "error", err)
		}
	}
	if c.cache != nil {
		if err := c.cache.Close(); err != nil {
			slog.Error("failed to close cache", "error", err)
		}
	}
	if c.repo != nil {
		if err := c.repo.Close(); err != nil {
			slog.Error("failed to close repository", "error", err)
		}
	}
}
