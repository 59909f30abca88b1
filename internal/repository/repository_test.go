package repository

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"testing"
	"time"

	"github.com/opensource-finance/claimguard/internal/domain"
)

func newTestRepository(t *testing.T) domain.Repository {
	t.Helper()

	// Create temp database file
	tmpFile, err := os.CreateTemp("", "claimguard-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	repo, err := New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func testRecord(id string, outcome domain.Outcome, at time.Time) *domain.PredictionRecord {
	form := domain.DefaultClaimForm()
	form["injury_claim"] = "n/a"
	rec := &domain.PredictionRecord{
		ID:        id,
		SessionID: "session-001",
		ModelID:   domain.ModelLasso,
		ModelName: "L1 (LASSO) - Recommended",
		Outcome:   outcome,
		Claim:     domain.NewClaimRecord(form),
		CreatedAt: at,
	}
	switch outcome {
	case domain.OutcomeRejected:
		rec.Error = "bad input"
	case domain.OutcomeFallback:
		rec.Classification = domain.ClassFraud
		rec.Probability = 0.81
		rec.FallbackCause = "scoring service unreachable"
	default:
		rec.Classification = domain.ClassNotFraud
		rec.Probability = 0.12
	}
	return rec
}

func TestSQLiteRepository(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()
	sessionID := "session-001"
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndGetPrediction", func(t *testing.T) {
		rec := testRecord("pred-001", domain.OutcomeFallback, base)
		if err := repo.SavePrediction(ctx, sessionID, rec); err != nil {
			t.Fatalf("SavePrediction failed: %v", err)
		}

		got, err := repo.GetPrediction(ctx, sessionID, "pred-001")
		if err != nil {
			t.Fatalf("GetPrediction failed: %v", err)
		}

		if got.Outcome != domain.OutcomeFallback {
			t.Errorf("expected fallback outcome, got %s", got.Outcome)
		}
		if got.Classification != domain.ClassFraud {
			t.Errorf("expected Fraud, got %s", got.Classification)
		}
		if got.Probability != 0.81 {
			t.Errorf("expected 0.81, got %v", got.Probability)
		}
		if got.FallbackCause == "" {
			t.Error("expected fallback cause to round-trip")
		}
		if got.Claim.TotalClaim() != 27000 {
			t.Errorf("expected claim total 27000, got %v", got.Claim.TotalClaim())
		}
		if !math.IsNaN(got.Claim.Number("injury_claim")) {
			t.Error("expected unparsed field to stay NaN")
		}
		if !got.CreatedAt.Equal(base) {
			t.Errorf("expected %v, got %v", base, got.CreatedAt)
		}
	})

	t.Run("RejectedRecord", func(t *testing.T) {
		rec := testRecord("pred-002", domain.OutcomeRejected, base.Add(time.Minute))
		if err := repo.SavePrediction(ctx, sessionID, rec); err != nil {
			t.Fatalf("SavePrediction failed: %v", err)
		}

		got, err := repo.GetPrediction(ctx, sessionID, "pred-002")
		if err != nil {
			t.Fatalf("GetPrediction failed: %v", err)
		}
		if got.Error != "bad input" || got.Classification != "" {
			t.Errorf("unexpected rejected record %+v", got)
		}
		if got.Result() != nil {
			t.Error("rejected record should have no result")
		}
	})

	t.Run("SessionIsolation", func(t *testing.T) {
		_, err := repo.GetPrediction(ctx, "session-002", "pred-001")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound across sessions, got %v", err)
		}

		list, err := repo.ListPredictions(ctx, "session-002", 10)
		if err != nil {
			t.Fatalf("ListPredictions failed: %v", err)
		}
		if len(list) != 0 {
			t.Errorf("expected empty history, got %d", len(list))
		}
	})

	t.Run("ListNewestFirst", func(t *testing.T) {
		for i := 3; i <= 6; i++ {
			rec := testRecord(fmt.Sprintf("pred-%03d", i), domain.OutcomeAuthoritative, base.Add(time.Duration(i)*time.Minute))
			if err := repo.SavePrediction(ctx, sessionID, rec); err != nil {
				t.Fatalf("SavePrediction failed: %v", err)
			}
		}

		list, err := repo.ListPredictions(ctx, sessionID, 3)
		if err != nil {
			t.Fatalf("ListPredictions failed: %v", err)
		}
		if len(list) != 3 {
			t.Fatalf("expected 3 records, got %d", len(list))
		}
		want := []string{"pred-006", "pred-005", "pred-004"}
		for i, rec := range list {
			if rec.ID != want[i] {
				t.Errorf("position %d: expected %s, got %s", i, want[i], rec.ID)
			}
		}

		all, _ := repo.ListPredictions(ctx, sessionID, 0)
		if len(all) != 6 {
			t.Errorf("expected 6 records with default limit, got %d", len(all))
		}
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := repo.GetPrediction(ctx, sessionID, "nope")
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("RequiresSessionID", func(t *testing.T) {
		err := repo.SavePrediction(ctx, "", testRecord("x", domain.OutcomeAuthoritative, base))
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}

		_, err = repo.ListPredictions(ctx, "", 10)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("DuplicateID", func(t *testing.T) {
		err := repo.SavePrediction(ctx, sessionID, testRecord("pred-001", domain.OutcomeFallback, base))
		if err == nil {
			t.Error("expected primary key violation")
		}
	})
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := New(domain.RepositoryConfig{Driver: "mysql"})
	if err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	pg := &SQLRepository{driver: "postgres"}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Errorf("unexpected rebind %q", got)
	}

	lite := &SQLRepository{driver: "sqlite"}
	if got := lite.rebind("a = ?"); got != "a = ?" {
		t.Errorf("sqlite query should be unchanged, got %q", got)
	}
}
