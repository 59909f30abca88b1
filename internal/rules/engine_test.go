package rules

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/opensource-finance/claimguard/internal/domain"
)

// fixedSource always yields the same bits, pinning draws to a band edge.
type fixedSource uint64

func (s fixedSource) Uint64() uint64 { return uint64(s) }

func claimWithTotal(total string) domain.ClaimRecord {
	form := domain.DefaultClaimForm()
	form["total_claim"] = total
	return domain.NewClaimRecord(form)
}

func TestHeuristicCreation(t *testing.T) {
	h, err := NewHeuristic(domain.DefaultHeuristic(), nil)
	if err != nil {
		t.Fatalf("failed to create heuristic: %v", err)
	}
	if h.Expression() != "total_claim > 20000.0" {
		t.Errorf("unexpected expression %q", h.Expression())
	}
}

func TestHeuristicInvalidExpression(t *testing.T) {
	cfg := domain.DefaultHeuristic()
	cfg.Expression = "this is not valid CEL !!!"
	if _, err := NewHeuristic(cfg, nil); err == nil {
		t.Error("expected error for invalid CEL expression")
	}

	cfg.Expression = "vehicle_color"
	if _, err := NewHeuristic(cfg, nil); err == nil {
		t.Error("expected error for string-typed expression")
	}
}

func TestHeuristicInvalidBands(t *testing.T) {
	tests := []struct {
		name  string
		fraud domain.ProbabilityBand
		clear domain.ProbabilityBand
	}{
		{"fraud below threshold", domain.ProbabilityBand{Lower: 0.4, Upper: 0.9}, domain.ProbabilityBand{Lower: 0.1, Upper: 0.3}},
		{"clear reaches threshold", domain.ProbabilityBand{Lower: 0.75, Upper: 0.9}, domain.ProbabilityBand{Lower: 0.1, Upper: 0.5}},
		{"inverted", domain.ProbabilityBand{Lower: 0.9, Upper: 0.75}, domain.ProbabilityBand{Lower: 0.1, Upper: 0.3}},
		{"above one", domain.ProbabilityBand{Lower: 0.75, Upper: 1.2}, domain.ProbabilityBand{Lower: 0.1, Upper: 0.3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := domain.DefaultHeuristic()
			cfg.FraudBand = tt.fraud
			cfg.ClearBand = tt.clear
			if _, err := NewHeuristic(cfg, nil); err == nil {
				t.Error("expected band validation error")
			}
		})
	}
}

func TestHeuristicThreshold(t *testing.T) {
	h, _ := NewHeuristic(domain.DefaultHeuristic(), rand.NewPCG(1, 2))

	tests := []struct {
		total string
		want  domain.Classification
	}{
		{"27000", domain.ClassFraud},
		{"20000.01", domain.ClassFraud},
		{"20000", domain.ClassNotFraud},
		{"15000", domain.ClassNotFraud},
		{"garbage", domain.ClassNotFraud},
	}

	for _, tt := range tests {
		t.Run(tt.total, func(t *testing.T) {
			v, err := h.Evaluate(claimWithTotal(tt.total))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if v.Classification != tt.want {
				t.Errorf("expected %s, got %s", tt.want, v.Classification)
			}
		})
	}
}

func TestHeuristicProbabilityBands(t *testing.T) {
	cfg := domain.DefaultHeuristic()
	h, _ := NewHeuristic(cfg, rand.NewPCG(42, 7))

	for i := 0; i < 1000; i++ {
		fraud, _ := h.Evaluate(claimWithTotal("27000"))
		if !cfg.FraudBand.Contains(fraud.Probability) {
			t.Fatalf("fraud probability %v outside band", fraud.Probability)
		}
		clear, _ := h.Evaluate(claimWithTotal("15000"))
		if !cfg.ClearBand.Contains(clear.Probability) {
			t.Fatalf("clear probability %v outside band", clear.Probability)
		}
		if domain.ClassifyProbability(fraud.Probability) != fraud.Classification {
			t.Fatal("classification disagrees with probability")
		}
	}
}

func TestHeuristicBandEdges(t *testing.T) {
	cfg := domain.DefaultHeuristic()

	low, _ := NewHeuristic(cfg, fixedSource(0))
	v, _ := low.Evaluate(claimWithTotal("27000"))
	if v.Probability != 0.75 {
		t.Errorf("expected lower edge 0.75, got %v", v.Probability)
	}

	high, _ := NewHeuristic(cfg, fixedSource(math.MaxUint64))
	v, _ = high.Evaluate(claimWithTotal("15000"))
	if v.Probability > 0.30 || v.Probability < 0.29 {
		t.Errorf("expected near upper edge 0.30, got %v", v.Probability)
	}
}

func TestHeuristicSpacedKeysAndClaimMap(t *testing.T) {
	cfg := domain.DefaultHeuristic()
	cfg.Expression = `form_defects >= 3.0 && claim["policy deductible"] == 1000.0`
	h, err := NewHeuristic(cfg, rand.NewPCG(1, 1))
	if err != nil {
		t.Fatalf("failed to compile: %v", err)
	}

	v, err := h.Evaluate(domain.NewClaimRecord(domain.DefaultClaimForm()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v.Matched {
		t.Error("expected default claim to match")
	}
}

func TestHeuristicNumericExpression(t *testing.T) {
	cfg := domain.DefaultHeuristic()
	cfg.Expression = "total_claim / 40000.0"
	h, _ := NewHeuristic(cfg, rand.NewPCG(3, 4))

	if v, _ := h.Evaluate(claimWithTotal("30000")); !v.Matched {
		t.Error("0.75 score should match")
	}
	if v, _ := h.Evaluate(claimWithTotal("10000")); v.Matched {
		t.Error("0.25 score should not match")
	}
}

func TestHeuristicEvaluationErrorStillClassifies(t *testing.T) {
	cfg := domain.DefaultHeuristic()
	cfg.Expression = `claim["no_such_field"] > 1.0`
	h, err := NewHeuristic(cfg, rand.NewPCG(5, 6))
	if err != nil {
		t.Fatalf("failed to compile: %v", err)
	}

	v, err := h.Evaluate(domain.NewClaimRecord(domain.DefaultClaimForm()))
	if err == nil {
		t.Error("expected evaluation error")
	}
	if v.Classification != domain.ClassNotFraud || !cfg.ClearBand.Contains(v.Probability) {
		t.Errorf("expected clear verdict, got %+v", v)
	}
}

func TestHeuristicNaNOperandIsNonMatch(t *testing.T) {
	tests := []struct {
		name       string
		expression string
		total      string
		matched    bool
	}{
		{"default expression", domain.DefaultHeuristic().Expression, "27k", false},
		{"claim map", `claim["total_claim"] > 20000.0`, "", false},
		{"other operand decides", `total_claim > 20000.0 || form_defects > 2.0`, "27k", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := domain.DefaultHeuristic()
			cfg.Expression = tt.expression
			h, err := NewHeuristic(cfg, rand.NewPCG(7, 8))
			if err != nil {
				t.Fatalf("failed to compile: %v", err)
			}

			v, err := h.Evaluate(claimWithTotal(tt.total))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if v.Matched != tt.matched {
				t.Errorf("expected matched=%v, got %v", tt.matched, v.Matched)
			}
		})
	}
}

func TestHeuristicErrorWithFiniteOperands(t *testing.T) {
	cfg := domain.DefaultHeuristic()
	cfg.Expression = `int(form_defects) / (int(form_defects) - 3) > 0`
	h, err := NewHeuristic(cfg, rand.NewPCG(9, 10))
	if err != nil {
		t.Fatalf("failed to compile: %v", err)
	}

	// The default claim has three form defects.
	if _, err := h.Evaluate(domain.NewClaimRecord(domain.DefaultClaimForm())); err == nil {
		t.Error("expected division by zero to surface")
	}
}

func TestIdentifier(t *testing.T) {
	if got := Identifier("policy deductible"); got != "policy_deductible" {
		t.Errorf("unexpected identifier %q", got)
	}
}
