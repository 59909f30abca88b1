// Package rules provides the CEL-Go based fallback heuristic.
package rules

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/opensource-finance/claimguard/internal/domain"
)

// Verdict is a locally computed classification.
type Verdict struct {
	Classification domain.Classification
	Probability    float64
	Matched        bool
}

// Heuristic classifies claims when the scoring service is unavailable.
// It is safe for concurrent use.
type Heuristic struct {
	cfg     domain.HeuristicConfig
	program cel.Program

	// operands are the numeric wire keys the expression reads.
	operands []string

	mu  sync.Mutex
	rng *rand.Rand
}

// NewHeuristic compiles the configured expression. A nil src seeds from the clock.
func NewHeuristic(cfg domain.HeuristicConfig, src rand.Source) (*Heuristic, error) {
	if err := ValidateBands(cfg); err != nil {
		return nil, err
	}

	env, err := newEnv()
	if err != nil {
		return nil, err
	}

	program, operands, err := compile(env, cfg.Expression)
	if err != nil {
		return nil, err
	}

	if src == nil {
		seed := uint64(time.Now().UnixNano())
		src = rand.NewPCG(seed, seed>>1|1)
	}

	return &Heuristic{
		cfg:      cfg,
		program:  program,
		operands: operands,
		rng:      rand.New(src),
	}, nil
}

// ValidateBands checks that each band sits on its own side of the threshold.
func ValidateBands(cfg domain.HeuristicConfig) error {
	for name, b := range map[string]domain.ProbabilityBand{"fraud": cfg.FraudBand, "clear": cfg.ClearBand} {
		if b.Lower < 0 || b.Upper > 1 || b.Lower > b.Upper {
			return fmt.Errorf("%s band [%v, %v] must satisfy 0 <= lower <= upper <= 1", name, b.Lower, b.Upper)
		}
	}
	if cfg.FraudBand.Lower < domain.DecisionThreshold {
		return fmt.Errorf("fraud band lower bound %v is below %v", cfg.FraudBand.Lower, domain.DecisionThreshold)
	}
	if cfg.ClearBand.Upper >= domain.DecisionThreshold {
		return fmt.Errorf("clear band upper bound %v must be below %v", cfg.ClearBand.Upper, domain.DecisionThreshold)
	}
	return nil
}

// Expression returns the compiled source.
func (h *Heuristic) Expression() string {
	return h.cfg.Expression
}

// Evaluate classifies a claim. A NaN operand that makes the expression fail
// is a plain non-match. Any other evaluation error still yields a
// clear-band verdict alongside the error so callers always get a result.
func (h *Heuristic) Evaluate(record domain.ClaimRecord) (Verdict, error) {
	out, _, err := h.program.Eval(activation(record))
	matched := false
	switch {
	case err == nil:
		matched = toScore(out) >= domain.DecisionThreshold
	case h.hasNaNOperand(record):
		err = nil
	default:
		err = fmt.Errorf("heuristic evaluation failed: %w", err)
	}

	band := h.cfg.ClearBand
	if matched {
		band = h.cfg.FraudBand
	}

	p := h.draw(band)
	return Verdict{
		Classification: domain.ClassifyProbability(p),
		Probability:    p,
		Matched:        matched,
	}, err
}

func (h *Heuristic) hasNaNOperand(record domain.ClaimRecord) bool {
	for _, key := range h.operands {
		if math.IsNaN(record.Number(key)) {
			return true
		}
	}
	return false
}

func (h *Heuristic) draw(b domain.ProbabilityBand) float64 {
	h.mu.Lock()
	r := h.rng.Float64()
	h.mu.Unlock()
	return b.Lower + r*(b.Upper-b.Lower)
}

// Identifier turns a wire key into a CEL variable name.
func Identifier(wireKey string) string {
	return strings.ReplaceAll(wireKey, " ", "_")
}

func newEnv() (*cel.Env, error) {
	opts := []cel.EnvOption{
		cel.Variable("claim", cel.MapType(cel.StringType, cel.DynType)),
	}
	for _, f := range domain.ClaimFields() {
		t := cel.StringType
		if f.Kind.Numeric() {
			t = cel.DoubleType
		}
		opts = append(opts, cel.Variable(Identifier(f.WireKey), t))
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return env, nil
}

func compile(env *cel.Env, expr string) (cel.Program, []string, error) {
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, nil, fmt.Errorf("failed to compile heuristic: %w", issues.Err())
	}

	outputType := ast.OutputType()
	if outputType != cel.BoolType && outputType != cel.DoubleType && outputType != cel.IntType {
		return nil, nil, fmt.Errorf("heuristic must return bool, int, or double, got %s", outputType)
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create heuristic program: %w", err)
	}
	return program, numericOperands(ast), nil
}

// numericOperands lists the numeric wire keys an expression references.
// Reading the claim map counts as reading every numeric field.
func numericOperands(ast *cel.Ast) []string {
	referenced := make(map[string]bool)
	for _, r := range ast.NativeRep().ReferenceMap() {
		if len(r.OverloadIDs) == 0 && r.Name != "" {
			referenced[r.Name] = true
		}
	}

	var keys []string
	for _, f := range domain.ClaimFields() {
		if f.Kind.Numeric() && (referenced["claim"] || referenced[Identifier(f.WireKey)]) {
			keys = append(keys, f.WireKey)
		}
	}
	return keys
}

func activation(record domain.ClaimRecord) map[string]any {
	values := record.Values()
	vars := make(map[string]any, len(values)+1)
	for k, v := range values {
		vars[Identifier(k)] = v
	}
	vars["claim"] = values
	return vars
}

// toScore converts a CEL value to a numeric score.
func toScore(val ref.Val) float64 {
	switch v := val.(type) {
	case types.Bool:
		if v {
			return 1.0
		}
		return 0.0
	case types.Double:
		return float64(v)
	case types.Int:
		return float64(v)
	default:
		return 0.0
	}
}
