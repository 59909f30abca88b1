package domain

// ProbabilityBand is a closed interval a fallback probability is drawn from.
type ProbabilityBand struct {
	Lower float64 `json:"lower" mapstructure:"lower" yaml:"lower"`
	Upper float64 `json:"upper" mapstructure:"upper" yaml:"upper"`
}

// Contains reports whether p lies within the band.
func (b ProbabilityBand) Contains(p float64) bool {
	return p >= b.Lower && p <= b.Upper
}

// HeuristicConfig configures the local fallback classifier.
type HeuristicConfig struct {
	// Expression is a CEL expression over the coerced claim.
	// It may yield a bool, or a number compared against DecisionThreshold.
	Expression string `json:"expression" mapstructure:"expression" yaml:"expression"`

	// FraudBand is used when the expression matches.
	FraudBand ProbabilityBand `json:"fraudBand" mapstructure:"fraud_band" yaml:"fraud_band"`

	// ClearBand is used otherwise.
	ClearBand ProbabilityBand `json:"clearBand" mapstructure:"clear_band" yaml:"clear_band"`
}

// DefaultHeuristic flags claims above 20,000 in total.
func DefaultHeuristic() HeuristicConfig {
	return HeuristicConfig{
		Expression: "total_claim > 20000.0",
		FraudBand:  ProbabilityBand{Lower: 0.75, Upper: 0.90},
		ClearBand:  ProbabilityBand{Lower: 0.10, Upper: 0.30},
	}
}
