package domain

import (
	"time"
)

// Classification is the categorical verdict for a claim.
type Classification string

const (
	ClassFraud    Classification = "Fraud"
	ClassNotFraud Classification = "Not Fraud"
)

// DecisionThreshold separates Fraud from Not Fraud probabilities.
const DecisionThreshold = 0.5

// ParseClassification accepts only the two labels the scoring service emits.
func ParseClassification(s string) (Classification, bool) {
	switch Classification(s) {
	case ClassFraud, ClassNotFraud:
		return Classification(s), true
	}
	return "", false
}

// ClassifyProbability maps a fraud probability onto a label.
func ClassifyProbability(p float64) Classification {
	if p >= DecisionThreshold {
		return ClassFraud
	}
	return ClassNotFraud
}

// PredictionResult is what the dashboard shows after a submission settles.
type PredictionResult struct {
	ID             string         `json:"id"`
	Classification Classification `json:"prediction"`
	Probability    float64        `json:"probability"`
	ModelID        ModelID        `json:"modelId"`
	ModelName      string         `json:"model"`

	// IsFallback marks results produced locally after the scoring
	// service could not be reached or answered unusably.
	IsFallback bool      `json:"isFallback"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Recommendation is the advisory text shown next to a result.
func (r *PredictionResult) Recommendation() string {
	if r.Classification == ClassFraud {
		return "This claim shows indicators of potential fraud. Recommend manual review and investigation by fraud detection team."
	}
	return "This claim appears legitimate based on the provided information. Standard processing can proceed."
}

// Outcome tags how a submission settled.
type Outcome string

const (
	OutcomeAuthoritative Outcome = "authoritative"
	OutcomeFallback      Outcome = "fallback"
	OutcomeRejected      Outcome = "rejected"
)

// PredictionRecord is the persisted history row for one settled submission.
// Rejected submissions carry an Error and no classification.
type PredictionRecord struct {
	ID             string         `json:"id"`
	SessionID      string         `json:"sessionId"`
	ModelID        ModelID        `json:"modelId"`
	ModelName      string         `json:"model"`
	Outcome        Outcome        `json:"outcome"`
	Classification Classification `json:"prediction,omitempty"`
	Probability    float64        `json:"probability"`
	Error          string         `json:"error,omitempty"`
	FallbackCause  string         `json:"fallbackCause,omitempty"`
	Claim          ClaimRecord    `json:"claim"`
	TraceID        string         `json:"traceId,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// Result rebuilds the dashboard view of a non-rejected record.
func (r *PredictionRecord) Result() *PredictionResult {
	if r.Outcome == OutcomeRejected {
		return nil
	}
	return &PredictionResult{
		ID:             r.ID,
		Classification: r.Classification,
		Probability:    r.Probability,
		ModelID:        r.ModelID,
		ModelName:      r.ModelName,
		IsFallback:     r.Outcome == OutcomeFallback,
		CreatedAt:      r.CreatedAt,
	}
}
