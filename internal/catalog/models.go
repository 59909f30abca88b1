// Package catalog holds the static reference data shown on the dashboard:
// trained models, dataset statistics and feature correlations.
package catalog

import (
	"errors"
	"fmt"
	"math"

	"github.com/montanaflynn/stats"
	"github.com/opensource-finance/claimguard/internal/domain"
)

// ErrUnknownModel is returned for identifiers outside the catalog.
var ErrUnknownModel = errors.New("unknown model")

// ModelStatus ranks a model against the others.
type ModelStatus string

const (
	StatusBaseline ModelStatus = "baseline"
	StatusStandard ModelStatus = "standard"
	StatusBest     ModelStatus = "best"
)

// Model is one trained classifier and its held-out evaluation.
type Model struct {
	ID          domain.ModelID `json:"id"`
	DisplayName string         `json:"displayName"`
	FullName    string         `json:"fullName"`
	Accuracy    float64        `json:"accuracy"`
	Status      ModelStatus    `json:"status"`
	Confusion   Confusion      `json:"confusionMatrix"`
}

// ReportedAccuracy is the accuracy as a percentage rounded to two decimals.
func (m Model) ReportedAccuracy() float64 {
	return math.Round(m.Accuracy*10000) / 100
}

var models = []Model{
	{
		ID:          domain.ModelLogistic,
		DisplayName: "Logistic Regression",
		FullName:    "Logistic Regression",
		Accuracy:    0.7538525614327364,
		Status:      StatusBaseline,
		Confusion:   Confusion{TN: 1823, FP: 278, FN: 432, TP: 628},
	},
	{
		ID:          domain.ModelRandomForest,
		DisplayName: "Random Forest",
		FullName:    "Random Forest",
		Accuracy:    0.7546855476884632,
		Status:      StatusStandard,
		Confusion:   Confusion{TN: 1845, FP: 256, FN: 447, TP: 613},
	},
	{
		ID:          domain.ModelLasso,
		DisplayName: "L1 (LASSO) - Recommended",
		FullName:    "L1 Regularized (LASSO)",
		Accuracy:    0.7738442315701791,
		Status:      StatusBest,
		Confusion:   Confusion{TN: 1897, FP: 204, FN: 391, TP: 669},
	},
	{
		ID:          domain.ModelRidge,
		DisplayName: "L2 (RIDGE)",
		FullName:    "L2 Regularized (RIDGE)",
		Accuracy:    0.7538525614327364,
		Status:      StatusStandard,
		Confusion:   Confusion{TN: 1823, FP: 278, FN: 432, TP: 628},
	},
}

// Models returns the catalog in selector order.
func Models() []Model {
	out := make([]Model, len(models))
	copy(out, models)
	return out
}

// Lookup finds a model by identifier.
func Lookup(id domain.ModelID) (Model, error) {
	for _, m := range models {
		if m.ID == id {
			return m, nil
		}
	}
	return Model{}, fmt.Errorf("%w: %q", ErrUnknownModel, id)
}

// Summary aggregates accuracy across the catalog.
type Summary struct {
	Count  int            `json:"count"`
	Mean   float64        `json:"meanAccuracy"`
	Median float64        `json:"medianAccuracy"`
	Max    float64        `json:"maxAccuracy"`
	StdDev float64        `json:"stdDevAccuracy"`
	Best   domain.ModelID `json:"best"`
}

// Summarize computes accuracy statistics over the given models.
func Summarize(ms []Model) (Summary, error) {
	if len(ms) == 0 {
		return Summary{}, errors.New("no models to summarize")
	}

	acc := make(stats.Float64Data, len(ms))
	best := ms[0]
	for i, m := range ms {
		acc[i] = m.Accuracy
		if m.Accuracy > best.Accuracy {
			best = m
		}
	}

	s := Summary{Count: len(ms), Best: best.ID}
	var err error
	if s.Mean, err = stats.Mean(acc); err != nil {
		return Summary{}, err
	}
	if s.Median, err = stats.Median(acc); err != nil {
		return Summary{}, err
	}
	if s.Max, err = stats.Max(acc); err != nil {
		return Summary{}, err
	}
	if s.StdDev, err = stats.StandardDeviation(acc); err != nil {
		return Summary{}, err
	}
	return s, nil
}
