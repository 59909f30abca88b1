package catalog

import "math"

// Overview is the dashboard header.
type Overview struct {
	Title     string `json:"title"`
	Objective string `json:"objective"`
	BestModel string `json:"bestModel"`
}

// Dataset describes the training data before and after cleaning.
type Dataset struct {
	OriginalRecords int      `json:"originalRecords"`
	CleanedRecords  int      `json:"cleanedRecords"`
	Features        int      `json:"features"`
	RemovedRecords  int      `json:"removedRecords"`
	CleaningSteps   []string `json:"cleaningSteps"`
}

// ReductionPercent is the share of records removed, one decimal.
func (d Dataset) ReductionPercent() float64 {
	if d.OriginalRecords == 0 {
		return 0
	}
	return math.Round(float64(d.RemovedRecords)/float64(d.OriginalRecords)*1000) / 10
}

// ClassShare is one slice of the class distribution.
type ClassShare struct {
	Label   string  `json:"label"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Algorithm is a short description of a model family for the overview page.
type Algorithm struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// GetOverview returns the dashboard header text.
func GetOverview() Overview {
	return Overview{
		Title:     "Insurance Fraud Detection System",
		Objective: "Identify potentially fraudulent auto insurance claims using machine learning classifiers trained on historical claim data.",
		BestModel: "L1 Regularized Logistic Regression (LASSO) - 77.38% Accuracy",
	}
}

// GetDataset returns the training data statistics.
func GetDataset() Dataset {
	return Dataset{
		OriginalRecords: 12002,
		CleanedRecords:  5801,
		Features:        29,
		RemovedRecords:  6201,
		CleaningSteps: []string{
			"Original shape: 12,002 rows x 29 columns",
			"Removed rows with missing values and outliers",
			"Box-plot analysis on numeric features",
		},
	}
}

// Distribution returns the class balance after cleaning with percentage shares.
func Distribution() []ClassShare {
	shares := []ClassShare{
		{Label: "Fraud", Count: 1740},
		{Label: "Not Fraud", Count: 4061},
	}
	total := 0
	for _, s := range shares {
		total += s.Count
	}
	for i := range shares {
		shares[i].Percent = math.Round(float64(shares[i].Count)/float64(total)*1000) / 10
	}
	return shares
}

// Algorithms lists the model families compared on the dashboard.
func Algorithms() []Algorithm {
	return []Algorithm{
		{Name: "Logistic Regression", Description: "Linear baseline estimating fraud probability from weighted features."},
		{Name: "Random Forest", Description: "Ensemble of decision trees voting on the class."},
		{Name: "L1 Regularized (LASSO)", Description: "Logistic regression with an L1 penalty that drives weak features to zero."},
		{Name: "L2 Regularized (RIDGE)", Description: "Logistic regression with an L2 penalty that shrinks all coefficients."},
	}
}
