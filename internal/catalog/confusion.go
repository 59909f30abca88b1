package catalog

// Confusion is a binary confusion matrix with Fraud as the positive class.
type Confusion struct {
	TN int `json:"tn"`
	FP int `json:"fp"`
	FN int `json:"fn"`
	TP int `json:"tp"`
}

// Matrix returns [[TN, FP], [FN, TP]].
func (c Confusion) Matrix() [2][2]int {
	return [2][2]int{{c.TN, c.FP}, {c.FN, c.TP}}
}

// Total is the number of classified samples.
func (c Confusion) Total() int {
	return c.TN + c.FP + c.FN + c.TP
}

// Add records one observation.
func (c *Confusion) Add(actualFraud, predictedFraud bool) {
	switch {
	case actualFraud && predictedFraud:
		c.TP++
	case actualFraud:
		c.FN++
	case predictedFraud:
		c.FP++
	default:
		c.TN++
	}
}

// Metrics are the rates derived from a confusion matrix.
type Metrics struct {
	Accuracy    float64 `json:"accuracy"`
	Precision   float64 `json:"precision"`
	Recall      float64 `json:"recall"`
	F1          float64 `json:"f1"`
	Specificity float64 `json:"specificity"`
}

// Metrics derives rates; undefined ratios are reported as 0.
func (c Confusion) Metrics() Metrics {
	m := Metrics{
		Accuracy:    ratio(c.TP+c.TN, c.Total()),
		Precision:   ratio(c.TP, c.TP+c.FP),
		Recall:      ratio(c.TP, c.TP+c.FN),
		Specificity: ratio(c.TN, c.TN+c.FP),
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}
