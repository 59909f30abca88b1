package catalog

// heatmapFeatures are the wire keys shown on the correlation heatmap.
var heatmapFeatures = []string{
	"claim_number", "age_of_driver", "safety_rating", "annual_income",
	"high_education", "address_change", "zip_code", "past_num_of_claims",
	"liab_prct", "police_report", "vehicle_price", "total_claim",
	"policy deductible", "annual premium", "days open", "form defects",
}

// selectedFeatures are the predictors kept by the L1 model, strongest first.
var selectedFeatures = []string{
	"total_claim", "form defects", "vehicle_price", "annual premium",
	"age_of_driver", "safety_rating", "annual_income", "policy deductible",
	"days open", "past_num_of_claims", "address_change", "high_education",
}

// correlations lists each known pair once; lookups are symmetric.
var correlations = map[string]map[string]float64{
	"claim_number": {
		"age_of_driver": 0.02, "safety_rating": -0.01, "annual_income": 0.03,
		"total_claim": 0.12, "form defects": 0.08,
	},
	"age_of_driver": {
		"safety_rating": 0.31, "annual_income": 0.42, "total_claim": -0.08,
		"form defects": -0.15,
	},
	"safety_rating": {
		"annual_income": 0.28, "total_claim": -0.18, "form defects": -0.22,
	},
	"annual_income": {
		"vehicle_price": 0.68, "annual premium": 0.55,
	},
	"vehicle_price": {
		"annual premium": 0.72, "total_claim": 0.35, "policy deductible": 0.48,
	},
	"total_claim": {
		"form defects": 0.58,
	},
	"annual premium": {
		"policy deductible": 0.61, "total_claim": 0.29,
	},
	"form defects": {
		"days open": 0.44,
	},
}

// HeatmapFeatures returns the heatmap axis labels.
func HeatmapFeatures() []string {
	return append([]string(nil), heatmapFeatures...)
}

// SelectedFeatures returns the L1-selected predictors.
func SelectedFeatures() []string {
	return append([]string(nil), selectedFeatures...)
}

// Correlation returns the coefficient for a pair, or nil when unknown.
func Correlation(a, b string) *float64 {
	if a == b {
		one := 1.0
		return &one
	}
	if v, ok := correlations[a][b]; ok {
		return &v
	}
	if v, ok := correlations[b][a]; ok {
		return &v
	}
	return nil
}

// Band names a correlation strength bucket.
type Band string

const (
	BandStrongPositive   Band = "strong-positive"
	BandPositive         Band = "positive"
	BandModeratePositive Band = "moderate-positive"
	BandWeakPositive     Band = "weak-positive"
	BandNeutral          Band = "neutral"
	BandWeakNegative     Band = "weak-negative"
	BandModerateNegative Band = "moderate-negative"
	BandStrongNegative   Band = "strong-negative"
	BandUnknown          Band = "unknown"
)

// BandFor buckets a coefficient; nil maps to BandUnknown.
func BandFor(v *float64) Band {
	if v == nil {
		return BandUnknown
	}
	switch c := *v; {
	case c >= 0.7:
		return BandStrongPositive
	case c >= 0.5:
		return BandPositive
	case c >= 0.3:
		return BandModeratePositive
	case c >= 0.1:
		return BandWeakPositive
	case c >= -0.1:
		return BandNeutral
	case c >= -0.3:
		return BandWeakNegative
	case c >= -0.5:
		return BandModerateNegative
	default:
		return BandStrongNegative
	}
}

// Cell is one heatmap entry.
type Cell struct {
	Row   string   `json:"row"`
	Col   string   `json:"col"`
	Value *float64 `json:"value"`
	Band  Band     `json:"band"`
}

// Heatmap returns the full row-major grid over HeatmapFeatures.
func Heatmap() [][]Cell {
	grid := make([][]Cell, len(heatmapFeatures))
	for i, row := range heatmapFeatures {
		grid[i] = make([]Cell, len(heatmapFeatures))
		for j, col := range heatmapFeatures {
			v := Correlation(row, col)
			grid[i][j] = Cell{Row: row, Col: col, Value: v, Band: BandFor(v)}
		}
	}
	return grid
}
