package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// FieldKind is the type a form field is coerced to before scoring.
type FieldKind string

const (
	KindInteger FieldKind = "integer"
	KindDecimal FieldKind = "decimal"
	KindEnum    FieldKind = "enum"
	KindText    FieldKind = "text"
)

// Numeric reports whether values of this kind are sent as JSON numbers.
func (k FieldKind) Numeric() bool {
	return k == KindInteger || k == KindDecimal
}

// FieldSpec describes one claim attribute: how it is edited and how it is sent.
type FieldSpec struct {
	// Key is the form key used by clients.
	Key string `json:"key"`

	// WireKey is the literal key expected by the scoring service.
	// Four of them contain spaces and must be preserved as-is.
	WireKey string    `json:"wireKey"`
	Label   string    `json:"label"`
	Kind    FieldKind `json:"kind"`
	Input   string    `json:"input"` // text, number, select
	Options []string  `json:"options,omitempty"`
	Default string    `json:"default"`
}

var claimFields = []FieldSpec{
	{Key: "claim_number", WireKey: "claim_number", Label: "Claim Number", Kind: KindInteger, Input: "text", Default: "700123456"},
	{Key: "age_of_driver", WireKey: "age_of_driver", Label: "Age of Driver", Kind: KindInteger, Input: "number", Default: "38"},
	{Key: "gender", WireKey: "gender", Label: "Gender", Kind: KindEnum, Input: "select", Options: []string{"M", "F"}, Default: "M"},
	{Key: "marital_status", WireKey: "marital_status", Label: "Marital Status", Kind: KindInteger, Input: "select", Options: []string{"0", "1"}, Default: "1"},
	{Key: "safety_rating", WireKey: "safety_rating", Label: "Safety Rating", Kind: KindInteger, Input: "number", Default: "82"},
	{Key: "annual_income", WireKey: "annual_income", Label: "Annual Income", Kind: KindDecimal, Input: "number", Default: "62000"},
	{Key: "high_education", WireKey: "high_education", Label: "High Education", Kind: KindInteger, Input: "select", Options: []string{"0", "1"}, Default: "1"},
	{Key: "address_change", WireKey: "address_change", Label: "Address Change", Kind: KindInteger, Input: "select", Options: []string{"0", "1"}, Default: "0"},
	{Key: "property_status", WireKey: "property_status", Label: "Property Status", Kind: KindEnum, Input: "select", Options: []string{"Own", "Rent"}, Default: "Own"},
	{Key: "zip_code", WireKey: "zip_code", Label: "Zip Code", Kind: KindInteger, Input: "text", Default: "50048"},
	{Key: "vehicle_category", WireKey: "vehicle_category", Label: "Vehicle Category", Kind: KindEnum, Input: "select", Options: []string{"Small", "Medium", "Large", "Luxury"}, Default: "Medium"},
	{Key: "vehicle_price", WireKey: "vehicle_price", Label: "Vehicle Price", Kind: KindDecimal, Input: "number", Default: "24500"},
	{Key: "vehicle_color", WireKey: "vehicle_color", Label: "Vehicle Color", Kind: KindText, Input: "text", Default: "black"},
	{Key: "total_claim", WireKey: "total_claim", Label: "Total Claim", Kind: KindDecimal, Input: "number", Default: "27000"},
	{Key: "injury_claim", WireKey: "injury_claim", Label: "Injury Claim", Kind: KindDecimal, Input: "number", Default: "5200"},
	{Key: "policy_deductible", WireKey: "policy deductible", Label: "Policy Deductible", Kind: KindInteger, Input: "number", Default: "1000"},
	{Key: "annual_premium", WireKey: "annual premium", Label: "Annual Premium", Kind: KindDecimal, Input: "number", Default: "1350"},
	{Key: "days_open", WireKey: "days open", Label: "Days Open", Kind: KindDecimal, Input: "number", Default: "9.5"},
	{Key: "form_defects", WireKey: "form defects", Label: "Form Defects", Kind: KindInteger, Input: "number", Default: "3"},
}

var fieldsByKey = func() map[string]FieldSpec {
	m := make(map[string]FieldSpec, len(claimFields))
	for _, f := range claimFields {
		m[f.Key] = f
	}
	return m
}()

// ClaimFields returns the field table in display order.
func ClaimFields() []FieldSpec {
	out := make([]FieldSpec, len(claimFields))
	copy(out, claimFields)
	return out
}

// LookupField finds a field by its form key.
func LookupField(key string) (FieldSpec, bool) {
	f, ok := fieldsByKey[key]
	return f, ok
}

// ClaimForm is the raw, string-typed form state keyed by form key.
type ClaimForm map[string]string

// DefaultClaimForm returns the pre-filled example claim.
func DefaultClaimForm() ClaimForm {
	form := make(ClaimForm, len(claimFields))
	for _, f := range claimFields {
		form[f.Key] = f.Default
	}
	return form
}

// Clone returns an independent copy of the form.
func (f ClaimForm) Clone() ClaimForm {
	out := make(ClaimForm, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// ClaimRecord is the coerced snapshot of a form taken at submission time.
// Values are keyed by wire key. Numeric fields hold float64 and may be NaN
// when the input did not parse; text fields hold the raw string.
type ClaimRecord struct {
	values map[string]any
}

// NewClaimRecord coerces every field of the form per the field table.
// No range or format validation is applied.
func NewClaimRecord(form ClaimForm) ClaimRecord {
	values := make(map[string]any, len(claimFields))
	for _, f := range claimFields {
		raw := form[f.Key]
		switch f.Kind {
		case KindInteger:
			values[f.WireKey] = math.Trunc(parseNumber(raw))
		case KindDecimal:
			values[f.WireKey] = parseNumber(raw)
		default:
			values[f.WireKey] = raw
		}
	}
	return ClaimRecord{values: values}
}

// parseNumber returns NaN for anything that is not a finite number.
func parseNumber(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsInf(v, 0) {
		return math.NaN()
	}
	return v
}

// Number returns a numeric value by wire key, NaN when absent or non-numeric.
func (r ClaimRecord) Number(wireKey string) float64 {
	if v, ok := r.values[wireKey].(float64); ok {
		return v
	}
	return math.NaN()
}

// Text returns a string value by wire key.
func (r ClaimRecord) Text(wireKey string) string {
	v, _ := r.values[wireKey].(string)
	return v
}

// TotalClaim is the claim amount the fallback heuristic keys on.
func (r ClaimRecord) TotalClaim() float64 {
	return r.Number("total_claim")
}

// Values returns a copy of the coerced values keyed by wire key.
func (r ClaimRecord) Values() map[string]any {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// MarshalJSON encodes NaN numbers as null, which is what a browser would send.
func (r ClaimRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.values))
	for k, v := range r.values {
		if f, ok := v.(float64); ok && math.IsNaN(f) {
			out[k] = nil
			continue
		}
		out[k] = v
	}
	return json.Marshal(out)
}

// UnmarshalJSON restores a record from its wire form; null numbers become NaN.
func (r *ClaimRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.values = make(map[string]any, len(claimFields))
	for _, f := range claimFields {
		v := raw[f.WireKey]
		if f.Kind.Numeric() {
			n, ok := v.(float64)
			if !ok {
				n = math.NaN()
			}
			r.values[f.WireKey] = n
			continue
		}
		s, _ := v.(string)
		r.values[f.WireKey] = s
	}
	return nil
}
