package domain

import (
	"encoding/json"
	"math"
	"testing"
)

func TestDefaultClaimFormCoversEveryField(t *testing.T) {
	form := DefaultClaimForm()
	fields := ClaimFields()

	if len(fields) != 19 {
		t.Fatalf("expected 19 fields, got %d", len(fields))
	}
	for _, f := range fields {
		if _, ok := form[f.Key]; !ok {
			t.Errorf("default form missing %s", f.Key)
		}
	}
}

func TestNewClaimRecordDefaults(t *testing.T) {
	rec := NewClaimRecord(DefaultClaimForm())

	tests := []struct {
		wireKey string
		want    float64
	}{
		{"claim_number", 700123456},
		{"age_of_driver", 38},
		{"marital_status", 1},
		{"annual_income", 62000},
		{"total_claim", 27000},
		{"policy deductible", 1000},
		{"annual premium", 1350},
		{"days open", 9.5},
		{"form defects", 3},
	}

	for _, tt := range tests {
		t.Run(tt.wireKey, func(t *testing.T) {
			if got := rec.Number(tt.wireKey); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	if rec.Text("gender") != "M" {
		t.Errorf("expected gender M, got %q", rec.Text("gender"))
	}
	if rec.Text("vehicle_color") != "black" {
		t.Errorf("expected vehicle_color black, got %q", rec.Text("vehicle_color"))
	}
}

func TestNewClaimRecordCoercion(t *testing.T) {
	form := DefaultClaimForm()
	form["age_of_driver"] = "41.9"
	form["total_claim"] = "abc"
	form["days_open"] = " 2.25 "
	form["form_defects"] = ""
	form["vehicle_price"] = "Infinity"

	rec := NewClaimRecord(form)

	if got := rec.Number("age_of_driver"); got != 41 {
		t.Errorf("integer field should truncate, got %v", got)
	}
	if !math.IsNaN(rec.Number("total_claim")) {
		t.Errorf("unparseable decimal should be NaN, got %v", rec.Number("total_claim"))
	}
	if got := rec.Number("days open"); got != 2.25 {
		t.Errorf("expected 2.25, got %v", got)
	}
	if !math.IsNaN(rec.Number("form defects")) {
		t.Errorf("empty integer should be NaN")
	}
	if !math.IsNaN(rec.Number("vehicle_price")) {
		t.Errorf("non-finite input should be NaN")
	}
}

func TestClaimRecordMarshalJSON(t *testing.T) {
	form := DefaultClaimForm()
	form["total_claim"] = "not a number"

	data, err := json.Marshal(NewClaimRecord(form))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var wire map[string]any
	if err := json.Unmarshal(data, &wire); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if len(wire) != 19 {
		t.Errorf("expected 19 wire keys, got %d", len(wire))
	}
	if v, ok := wire["total_claim"]; !ok || v != nil {
		t.Errorf("NaN should be sent as null, got %v", v)
	}
	for _, key := range []string{"policy deductible", "annual premium", "days open", "form defects"} {
		if _, ok := wire[key]; !ok {
			t.Errorf("wire key %q missing", key)
		}
	}
	if _, ok := wire["policy_deductible"]; ok {
		t.Error("form key leaked onto the wire")
	}
	if wire["claim_number"] != float64(700123456) {
		t.Errorf("unexpected claim_number %v", wire["claim_number"])
	}
}

func TestClaimRecordUnmarshalJSON(t *testing.T) {
	form := DefaultClaimForm()
	form["injury_claim"] = "?"
	data, _ := json.Marshal(NewClaimRecord(form))

	var rec ClaimRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !math.IsNaN(rec.Number("injury_claim")) {
		t.Error("null should restore as NaN")
	}
	if rec.TotalClaim() != 27000 {
		t.Errorf("expected 27000, got %v", rec.TotalClaim())
	}
	if rec.Text("property_status") != "Own" {
		t.Errorf("expected Own, got %q", rec.Text("property_status"))
	}
}

func TestClassifyProbability(t *testing.T) {
	tests := []struct {
		p    float64
		want Classification
	}{
		{0.0, ClassNotFraud},
		{0.4999, ClassNotFraud},
		{0.5, ClassFraud},
		{0.82, ClassFraud},
	}
	for _, tt := range tests {
		if got := ClassifyProbability(tt.p); got != tt.want {
			t.Errorf("ClassifyProbability(%v) = %s, want %s", tt.p, got, tt.want)
		}
	}
}

func TestParseClassification(t *testing.T) {
	if c, ok := ParseClassification("Fraud"); !ok || c != ClassFraud {
		t.Error("expected Fraud to parse")
	}
	if c, ok := ParseClassification("Not Fraud"); !ok || c != ClassNotFraud {
		t.Error("expected Not Fraud to parse")
	}
	for _, bad := range []string{"", "fraud", "Legit"} {
		if _, ok := ParseClassification(bad); ok {
			t.Errorf("%q should not parse", bad)
		}
	}
}

func TestPredictionRecordResult(t *testing.T) {
	rec := &PredictionRecord{ID: "p1", Outcome: OutcomeFallback, Classification: ClassFraud, Probability: 0.8}
	res := rec.Result()
	if res == nil || !res.IsFallback {
		t.Fatal("fallback record should map to a fallback result")
	}

	rejected := &PredictionRecord{ID: "p2", Outcome: OutcomeRejected, Error: "bad"}
	if rejected.Result() != nil {
		t.Error("rejected record has no result")
	}
}
