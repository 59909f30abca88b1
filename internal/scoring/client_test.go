package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/opensource-finance/claimguard/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(domain.ScoringConfig{Endpoint: srv.URL + "/"}, nil)
}

func TestPredictSendsWireBody(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/predict" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Write([]byte(`{"success":true,"prediction":"Fraud","probability":0.82}`))
	})

	resp, err := client.Predict(context.Background(), domain.NewClaimRecord(domain.DefaultClaimForm()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Succeeded() {
		t.Fatal("expected success")
	}
	c, p, err := resp.Verdict()
	if err != nil || c != domain.ClassFraud || p != 0.82 {
		t.Errorf("unexpected verdict %s %v %v", c, p, err)
	}

	if len(got) != 19 {
		t.Errorf("expected 19 wire fields, got %d", len(got))
	}
	if got["policy deductible"] != float64(1000) {
		t.Errorf("unexpected policy deductible %v", got["policy deductible"])
	}
}

func TestPredictIgnoresHTTPStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"success":false,"error":"Missing field: zip_code"}`))
	})

	resp, err := client.Predict(context.Background(), domain.NewClaimRecord(domain.DefaultClaimForm()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Succeeded() || resp.Error != "Missing field: zip_code" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestPredictNonJSONBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>Bad Gateway</html>`))
	})

	_, err := client.Predict(context.Background(), domain.NewClaimRecord(domain.DefaultClaimForm()))
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("expected ErrMalformed, got %v", err)
	}
}

func TestPredictUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(domain.ScoringConfig{Endpoint: url}, nil)
	_, err := client.Predict(context.Background(), domain.NewClaimRecord(domain.DefaultClaimForm()))
	if !errors.Is(err, ErrTransport) {
		t.Errorf("expected ErrTransport, got %v", err)
	}
}

func TestPredictTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	client := NewClient(domain.ScoringConfig{Endpoint: srv.URL, Timeout: 50 * time.Millisecond}, nil)
	_, err := client.Predict(context.Background(), domain.NewClaimRecord(domain.DefaultClaimForm()))
	if !errors.Is(err, ErrTransport) {
		t.Errorf("expected ErrTransport on timeout, got %v", err)
	}
}

func TestResponseVerdict(t *testing.T) {
	p := func(v float64) *float64 { return &v }

	tests := []struct {
		name    string
		resp    Response
		wantErr bool
	}{
		{"valid fraud", Response{Prediction: "Fraud", Probability: p(0.9)}, false},
		{"valid clear", Response{Prediction: "Not Fraud", Probability: p(0)}, false},
		{"unknown label", Response{Prediction: "Suspicious", Probability: p(0.5)}, true},
		{"missing probability", Response{Prediction: "Fraud"}, true},
		{"probability above one", Response{Prediction: "Fraud", Probability: p(1.5)}, true},
		{"negative probability", Response{Prediction: "Not Fraud", Probability: p(-0.1)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tt.resp.Verdict()
			if (err != nil) != tt.wantErr {
				t.Errorf("wantErr %v, got %v", tt.wantErr, err)
			}
			if err != nil && !errors.Is(err, ErrMalformed) {
				t.Errorf("expected ErrMalformed, got %v", err)
			}
		})
	}
}

func TestResponseDeclined(t *testing.T) {
	f, tr := false, true

	tests := []struct {
		name string
		resp Response
		want bool
	}{
		{"explicit refusal", Response{Success: &f, Error: "bad input"}, true},
		{"refusal without message", Response{Success: &f}, false},
		{"message without flag", Response{Error: "service warming up"}, false},
		{"message with success", Response{Success: &tr, Error: "partial"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.resp.Declined(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
