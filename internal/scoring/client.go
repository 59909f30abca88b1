// Package scoring talks to the external fraud prediction service.
package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/opensource-finance/claimguard/internal/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Errors that the workflow recovers from with a local fallback.
var (
	ErrTransport = errors.New("scoring service unreachable")
	ErrMalformed = errors.New("malformed scoring response")
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 1 << 20

var tracer = otel.Tracer("claimguard-scoring")

// Response is the body returned by POST /predict.
type Response struct {
	Success     *bool    `json:"success"`
	Prediction  string   `json:"prediction,omitempty"`
	Probability *float64 `json:"probability,omitempty"`
	Error       string   `json:"error,omitempty"`
}

// Succeeded reports an explicit success flag.
func (r *Response) Succeeded() bool {
	return r.Success != nil && *r.Success
}

// Declined reports an explicit success:false carrying a message.
func (r *Response) Declined() bool {
	return r.Success != nil && !*r.Success && r.Error != ""
}

// Verdict validates an authoritative answer. A label outside the two known
// classes or a probability outside [0, 1] is reported as ErrMalformed.
func (r *Response) Verdict() (domain.Classification, float64, error) {
	c, ok := domain.ParseClassification(r.Prediction)
	if !ok {
		return "", 0, fmt.Errorf("%w: unexpected prediction %q", ErrMalformed, r.Prediction)
	}
	if r.Probability == nil {
		return "", 0, fmt.Errorf("%w: probability missing", ErrMalformed)
	}
	p := *r.Probability
	if math.IsNaN(p) || p < 0 || p > 1 {
		return "", 0, fmt.Errorf("%w: probability %v out of range", ErrMalformed, p)
	}
	return c, p, nil
}

// Client issues prediction requests.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient builds a client for cfg.Endpoint. A nil httpClient gets one
// whose timeout is cfg.Timeout.
func NewClient(cfg domain.ScoringConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		endpoint: strings.TrimRight(cfg.Endpoint, "/"),
		http:     httpClient,
	}
}

// Predict sends one claim. The HTTP status is ignored; the body decides.
// Exactly one attempt is made.
func (c *Client) Predict(ctx context.Context, record domain.ClaimRecord) (*Response, error) {
	ctx, span := tracer.Start(ctx, "scoring.predict",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("scoring.endpoint", c.endpoint)),
	)
	defer span.End()

	resp, err := c.do(ctx, record)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Bool("scoring.success", resp.Succeeded()))
	return resp, nil
}

func (c *Client) do(ctx context.Context, record domain.ClaimRecord) (*Response, error) {
	body, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("failed to encode claim: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", ErrTransport, err)
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: status %d: %v", ErrMalformed, httpResp.StatusCode, err)
	}
	return &out, nil
}
