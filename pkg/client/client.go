package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"kinship-hq/sentinel/pkg/api/types"
	"kinship-hq/sentinel/pkg/telemetry/tracing"
)

// ErrUnavailable wraps every failure to obtain a verdict.
var ErrUnavailable = errors.New("moderation service unavailable")

// Config configures a Client.
type Config struct {
	// BaseURL of the moderation API, e.g. http://localhost:8080.
	BaseURL string

	// Timeout per request. Defaults to 5s.
	Timeout time.Duration

	// FailureThreshold consecutive failures open the circuit. Defaults to 5.
	FailureThreshold uint32

	// OpenTimeout is how long the circuit stays open. Defaults to 30s.
	OpenTimeout time.Duration

	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client classifies content through the moderation API behind a circuit
// breaker.
type Client struct {
	baseURL string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
}

// New creates a client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("client: base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "client")

	threshold := cfg.FailureThreshold
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "moderation",
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			var reqErr *RequestError
			return err == nil || errors.As(err, &reqErr)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	})

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    httpClient,
		breaker: breaker,
		logger:  logger,
	}, nil
}

// Classify posts content and returns the verdict. Structural rejections are
// verdicts, not errors. Every other failure wraps ErrUnavailable.
func (c *Client) Classify(ctx context.Context, req types.ClassifyRequest) (*types.ClassifyResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.do(ctx, body)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return out.(*types.ClassifyResponse), nil
}

// Check classifies content and applies the caller policy. It never returns
// an allow decision when the call failed.
func (c *Client) Check(ctx context.Context, req types.ClassifyRequest) Decision {
	resp, err := c.Classify(ctx, req)
	if err != nil {
		c.logger.WarnContext(ctx, "classification unavailable, failing closed", "error", err)
		return failClosed(nil)
	}
	return Decide(resp)
}

// State returns the circuit breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

func (c *Client) do(ctx context.Context, body []byte) (*types.ClassifyResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/moderation/classify", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	tracing.Inject(ctx, httpReq.Header)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	switch {
	case resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusUnprocessableEntity:
		var out types.ClassifyResponse
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("decode verdict: %w", err)
		}
		return &out, nil
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("server returned %d", resp.StatusCode)
	default:
		// Request errors are the caller's fault and do not trip the breaker.
		var apiErr types.ErrorResponse
		_ = json.Unmarshal(data, &apiErr)
		return nil, &RequestError{Status: resp.StatusCode, Code: apiErr.Code, Message: apiErr.Error}
	}
}

// RequestError is a 4xx answer other than a structural rejection.
type RequestError struct {
	Status  int
	Code    string
	Message string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("request rejected (%d %s): %s", e.Status, e.Code, e.Message)
}
