package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/mavericks-edu/mavericks-backend/internal/model"
	"github.com/mavericks-edu/mavericks-backend/internal/scoring"
	"github.com/mavericks-edu/mavericks-backend/internal/session"
	"github.com/rs/zerolog"
)

// Mode selects how the execution service treats a request.
type Mode string

const (
	// ModeRun executes against a subset of test cases for immediate
	// feedback; results are never persisted as a graded submission.
	ModeRun Mode = "run"
	// ModeSubmit executes the full test-case set; the returned score is
	// authoritative.
	ModeSubmit Mode = "submit"
)

// Request is the wire payload sent to the execution service.
type Request struct {
	Code             string           `json:"code"`
	Language         string           `json:"language"`
	TestCases        []model.TestCase `json:"testCases"`
	Mode             Mode             `json:"mode"`
	StrictEvaluation bool             `json:"strictEvaluation"`
	MaxTestCases     int              `json:"maxTestCases,omitempty"`
}

// Result is the wire payload returned by the execution service.
type Result struct {
	Success     bool     `json:"success"`
	Output      string   `json:"output,omitempty"`
	Error       string   `json:"error,omitempty"`
	Score       *float64 `json:"score,omitempty"`
	PassedTests *int     `json:"passedTests,omitempty"`
	TotalTests  *int     `json:"totalTests,omitempty"`
}

// Client talks to the external code-execution service over HTTP/JSON.
// It satisfies session.Evaluator.
type Client struct {
	baseURL string
	http    *http.Client
	log     zerolog.Logger
}

// NewClient creates an execution service client.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "executor_client").Logger(),
	}
}

// Run executes code against at most maxTestCases cases for quick feedback.
// The result is informational only and never persisted.
func (c *Client) Run(ctx context.Context, language, code string, tests []model.TestCase, maxTestCases int) (*Result, error) {
	if maxTestCases > 0 && len(tests) > maxTestCases {
		tests = tests[:maxTestCases]
	}
	return c.execute(ctx, Request{
		Code:         code,
		Language:     language,
		TestCases:    tests,
		Mode:         ModeRun,
		MaxTestCases: maxTestCases,
	})
}

// Evaluate grades code against the full test-case set. The service's score
// is authoritative; when only pass counts come back, the score falls back to
// round(100 * passed / total).
func (c *Client) Evaluate(ctx context.Context, language, code string, tests []model.TestCase) (session.EvalResult, error) {
	result, err := c.execute(ctx, Request{
		Code:             code,
		Language:         language,
		TestCases:        tests,
		Mode:             ModeSubmit,
		StrictEvaluation: true,
	})
	if err != nil {
		return session.EvalResult{}, err
	}
	if !result.Success {
		return session.EvalResult{}, fmt.Errorf("execution rejected: %s", result.Error)
	}

	eval := session.EvalResult{Total: len(tests)}
	if result.TotalTests != nil {
		eval.Total = *result.TotalTests
	}
	if result.PassedTests != nil {
		eval.Passed = *result.PassedTests
	}

	if result.Score != nil {
		eval.Score = *result.Score
	} else {
		eval.Score = scoring.CodingScore(eval.Passed, eval.Total)
	}
	return eval, nil
}

func (c *Client) execute(ctx context.Context, payload Request) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/execute", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("execution service status %d: %s", resp.StatusCode, string(raw))
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	c.log.Debug().
		Str("mode", string(payload.Mode)).
		Bool("success", result.Success).
		Msg("Execution service responded")

	return &result, nil
}
