package executor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mavericks-edu/mavericks-backend/internal/model"
	"github.com/rs/zerolog"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, time.Second, zerolog.Nop())
}

func TestEvaluateUsesServiceScore(t *testing.T) {
	score := 85.0
	passed := 17
	total := 20

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/execute" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Mode != ModeSubmit {
			t.Errorf("expected submit mode, got %s", req.Mode)
		}
		if !req.StrictEvaluation {
			t.Error("expected strict evaluation for submit")
		}
		json.NewEncoder(w).Encode(Result{
			Success:     true,
			Score:       &score,
			PassedTests: &passed,
			TotalTests:  &total,
		})
	})

	eval, err := client.Evaluate(context.Background(), "go", "package main", []model.TestCase{{Input: "1", Expected: "1"}})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if eval.Score != 85 {
		t.Errorf("expected authoritative score 85, got %v", eval.Score)
	}
	if eval.Passed != 17 || eval.Total != 20 {
		t.Errorf("unexpected pass counts: %d/%d", eval.Passed, eval.Total)
	}
}

func TestEvaluateFallsBackToPassRatio(t *testing.T) {
	passed := 3
	total := 4

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Result{
			Success:     true,
			PassedTests: &passed,
			TotalTests:  &total,
		})
	})

	eval, err := client.Evaluate(context.Background(), "python", "print(1)", make([]model.TestCase, 4))
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if eval.Score != 75 {
		t.Errorf("expected fallback score 75, got %v", eval.Score)
	}
}

func TestEvaluateRejectedSubmission(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Result{Success: false, Error: "compile error"})
	})

	if _, err := client.Evaluate(context.Background(), "go", "broken", make([]model.TestCase, 1)); err == nil {
		t.Fatal("expected error for rejected submission")
	}
}

func TestEvaluateServiceError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	if _, err := client.Evaluate(context.Background(), "go", "x", make([]model.TestCase, 1)); err == nil {
		t.Fatal("expected error on 500 response")
	}
}

func TestRunTruncatesTestCases(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Mode != ModeRun {
			t.Errorf("expected run mode, got %s", req.Mode)
		}
		if len(req.TestCases) != 2 {
			t.Errorf("expected 2 test cases after truncation, got %d", len(req.TestCases))
		}
		json.NewEncoder(w).Encode(Result{Success: true, Output: "ok"})
	})

	result, err := client.Run(context.Background(), "go", "package main", make([]model.TestCase, 5), 2)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.Success {
		t.Error("expected success")
	}
}
