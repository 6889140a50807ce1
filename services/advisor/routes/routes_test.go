// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/LedgerLocal/pkg/extensions"
	"github.com/AleutianAI/LedgerLocal/services/advisor/datatypes"
	"github.com/AleutianAI/LedgerLocal/services/advisor/handlers"
	"github.com/AleutianAI/LedgerLocal/services/advisor/prompt"
	"github.com/AleutianAI/LedgerLocal/services/advisor/storage"
	"github.com/AleutianAI/LedgerLocal/services/llm"
)

// ============================================================================
// Test Setup
// ============================================================================

func init() {
	// Set Gin to test mode to reduce noise in test output
	gin.SetMode(gin.TestMode)
}

// mockLLMClient is a minimal mock for llm.LLMClient
type mockLLMClient struct{}

func (m *mockLLMClient) Generate(_ context.Context, _ string, _ llm.GenerationParams) (string, error) {
	return "mock response", nil
}

func (m *mockLLMClient) Chat(_ context.Context, _ []datatypes.Message, _ llm.GenerationParams) (string, error) {
	return "mock chat response", nil
}

func newTestEnv(t *testing.T) *handlers.Env {
	t.Helper()
	db, err := storage.OpenDB(storage.InMemoryConfig())
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return &handlers.Env{
		Store:      storage.NewStore(db),
		LLM:        &mockLLMClient{},
		Composer:   prompt.NewComposer(prompt.DefaultConfig()),
		LLMBackend: "mock",
		Opts:       extensions.DefaultOptions(),
	}
}

// ============================================================================
// SetupRoutes Tests
// ============================================================================

func TestSetupRoutes_RegistersCoreRoutes(t *testing.T) {
	router := gin.New()
	SetupRoutes(router, newTestEnv(t))

	coreRoutes := []struct {
		method string
		path   string
	}{
		{"GET", "/health"},
		{"GET", "/metrics"},
		{"POST", "/v1/chat"},
		{"POST", "/v1/accounts"},
		{"GET", "/v1/accounts"},
		{"POST", "/v1/transactions"},
		{"GET", "/v1/transactions"},
		{"PUT", "/v1/budgets"},
		{"GET", "/v1/budgets"},
		{"GET", "/v1/conversations"},
		{"GET", "/v1/conversations/:id/history"},
		{"DELETE", "/v1/conversations/:id"},
	}

	routes := router.Routes()
	for _, expected := range coreRoutes {
		found := false
		for _, r := range routes {
			if r.Method == expected.method && r.Path == expected.path {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("Expected route %s %s not found", expected.method, expected.path)
		}
	}
}

func TestSetupRoutes_HealthEndpoint(t *testing.T) {
	router := gin.New()
	SetupRoutes(router, newTestEnv(t))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Health endpoint returned %d, want %d", w.Code, http.StatusOK)
	}
}

func TestSetupRoutes_MetricsEndpoint(t *testing.T) {
	router := gin.New()
	SetupRoutes(router, newTestEnv(t))

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/metrics", nil)
	router.ServeHTTP(w, req)

	// Prometheus metrics endpoint should return 200
	if w.Code != http.StatusOK {
		t.Errorf("Metrics endpoint returned %d, want %d", w.Code, http.StatusOK)
	}

	contentType := w.Header().Get("Content-Type")
	if contentType == "" {
		t.Error("Metrics endpoint should return Content-Type header")
	}
}

func TestSetupRoutes_V1RequiresNoAuthForLocalDefault(t *testing.T) {
	router := gin.New()
	SetupRoutes(router, newTestEnv(t))

	// The default NopAuthProvider admits requests without a token.
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/accounts", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("GET /v1/accounts returned %d, want %d", w.Code, http.StatusOK)
	}
}

func TestSetupRoutes_V1RejectsWithStrictAuth(t *testing.T) {
	router := gin.New()
	env := newTestEnv(t)
	env.Opts = env.Opts.WithAuth(&rejectingAuth{})
	SetupRoutes(router, env)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/v1/accounts", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("GET /v1/accounts returned %d, want %d", w.Code, http.StatusUnauthorized)
	}

	// Health stays reachable without a token.
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("GET /health returned %d, want %d", w.Code, http.StatusOK)
	}
}

// rejectingAuth fails every validation attempt.
type rejectingAuth struct{}

func (a *rejectingAuth) Validate(_ context.Context, _ string) (*extensions.AuthInfo, error) {
	return nil, extensions.ErrUnauthorized
}
