// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the advisor's HTTP endpoints.
//
// Every handler is constructed from an Env holding the shared
// dependencies (store, LLM client, prompt composer, extension points,
// metrics). All record access is scoped by the authenticated user ID
// set by the auth middleware.
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/LedgerLocal/pkg/extensions"
	"github.com/AleutianAI/LedgerLocal/services/advisor/middleware"
	"github.com/AleutianAI/LedgerLocal/services/advisor/observability"
	"github.com/AleutianAI/LedgerLocal/services/advisor/prompt"
	"github.com/AleutianAI/LedgerLocal/services/advisor/storage"
	"github.com/AleutianAI/LedgerLocal/services/llm"
)

// Env bundles the dependencies shared by all handlers.
type Env struct {
	Store    *storage.Store
	LLM      llm.LLMClient
	Composer *prompt.Composer

	// LLMBackend labels LLM latency metrics (openai, anthropic, ollama).
	LLMBackend string

	// Opts carries the extension points. Normalize before use so nil
	// fields fall back to no-op defaults.
	Opts extensions.ServiceOptions

	// Metrics is optional; nil disables instrumentation (tests).
	Metrics *observability.ChatMetrics
}

// userID resolves the authenticated user for record scoping. The auth
// middleware always sets AuthInfo; the LocalUserID fallback covers
// handlers mounted without it.
func userID(c *gin.Context) string {
	if info := middleware.GetAuthInfo(c); info != nil {
		return info.UserID
	}
	return extensions.LocalUserID
}

// recordRequest is a nil-safe metrics helper.
func (e *Env) recordRequest(endpoint observability.Endpoint, success bool) {
	if e.Metrics != nil {
		e.Metrics.RecordRequest(endpoint, success)
	}
}

// recordError is a nil-safe metrics helper.
func (e *Env) recordError(endpoint observability.Endpoint, code observability.ErrorCode) {
	if e.Metrics != nil {
		e.Metrics.RecordError(endpoint, code)
	}
}
