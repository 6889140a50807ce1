// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes provides data structures for the advisor service.
//
// This file contains request and response types for the chat endpoint.
// Financial record types live in finance.go.
package datatypes

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// =============================================================================
// Limits
// =============================================================================

const (
	// MaxQuestionBytes is the maximum size of a single user question.
	// Checked in bytes (not runes) to bound memory regardless of encoding.
	MaxQuestionBytes = 32 * 1024 // 32KB

	// MaxAnswerBytes is the maximum answer size persisted per turn.
	// Longer answers are stored truncated.
	MaxAnswerBytes = 256 * 1024 // 256KB
)

// =============================================================================
// Shared Validator Instance
// =============================================================================

// validate is the validator instance shared by all datatypes.
// Initialized in init() with custom validators.
var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("maxbytes", validateMaxBytes)
}

// validateMaxBytes enforces the question size cap. Byte length is used
// rather than rune count so oversized payloads are rejected regardless
// of character width.
func validateMaxBytes(fl validator.FieldLevel) bool {
	return len(fl.Field().String()) <= MaxQuestionBytes
}

// =============================================================================
// Chat Message
// =============================================================================

// Message is a single turn in a model conversation. Role is one of
// "system", "user", or "assistant".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// =============================================================================
// Chat Request
// =============================================================================

// ChatRequest is the body of POST /v1/chat.
//
// # Fields
//
//   - RequestID: Unique identifier for this request (UUID v4). Generated
//     server-side when absent. Used for tracing and turn correlation.
//   - Timestamp: Unix milliseconds (UTC) when the request was created.
//     Populated by EnsureDefaults when zero.
//   - ConversationID: Optional. When present, the question joins an
//     existing conversation and its history is included in the prompt.
//     When absent a new conversation is created.
//   - Question: Required. The user's natural-language question about
//     their finances. Capped at 32KB.
//
// # Validation
//
// Call EnsureDefaults before Validate so generated fields pass the
// required checks.
type ChatRequest struct {
	RequestID      string `json:"request_id" validate:"required,uuid4"`
	Timestamp      int64  `json:"timestamp" validate:"required,gt=0"`
	ConversationID string `json:"conversation_id,omitempty" validate:"omitempty,uuid4"`
	Question       string `json:"question" validate:"required,maxbytes"`
}

// Validate validates the ChatRequest fields using the shared validator.
func (r *ChatRequest) Validate() error {
	return validate.Struct(r)
}

// EnsureDefaults populates RequestID and Timestamp if the client did not
// supply them.
func (r *ChatRequest) EnsureDefaults() {
	if r.RequestID == "" {
		r.RequestID = uuid.NewString()
	}
	if r.Timestamp == 0 {
		r.Timestamp = time.Now().UnixMilli()
	}
}

// =============================================================================
// Chat Response
// =============================================================================

// ChatResponse is the body returned by POST /v1/chat.
//
// ResponseID is generated server-side; RequestID echoes the request for
// correlation in logs and stored turns.
type ChatResponse struct {
	ResponseID       string `json:"response_id"`
	RequestID        string `json:"request_id"`
	ConversationID   string `json:"conversation_id"`
	Timestamp        int64  `json:"timestamp"`
	Answer           string `json:"answer"`
	ProcessingTimeMs int64  `json:"processing_time_ms,omitempty"`
}

// NewChatResponse creates a ChatResponse with a generated ID and the
// current timestamp.
func NewChatResponse(requestID, conversationID, answer string, elapsed time.Duration) *ChatResponse {
	return &ChatResponse{
		ResponseID:       uuid.NewString(),
		RequestID:        requestID,
		ConversationID:   conversationID,
		Timestamp:        time.Now().UnixMilli(),
		Answer:           answer,
		ProcessingTimeMs: elapsed.Milliseconds(),
	}
}
