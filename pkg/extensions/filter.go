// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package extensions

import (
	"context"
	"errors"
	"regexp"
)

// ErrMessageBlocked is returned by callers when a filter rejects a
// message outright. Implementations signal a block via
// FilterResult.WasBlocked; they do not return this error themselves.
var ErrMessageBlocked = errors.New("message blocked by filter")

// FilterResult is the outcome of one filter pass.
type FilterResult struct {
	// Original is the input before filtering.
	Original string

	// Filtered is the message after transformation. Equals Original
	// when WasModified is false. Unusable when WasBlocked is true.
	Filtered string

	// WasModified indicates any transformation was applied.
	WasModified bool

	// WasBlocked indicates the message was rejected entirely.
	WasBlocked bool

	// BlockReason explains a block, for audit logging.
	BlockReason string

	// Detections lists what the filter found, for audit logging.
	// Detection values name the category only, never the matched text.
	Detections []string
}

// MessageFilter transforms user questions before prompt composition and
// model answers before they are returned.
//
// Questions about personal finances routinely carry exactly the data
// that must not reach a third-party LLM API: full card numbers, SSNs,
// full account numbers. FilterInput runs on the raw question before it
// enters the prompt; FilterOutput runs on the answer before storage and
// response.
//
// Implementations must be safe for concurrent use.
type MessageFilter interface {
	// FilterInput processes a user question before the LLM call.
	// A non-nil error means the filter itself failed, not a block.
	FilterInput(ctx context.Context, message string) (*FilterResult, error)

	// FilterOutput processes the model's answer before it is stored
	// and returned to the user.
	FilterOutput(ctx context.Context, message string) (*FilterResult, error)
}

// =============================================================================
// Nop Filter
// =============================================================================

// NopMessageFilter passes every message through unchanged.
type NopMessageFilter struct{}

// FilterInput returns the message unchanged.
func (f *NopMessageFilter) FilterInput(_ context.Context, message string) (*FilterResult, error) {
	return &FilterResult{Original: message, Filtered: message}, nil
}

// FilterOutput returns the message unchanged.
func (f *NopMessageFilter) FilterOutput(_ context.Context, message string) (*FilterResult, error) {
	return &FilterResult{Original: message, Filtered: message}, nil
}

// =============================================================================
// Redacting Filter
// =============================================================================

// redaction pairs a detection label with its pattern.
type redaction struct {
	label   string
	pattern *regexp.Regexp
}

// RedactingFilter masks number shapes that look like payment cards,
// SSNs, or long account numbers before the text leaves the service.
// It transforms rather than blocks: the question still reaches the LLM,
// minus the sensitive digits.
//
// The patterns are deliberately shape-based. They will occasionally
// redact an innocent long number; for a finance chat that trade-off
// runs in the right direction.
type RedactingFilter struct {
	redactions []redaction
}

// NewRedactingFilter creates a RedactingFilter with the built-in
// pattern set.
func NewRedactingFilter() *RedactingFilter {
	return &RedactingFilter{
		redactions: []redaction{
			// 13-19 digits with optional space/dash separators, the
			// shape of payment card PANs.
			{"card_number", regexp.MustCompile(`\b(?:\d[ -]?){12,18}\d\b`)},
			// US SSN with separators.
			{"ssn", regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)},
		},
	}
}

// Redacted is the replacement for matched sensitive content.
const Redacted = "[REDACTED]"

func (f *RedactingFilter) apply(message string) *FilterResult {
	result := &FilterResult{Original: message, Filtered: message}
	for _, r := range f.redactions {
		if !r.pattern.MatchString(result.Filtered) {
			continue
		}
		result.Filtered = r.pattern.ReplaceAllString(result.Filtered, Redacted)
		result.WasModified = true
		result.Detections = append(result.Detections, r.label)
	}
	return result
}

// FilterInput masks sensitive number shapes in the question.
func (f *RedactingFilter) FilterInput(_ context.Context, message string) (*FilterResult, error) {
	return f.apply(message), nil
}

// FilterOutput masks sensitive number shapes in the answer.
func (f *RedactingFilter) FilterOutput(_ context.Context, message string) (*FilterResult, error) {
	return f.apply(message), nil
}

// Compile-time interface checks.
var (
	_ MessageFilter = (*NopMessageFilter)(nil)
	_ MessageFilter = (*RedactingFilter)(nil)
)
