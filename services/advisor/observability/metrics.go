// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the advisor.
//
// # Description
//
// Metrics cover the chat pipeline end to end:
//   - Request counters (by endpoint, status, error type)
//   - Chat turnaround and LLM call latency histograms
//   - Active request gauge
//
// # Integration
//
// Metrics are exposed via the /metrics endpoint. Use with Prometheus +
// Grafana for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all metrics
const metricsNamespace = "ledger"

// Subsystem for chat pipeline metrics
const chatSubsystem = "chat"

// ChatMetrics holds all Prometheus metrics for the advisor's chat
// pipeline. Initialize once at startup via InitMetrics().
//
// # Fields
//
//   - RequestsTotal: Counter of requests by endpoint and status
//   - ChatDurationSeconds: Histogram of full question-to-answer turnaround
//   - LLMLatencySeconds: Histogram of the LLM call alone, by backend
//   - ErrorsTotal: Counter of errors by endpoint and error code
//   - ActiveRequests: Gauge of requests currently in flight
//
// # Thread Safety
//
// All operations are thread-safe.
type ChatMetrics struct {
	// RequestsTotal counts requests by endpoint and status.
	// Labels: endpoint (chat, records, conversations), status (success, error)
	RequestsTotal *prometheus.CounterVec

	// ChatDurationSeconds measures full chat turnaround, from request
	// receipt to stored answer.
	ChatDurationSeconds prometheus.Histogram

	// LLMLatencySeconds measures the LLM call alone.
	// Labels: backend (openai, anthropic, ollama)
	LLMLatencySeconds *prometheus.HistogramVec

	// ErrorsTotal counts errors by endpoint and error code.
	// Labels: endpoint, error_code (validation, llm_error, not_found, blocked, internal)
	ErrorsTotal *prometheus.CounterVec

	// ActiveRequests tracks requests currently in flight.
	// Labels: endpoint
	ActiveRequests *prometheus.GaugeVec
}

// DefaultMetrics is the singleton instance of ChatMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *ChatMetrics

// InitMetrics creates and registers all Prometheus metrics. Call once
// at application startup; a second call panics on duplicate
// registration.
func InitMetrics() *ChatMetrics {
	DefaultMetrics = &ChatMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "requests_total",
				Help:      "Total number of requests by endpoint and status",
			},
			[]string{"endpoint", "status"},
		),

		ChatDurationSeconds: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "duration_seconds",
				Help:      "Full chat turnaround from request to stored answer in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
			},
		),

		LLMLatencySeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "llm_latency_seconds",
				Help:      "LLM API call latency in seconds by backend",
				Buckets:   []float64{0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
			},
			[]string{"backend"},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "errors_total",
				Help:      "Total errors by endpoint and error code",
			},
			[]string{"endpoint", "error_code"},
		),

		ActiveRequests: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: chatSubsystem,
				Name:      "active_requests",
				Help:      "Number of requests currently in flight",
			},
			[]string{"endpoint"},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Error Codes
// =============================================================================

// ErrorCode represents a categorized error type for metrics.
type ErrorCode string

const (
	// ErrorCodeValidation indicates request validation failure.
	ErrorCodeValidation ErrorCode = "validation"

	// ErrorCodeLLMError indicates LLM API failure.
	ErrorCodeLLMError ErrorCode = "llm_error"

	// ErrorCodeNotFound indicates a missing resource.
	ErrorCodeNotFound ErrorCode = "not_found"

	// ErrorCodeBlocked indicates the message filter rejected the input.
	ErrorCodeBlocked ErrorCode = "blocked"

	// ErrorCodeInternal indicates internal server error.
	ErrorCodeInternal ErrorCode = "internal"
)

// =============================================================================
// Endpoint Names
// =============================================================================

// Endpoint represents an API surface for metrics labeling.
type Endpoint string

const (
	// EndpointChat is the chat endpoint.
	EndpointChat Endpoint = "chat"

	// EndpointRecords covers the account/transaction/budget endpoints.
	EndpointRecords Endpoint = "records"

	// EndpointConversations covers conversation listing, history, and delete.
	EndpointConversations Endpoint = "conversations"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordRequest records a completed request.
func (m *ChatMetrics) RecordRequest(endpoint Endpoint, success bool) {
	status := "success"
	if !success {
		status = "error"
	}
	m.RequestsTotal.WithLabelValues(string(endpoint), status).Inc()
}

// RecordError records an error by category.
func (m *ChatMetrics) RecordError(endpoint Endpoint, code ErrorCode) {
	m.ErrorsTotal.WithLabelValues(string(endpoint), string(code)).Inc()
}

// RecordChatDuration records the full chat turnaround.
func (m *ChatMetrics) RecordChatDuration(seconds float64) {
	m.ChatDurationSeconds.Observe(seconds)
}

// RecordLLMLatency records the latency of one LLM call.
func (m *ChatMetrics) RecordLLMLatency(backend string, seconds float64) {
	m.LLMLatencySeconds.WithLabelValues(backend).Observe(seconds)
}

// RequestStarted increments the in-flight gauge.
func (m *ChatMetrics) RequestStarted(endpoint Endpoint) {
	m.ActiveRequests.WithLabelValues(string(endpoint)).Inc()
}

// RequestEnded decrements the in-flight gauge.
func (m *ChatMetrics) RequestEnded(endpoint Endpoint) {
	m.ActiveRequests.WithLabelValues(string(endpoint)).Dec()
}
