// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package extensions

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent is a security-relevant event recorded for compliance and
// incident investigation.
//
// Event types used by the advisor service:
//   - "chat.exchange": A question was answered and stored
//   - "chat.blocked": A question was rejected by the message filter
//   - "records.write": A financial record was created or updated
//   - "conversation.delete": A conversation was deleted by the user
//   - "retention.delete": A conversation expired and was removed
type AuditEvent struct {
	// EventType categorizes the event, format "category.action".
	EventType string

	// Timestamp is when the event occurred (UTC). Implementations set
	// it to time.Now().UTC() when zero.
	Timestamp time.Time

	// UserID identifies who performed the action. "system" for the
	// retention cleaner and other automated actions.
	UserID string

	// ResourceType is the category of resource involved
	// ("conversation", "account", "transaction", "budget").
	ResourceType string

	// ResourceID is the specific resource instance, when applicable.
	ResourceID string

	// Outcome is one of "success", "failure", "blocked".
	Outcome string

	// Metadata holds event-specific detail (never raw financial data).
	Metadata map[string]any
}

// AuditLogger records audit events.
//
// Implementations must be safe for concurrent use and should return
// quickly; buffer internally if the sink is slow.
type AuditLogger interface {
	// Log records one event. Implementations set Timestamp when zero.
	Log(ctx context.Context, event AuditEvent) error

	// Flush persists any buffered events. Call before shutdown.
	Flush(ctx context.Context) error
}

// NopAuditLogger discards all events. Default for local deployments
// where an audit trail is not required.
type NopAuditLogger struct{}

// Log discards the event.
func (l *NopAuditLogger) Log(_ context.Context, _ AuditEvent) error { return nil }

// Flush is a no-op.
func (l *NopAuditLogger) Flush(_ context.Context) error { return nil }

// SlogAuditLogger writes audit events to a structured logger. Useful
// when the deployment's log pipeline doubles as the audit sink.
type SlogAuditLogger struct {
	logger *slog.Logger
}

// NewSlogAuditLogger creates a SlogAuditLogger. A nil logger falls back
// to slog.Default().
func NewSlogAuditLogger(logger *slog.Logger) *SlogAuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAuditLogger{logger: logger}
}

// Log emits the event at info level under the "audit" message.
func (l *SlogAuditLogger) Log(ctx context.Context, event AuditEvent) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	l.logger.InfoContext(ctx, "audit",
		"event_type", event.EventType,
		"user_id", event.UserID,
		"resource_type", event.ResourceType,
		"resource_id", event.ResourceID,
		"outcome", event.Outcome,
		"metadata", event.Metadata,
	)
	return nil
}

// Flush is a no-op; slog handlers are unbuffered here.
func (l *SlogAuditLogger) Flush(_ context.Context) error { return nil }

// Compile-time interface checks.
var (
	_ AuditLogger = (*NopAuditLogger)(nil)
	_ AuditLogger = (*SlogAuditLogger)(nil)
)
