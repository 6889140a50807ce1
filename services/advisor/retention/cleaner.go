// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/AleutianAI/LedgerLocal/pkg/extensions"
	"github.com/AleutianAI/LedgerLocal/services/advisor/datatypes"
)

// ConversationStore is the storage surface the cleaner needs. The
// advisor's Badger store satisfies it.
type ConversationStore interface {
	// ListAllConversations returns every conversation across all users.
	ListAllConversations(ctx context.Context) ([]datatypes.Conversation, error)

	// DeleteConversation removes a conversation and its turns,
	// returning the number of turns deleted.
	DeleteConversation(ctx context.Context, userID, convID string) (int, error)
}

// CleanupResult summarizes one cleanup cycle.
type CleanupResult struct {
	StartTime            time.Time
	EndTime              time.Time
	ConversationsScanned int
	ConversationsDeleted int
	TurnsDeleted         int
	Errors               []error
}

// DurationMs returns the cycle duration in milliseconds.
func (r CleanupResult) DurationMs() int64 {
	return r.EndTime.Sub(r.StartTime).Milliseconds()
}

// Cleaner deletes conversations whose last activity is older than the
// retention window.
//
// # Description
//
// A conversation's UpdatedAt is bumped on every stored turn, so
// UpdatedAt older than the window means the user has not touched it in
// that long. Deletion cascades to the conversation's turns. The
// configured ClockChecker guards against clock manipulation deleting
// data prematurely.
//
// # Thread Safety
//
// Safe for concurrent use; each RunCleanup call works on its own
// snapshot of the conversation list.
type Cleaner struct {
	store  ConversationStore
	clock  ClockChecker
	audit  extensions.AuditLogger
	window time.Duration
}

// NewCleaner creates a Cleaner. A nil clock falls back to the sane
// default checker; a nil audit logger falls back to the nop logger.
// window must be positive.
func NewCleaner(store ConversationStore, window time.Duration, clock ClockChecker, audit extensions.AuditLogger) (*Cleaner, error) {
	if store == nil {
		return nil, fmt.Errorf("retention: store is required")
	}
	if window <= 0 {
		return nil, fmt.Errorf("retention: window must be positive, got %v", window)
	}
	if clock == nil {
		clock = NewClockChecker()
	}
	if audit == nil {
		audit = &extensions.NopAuditLogger{}
	}
	return &Cleaner{
		store:  store,
		clock:  clock,
		audit:  audit,
		window: window,
	}, nil
}

// RunCleanup performs a single cleanup cycle: list all conversations,
// delete those whose UpdatedAt is older than the retention window.
// Individual delete failures are collected in the result, not fatal.
func (c *Cleaner) RunCleanup(ctx context.Context) (CleanupResult, error) {
	result := CleanupResult{StartTime: time.Now()}

	now, err := c.clock.Now()
	if err != nil {
		result.EndTime = time.Now()
		return result, fmt.Errorf("retention: refusing cleanup, %w", err)
	}
	cutoffMs := now.Add(-c.window).UnixMilli()

	conversations, err := c.store.ListAllConversations(ctx)
	if err != nil {
		result.EndTime = time.Now()
		return result, fmt.Errorf("retention: list conversations: %w", err)
	}
	result.ConversationsScanned = len(conversations)

	for _, conv := range conversations {
		if conv.UpdatedAt >= cutoffMs {
			continue
		}

		turns, err := c.store.DeleteConversation(ctx, conv.UserID, conv.ID)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("delete %s: %w", conv.ID, err))
			continue
		}
		result.ConversationsDeleted++
		result.TurnsDeleted += turns

		_ = c.audit.Log(ctx, extensions.AuditEvent{
			EventType:    "retention.delete",
			UserID:       "system",
			ResourceType: "conversation",
			ResourceID:   conv.ID,
			Outcome:      "success",
			Metadata: map[string]any{
				"owner_user_id": conv.UserID,
				"turns_deleted": turns,
				"last_activity": time.UnixMilli(conv.UpdatedAt).UTC().Format(time.RFC3339),
			},
		})
	}

	result.EndTime = time.Now()

	if result.ConversationsDeleted > 0 {
		slog.Info("retention cleanup completed",
			"scanned", result.ConversationsScanned,
			"deleted", result.ConversationsDeleted,
			"turns_deleted", result.TurnsDeleted,
			"duration_ms", result.DurationMs(),
		)
	} else {
		slog.Debug("retention cleanup completed (nothing expired)")
	}

	return result, nil
}
