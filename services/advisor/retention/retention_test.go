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
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/LedgerLocal/pkg/extensions"
	"github.com/AleutianAI/LedgerLocal/services/advisor/datatypes"
)

// fakeStore is an in-memory ConversationStore for cleaner tests.
type fakeStore struct {
	mu      sync.Mutex
	convs   map[string]datatypes.Conversation
	turns   map[string]int
	listErr error
	delErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		convs: make(map[string]datatypes.Conversation),
		turns: make(map[string]int),
	}
}

func (f *fakeStore) add(id, userID string, updatedAt time.Time, turns int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.convs[id] = datatypes.Conversation{ID: id, UserID: userID, UpdatedAt: updatedAt.UnixMilli()}
	f.turns[id] = turns
}

func (f *fakeStore) ListAllConversations(_ context.Context) ([]datatypes.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]datatypes.Conversation, 0, len(f.convs))
	for _, c := range f.convs {
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeStore) DeleteConversation(_ context.Context, _, convID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delErr != nil {
		return 0, f.delErr
	}
	turns := f.turns[convID]
	delete(f.convs, convID)
	delete(f.turns, convID)
	return turns, nil
}

// recordingAudit captures audit events for assertions.
type recordingAudit struct {
	mu     sync.Mutex
	events []extensions.AuditEvent
}

func (r *recordingAudit) Log(_ context.Context, event extensions.AuditEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingAudit) Flush(_ context.Context) error { return nil }

// =============================================================================
// Cleaner Tests
// =============================================================================

func TestNewCleaner_Validation(t *testing.T) {
	_, err := NewCleaner(nil, time.Hour, nil, nil)
	assert.Error(t, err)

	_, err = NewCleaner(newFakeStore(), 0, nil, nil)
	assert.Error(t, err)

	cleaner, err := NewCleaner(newFakeStore(), time.Hour, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, cleaner.clock, "nil clock falls back to default")
	assert.NotNil(t, cleaner.audit, "nil audit falls back to nop")
}

func TestRunCleanup_DeletesOnlyExpired(t *testing.T) {
	store := newFakeStore()
	now := time.Now()
	store.add("old", "user-1", now.Add(-40*24*time.Hour), 3)
	store.add("fresh", "user-1", now.Add(-1*time.Hour), 2)

	audit := &recordingAudit{}
	cleaner, err := NewCleaner(store, 30*24*time.Hour, NewNoopClockChecker(), audit)
	require.NoError(t, err)

	result, err := cleaner.RunCleanup(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.ConversationsScanned)
	assert.Equal(t, 1, result.ConversationsDeleted)
	assert.Equal(t, 3, result.TurnsDeleted)
	assert.Empty(t, result.Errors)

	remaining, _ := store.ListAllConversations(context.Background())
	require.Len(t, remaining, 1)
	assert.Equal(t, "fresh", remaining[0].ID)

	require.Len(t, audit.events, 1)
	assert.Equal(t, "retention.delete", audit.events[0].EventType)
	assert.Equal(t, "system", audit.events[0].UserID)
	assert.Equal(t, "old", audit.events[0].ResourceID)
}

func TestRunCleanup_NothingExpired(t *testing.T) {
	store := newFakeStore()
	store.add("fresh", "user-1", time.Now(), 1)

	cleaner, err := NewCleaner(store, time.Hour, NewNoopClockChecker(), nil)
	require.NoError(t, err)

	result, err := cleaner.RunCleanup(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.ConversationsDeleted)
}

func TestRunCleanup_DeleteErrorsAreCollected(t *testing.T) {
	store := newFakeStore()
	store.add("old", "user-1", time.Now().Add(-48*time.Hour), 1)
	store.delErr = errors.New("disk full")

	cleaner, err := NewCleaner(store, time.Hour, NewNoopClockChecker(), nil)
	require.NoError(t, err)

	result, err := cleaner.RunCleanup(context.Background())
	require.NoError(t, err, "per-conversation failures are not fatal")
	assert.Equal(t, 0, result.ConversationsDeleted)
	require.Len(t, result.Errors, 1)
}

func TestRunCleanup_ListErrorIsFatal(t *testing.T) {
	store := newFakeStore()
	store.listErr = errors.New("store closed")

	cleaner, err := NewCleaner(store, time.Hour, NewNoopClockChecker(), nil)
	require.NoError(t, err)

	_, err = cleaner.RunCleanup(context.Background())
	assert.Error(t, err)
}

func TestRunCleanup_RefusesOnInsaneClock(t *testing.T) {
	store := newFakeStore()
	store.add("old", "user-1", time.Now().Add(-48*time.Hour), 1)

	// Bounds the current time can never satisfy.
	badClock := NewClockCheckerWithConfig(ClockConfig{
		MinValidTime: time.Date(2035, 1, 1, 0, 0, 0, 0, time.UTC),
		MaxValidTime: time.Date(2036, 1, 1, 0, 0, 0, 0, time.UTC),
	})

	cleaner, err := NewCleaner(store, time.Hour, badClock, nil)
	require.NoError(t, err)

	_, err = cleaner.RunCleanup(context.Background())
	require.Error(t, err)

	remaining, _ := store.ListAllConversations(context.Background())
	assert.Len(t, remaining, 1, "nothing deleted when the clock is suspect")
}

// =============================================================================
// Clock Tests
// =============================================================================

func TestClockChecker_Sane(t *testing.T) {
	checker := NewClockChecker()
	assert.NoError(t, checker.CheckClockSanity())

	now, err := checker.Now()
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), now, time.Second)
}

func TestClockChecker_OutOfBounds(t *testing.T) {
	checker := NewClockCheckerWithConfig(ClockConfig{
		MinValidTime: time.Date(2035, 1, 1, 0, 0, 0, 0, time.UTC),
		MaxValidTime: time.Date(2036, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	assert.Error(t, checker.CheckClockSanity())
}

// =============================================================================
// Scheduler Tests
// =============================================================================

func TestScheduler_StartStop(t *testing.T) {
	store := newFakeStore()
	cleaner, err := NewCleaner(store, time.Hour, NewNoopClockChecker(), nil)
	require.NoError(t, err)

	scheduler := NewScheduler(cleaner, SchedulerConfig{Interval: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, scheduler.Start(ctx))
	assert.Error(t, scheduler.Start(ctx), "double start must fail")

	require.NoError(t, scheduler.Stop())
	assert.NoError(t, scheduler.Stop(), "stop is idempotent")
}

func TestScheduler_RunNow(t *testing.T) {
	store := newFakeStore()
	store.add("old", "user-1", time.Now().Add(-48*time.Hour), 2)

	cleaner, err := NewCleaner(store, time.Hour, NewNoopClockChecker(), nil)
	require.NoError(t, err)

	scheduler := NewScheduler(cleaner, DefaultSchedulerConfig())

	result, err := scheduler.RunNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, result.ConversationsDeleted)
	assert.Equal(t, 2, result.TurnsDeleted)
}
