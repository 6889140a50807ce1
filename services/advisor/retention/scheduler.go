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
	"sync"
	"time"
)

// SchedulerConfig holds settings for the background cleanup scheduler.
type SchedulerConfig struct {
	// Interval is how often to run cleanup cycles. Default: 1 hour.
	Interval time.Duration
}

// DefaultSchedulerConfig returns production-ready defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval: 1 * time.Hour,
	}
}

// Scheduler runs retention cleanup cycles in the background.
//
// # Description
//
// Manages the lifecycle of a goroutine that periodically runs the
// Cleaner. Uses the ticker + done channel pattern for graceful
// shutdown. An initial cleanup runs immediately on Start.
//
// # Thread Safety
//
// All public methods are thread-safe.
type Scheduler struct {
	cleaner *Cleaner
	config  SchedulerConfig
	done    chan struct{}
	mu      sync.Mutex
	running bool
}

// NewScheduler creates a scheduler ready to Start().
func NewScheduler(cleaner *Cleaner, config SchedulerConfig) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultSchedulerConfig().Interval
	}
	return &Scheduler{
		cleaner: cleaner,
		config:  config,
		done:    make(chan struct{}),
	}
}

// Start begins the background cleanup loop. It returns an error if the
// scheduler is already running. The loop stops when Stop is called or
// the context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("retention scheduler is already running")
	}
	s.running = true
	s.done = make(chan struct{}) // Reset done channel for potential restart
	s.mu.Unlock()

	slog.Info("retention scheduler starting",
		"interval", s.config.Interval.String(),
		"window", s.cleaner.window.String(),
	)

	go s.runLoop(ctx)
	return nil
}

// Stop signals the scheduler to stop. Safe to call multiple times. It
// does not interrupt an in-progress cleanup cycle.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil // Already stopped
	}

	slog.Info("retention scheduler stopping")
	close(s.done)
	s.running = false
	return nil
}

// RunNow triggers an immediate cleanup cycle without waiting for the
// next scheduled interval. Useful for manual invocation or testing.
func (s *Scheduler) RunNow(ctx context.Context) (CleanupResult, error) {
	return s.cleaner.RunCleanup(ctx)
}

// runLoop is the scheduler goroutine.
func (s *Scheduler) runLoop(ctx context.Context) {
	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Run an initial cleanup immediately on start
	s.executeCleanup(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("retention scheduler stopped (context cancelled)")
			return
		case <-s.done:
			slog.Info("retention scheduler stopped (stop requested)")
			return
		case <-ticker.C:
			s.executeCleanup(ctx)
		}
	}
}

// executeCleanup runs one cycle, ensuring errors never crash the loop.
func (s *Scheduler) executeCleanup(ctx context.Context) {
	if _, err := s.cleaner.RunCleanup(ctx); err != nil {
		slog.Error("retention cleanup cycle failed", "error", err)
	}
}
