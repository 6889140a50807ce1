// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package retention expires old conversations from the advisor's store.
// Conversations untouched for longer than the configured window are
// deleted, turns included, by a background scheduler.
package retention

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ClockChecker provides sanity checking for system time.
//
// # Description
//
// Validates that the system clock is within acceptable bounds before
// performing retention checks. If the clock is set to the future,
// conversations are deleted prematurely; set to the past, they never
// expire. The checker guards both directions.
//
// # Thread Safety
//
// All methods are safe for concurrent use.
type ClockChecker interface {
	// CheckClockSanity verifies the system clock is reasonable:
	// within the configured bounds and without suspicious jumps since
	// the last check.
	CheckClockSanity() error

	// Now performs a sanity check and returns the current time only if
	// the check passes. Use this instead of time.Now() in
	// retention-sensitive code paths.
	Now() (time.Time, error)

	// ResetJumpDetection resets the jump detection baseline. Call
	// after a known legitimate time change (NTP sync, resume from
	// sleep).
	ResetJumpDetection()
}

// ClockConfig customizes clock validation bounds and thresholds.
type ClockConfig struct {
	MinValidTime    time.Time
	MaxValidTime    time.Time
	MaxBackwardJump time.Duration
	MaxForwardJump  time.Duration
}

// DefaultClockConfig returns bounds suitable for production use.
func DefaultClockConfig() ClockConfig {
	return ClockConfig{
		MinValidTime:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		MaxValidTime:    time.Date(2035, 12, 31, 23, 59, 59, 0, time.UTC),
		MaxBackwardJump: 1 * time.Hour,
		MaxForwardJump:  2 * time.Hour,
	}
}

// clockChecker implements ClockChecker. It validates system time
// against configurable bounds and tracks time progression to detect
// suspicious jumps.
type clockChecker struct {
	config            ClockConfig
	lastKnownGoodTime time.Time
	mu                sync.RWMutex
	checkCount        int64
}

// NewClockChecker creates a clock checker with default configuration.
func NewClockChecker() ClockChecker {
	return NewClockCheckerWithConfig(DefaultClockConfig())
}

// NewClockCheckerWithConfig creates a clock checker with custom bounds.
func NewClockCheckerWithConfig(config ClockConfig) ClockChecker {
	return &clockChecker{
		config:            config,
		lastKnownGoodTime: time.Now(),
	}
}

// CheckClockSanity verifies the clock is within bounds and has not
// jumped more than allowed since the last successful check. Jump
// detection is skipped on the first call and after ResetJumpDetection.
func (c *clockChecker) CheckClockSanity() error {
	now := time.Now()

	if now.Before(c.config.MinValidTime) {
		return fmt.Errorf("clock sanity: time %v is before minimum valid time %v (possible clock set to past)",
			now.Format(time.RFC3339), c.config.MinValidTime.Format(time.RFC3339))
	}

	if now.After(c.config.MaxValidTime) {
		return fmt.Errorf("clock sanity: time %v is after maximum valid time %v (possible clock set to future)",
			now.Format(time.RFC3339), c.config.MaxValidTime.Format(time.RFC3339))
	}

	c.mu.RLock()
	lastGood := c.lastKnownGoodTime
	checkCount := c.checkCount
	c.mu.RUnlock()

	if checkCount > 0 {
		timeDiff := now.Sub(lastGood)

		if timeDiff < -c.config.MaxBackwardJump {
			return fmt.Errorf("clock sanity: suspicious backward jump of %v detected (max allowed: %v)",
				-timeDiff, c.config.MaxBackwardJump)
		}

		if timeDiff > c.config.MaxForwardJump {
			return fmt.Errorf("clock sanity: suspicious forward jump of %v detected (max allowed: %v)",
				timeDiff, c.config.MaxForwardJump)
		}
	}

	c.mu.Lock()
	c.lastKnownGoodTime = now
	c.checkCount++
	c.mu.Unlock()

	return nil
}

// Now returns the current time if the clock passes the sanity check.
func (c *clockChecker) Now() (time.Time, error) {
	if err := c.CheckClockSanity(); err != nil {
		slog.Warn("clock sanity check failed", "error", err)
		return time.Time{}, err
	}
	return time.Now(), nil
}

// ResetJumpDetection resets the jump detection baseline and clears the
// check counter.
func (c *clockChecker) ResetJumpDetection() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastKnownGoodTime = time.Now()
	c.checkCount = 0

	slog.Info("clock checker: jump detection reset",
		"new_baseline", c.lastKnownGoodTime.Format(time.RFC3339),
	)
}

// noopClockChecker always passes sanity checks. Used in tests or when
// clock checking should be disabled.
type noopClockChecker struct{}

// NewNoopClockChecker returns a checker that performs no validation.
func NewNoopClockChecker() ClockChecker {
	return &noopClockChecker{}
}

// CheckClockSanity always returns nil.
func (n *noopClockChecker) CheckClockSanity() error { return nil }

// Now returns the current time without validation.
func (n *noopClockChecker) Now() (time.Time, error) { return time.Now(), nil }

// ResetJumpDetection is a no-op.
func (n *noopClockChecker) ResetJumpDetection() {}
