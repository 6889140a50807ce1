// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package finance

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/LedgerLocal/services/advisor/datatypes"
)

func budget(category, limit string) datatypes.Budget {
	return datatypes.Budget{Category: category, Limit: decimal.RequireFromString(limit)}
}

func TestEvaluateBudgets_UnderAndOver(t *testing.T) {
	summary := Summarize([]datatypes.Transaction{
		txn(1, "-540.25", "groceries"),
		txn(2, "-700.00", "rent"),
	}, 2025, time.March)

	report := EvaluateBudgets([]datatypes.Budget{
		budget("groceries", "600.00"),
		budget("rent", "650.00"),
	}, summary, time.Date(2025, time.April, 10, 0, 0, 0, 0, time.UTC))

	require.Len(t, report.Statuses, 2)

	groceries := report.Statuses[0]
	assert.Equal(t, "groceries", groceries.Category)
	assert.False(t, groceries.Over)
	assert.True(t, groceries.Remaining.Equal(decimal.RequireFromString("59.75")))
	assert.InDelta(t, 90.0, groceries.PercentUsed, 0.1)

	rent := report.Statuses[1]
	assert.True(t, rent.Over)
	assert.True(t, rent.Remaining.Equal(decimal.RequireFromString("-50.00")))
}

// Statuses must come back sorted by category regardless of input order.
func TestEvaluateBudgets_SortedByCategory(t *testing.T) {
	summary := Summarize(nil, 2025, time.March)

	report := EvaluateBudgets([]datatypes.Budget{
		budget("transport", "100.00"),
		budget("dining", "100.00"),
		budget("groceries", "100.00"),
	}, summary, time.Now())

	require.Len(t, report.Statuses, 3)
	assert.Equal(t, "dining", report.Statuses[0].Category)
	assert.Equal(t, "groceries", report.Statuses[1].Category)
	assert.Equal(t, "transport", report.Statuses[2].Category)
}

func TestEvaluateBudgets_MidMonthPacing(t *testing.T) {
	// 310.00 spent over the first 10 days of a 31-day month.
	summary := Summarize([]datatypes.Transaction{
		txn(2, "-155.00", "groceries"),
		txn(9, "-155.00", "dining"),
	}, 2025, time.March)

	now := time.Date(2025, time.March, 10, 15, 0, 0, 0, time.UTC)
	report := EvaluateBudgets(nil, summary, now)

	assert.Equal(t, 21, report.DaysRemaining)
	assert.True(t, report.DailyBurnRate.Equal(decimal.RequireFromString("31.00")), "burn = %s", report.DailyBurnRate)
	assert.True(t, report.ProjectedExpenses.Equal(decimal.RequireFromString("961.00")), "projected = %s", report.ProjectedExpenses)
}

func TestEvaluateBudgets_PastMonthProjectionIsActual(t *testing.T) {
	summary := Summarize([]datatypes.Transaction{
		txn(10, "-930.00", "rent"),
	}, 2025, time.March)

	now := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	report := EvaluateBudgets(nil, summary, now)

	assert.Equal(t, 0, report.DaysRemaining)
	assert.True(t, report.ProjectedExpenses.Equal(summary.Expenses))
	assert.True(t, report.DailyBurnRate.Equal(decimal.RequireFromString("30.00")))
}

func TestEvaluateBudgets_FutureMonthIsZeroed(t *testing.T) {
	summary := Summarize(nil, 2025, time.December)

	now := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	report := EvaluateBudgets([]datatypes.Budget{budget("groceries", "100")}, summary, now)

	assert.Equal(t, 0, report.DaysRemaining)
	assert.True(t, report.DailyBurnRate.IsZero())
	assert.True(t, report.ProjectedExpenses.IsZero())
}
