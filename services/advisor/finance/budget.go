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
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AleutianAI/LedgerLocal/services/advisor/datatypes"
)

// =============================================================================
// Budget Status
// =============================================================================

// BudgetStatus compares one category budget against actual spending in
// the summarized month.
type BudgetStatus struct {
	Category    string          `json:"category"`
	Limit       decimal.Decimal `json:"limit"`
	Spent       decimal.Decimal `json:"spent"`
	Remaining   decimal.Decimal `json:"remaining"` // negative when over budget
	PercentUsed float64         `json:"percent_used"`
	Over        bool            `json:"over"`
}

// BudgetReport holds all budget statuses plus month-level pacing figures.
//
// # Fields
//
//   - Statuses: One entry per budget, sorted by category name.
//   - DailyBurnRate: Expenses divided by elapsed days of the month.
//   - ProjectedExpenses: Burn rate extrapolated to the full month. Equal
//     to actual expenses once the month is over.
//   - DaysRemaining: Days left in the month including today, zero for
//     past months.
type BudgetReport struct {
	Statuses          []BudgetStatus  `json:"statuses"`
	DailyBurnRate     decimal.Decimal `json:"daily_burn_rate"`
	ProjectedExpenses decimal.Decimal `json:"projected_expenses"`
	DaysRemaining     int             `json:"days_remaining"`
}

// EvaluateBudgets builds a BudgetReport from the user's budgets and the
// month's summary.
//
// now anchors the pacing computation. When now falls inside the
// summarized month, burn rate uses the days elapsed so far; for past
// months the whole month counts as elapsed and the projection equals
// actual expenses. For future months pacing figures are zero.
func EvaluateBudgets(budgets []datatypes.Budget, summary MonthlySummary, now time.Time) BudgetReport {
	report := BudgetReport{
		DailyBurnRate:     decimal.Zero,
		ProjectedExpenses: decimal.Zero,
	}

	for _, b := range budgets {
		cat := datatypes.NormalizeCategory(b.Category)
		spent := summary.CategorySpent(cat)
		status := BudgetStatus{
			Category:  cat,
			Limit:     b.Limit,
			Spent:     spent,
			Remaining: b.Limit.Sub(spent),
			Over:      spent.GreaterThan(b.Limit),
		}
		if b.Limit.IsPositive() {
			pct, _ := spent.Div(b.Limit).Mul(decimal.NewFromInt(100)).Round(1).Float64()
			status.PercentUsed = pct
		}
		report.Statuses = append(report.Statuses, status)
	}
	sort.Slice(report.Statuses, func(i, j int) bool {
		return report.Statuses[i].Category < report.Statuses[j].Category
	})

	daysInMonth := time.Date(summary.Year, summary.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	monthStart := time.Date(summary.Year, summary.Month, 1, 0, 0, 0, 0, time.UTC)
	nowUTC := now.UTC()

	switch {
	case nowUTC.Before(monthStart):
		// Future month: nothing elapsed, nothing to project.
	case nowUTC.Year() == summary.Year && nowUTC.Month() == summary.Month:
		elapsed := nowUTC.Day()
		report.DaysRemaining = daysInMonth - elapsed
		report.DailyBurnRate = summary.Expenses.Div(decimal.NewFromInt(int64(elapsed))).Round(2)
		report.ProjectedExpenses = report.DailyBurnRate.Mul(decimal.NewFromInt(int64(daysInMonth))).Round(2)
	default:
		// Past month: the book is closed.
		report.DailyBurnRate = summary.Expenses.Div(decimal.NewFromInt(int64(daysInMonth))).Round(2)
		report.ProjectedExpenses = summary.Expenses
	}

	return report
}
