// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package finance computes derived monthly aggregates from stored
// financial records: income, expenses, net, per-category totals, and
// budget status. These aggregates feed the prompt composer, so every
// function here must be deterministic: stable ordering, no map
// iteration leaking into output order, and no mutation of inputs.
package finance

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/AleutianAI/LedgerLocal/services/advisor/datatypes"
)

// =============================================================================
// Monthly Summary
// =============================================================================

// CategoryTotal is a spending total for one category. Total is the
// positive magnitude of expense amounts.
type CategoryTotal struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// MonthlySummary holds the derived aggregates for one calendar month.
//
// # Fields
//
//   - Income: Sum of positive amounts in the month.
//   - Expenses: Sum of negative amounts, reported as a positive magnitude.
//   - Net: Income minus Expenses. Negative when the user overspent.
//   - ByCategory: Expense totals per category, sorted by descending
//     total and ascending category name on ties. Income transactions do
//     not appear here.
//   - TransactionCount: Number of transactions that fell inside the month.
type MonthlySummary struct {
	Year             int             `json:"year"`
	Month            time.Month      `json:"month"`
	Income           decimal.Decimal `json:"income"`
	Expenses         decimal.Decimal `json:"expenses"`
	Net              decimal.Decimal `json:"net"`
	ByCategory       []CategoryTotal `json:"by_category"`
	TransactionCount int             `json:"transaction_count"`
}

// Summarize computes the MonthlySummary for the given year and month.
//
// Transactions outside the month are ignored, so callers may pass an
// unfiltered slice. Categories are normalized before grouping; empty
// categories roll up under datatypes.UncategorizedCategory. The input
// slice is never modified.
func Summarize(txns []datatypes.Transaction, year int, month time.Month) MonthlySummary {
	summary := MonthlySummary{
		Year:     year,
		Month:    month,
		Income:   decimal.Zero,
		Expenses: decimal.Zero,
		Net:      decimal.Zero,
	}

	byCategory := make(map[string]decimal.Decimal)

	for _, txn := range txns {
		d := txn.Date.UTC()
		if d.Year() != year || d.Month() != month {
			continue
		}
		summary.TransactionCount++

		if txn.Amount.IsPositive() {
			summary.Income = summary.Income.Add(txn.Amount)
			continue
		}

		spent := txn.Amount.Neg()
		summary.Expenses = summary.Expenses.Add(spent)

		cat := datatypes.NormalizeCategory(txn.Category)
		byCategory[cat] = byCategory[cat].Add(spent)
	}

	summary.Net = summary.Income.Sub(summary.Expenses)
	summary.ByCategory = sortedCategoryTotals(byCategory)
	return summary
}

// sortedCategoryTotals flattens the grouping map into a deterministic
// slice: descending total, ascending name on ties.
func sortedCategoryTotals(byCategory map[string]decimal.Decimal) []CategoryTotal {
	if len(byCategory) == 0 {
		return nil
	}
	totals := make([]CategoryTotal, 0, len(byCategory))
	for cat, total := range byCategory {
		totals = append(totals, CategoryTotal{Category: cat, Total: total})
	}
	sort.Slice(totals, func(i, j int) bool {
		if !totals[i].Total.Equal(totals[j].Total) {
			return totals[i].Total.GreaterThan(totals[j].Total)
		}
		return totals[i].Category < totals[j].Category
	})
	return totals
}

// CategorySpent returns the expense total for one normalized category,
// or zero if the category has no spending in the summary.
func (s MonthlySummary) CategorySpent(category string) decimal.Decimal {
	cat := datatypes.NormalizeCategory(category)
	for _, ct := range s.ByCategory {
		if ct.Category == cat {
			return ct.Total
		}
	}
	return decimal.Zero
}
