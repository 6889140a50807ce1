// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package prompt serializes a user's financial context and truncated
// conversation history into the prompt sent to the LLM backend.
//
// Composition is deterministic: for identical inputs the output is
// byte-identical. Section order is fixed, category and budget lines
// arrive pre-sorted from the finance package, and all money values are
// rendered with exactly two decimal places. Determinism keeps stored
// exchanges reproducible and makes prompt regressions diffable.
package prompt

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/AleutianAI/LedgerLocal/services/advisor/datatypes"
	"github.com/AleutianAI/LedgerLocal/services/advisor/finance"
)

// =============================================================================
// Configuration
// =============================================================================

// DefaultPersona is the system prompt used when none is configured.
const DefaultPersona = "You are a personal finance assistant. Answer using only " +
	"the financial context provided with each question. Be specific with numbers. " +
	"If the context does not contain the information needed, say so instead of guessing."

// Config controls prompt composition.
type Config struct {
	// Persona is the system prompt sent ahead of every exchange.
	Persona string

	// MaxHistoryTurns is the number of most recent turns included in
	// the prompt. Default: 5.
	MaxHistoryTurns int

	// MaxTurnChars clips each historical question and answer to this
	// many characters before inclusion. Default: 500.
	MaxTurnChars int

	// CurrencySymbol prefixes rendered amounts. Default: "$".
	CurrencySymbol string
}

// DefaultConfig returns composition defaults with env overrides, in the
// same spirit as the conversation search defaults.
//
// Environment variables:
//   - ADVISOR_PERSONA: overrides the system persona
//   - ADVISOR_MAX_HISTORY_TURNS: overrides MaxHistoryTurns
//   - ADVISOR_MAX_TURN_CHARS: overrides MaxTurnChars
//   - ADVISOR_CURRENCY_SYMBOL: overrides CurrencySymbol
func DefaultConfig() Config {
	cfg := Config{
		Persona:         DefaultPersona,
		MaxHistoryTurns: 5,
		MaxTurnChars:    500,
		CurrencySymbol:  "$",
	}
	if v := os.Getenv("ADVISOR_PERSONA"); v != "" {
		cfg.Persona = v
	}
	cfg.MaxHistoryTurns = getEnvInt("ADVISOR_MAX_HISTORY_TURNS", cfg.MaxHistoryTurns)
	cfg.MaxTurnChars = getEnvInt("ADVISOR_MAX_TURN_CHARS", cfg.MaxTurnChars)
	if v := os.Getenv("ADVISOR_CURRENCY_SYMBOL"); v != "" {
		cfg.CurrencySymbol = v
	}
	return cfg
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}

// =============================================================================
// Context
// =============================================================================

// Context is the aggregated financial state serialized into a prompt.
type Context struct {
	Accounts []datatypes.Account
	Summary  finance.MonthlySummary
	Budgets  finance.BudgetReport
}

// =============================================================================
// Composer
// =============================================================================

// Composer renders prompts from financial context and history.
type Composer struct {
	config Config
}

// NewComposer creates a Composer. Zero-valued config fields fall back
// to DefaultConfig values.
func NewComposer(cfg Config) *Composer {
	defaults := DefaultConfig()
	if cfg.Persona == "" {
		cfg.Persona = defaults.Persona
	}
	if cfg.MaxHistoryTurns <= 0 {
		cfg.MaxHistoryTurns = defaults.MaxHistoryTurns
	}
	if cfg.MaxTurnChars <= 0 {
		cfg.MaxTurnChars = defaults.MaxTurnChars
	}
	if cfg.CurrencySymbol == "" {
		cfg.CurrencySymbol = defaults.CurrencySymbol
	}
	return &Composer{config: cfg}
}

// SystemPrompt returns the configured persona, sent as the system
// message on every LLM call.
func (c *Composer) SystemPrompt() string {
	return c.config.Persona
}

// Compose serializes the financial context, the truncated conversation
// history, and the user's question into the user prompt.
//
// Section order is fixed: accounts, month summary, category spending,
// budgets, recent conversation, question. Sections without data are
// omitted entirely rather than rendered empty.
func (c *Composer) Compose(fctx Context, history []datatypes.Turn, question string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Financial context for %s %d:\n", fctx.Summary.Month, fctx.Summary.Year)

	if len(fctx.Accounts) > 0 {
		b.WriteString("\nAccounts:\n")
		total := decimal.Zero
		for _, acct := range fctx.Accounts {
			fmt.Fprintf(&b, "- %s (%s): %s\n", acct.Name, acct.Kind, c.money(acct.Balance))
			total = total.Add(acct.Balance)
		}
		fmt.Fprintf(&b, "Total balance: %s\n", c.money(total))
	}

	b.WriteString("\nMonth to date:\n")
	fmt.Fprintf(&b, "- Income: %s\n", c.money(fctx.Summary.Income))
	fmt.Fprintf(&b, "- Expenses: %s\n", c.money(fctx.Summary.Expenses))
	fmt.Fprintf(&b, "- Net: %s\n", c.money(fctx.Summary.Net))
	fmt.Fprintf(&b, "- Transactions: %d\n", fctx.Summary.TransactionCount)

	if len(fctx.Summary.ByCategory) > 0 {
		b.WriteString("\nSpending by category:\n")
		for _, ct := range fctx.Summary.ByCategory {
			fmt.Fprintf(&b, "- %s: %s\n", ct.Category, c.money(ct.Total))
		}
	}

	if len(fctx.Budgets.Statuses) > 0 {
		b.WriteString("\nBudgets:\n")
		for _, st := range fctx.Budgets.Statuses {
			if st.Over {
				fmt.Fprintf(&b, "- %s: %s of %s (%s%% used, OVER by %s)\n",
					st.Category, c.money(st.Spent), c.money(st.Limit),
					formatPercent(st.PercentUsed), c.money(st.Remaining.Neg()))
			} else {
				fmt.Fprintf(&b, "- %s: %s of %s (%s%% used, %s left)\n",
					st.Category, c.money(st.Spent), c.money(st.Limit),
					formatPercent(st.PercentUsed), c.money(st.Remaining))
			}
		}
		if fctx.Budgets.DaysRemaining > 0 {
			fmt.Fprintf(&b, "Daily burn rate: %s, projected month-end spend: %s, days remaining: %d\n",
				c.money(fctx.Budgets.DailyBurnRate), c.money(fctx.Budgets.ProjectedExpenses),
				fctx.Budgets.DaysRemaining)
		}
	}

	recent := TruncateHistory(history, c.config.MaxHistoryTurns, c.config.MaxTurnChars)
	if len(recent) > 0 {
		b.WriteString("\nRecent conversation:\n")
		for _, turn := range recent {
			fmt.Fprintf(&b, "User: %s\n", turn.Question)
			fmt.Fprintf(&b, "Assistant: %s\n", turn.Answer)
		}
	}

	fmt.Fprintf(&b, "\nQuestion: %s\n", question)

	return b.String()
}

// money renders a decimal with the currency symbol and exactly two
// decimal places. Negatives render as "-$50.00", not "$-50.00".
func (c *Composer) money(d decimal.Decimal) string {
	if d.IsNegative() {
		return "-" + c.config.CurrencySymbol + d.Neg().StringFixed(2)
	}
	return c.config.CurrencySymbol + d.StringFixed(2)
}

// formatPercent renders a percentage with one decimal place, dropping
// a trailing ".0" so whole percentages read naturally.
func formatPercent(pct float64) string {
	s := strconv.FormatFloat(pct, 'f', 1, 64)
	return strings.TrimSuffix(s, ".0")
}

// =============================================================================
// History Truncation
// =============================================================================

// TruncateHistory keeps the maxTurns most recent turns in chronological
// order, clipping each question and answer to maxChars. The input slice
// is not modified; clipped turns are copies.
func TruncateHistory(turns []datatypes.Turn, maxTurns, maxChars int) []datatypes.Turn {
	if maxTurns <= 0 || len(turns) == 0 {
		return nil
	}
	start := 0
	if len(turns) > maxTurns {
		start = len(turns) - maxTurns
	}
	out := make([]datatypes.Turn, 0, len(turns)-start)
	for _, turn := range turns[start:] {
		turn.Question = truncateString(turn.Question, maxChars)
		turn.Answer = truncateString(turn.Answer, maxChars)
		out = append(out, turn)
	}
	return out
}

// truncateString clips s to maxLen characters, appending "..." when
// content was dropped. Rune-safe so multi-byte characters never split.
func truncateString(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
