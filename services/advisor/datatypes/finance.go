// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Financial record types stored per user and aggregated into the chat
// context. Amounts use shopspring/decimal; the sign convention follows
// bank-statement imports: negative = money out, positive = money in.
package datatypes

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// Accounts
// =============================================================================

// AccountKind classifies user accounts.
type AccountKind string

const (
	AccountKindChecking   AccountKind = "checking"
	AccountKindSavings    AccountKind = "savings"
	AccountKindCredit     AccountKind = "credit"
	AccountKindCash       AccountKind = "cash"
	AccountKindInvestment AccountKind = "investment"
)

// ValidAccountKind reports whether k is one of the supported kinds.
func ValidAccountKind(k AccountKind) bool {
	switch k {
	case AccountKindChecking, AccountKindSavings, AccountKindCredit,
		AccountKindCash, AccountKindInvestment:
		return true
	}
	return false
}

// Account is a user's financial account with its current balance.
type Account struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Name      string          `json:"name"`
	Kind      AccountKind     `json:"kind"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt int64           `json:"created_at"` // Unix milliseconds UTC
}

// =============================================================================
// Transactions
// =============================================================================

// UncategorizedCategory is the bucket for transactions without a category.
const UncategorizedCategory = "uncategorized"

// Transaction is a single dated money movement on an account.
//
// Amount sign convention: negative = expense, positive = income.
// Category is stored normalized (lowercase, trimmed); empty categories
// roll up under UncategorizedCategory.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	AccountID   string          `json:"account_id"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description,omitempty"`
}

// NormalizeCategory canonicalizes a category label for grouping and
// storage keys.
func NormalizeCategory(category string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	if c == "" {
		return UncategorizedCategory
	}
	return c
}

// =============================================================================
// Budgets
// =============================================================================

// Budget is a per-category monthly spending limit.
type Budget struct {
	UserID   string          `json:"user_id"`
	Category string          `json:"category"`
	Limit    decimal.Decimal `json:"limit"`
}

// =============================================================================
// Conversations
// =============================================================================

// Conversation groups the chat turns of one thread. UpdatedAt moves on
// every appended turn and drives retention expiry.
type Conversation struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Title     string `json:"title,omitempty"`
	TurnCount int    `json:"turn_count"`
	CreatedAt int64  `json:"created_at"` // Unix milliseconds UTC
	UpdatedAt int64  `json:"updated_at"` // Unix milliseconds UTC
}

// Turn is one stored question/answer exchange within a conversation.
// Seq is assigned monotonically per conversation starting at 1.
type Turn struct {
	ConversationID string `json:"conversation_id"`
	Seq            int    `json:"seq"`
	Question       string `json:"question"`
	Answer         string `json:"answer"`
	CreatedAt      int64  `json:"created_at"` // Unix milliseconds UTC
}

// =============================================================================
// Record Request Types
// =============================================================================

// CreateAccountRequest is the body of POST /v1/accounts.
type CreateAccountRequest struct {
	Name    string          `json:"name" validate:"required,max=128"`
	Kind    AccountKind     `json:"kind" validate:"required"`
	Balance decimal.Decimal `json:"balance"`
}

// Validate checks field constraints plus the account kind enum.
func (r *CreateAccountRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if !ValidAccountKind(r.Kind) {
		return ErrInvalidAccountKind
	}
	return nil
}

// CreateTransactionRequest is the body of POST /v1/transactions.
//
// Date uses RFC 3339 date format ("2006-01-02"). Amount keeps the
// negative-expense convention.
type CreateTransactionRequest struct {
	AccountID   string          `json:"account_id" validate:"required,uuid4"`
	Date        string          `json:"date" validate:"required,datetime=2006-01-02"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category" validate:"max=64"`
	Description string          `json:"description" validate:"max=512"`
}

// Validate checks field constraints and rejects zero amounts.
func (r *CreateTransactionRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if r.Amount.IsZero() {
		return ErrZeroAmount
	}
	return nil
}

// ParsedDate returns the Date field as a UTC time.
// Call Validate first; the format is assumed to be correct here.
func (r *CreateTransactionRequest) ParsedDate() (time.Time, error) {
	return time.Parse("2006-01-02", r.Date)
}

// UpsertBudgetRequest is the body of PUT /v1/budgets.
type UpsertBudgetRequest struct {
	Category string          `json:"category" validate:"required,max=64"`
	Limit    decimal.Decimal `json:"limit"`
}

// Validate checks field constraints and requires a positive limit.
func (r *UpsertBudgetRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if !r.Limit.IsPositive() {
		return ErrNonPositiveLimit
	}
	return nil
}
