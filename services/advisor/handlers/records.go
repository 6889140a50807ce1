// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/LedgerLocal/pkg/extensions"
	"github.com/AleutianAI/LedgerLocal/services/advisor/datatypes"
	"github.com/AleutianAI/LedgerLocal/services/advisor/observability"
	"github.com/AleutianAI/LedgerLocal/services/advisor/storage"
)

// auditRecordWrite logs a successful record mutation.
func (e *Env) auditRecordWrite(c *gin.Context, resourceType, resourceID string, metadata map[string]any) {
	_ = e.Opts.AuditLogger.Log(c.Request.Context(), extensions.AuditEvent{
		EventType:    "records.write",
		UserID:       userID(c),
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Outcome:      "success",
		Metadata:     metadata,
	})
}

// HandleCreateAccount registers a new account for the authenticated user.
func HandleCreateAccount(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.CreateAccountRequest
		if err := c.BindJSON(&req); err != nil {
			env.recordError(observability.EndpointRecords, observability.ErrorCodeValidation)
			env.recordRequest(observability.EndpointRecords, false)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			env.recordError(observability.EndpointRecords, observability.ErrorCodeValidation)
			env.recordRequest(observability.EndpointRecords, false)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		account := datatypes.Account{
			UserID:  userID(c),
			Name:    req.Name,
			Kind:    req.Kind,
			Balance: req.Balance,
		}
		if err := env.Store.PutAccount(c.Request.Context(), &account); err != nil {
			slog.Error("Failed to store account", "error", err)
			env.recordError(observability.EndpointRecords, observability.ErrorCodeInternal)
			env.recordRequest(observability.EndpointRecords, false)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store account"})
			return
		}

		env.auditRecordWrite(c, "account", account.ID, map[string]any{"kind": string(account.Kind)})
		env.recordRequest(observability.EndpointRecords, true)
		c.JSON(http.StatusCreated, account)
	}
}

// HandleListAccounts returns the user's accounts sorted by name.
func HandleListAccounts(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		accounts, err := env.Store.ListAccounts(c.Request.Context(), userID(c))
		if err != nil {
			env.recordError(observability.EndpointRecords, observability.ErrorCodeInternal)
			env.recordRequest(observability.EndpointRecords, false)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list accounts"})
			return
		}
		if accounts == nil {
			accounts = []datatypes.Account{}
		}
		env.recordRequest(observability.EndpointRecords, true)
		c.JSON(http.StatusOK, gin.H{"accounts": accounts})
	}
}

// HandleCreateTransaction records a dated money movement. The referenced
// account must already exist.
func HandleCreateTransaction(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.CreateTransactionRequest
		if err := c.BindJSON(&req); err != nil {
			env.recordError(observability.EndpointRecords, observability.ErrorCodeValidation)
			env.recordRequest(observability.EndpointRecords, false)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			env.recordError(observability.EndpointRecords, observability.ErrorCodeValidation)
			env.recordRequest(observability.EndpointRecords, false)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		uid := userID(c)
		if _, err := env.Store.GetAccount(c.Request.Context(), uid, req.AccountID); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				env.recordError(observability.EndpointRecords, observability.ErrorCodeValidation)
				env.recordRequest(observability.EndpointRecords, false)
				c.JSON(http.StatusBadRequest, gin.H{"error": "account_id does not reference an existing account"})
				return
			}
			env.recordError(observability.EndpointRecords, observability.ErrorCodeInternal)
			env.recordRequest(observability.EndpointRecords, false)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to verify account"})
			return
		}

		date, err := req.ParsedDate()
		if err != nil {
			env.recordError(observability.EndpointRecords, observability.ErrorCodeValidation)
			env.recordRequest(observability.EndpointRecords, false)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid date"})
			return
		}

		txn := datatypes.Transaction{
			UserID:      uid,
			AccountID:   req.AccountID,
			Date:        date,
			Amount:      req.Amount,
			Category:    req.Category,
			Description: req.Description,
		}
		if err := env.Store.PutTransaction(c.Request.Context(), &txn); err != nil {
			slog.Error("Failed to store transaction", "error", err)
			env.recordError(observability.EndpointRecords, observability.ErrorCodeInternal)
			env.recordRequest(observability.EndpointRecords, false)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store transaction"})
			return
		}

		env.auditRecordWrite(c, "transaction", txn.ID, map[string]any{
			"account_id": txn.AccountID,
			"category":   txn.Category,
		})
		env.recordRequest(observability.EndpointRecords, true)
		c.JSON(http.StatusCreated, txn)
	}
}

// HandleListTransactions returns one month of transactions. The year and
// month query parameters default to the current UTC month.
func HandleListTransactions(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		now := time.Now().UTC()
		year, month, err := monthParams(c, now)
		if err != nil {
			env.recordError(observability.EndpointRecords, observability.ErrorCodeValidation)
			env.recordRequest(observability.EndpointRecords, false)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		txns, err := env.Store.ListTransactions(c.Request.Context(), userID(c), year, month)
		if err != nil {
			env.recordError(observability.EndpointRecords, observability.ErrorCodeInternal)
			env.recordRequest(observability.EndpointRecords, false)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list transactions"})
			return
		}
		if txns == nil {
			txns = []datatypes.Transaction{}
		}
		env.recordRequest(observability.EndpointRecords, true)
		c.JSON(http.StatusOK, gin.H{
			"year":         year,
			"month":        int(month),
			"transactions": txns,
		})
	}
}

// HandleUpsertBudget creates or replaces a per-category monthly limit.
func HandleUpsertBudget(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.UpsertBudgetRequest
		if err := c.BindJSON(&req); err != nil {
			env.recordError(observability.EndpointRecords, observability.ErrorCodeValidation)
			env.recordRequest(observability.EndpointRecords, false)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		if err := req.Validate(); err != nil {
			env.recordError(observability.EndpointRecords, observability.ErrorCodeValidation)
			env.recordRequest(observability.EndpointRecords, false)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		budget := datatypes.Budget{
			UserID:   userID(c),
			Category: datatypes.NormalizeCategory(req.Category),
			Limit:    req.Limit,
		}
		if err := env.Store.PutBudget(c.Request.Context(), &budget); err != nil {
			slog.Error("Failed to store budget", "error", err)
			env.recordError(observability.EndpointRecords, observability.ErrorCodeInternal)
			env.recordRequest(observability.EndpointRecords, false)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store budget"})
			return
		}

		env.auditRecordWrite(c, "budget", budget.Category, map[string]any{"limit": budget.Limit.String()})
		env.recordRequest(observability.EndpointRecords, true)
		c.JSON(http.StatusOK, budget)
	}
}

// HandleListBudgets returns the user's budgets sorted by category.
func HandleListBudgets(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		budgets, err := env.Store.ListBudgets(c.Request.Context(), userID(c))
		if err != nil {
			env.recordError(observability.EndpointRecords, observability.ErrorCodeInternal)
			env.recordRequest(observability.EndpointRecords, false)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list budgets"})
			return
		}
		if budgets == nil {
			budgets = []datatypes.Budget{}
		}
		env.recordRequest(observability.EndpointRecords, true)
		c.JSON(http.StatusOK, gin.H{"budgets": budgets})
	}
}

// monthParams parses the optional year/month query parameters, falling
// back to the month of now.
func monthParams(c *gin.Context, now time.Time) (int, time.Month, error) {
	year := now.Year()
	month := now.Month()

	if raw := c.Query("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil || y < 1970 || y > 9999 {
			return 0, 0, errInvalidYear
		}
		year = y
	}
	if raw := c.Query("month"); raw != "" {
		m, err := strconv.Atoi(raw)
		if err != nil || m < 1 || m > 12 {
			return 0, 0, errInvalidMonth
		}
		month = time.Month(m)
	}
	return year, month, nil
}

var (
	errInvalidYear  = errors.New("year must be an integer between 1970 and 9999")
	errInvalidMonth = errors.New("month must be an integer between 1 and 12")
)
