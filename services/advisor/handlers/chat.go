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
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/AleutianAI/LedgerLocal/pkg/extensions"
	"github.com/AleutianAI/LedgerLocal/services/advisor/datatypes"
	"github.com/AleutianAI/LedgerLocal/services/advisor/finance"
	"github.com/AleutianAI/LedgerLocal/services/advisor/observability"
	"github.com/AleutianAI/LedgerLocal/services/advisor/prompt"
	"github.com/AleutianAI/LedgerLocal/services/advisor/storage"
	"github.com/AleutianAI/LedgerLocal/services/llm"
)

var chatTracer = otel.Tracer("ledgerlocal.advisor.handlers")

// HandleChat answers a natural-language finance question.
//
// # Pipeline
//
//  1. Validate the request and resolve the user.
//  2. Filter the question (redaction / blocking).
//  3. Resolve or create the conversation and load its history.
//  4. Load the user's records and aggregate the current month.
//  5. Compose the deterministic prompt and call the LLM.
//  6. Filter the answer, store the turn, and respond.
//
// The financial context always covers the month of the request's
// receipt, in UTC.
func HandleChat(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		ctx, span := chatTracer.Start(c.Request.Context(), "HandleChat")
		defer span.End()

		if env.Metrics != nil {
			env.Metrics.RequestStarted(observability.EndpointChat)
			defer env.Metrics.RequestEnded(observability.EndpointChat)
		}

		var req datatypes.ChatRequest
		if err := c.BindJSON(&req); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("Failed to parse the chat request", "error", err)
			env.recordError(observability.EndpointChat, observability.ErrorCodeValidation)
			env.recordRequest(observability.EndpointChat, false)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		req.EnsureDefaults()
		if err := req.Validate(); err != nil {
			env.recordError(observability.EndpointChat, observability.ErrorCodeValidation)
			env.recordRequest(observability.EndpointChat, false)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		span.SetAttributes(attribute.String("chat.request_id", req.RequestID))

		uid := userID(c)
		audit := env.Opts.AuditLogger
		filter := env.Opts.MessageFilter

		// Filter the question before it touches the prompt or the store.
		inResult, err := filter.FilterInput(ctx, req.Question)
		if err != nil {
			env.recordError(observability.EndpointChat, observability.ErrorCodeInternal)
			env.recordRequest(observability.EndpointChat, false)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "message filter failed"})
			return
		}
		if inResult.WasBlocked {
			slog.Warn("Blocked chat question", "reason", inResult.BlockReason, "detections", inResult.Detections)
			_ = audit.Log(ctx, extensions.AuditEvent{
				EventType:    "chat.blocked",
				UserID:       uid,
				ResourceType: "conversation",
				ResourceID:   req.ConversationID,
				Outcome:      "blocked",
				Metadata:     map[string]any{"reason": inResult.BlockReason, "detections": inResult.Detections},
			})
			env.recordError(observability.EndpointChat, observability.ErrorCodeBlocked)
			env.recordRequest(observability.EndpointChat, false)
			c.JSON(http.StatusForbidden, gin.H{"error": "question blocked by message filter"})
			return
		}
		question := inResult.Filtered

		// Resolve the conversation and its history.
		var conv *datatypes.Conversation
		var history []datatypes.Turn
		if req.ConversationID != "" {
			conv, err = env.Store.GetConversation(ctx, uid, req.ConversationID)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					env.recordError(observability.EndpointChat, observability.ErrorCodeNotFound)
					env.recordRequest(observability.EndpointChat, false)
					c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
					return
				}
				env.recordError(observability.EndpointChat, observability.ErrorCodeInternal)
				env.recordRequest(observability.EndpointChat, false)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversation"})
				return
			}
			history, err = env.Store.ListTurns(ctx, uid, conv.ID)
			if err != nil {
				env.recordError(observability.EndpointChat, observability.ErrorCodeInternal)
				env.recordRequest(observability.EndpointChat, false)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
				return
			}
		} else {
			conv, err = env.Store.CreateConversation(ctx, uid, "")
			if err != nil {
				env.recordError(observability.EndpointChat, observability.ErrorCodeInternal)
				env.recordRequest(observability.EndpointChat, false)
				c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create conversation"})
				return
			}
		}

		// Aggregate this month's records into the prompt context.
		now := time.Now().UTC()
		fctx, err := loadFinancialContext(c, env, uid, now)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			env.recordError(observability.EndpointChat, observability.ErrorCodeInternal)
			env.recordRequest(observability.EndpointChat, false)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load financial records"})
			return
		}

		promptText := env.Composer.Compose(fctx, history, question)
		messages := []datatypes.Message{
			{Role: "system", Content: env.Composer.SystemPrompt()},
			{Role: "user", Content: promptText},
		}

		llmStart := time.Now()
		answer, err := env.LLM.Chat(ctx, messages, llm.GenerationParams{})
		if env.Metrics != nil {
			env.Metrics.RecordLLMLatency(env.LLMBackend, time.Since(llmStart).Seconds())
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.Error("LLMClient.Chat failed", "error", err, "backend", env.LLMBackend)
			env.recordError(observability.EndpointChat, observability.ErrorCodeLLMError)
			env.recordRequest(observability.EndpointChat, false)
			c.JSON(http.StatusBadGateway, gin.H{"error": "language model request failed"})
			return
		}

		outResult, err := filter.FilterOutput(ctx, answer)
		if err == nil && !outResult.WasBlocked {
			answer = outResult.Filtered
		}

		turn, err := env.Store.AppendTurn(ctx, uid, conv.ID, question, answer)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			env.recordError(observability.EndpointChat, observability.ErrorCodeInternal)
			env.recordRequest(observability.EndpointChat, false)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store exchange"})
			return
		}

		_ = audit.Log(ctx, extensions.AuditEvent{
			EventType:    "chat.exchange",
			UserID:       uid,
			ResourceType: "conversation",
			ResourceID:   conv.ID,
			Outcome:      "success",
			Metadata: map[string]any{
				"request_id":     req.RequestID,
				"turn_seq":       turn.Seq,
				"question_bytes": len(question),
				"answer_bytes":   len(answer),
			},
		})

		elapsed := time.Since(started)
		if env.Metrics != nil {
			env.Metrics.RecordChatDuration(elapsed.Seconds())
		}
		env.recordRequest(observability.EndpointChat, true)

		slog.Info("chat exchange completed",
			"request_id", req.RequestID,
			"conversation_id", conv.ID,
			"turn_seq", turn.Seq,
			"duration_ms", elapsed.Milliseconds(),
		)

		c.JSON(http.StatusOK, datatypes.NewChatResponse(req.RequestID, conv.ID, answer, elapsed))
	}
}

// loadFinancialContext reads the user's accounts, the receipt month's
// transactions, and budgets, and aggregates them for the composer.
func loadFinancialContext(c *gin.Context, env *Env, uid string, now time.Time) (prompt.Context, error) {
	ctx := c.Request.Context()

	accounts, err := env.Store.ListAccounts(ctx, uid)
	if err != nil {
		return prompt.Context{}, err
	}
	txns, err := env.Store.ListTransactions(ctx, uid, now.Year(), now.Month())
	if err != nil {
		return prompt.Context{}, err
	}
	budgets, err := env.Store.ListBudgets(ctx, uid)
	if err != nil {
		return prompt.Context{}, err
	}

	summary := finance.Summarize(txns, now.Year(), now.Month())
	report := finance.EvaluateBudgets(budgets, summary, now)

	return prompt.Context{
		Accounts: accounts,
		Summary:  summary,
		Budgets:  report,
	}, nil
}
