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

	"github.com/gin-gonic/gin"

	"github.com/AleutianAI/LedgerLocal/pkg/extensions"
	"github.com/AleutianAI/LedgerLocal/services/advisor/datatypes"
	"github.com/AleutianAI/LedgerLocal/services/advisor/observability"
	"github.com/AleutianAI/LedgerLocal/services/advisor/storage"
)

// HandleListConversations returns the user's conversations, newest
// activity first.
func HandleListConversations(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		conversations, err := env.Store.ListConversations(c.Request.Context(), userID(c))
		if err != nil {
			env.recordError(observability.EndpointConversations, observability.ErrorCodeInternal)
			env.recordRequest(observability.EndpointConversations, false)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list conversations"})
			return
		}
		if conversations == nil {
			conversations = []datatypes.Conversation{}
		}
		env.recordRequest(observability.EndpointConversations, true)
		c.JSON(http.StatusOK, gin.H{"conversations": conversations})
	}
}

// HandleGetConversationHistory returns a conversation with its full
// ordered list of turns.
func HandleGetConversationHistory(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := userID(c)
		convID := c.Param("id")

		conv, err := env.Store.GetConversation(c.Request.Context(), uid, convID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				env.recordError(observability.EndpointConversations, observability.ErrorCodeNotFound)
				env.recordRequest(observability.EndpointConversations, false)
				c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
				return
			}
			env.recordError(observability.EndpointConversations, observability.ErrorCodeInternal)
			env.recordRequest(observability.EndpointConversations, false)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversation"})
			return
		}

		turns, err := env.Store.ListTurns(c.Request.Context(), uid, convID)
		if err != nil {
			env.recordError(observability.EndpointConversations, observability.ErrorCodeInternal)
			env.recordRequest(observability.EndpointConversations, false)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
			return
		}
		if turns == nil {
			turns = []datatypes.Turn{}
		}

		env.recordRequest(observability.EndpointConversations, true)
		c.JSON(http.StatusOK, gin.H{
			"conversation": conv,
			"turns":        turns,
		})
	}
}

// HandleDeleteConversation removes a conversation and all of its turns.
func HandleDeleteConversation(env *Env) gin.HandlerFunc {
	return func(c *gin.Context) {
		uid := userID(c)
		convID := c.Param("id")

		turns, err := env.Store.DeleteConversation(c.Request.Context(), uid, convID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				env.recordError(observability.EndpointConversations, observability.ErrorCodeNotFound)
				env.recordRequest(observability.EndpointConversations, false)
				c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
				return
			}
			slog.Error("Failed to delete conversation", "error", err, "conversation_id", convID)
			env.recordError(observability.EndpointConversations, observability.ErrorCodeInternal)
			env.recordRequest(observability.EndpointConversations, false)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete conversation"})
			return
		}

		_ = env.Opts.AuditLogger.Log(c.Request.Context(), extensions.AuditEvent{
			EventType:    "conversation.delete",
			UserID:       uid,
			ResourceType: "conversation",
			ResourceID:   convID,
			Outcome:      "success",
			Metadata:     map[string]any{"turns_deleted": turns},
		})

		env.recordRequest(observability.EndpointConversations, true)
		c.JSON(http.StatusOK, gin.H{
			"conversation_id": convID,
			"turns_deleted":   turns,
		})
	}
}
