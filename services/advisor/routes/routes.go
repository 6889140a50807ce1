// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/AleutianAI/LedgerLocal/services/advisor/handlers"
	"github.com/AleutianAI/LedgerLocal/services/advisor/middleware"
)

// SetupRoutes registers the advisor's endpoints. Everything under /v1
// passes through the auth middleware; /health and /metrics stay open
// for probes and scrapers.
func SetupRoutes(router *gin.Engine, env *handlers.Env) {
	router.GET("/health", handlers.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API version 1 group
	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(env.Opts.AuthProvider))
	{
		v1.POST("/chat", handlers.HandleChat(env))

		v1.POST("/accounts", handlers.HandleCreateAccount(env))
		v1.GET("/accounts", handlers.HandleListAccounts(env))
		v1.POST("/transactions", handlers.HandleCreateTransaction(env))
		v1.GET("/transactions", handlers.HandleListTransactions(env))
		v1.PUT("/budgets", handlers.HandleUpsertBudget(env))
		v1.GET("/budgets", handlers.HandleListBudgets(env))

		// Conversation administration routes
		conversations := v1.Group("/conversations")
		{
			conversations.GET("", handlers.HandleListConversations(env))
			conversations.GET("/:id/history", handlers.HandleGetConversationHistory(env))
			conversations.DELETE("/:id", handlers.HandleDeleteConversation(env))
		}
	}
}
