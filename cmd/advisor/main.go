// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command advisor starts the LedgerLocal advisor HTTP server.
//
// This is the main entry point for the containerized advisor service.
// Configuration comes from an optional YAML file overridden by
// environment variables.
//
// # Environment Variables
//
//   - ADVISOR_PORT: HTTP server port (default: 12220)
//   - ADVISOR_CONFIG: Path to the YAML config file (default: ./advisor.yaml)
//   - ADVISOR_DB_PATH: Record store directory (default: ./data/advisor)
//   - LLM_BACKEND_TYPE: LLM provider - ollama, openai, claude (default: ollama)
//   - RETENTION_DAYS: Conversation retention window (default: 90)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (default: ledgerlocal-otel-collector:4317)
//
// # Usage
//
//	# Build
//	go build -o advisor ./cmd/advisor
//
//	# Run
//	./advisor
//
//	# Or via container
//	podman-compose up advisor
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/AleutianAI/LedgerLocal/pkg/logging"
	"github.com/AleutianAI/LedgerLocal/services/advisor"
)

func main() {
	// Setup structured logging
	logger := logging.New(logging.Config{
		Level:   logging.LevelInfo,
		Service: "advisor",
		LogDir:  os.Getenv("ADVISOR_LOG_DIR"),
		JSON:    true,
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	// Load the config file, then apply environment overrides
	configPath := getEnvString("ADVISOR_CONFIG", "./advisor.yaml")
	cfg, err := advisor.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	cfg.Port = getEnvInt("ADVISOR_PORT", cfg.Port)
	cfg.DBPath = getEnvString("ADVISOR_DB_PATH", cfg.DBPath)
	cfg.LLMBackend = getEnvString("LLM_BACKEND_TYPE", cfg.LLMBackend)
	cfg.RetentionDays = getEnvInt("RETENTION_DAYS", cfg.RetentionDays)
	cfg.OTelEndpoint = getEnvString("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.OTelEndpoint)
	cfg.EnableMetrics = getEnvString("ADVISOR_DISABLE_METRICS", "") == ""

	logger.Info("Starting advisor",
		"port", cfg.Port,
		"llm_backend", cfg.LLMBackend,
		"db_path", cfg.DBPath,
		"retention_days", cfg.RetentionDays,
	)

	// Create the advisor with default (no-op) extension options.
	// Enterprise builds pass custom ServiceOptions here.
	svc, err := advisor.New(cfg, nil)
	if err != nil {
		log.Fatalf("Failed to create advisor: %v", err)
	}

	// Run the server (blocks until shutdown)
	if err := svc.Run(); err != nil {
		log.Fatalf("Advisor error: %v", err)
	}
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
