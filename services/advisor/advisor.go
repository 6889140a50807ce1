// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package advisor provides the core chat service for LedgerLocal.
//
// This package contains the main Service type that coordinates all
// components: HTTP routing, the LLM client, the Badger record store,
// prompt composition, retention cleanup, and observability
// infrastructure.
//
// # Enterprise Integration
//
// The advisor supports dependency injection via extensions.ServiceOptions,
// enabling host applications to provide custom implementations of:
//   - AuthProvider: Custom authentication (JWT, API keys)
//   - AuditLogger: Compliance audit logging
//   - MessageFilter: PII detection and redaction
//
// # Usage
//
// Open source (uses no-op defaults):
//
//	cfg := advisor.Config{Port: 12220}
//	svc, err := advisor.New(cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	svc.Run()
//
// Enterprise (with custom implementations):
//
//	opts := &extensions.ServiceOptions{
//	    AuthProvider: enterpriseAuth,
//	    AuditLogger:  enterpriseAudit,
//	}
//	svc, err := advisor.New(cfg, opts)
package advisor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/LedgerLocal/pkg/extensions"
	"github.com/AleutianAI/LedgerLocal/services/advisor/handlers"
	"github.com/AleutianAI/LedgerLocal/services/advisor/observability"
	"github.com/AleutianAI/LedgerLocal/services/advisor/prompt"
	"github.com/AleutianAI/LedgerLocal/services/advisor/retention"
	"github.com/AleutianAI/LedgerLocal/services/advisor/routes"
	"github.com/AleutianAI/LedgerLocal/services/advisor/storage"
	"github.com/AleutianAI/LedgerLocal/services/llm"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the advisor service.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Run() blocks and
// should only be called once per instance.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing.
	Router() *gin.Engine
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds advisor configuration options.
//
// # Description
//
// Config centralizes all configuration for the advisor service. Values
// can be populated from a YAML file via LoadConfig, from environment
// variables, or programmatically for testing. Zero values use defaults
// applied by New().
type Config struct {
	// Port is the HTTP server port. Default: 12220
	Port int `yaml:"port"`

	// LLMBackend specifies the LLM provider.
	// Valid values: "ollama", "openai", "claude", "anthropic"
	// Default: "ollama"
	LLMBackend string `yaml:"llm_backend"`

	// DBPath is the directory for the Badger record store.
	// Default: "./data/advisor"
	DBPath string `yaml:"db_path"`

	// RetentionDays is how long inactive conversations are kept before
	// the retention cleaner deletes them. Negative values disable
	// retention entirely. Default: 90
	RetentionDays int `yaml:"retention_days"`

	// CleanupInterval is how often the retention scheduler runs.
	// Default: 1 hour
	CleanupInterval time.Duration `yaml:"cleanup_interval"`

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// Default: "ledgerlocal-otel-collector:4317"
	OTelEndpoint string `yaml:"otel_endpoint"`

	// EnableMetrics registers the chat metrics with the default
	// Prometheus registry. The advisor command enables this unless
	// explicitly disabled; tests leave it off to avoid double
	// registration.
	EnableMetrics bool `yaml:"enable_metrics"`

	// GinMode sets the Gin framework mode.
	// Valid values: "debug", "release", "test"
	// Default: uses GIN_MODE env var or "debug"
	GinMode string `yaml:"gin_mode"`

	// LLMRateRPS caps outbound LLM requests per second.
	// 0 disables rate limiting.
	LLMRateRPS float64 `yaml:"llm_rate_rps"`

	// LLMRateBurst is the rate limiter burst size. Default: 1.
	LLMRateBurst int `yaml:"llm_rate_burst"`
}

// LoadConfig reads a YAML config file. A missing file is not an error;
// the zero Config is returned and New() applies defaults.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12220
	}
	if cfg.LLMBackend == "" {
		cfg.LLMBackend = "ollama"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./data/advisor"
	}
	if cfg.RetentionDays == 0 {
		cfg.RetentionDays = 90
	}
	if cfg.CleanupInterval == 0 {
		cfg.CleanupInterval = 1 * time.Hour
	}
	if cfg.OTelEndpoint == "" {
		cfg.OTelEndpoint = "ledgerlocal-otel-collector:4317"
	}
	if cfg.LLMRateBurst == 0 {
		cfg.LLMRateBurst = 1
	}
	return cfg
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service for production use.
//
// # Fields
//
//   - config: Service configuration
//   - opts: Extension options for enterprise features
//   - router: Gin HTTP engine
//   - llmClient: LLM provider client (rate limited when configured)
//   - db / store: Badger record store
//   - scheduler: Background retention cleanup (may be nil)
//   - tracerCleanup: Function to shutdown tracer on exit
//
// # Thread Safety
//
// Thread-safe after construction. All fields are read-only after New()
// returns.
type service struct {
	config        Config
	opts          extensions.ServiceOptions
	router        *gin.Engine
	llmClient     llm.LLMClient
	db            *storage.DB
	store         *storage.Store
	scheduler     *retention.Scheduler
	tracerCleanup func(context.Context)
}

// =============================================================================
// Constructor
// =============================================================================

// New creates a new advisor Service with the given configuration.
//
// # Description
//
// New initializes all advisor components:
//  1. Applies default configuration for missing values
//  2. Initializes OpenTelemetry tracing
//  3. Initializes Prometheus metrics
//  4. Opens the Badger record store
//  5. Creates the LLM client based on backend type
//  6. Starts the retention cleanup scheduler
//  7. Sets up HTTP routes with extension options
//
// If opts is nil, DefaultOptions() is used (no-op implementations).
func New(cfg Config, opts *extensions.ServiceOptions) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
	}

	// Apply extension options (use defaults if nil)
	if opts != nil {
		s.opts = opts.Normalize()
	} else {
		s.opts = extensions.DefaultOptions()
	}

	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}

	// Initialize OpenTelemetry tracer
	cleanup, err := s.initTracer()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}
	s.tracerCleanup = cleanup

	// Initialize Prometheus metrics
	if s.config.EnableMetrics {
		observability.InitMetrics()
		slog.Info("Initialized Prometheus metrics")
	}

	// Open the record store
	if err := s.initStore(); err != nil {
		s.cleanupResources()
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}

	// Initialize LLM client
	if err := s.initLLMClient(); err != nil {
		s.cleanupResources()
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	// Start retention cleanup (optional)
	if s.config.RetentionDays > 0 {
		if err := s.initRetention(); err != nil {
			slog.Warn("Retention scheduler initialization failed",
				"error", err)
			// Not fatal - continue without retention cleanup
		}
	}

	// Setup HTTP router
	s.initRouter()

	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run starts the HTTP server and blocks until shutdown or error.
// Cleanup of the store, scheduler, and tracer is automatic on return.
func (s *service) Run() error {
	defer s.cleanupResources()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting advisor server", "port", s.config.Port)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// initTracer initializes OpenTelemetry distributed tracing.
//
// Uses an insecure gRPC connection, appropriate for internal networks.
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("advisor-service")))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}

	return cleanup, nil
}

// initStore opens the Badger database and wraps it in the typed store.
func (s *service) initStore() error {
	cfg := storage.DefaultConfig()
	cfg.Path = s.config.DBPath

	db, err := storage.OpenDB(cfg)
	if err != nil {
		return err
	}
	s.db = db
	s.store = storage.NewStore(db)

	slog.Info("Record store opened", "path", s.config.DBPath)
	return nil
}

// initLLMClient creates the LLM provider client and applies the
// configured rate limit.
func (s *service) initLLMClient() error {
	var client llm.LLMClient
	var err error

	switch s.config.LLMBackend {
	case "openai":
		client, err = llm.NewOpenAIClient()
		slog.Info("Using OpenAI LLM backend")
	case "ollama":
		client, err = llm.NewOllamaClient()
		slog.Info("Using Ollama LLM backend")
	case "claude", "anthropic":
		client, err = llm.NewAnthropicClient()
		slog.Info("Using Anthropic (Claude) LLM backend")
	default:
		slog.Warn("Unknown LLM backend, defaulting to ollama", "backend", s.config.LLMBackend)
		client, err = llm.NewOllamaClient()
	}
	if err != nil {
		return err
	}

	s.llmClient = llm.NewRateLimitedClient(client, s.config.LLMRateRPS, s.config.LLMRateBurst)
	return nil
}

// initRetention starts the background retention cleanup scheduler.
func (s *service) initRetention() error {
	window := time.Duration(s.config.RetentionDays) * 24 * time.Hour

	cleaner, err := retention.NewCleaner(s.store, window, nil, s.opts.AuditLogger)
	if err != nil {
		return err
	}

	s.scheduler = retention.NewScheduler(cleaner, retention.SchedulerConfig{
		Interval: s.config.CleanupInterval,
	})
	if err := s.scheduler.Start(context.Background()); err != nil {
		return fmt.Errorf("failed to start retention scheduler: %w", err)
	}

	slog.Info("Retention cleanup scheduler started",
		"window_days", s.config.RetentionDays,
		"interval", s.config.CleanupInterval.String(),
	)
	return nil
}

// initRouter sets up the Gin HTTP router with all routes.
func (s *service) initRouter() {
	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("advisor-service"))

	env := &handlers.Env{
		Store:      s.store,
		LLM:        s.llmClient,
		Composer:   prompt.NewComposer(prompt.DefaultConfig()),
		LLMBackend: s.config.LLMBackend,
		Opts:       s.opts,
		Metrics:    observability.DefaultMetrics,
	}
	routes.SetupRoutes(s.router, env)
}

// cleanupResources releases everything held by the service. Called when
// Run() exits or on initialization failure.
func (s *service) cleanupResources() {
	if s.scheduler != nil {
		if err := s.scheduler.Stop(); err != nil {
			slog.Warn("Retention scheduler stop error", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			slog.Warn("Record store close error", "error", err)
		}
	}

	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
	}
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ Service = (*service)(nil)
