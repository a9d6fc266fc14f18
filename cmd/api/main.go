package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/trace"

	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/auth"
	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/config"
	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/gateway"
	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/llm"
	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/metrics"
	"github.com/bizmatters/agent-builder/architect-orchestrator/internal/orchestration"
	"github.com/bizmatters/agent-builder/architect-orchestrator/migrations"

	_ "github.com/bizmatters/agent-builder/architect-orchestrator/docs" // swagger docs
)

// @title Architect Orchestrator API
// @version 1.0
// @description LLM-driven software architecture pipeline
// @description
// @description Runs specialist reviews, integrates them into a folder structure and dependency tree,
// @description generates code file by file in dependency order, and writes long-form implementation books.

// @contact.name API Support
// @contact.email support@bizmatters.dev

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT token.

func main() {
	if err := run(); err != nil {
		slog.Error("architect orchestrator exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load("")
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	slog.SetDefault(logger)

	tp, err := initTracer()
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tp.Shutdown(ctx)
	}()

	pipelineMetrics, err := metrics.NewPipelineMetrics()
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}

	client, err := llm.NewClient(llm.Config{
		APIKey:            cfg.LLM.APIKey,
		BaseURL:           cfg.LLM.BaseURL,
		Model:             cfg.LLM.Model,
		MaxTokens:         cfg.LLM.MaxTokens,
		Temperature:       cfg.LLM.Temperature,
		Timeout:           cfg.LLM.Timeout,
		MaxRetries:        cfg.LLM.MaxRetries,
		RetryBaseDelay:    cfg.LLM.RetryBaseDelay,
		RetryMaxDelay:     cfg.LLM.RetryMaxDelay,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
		BurstSize:         cfg.LLM.BurstSize,
		CacheSize:         cfg.LLM.CacheSize,
	}, llm.WithLogger(logger), llm.WithRecorder(pipelineMetrics))
	if err != nil {
		return fmt.Errorf("failed to create llm client: %w", err)
	}

	var pool *pgxpool.Pool
	var store orchestration.JobStore = orchestration.NewMemoryStore()
	if cfg.Database.URL != "" {
		pool, err = connectDatabase(context.Background(), cfg.Database.URL, logger)
		if err != nil {
			return err
		}
		defer pool.Close()
		store = orchestration.NewPgStore(pool)
	} else {
		logger.Info("DATABASE_URL not set, book generations are kept in memory")
	}

	pipeline := orchestration.NewPipeline(client, orchestration.PipelineConfig{
		SpecialistConcurrency: cfg.Pipeline.SpecialistConcurrency,
		FileConcurrency:       cfg.Pipeline.FileConcurrency,
		MaxContinuations:      cfg.Pipeline.MaxContinuations,
		ContinuationTailChars: cfg.Pipeline.ContinuationTailChars,
	}, logger, pipelineMetrics)
	service := orchestration.NewService(store, pipeline, logger, pipelineMetrics)

	var jwtManager *auth.JWTManager
	if cfg.Auth.JWTSecret != "" {
		jwtManager, err = auth.NewJWTManager(cfg.Auth.JWTSecret, logger)
		if err != nil {
			return fmt.Errorf("failed to initialize JWT manager: %w", err)
		}
	} else {
		logger.Warn("JWT_SECRET not set, API routes are unauthenticated")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), gateway.RequestID(), gateway.StructuredLogging(logger))

	// Health checks MUST be at the root for the WebService standard
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	router.GET("/ready", func(c *gin.Context) {
		if pool != nil {
			if err := pool.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status": "not ready",
					"error":  "database connection failed",
				})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	gateway.RegisterRoutes(router,
		gateway.NewHandler(service, logger),
		gateway.NewProgressStream(service, nil, logger),
		jwtManager,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout, // level 3 runs inside the request
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting architect orchestrator API server", "port", cfg.Server.Port, "model", cfg.LLM.Model)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down server", "signal", sig.String())
	case err := <-serverErr:
		return fmt.Errorf("failed to start server: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if err := service.Shutdown(ctx); err != nil {
		logger.Warn("book generations still running at shutdown", "error", err)
	}

	logger.Info("server exited")
	return nil
}

// connectDatabase connects with retries and applies the schema.
func connectDatabase(ctx context.Context, url string, logger *slog.Logger) (*pgxpool.Pool, error) {
	logger.Info("connecting to PostgreSQL database")

	var pool *pgxpool.Pool
	var err error
	for i := 0; i < 10; i++ {
		pool, err = pgxpool.New(ctx, url)
		if err == nil {
			err = pool.Ping(ctx)
			if err == nil {
				break
			}
			pool.Close()
		}
		logger.Warn("waiting for database", "attempt", i+1, "max_attempts", 10, "error", err)
		time.Sleep(3 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after retries: %w", err)
	}

	if err := migrations.Up(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	logger.Info("connected to PostgreSQL database")
	return pool, nil
}

// initTracer initializes OpenTelemetry tracing
func initTracer() (*trace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
	)

	otel.SetTracerProvider(tp)

	return tp, nil
}
