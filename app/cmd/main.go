package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"bpmnvalidator/app/config"
	"bpmnvalidator/app/usecase"
	"bpmnvalidator/internal/infrastructure/metrics"
	"bpmnvalidator/internal/infrastructure/store/filesystem"
	"bpmnvalidator/internal/infrastructure/transport"
	"bpmnvalidator/internal/infrastructure/validator"
)

func main() {
	_ = godotenv.Load()

	configPath := pflag.StringP("config", "c", os.Getenv("BPMNLINT_SERVICE_CONFIG"), "path to an .hcl or .json config file")
	listenAddr := pflag.String("addr", "", "listen address, overrides server host and port")
	pflag.Parse()

	// load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// logger
	level, _ := config.ParseLogLevel(cfg.LogLevel)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))

	// Repositories
	rulesetRepo := filesystem.NewRulesetRepository(cfg.Ruleset.Path)
	scratchRepo, err := filesystem.NewScratchRepository(cfg.Upload.ScratchDir)
	if err != nil {
		logger.Error("init scratch dir failed", "err", err)
		os.Exit(1)
	}

	// external validator
	linter := validator.NewBpmnLinter(cfg.Linter.Command, cfg.Linter.Args, cfg.LinterWorkDir(), logger).
		WithProbeArgs(cfg.Linter.ProbeArgs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Every request would fail without the linter, so refuse to start.
	initializer := usecase.NewStartupInitializer(rulesetRepo, linter, cfg.LintRuleset(), cfg.Linter.ProbeTimeout, logger)
	if err := initializer.Run(ctx); err != nil {
		logger.Error("startup check failed", "err", err)
		os.Exit(1)
	}

	// Usecases / services
	validationSvc := usecase.NewValidationService(
		scratchRepo,
		linter,
		cfg.Linter.Extension,
		cfg.Linter.Timeout,
		logger,
	)
	healthSvc := usecase.NewHealthService(linter)

	// Transport (HTTP handlers)
	handler := transport.NewValidatorHandler(
		validationSvc,
		healthSvc,
		cfg.Upload.MaxBytes,
		logger,
	)

	// Router and server
	r := mux.NewRouter()
	handler.RegisterRoutes(r)
	var root http.Handler = handlers.CORS(
		handlers.AllowedOrigins(cfg.Server.CORSOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization", transport.RequestIDHeader}),
		handlers.ExposedHeaders([]string{transport.RequestIDHeader}),
	)(r)
	root = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{logger: logger}),
	)(root)
	root = handlers.ProxyHeaders(root)

	addr := cfg.Addr()
	if *listenAddr != "" {
		addr = *listenAddr
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           root,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	if cfg.Metrics.Addr != "" {
		go func() {
			logger.Info("starting metrics server", "addr", cfg.Metrics.Addr)
			if err := metrics.StartMetricsServer(ctx, cfg.Metrics.Addr); err != nil {
				logger.Error("metrics server failed", "err", err)
			}
		}()
	}

	// Start HTTP server
	go func() {
		logger.Info("starting HTTP server",
			"addr", addr,
			"linter", cfg.Linter.Command,
			"ruleset", rulesetRepo.Path(),
			"timeout", cfg.Linter.Timeout,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "err", err)
			cancel()
		}
	}()

	// OS signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutdown signal received")
	case <-ctx.Done():
		logger.Info("context cancelled")
	}

	// Shutdown sequence
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	logger.Info("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	cancel()

	logger.Info("service stopped")
}

// recoveryLogger routes gorilla/handlers panic reports into slog.
type recoveryLogger struct {
	logger *slog.Logger
}

func (l recoveryLogger) Println(v ...interface{}) {
	l.logger.Error("panic recovered", "err", fmt.Sprint(v...))
}
