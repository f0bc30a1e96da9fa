package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/avelhao/parley/internal/adapters/httpapi"
	"github.com/avelhao/parley/internal/adapters/memory"
	redisstore "github.com/avelhao/parley/internal/adapters/redis"
	"github.com/avelhao/parley/internal/config"
	"github.com/avelhao/parley/internal/logging"
	"github.com/avelhao/parley/internal/metrics"
	"github.com/avelhao/parley/internal/service"
	"github.com/avelhao/parley/pkg/ports"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long:  `Starts the workflow and run API over HTTP. Stores are in-memory by default; set PARLEY_REDIS_ADDR for persistence.`,
	Run: func(cmd *cobra.Command, args []string) {
		addr, _ := cmd.Flags().GetString("addr")

		if err := serve(addr); err != nil {
			fmt.Printf("Server error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("addr", "a", "", "Bind address (default from PARLEY_LISTEN_ADDR or :8080)")
}

func serve(addr string) error {
	settings := config.FromEnv()
	if addr == "" {
		addr = settings.ListenAddr
	}
	logger := logging.New(logging.ParseLevel(settings.LogLevel))

	var (
		workflowStore ports.WorkflowStore
		runStore      ports.RunStore
		stepStore     ports.RunStepStore
	)
	if settings.RedisAddr != "" {
		store := redisstore.New(settings.RedisAddr, redisstore.WithPrefix(settings.RedisPrefix))
		defer store.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Ping(pingCtx); err != nil {
			return fmt.Errorf("redis at %s: %w", settings.RedisAddr, err)
		}
		workflowStore, runStore, stepStore = store.Workflows(), store.Runs(), store.Steps()
		logger.Info("using redis stores", "addr", settings.RedisAddr, "prefix", settings.RedisPrefix)
	} else {
		workflowStore, runStore, stepStore = memory.NewWorkflowStore(), memory.NewRunStore(), memory.NewRunStepStore()
		logger.Info("using in-memory stores")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	recorder := metrics.NewRecorder(registry)

	runOpts := []service.RunOption{
		service.WithLogger(logger),
		service.WithLifecycleHooks(recorder.Hooks()),
	}
	if settings.OpenAIKey != "" {
		runOpts = append(runOpts, service.WithCompleter(newCompleter(settings)))
		logger.Info("completion backend enabled")
	} else {
		logger.Warn("no completion backend configured, LLM nodes will fail")
	}

	runs := service.NewRunService(workflowStore, runStore, stepStore, runOpts...)
	workflows := service.NewWorkflowService(workflowStore)

	handler := httpapi.NewHandler(workflows, runs,
		httpapi.WithLogger(logger),
		httpapi.WithMetricsHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
	)

	srv := &http.Server{
		Addr:         addr,
		Handler:      handler.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		logger.Info("starting server", "addr", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for interrupt or terminate signals.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return err

	case sig := <-shutdown:
		logger.Info("starting shutdown", "signal", sig.String())

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown did not complete", "err", err)
			if err := srv.Close(); err != nil {
				return fmt.Errorf("could not stop server: %w", err)
			}
		}
		logger.Info("server stopped")
	}
	return nil
}
