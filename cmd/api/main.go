package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/canvasworks/shopstock/internal/config"
	"github.com/canvasworks/shopstock/pkg/inventory"
	"github.com/canvasworks/shopstock/pkg/inventory/storage"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("failed to initialize logger:", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	store, err := storage.NewPostgreSQLStorage(cfg.DSN(), logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer store.Close()

	engineConfig := &inventory.Config{
		ReorderAlertsEnabled: cfg.Inventory.ReorderAlertsEnabled,
		DefaultActor:         cfg.Inventory.DefaultActor,
	}

	engine := inventory.NewEngine(store, nil, logger, engineConfig)
	tracker := inventory.NewOrderTracker(store, logger)
	valuation := inventory.NewValuationEngine(store, logger)

	handlers := NewHandlers(engine, tracker, valuation, store, logger)
	handlers.historyPageSize = cfg.Inventory.HistoryPageSize
	router := setupRouter(handlers, cfg)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.API.Port),
		Handler:      router,
		ReadTimeout:  cfg.API.ReadTimeout,
		WriteTimeout: cfg.API.WriteTimeout,
		IdleTimeout:  cfg.API.IdleTimeout,
	}

	go func() {
		logger.Info("starting shop stock API server", zap.Int("port", cfg.API.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}

	logger.Info("server stopped")
}

// setupRouter sets up HTTP routes
func setupRouter(handlers *Handlers, cfg *config.Config) *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", handlers.HealthCheck).Methods("GET")
	if cfg.API.EnableMetrics {
		router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}

	api := router.PathPrefix("/api/v1").Subrouter()

	// item catalog
	api.HandleFunc("/items", handlers.CreateItem).Methods("POST")
	api.HandleFunc("/items", handlers.ListItems).Methods("GET")
	api.HandleFunc("/items/{itemId}", handlers.GetItem).Methods("GET")
	api.HandleFunc("/items/{itemId}", handlers.UpdateItem).Methods("PUT")
	api.HandleFunc("/items/{itemId}/history", handlers.GetHistory).Methods("GET")

	// computed stock levels
	api.HandleFunc("/inventory/levels", handlers.GetStockLevels).Methods("GET")
	api.HandleFunc("/inventory/levels/{itemId}", handlers.GetStockLevel).Methods("GET")

	// stock operations
	api.HandleFunc("/inventory/adjust", handlers.AdjustStock).Methods("POST")
	api.HandleFunc("/inventory/order", handlers.MarkOrdered).Methods("POST")
	api.HandleFunc("/inventory/receive", handlers.ReceiveOrder).Methods("POST")

	// valuation
	api.HandleFunc("/inventory/valuation", handlers.GetValuation).Methods("GET")

	// purchase orders
	api.HandleFunc("/orders/open/{itemId}", handlers.GetOpenOrders).Methods("GET")

	// jobs
	api.HandleFunc("/jobs", handlers.CreateJob).Methods("POST")
	api.HandleFunc("/jobs", handlers.ListJobs).Methods("GET")
	api.HandleFunc("/jobs/{jobId}", handlers.GetJob).Methods("GET")
	api.HandleFunc("/jobs/{jobId}/status", handlers.UpdateJobStatus).Methods("PUT")

	// reorder alerts
	api.HandleFunc("/alerts", handlers.GetAlerts).Methods("GET")
	api.HandleFunc("/alerts/{alertId}/resolve", handlers.ResolveAlert).Methods("POST")

	if cfg.API.EnableCORS {
		router.Use(corsMiddleware)
	}
	router.Use(loggingMiddleware(handlers.logger))

	return router
}

// corsMiddleware allows cross-origin requests (development use)
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Acting-User")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("url", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
