package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chatbot-economy-api/internal/app"
	"chatbot-economy-api/internal/config"
	"chatbot-economy-api/internal/handler"
	"chatbot-economy-api/internal/logging"
	"chatbot-economy-api/internal/middleware"
	"chatbot-economy-api/internal/router"
)

func main() {
	cfg := config.MustLoad()
	logging.Setup(cfg.Log.Level, cfg.Log.Format, cfg.App.IsProduction())
	log := logging.Component("main")
	log.Infof("Starting %s v%s...", cfg.App.Name, cfg.App.Version)
	log.Infof("Environment: %s", cfg.App.Environment)

	a, err := app.Build(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	a.Sweeper.Start()

	chanceLimiter := middleware.NewRateLimiter(cfg.Economy.GambleRateLimit, cfg.Economy.GambleRateBurst)
	chanceLimiter.StartCleanup(5 * time.Minute)

	r := router.New(router.Config{
		Handler:          handler.New(cfg.App.Version, a.Economy),
		AccountHandler:   handler.NewAccountHandler(a.Economy),
		InventoryHandler: handler.NewInventoryHandler(a.Economy),
		LoanHandler:      handler.NewLoanHandler(a.Economy),
		AdminHandler:     handler.NewAdminHandler(a.Economy, a.Sweeper, a.JournalBuffer, cfg.Store.Type),
		AuthMiddleware:   middleware.NewAuthMiddleware(middleware.AuthConfig{APIKeys: cfg.Auth.APIKeys}),
		AdminMiddleware:  middleware.RequireAdmin(cfg.Auth.AdminKeys),
		ChanceLimiter:    chanceLimiter.Handler,
		AllowedOrigins:   cfg.Server.CORSOrigins,
		EnableMetrics:    true,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Infof("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}
	chanceLimiter.Stop()

	// Drains the journal buffer before closing the store.
	if err := a.Close(); err != nil {
		log.Errorf("Error during cleanup: %v", err)
	}

	log.Info("Server stopped")
}
