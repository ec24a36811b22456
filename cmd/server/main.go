// backend-go/cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/ecoagent/backend-go/internal/api"
	"github.com/andresuchdata/ecoagent/backend-go/internal/api/admin"
	"github.com/andresuchdata/ecoagent/backend-go/internal/app"
	"github.com/andresuchdata/ecoagent/backend-go/internal/config"
	"github.com/andresuchdata/ecoagent/backend-go/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.Configure(os.Stdout, cfg.Log.Format, cfg.Log.Level)
	switch cfg.Server.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	// Wire storage, engines and services
	ctx := context.Background()
	application, err := app.New(ctx, cfg)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	// Initialize HTTP server
	router := api.NewRouter(&api.Services{
		WasteRisk: application.WasteRisk,
		Suppliers: application.Suppliers,
		Datasets:  application.Datasets,
		Impact:    application.Impact,
	}, cfg.Server.AllowedOrigins)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Admin server: health, metrics and Drive maintenance
	var adminSrv *http.Server
	if cfg.Admin.Port != "" {
		var browser admin.DriveBrowser
		if application.Drive != nil {
			browser = application.Drive
		}
		adminSrv = &http.Server{
			Addr:    ":" + cfg.Admin.Port,
			Handler: admin.NewRouter(admin.NewHandler(browser, application.Datasets).WithCache(application.Objects)),
		}
		go func() {
			logger.Log.Info().Str("port", cfg.Admin.Port).Msg("Starting admin server")
			if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Log.Fatal().Err(err).Msg("Failed to start admin server")
			}
		}()
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error().Err(err).Msg("Server forced to shutdown")
	}
	if adminSrv != nil {
		if err := adminSrv.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error().Err(err).Msg("Admin server forced to shutdown")
		}
	}

	logger.Log.Info().Msg("Server exiting")
}
