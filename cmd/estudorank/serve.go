package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/estudorank/estudorank/internal/api"
	"github.com/estudorank/estudorank/internal/auth"
	"github.com/estudorank/estudorank/internal/catalog"
	"github.com/estudorank/estudorank/internal/chat"
	"github.com/estudorank/estudorank/internal/config"
	"github.com/estudorank/estudorank/internal/db"
	"github.com/estudorank/estudorank/internal/leaderboard"
	"github.com/estudorank/estudorank/internal/progress"
	"github.com/estudorank/estudorank/internal/scheduler"
	"github.com/estudorank/estudorank/internal/websocket"
	"github.com/estudorank/estudorank/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func newServeCmd(load func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			return serve(cfg)
		},
	}
}

func serve(cfg *config.Config) error {
	logger.Info("EstudoRank starting...")
	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	dbService, err := db.NewDBService(db.PostgresOperations{}, cfg.Database)
	if err != nil {
		return err
	}
	defer dbService.Close()
	st := dbService.Store()

	wsManager := websocket.NewWebSocketManager()
	go wsManager.Run()
	defer wsManager.Stop()

	resolver := leaderboard.NewResolver(st, tablesFromConfig(cfg.Leaderboard))
	publisher := scheduler.NewLeaderboardPublisher(resolver, wsManager)
	catalogService := catalog.NewService(st)
	progressService := progress.NewService(st, cfg.Leaderboard.ProgressTable, catalogService, publisher)
	chatService := chat.NewService(st, wsManager)

	if cfg.Scheduler.Enabled {
		leaderboardScheduler := scheduler.NewLeaderboardScheduler(publisher, cfg.Scheduler.LeaderboardCron)
		if err := leaderboardScheduler.Start(); err != nil {
			return err
		}
		defer leaderboardScheduler.Stop()
	}

	if cfg.Auth.JWTSecret == "" {
		logger.Warn("auth.jwt_secret is not set; authenticated routes will reject every request")
	}

	handler := api.NewHandler(api.Services{
		Leaderboard: resolver,
		Catalog:     catalogService,
		Progress:    progressService,
		Chat:        chatService,
		Health:      dbService,
		Realtime:    wsManager,
	})
	router := api.SetupRouter(handler, auth.NewVerifier(cfg.Auth.JWTSecret))

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error: %v", err)
		return err
	}

	logger.Info("Server stopped")
	return nil
}
