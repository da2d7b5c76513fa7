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

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"

	"github.com/ibvrd/cadastro-server/internal/api"
	"github.com/ibvrd/cadastro-server/internal/backup"
	"github.com/ibvrd/cadastro-server/internal/config"
	"github.com/ibvrd/cadastro-server/internal/report"
	"github.com/ibvrd/cadastro-server/internal/repository"
	"github.com/ibvrd/cadastro-server/internal/service"
	"github.com/ibvrd/cadastro-server/internal/utils"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()

	logger := utils.NewFileLogger(cfg.Log.File)
	defer logger.Close()

	// build opens the database and assembles the dependency set. The
	// handler calls it again after a restore to reopen everything.
	build := func() (*api.Deps, error) {
		db, err := config.SetupDatabase(cfg)
		if err != nil {
			return nil, err
		}

		repo := repository.NewSQLiteRepository(db)
		return &api.Deps{
			DB:      db,
			Pessoas: service.NewPessoaService(repo),
			Eventos: service.NewEventoService(repo),
			Ledger:  service.NewLedgerService(repo),
			Stats:   service.NewStatsService(repo),
			Backups: backup.NewService(repo, cfg, logger),
			Reports: report.NewGenerator(),
		}, nil
	}

	deps, err := build()
	if err != nil {
		log.Fatalf("Failed to set up database: %v", err)
	}

	// Create API handler
	handler := api.NewHandler(deps, build, logger)
	defer handler.Close()

	// Set up Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(api.RequestIDMiddleware())
	router.Use(api.LoggingMiddleware(logger))

	// Set up routes
	handler.SetupRoutes(router)

	// Auto backup: once at startup, then on the configured schedule
	runBackup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		ran, err := handler.RunAutoBackup(ctx)
		if err != nil {
			logger.Error("auto backup failed: %v", err)
		} else if ran {
			logger.Info("auto backup completed")
		}
	}
	runBackup()

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(cfg.Backup.Schedule, runBackup); err != nil {
		log.Fatalf("Invalid backup schedule %q: %v", cfg.Backup.Schedule, err)
	}
	scheduler.Start()

	// The server only talks to the companion UI on this machine
	serverAddr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{Addr: serverAddr, Handler: router}

	go func() {
		logger.Info("starting server on %s", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	<-scheduler.Stop().Done()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown: %v", err)
	}
}
