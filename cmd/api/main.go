package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mealgram/backend/config"
	"github.com/mealgram/backend/internal/database"
	"github.com/mealgram/backend/internal/server"
	"github.com/mealgram/backend/internal/service"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("failed to load configuration")
	}

	db, err := database.New(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to database")
	}

	cache, err := database.NewRedisClient(cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to redis")
	}

	images, err := service.NewImageService(context.Background(), cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("failed to initialize image storage")
	}

	srv := server.New(cfg, db, cache, images, logger)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		if err != nil {
			logger.WithError(err).Fatal("server error")
		}
	case sig := <-quit:
		logger.WithField("signal", sig.String()).Info("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Fatal("server shutdown error")
	}
	logger.Info("server stopped")
}
