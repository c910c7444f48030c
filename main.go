package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/linesmerrill/autodoc-api/api/handlers"
	"github.com/linesmerrill/autodoc-api/config"
)

func main() {
	a := handlers.App{}
	a.Config = *config.New()

	connectCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err := a.Initialize(connectCtx) //initialize database, scheduler and router
	cancel()
	if err != nil {
		zap.S().Fatalw("failed to initialize autodoc-api", "error", err)
	}

	httpServer := &http.Server{
		Addr:        fmt.Sprintf(":%v", a.Config.Port),
		Handler:     a.Router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		zap.S().Infow("autodoc-api is up and running",
			"port", a.Config.Port,
			"url", a.Config.BaseURL,
			"sweepSchedule", a.Config.SweepSchedule,
			"timezone", a.Config.Location.String(),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.S().Fatalw("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zap.S().Info("shutting down autodoc-api")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		zap.S().Errorw("http shutdown error", "error", err)
	}
	if err := a.Shutdown(ctx); err != nil {
		zap.S().Errorw("app shutdown error", "error", err)
	}
	_ = zap.L().Sync()
}
