package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	api "github.com/Alok-Gaur/mail-management-agent/cmd/api"
	"github.com/Alok-Gaur/mail-management-agent/internal/app"
	"github.com/Alok-Gaur/mail-management-agent/internal/watch/scheduler"
	"github.com/Alok-Gaur/mail-management-agent/pkg/config"

	"github.com/gin-gonic/gin"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg := config.Load()
	gin.SetMode(gin.ReleaseMode)

	a, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to initialize service: ", err)
	}
	defer a.Close()

	// Queued batches finish during shutdown.
	a.Worker.Start(context.WithoutCancel(ctx))

	// Pub/Sub pull subscriber, only when a project is configured
	if cfg.GoogleProjectID != "" {
		sub, err := a.NewSubscriber(ctx)
		if err != nil {
			log.Printf("[ERROR] Failed to initialize pubsub subscriber: %v", err)
		} else {
			go func() {
				if err := sub.Start(ctx); err != nil {
					log.Printf("[ERROR] Pubsub subscriber stopped: %v", err)
				}
			}()
			defer sub.Close()
		}
	} else {
		log.Printf("[WARN] GOOGLE_PROJECT_ID not configured, pubsub subscriber disabled")
	}

	renewal := scheduler.NewWatchRenewalScheduler(a.Watch, a.Policy.WatchCheckInterval, a.Policy.WatchRenewBefore)
	renewal.Start(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewHandler(a).Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("Server starting on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server: ", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[ERROR] HTTP shutdown: %v", err)
	}
	renewal.Stop()
	a.Worker.Stop()
	log.Println("Shutdown complete")
}
