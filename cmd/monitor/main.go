package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/mmorowitz/media-monitor/internal/checkpoint"
	"github.com/mmorowitz/media-monitor/internal/config"
	"github.com/mmorowitz/media-monitor/internal/monitoring"
	"github.com/mmorowitz/media-monitor/internal/notifications"
	"github.com/mmorowitz/media-monitor/internal/scheduler"
	"github.com/mmorowitz/media-monitor/internal/sources"
	"github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	daemon := flag.Bool("daemon", false, "run on the configured schedule instead of once")
	port := flag.String("port", "8080", "HTTP port for health/trigger endpoints in daemon mode")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting media-monitor")

	if !*daemon {
		if err := runCycle(cfg); err != nil {
			logrus.Fatalf("Run failed: %v", err)
		}
		logrus.Info("Run finished successfully")
		return
	}

	runDaemon(cfg, *port)
}

// runCycle performs one full poll-and-notify cycle. Only a checkpoint
// store initialization failure is fatal; source and delivery failures
// are logged and absorbed.
func runCycle(cfg *config.Config) error {
	store, err := checkpoint.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize checkpoint store: %w", err)
	}
	defer store.Close()

	srcs := []sources.Source{
		sources.NewReddit(cfg.Reddit),
		sources.NewYouTube(cfg.YouTube),
		sources.NewBluesky(cfg.Bluesky),
		sources.NewFeeds(cfg.Feeds),
	}

	monitor := monitoring.NewService(store, srcs)
	report := monitor.Run(context.Background())

	if !cfg.SMTP.Enabled {
		logrus.Info("SMTP is not enabled in config, skipping notification")
		return nil
	}

	notifier := notifications.NewService(cfg.SMTP)
	if err := notifier.SendReport(report); err != nil {
		// Delivery failure never fails the run.
		logrus.Errorf("Failed to deliver report: %v", err)
	}

	return nil
}

func runDaemon(cfg *config.Config, port string) {
	schedulerService := scheduler.NewService(cfg.Schedule.Cron, func() error {
		return runCycle(cfg)
	})
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	router.HandleFunc("/trigger", triggerHandler(cfg)).Methods("POST")

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().UTC().Format(time.RFC3339) + `"}`))
}

func triggerHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		go func() {
			if err := runCycle(cfg); err != nil {
				logrus.Errorf("Manual monitoring trigger failed: %v", err)
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"Monitoring triggered successfully"}`))
	}
}
