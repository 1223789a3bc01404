// Package main is the entry point for the Ocean Haven booking server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ocean-haven/booking/internal/api"
	"github.com/ocean-haven/booking/internal/auth"
	"github.com/ocean-haven/booking/internal/calendar"
	"github.com/ocean-haven/booking/internal/config"
	"github.com/ocean-haven/booking/internal/metrics"
	"github.com/ocean-haven/booking/internal/storage"
	"github.com/ocean-haven/booking/internal/websocket"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
var version = "dev"

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config.yaml", "Path to the YAML configuration file")
	envFile := flag.String("env", ".env", "Optional .env file loaded before the configuration")
	addr := flag.String("addr", "", "HTTP server address (overrides config)")
	dataDir := flag.String("data", "", "Data directory for the SQLite database (overrides config)")
	staticDir := flag.String("static", "", "Directory for static frontend files (overrides config)")
	healthCheck := flag.Bool("health-check", false, "Run health check and exit")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		log.Printf("Warning: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *addr != "" {
		cfg.Listen = *addr
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *staticDir != "" {
		cfg.StaticDir = *staticDir
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}

	// Health check mode for Docker HEALTHCHECK
	if *healthCheck {
		if err := runHealthCheck(cfg.Listen); err != nil {
			log.Fatalf("Health check failed: %v", err)
		}
		os.Exit(0)
	}

	if envVer := os.Getenv("VERSION"); envVer != "" {
		version = envVer
	}
	log.Printf("Starting Ocean Haven booking server (version: %s)...", version)
	if cfg.JWTSecret == "dev-secret" {
		log.Println("Warning: JWT_SECRET is not set, using the development secret")
	}
	if len(cfg.OwnerEmails) == 0 {
		log.Println("Warning: no owner emails configured, nobody can approve bookings")
	}

	// Initialize database
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data directory %q: %v", cfg.DataDir, err)
	}
	db, err := storage.Open(cfg.DatabasePath())
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	log.Println("Database migrations complete")

	metrics.Register()

	// Initialize WebSocket hub
	hub := websocket.NewHub()
	go hub.Run()

	// Initialize repositories and services
	calendarRepo := storage.NewCalendarRepository(db)
	bookingRepo := storage.NewBookingRepository(db)
	blockRepo := storage.NewBlockRepository(db)

	feed := calendar.NewMergedFeed(calendarRepo, blockRepo, bookingRepo, cfg.FeedCacheTTL())
	defer feed.Stop()

	syncService := calendar.NewSyncService(
		calendarRepo,
		bookingRepo,
		calendar.NewFetcher(cfg.FetchTimeout()),
		feed,
		cfg.Location(),
		time.Duration(cfg.SyncHorizonDays)*24*time.Hour,
	)

	scheduler := calendar.NewScheduler(syncService, calendarRepo, hub, cfg.SyncIntervalMin)
	if err := scheduler.Start(); err != nil {
		log.Printf("Warning: Failed to start calendar scheduler: %v", err)
	}

	router := api.NewRouter(db, api.Services{
		Hub:          hub,
		Issuer:       auth.NewIssuer(cfg.JWTSecret, cfg.TokenTTL()),
		Feed:         feed,
		Scheduler:    scheduler,
		Pricing:      cfg.Pricing,
		Location:     cfg.Location(),
		IsOwnerEmail: cfg.IsOwnerEmail,
		StaticDir:    cfg.StaticDir,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Listen,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		log.Printf("Server listening on %s", cfg.Listen)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	scheduler.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	hub.Stop()

	log.Println("Server stopped")
}

// runHealthCheck performs a health check against the running server.
func runHealthCheck(addr string) error {
	host := addr
	if strings.HasPrefix(host, ":") {
		host = "localhost" + host
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get("http://" + host + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}
