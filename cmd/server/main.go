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

	"nutritrack.io/nutritrack/internal/api"
	"nutritrack.io/nutritrack/internal/auth"
	"nutritrack.io/nutritrack/internal/config"
	"nutritrack.io/nutritrack/internal/core"
	"nutritrack.io/nutritrack/internal/logging"
	"nutritrack.io/nutritrack/internal/store"
)

func main() {
	issueToken := flag.Bool("issue-token", false, "Print a bearer token for the owner and exit")
	tokenTTL := flag.Duration("token-ttl", 30*24*time.Hour, "Lifetime of a token printed by -issue-token")
	flag.Parse()

	config.LoadConfig()
	logger := logging.New(os.Stdout, config.AppConfig.LogLevel)

	if *issueToken {
		token, err := auth.GenerateJWT(config.AppConfig.OwnerID, *tokenTTL)
		if err != nil {
			log.Fatalf("Failed to issue token: %v", err)
		}
		fmt.Println(token)
		return
	}

	ctx := context.Background()

	dbStore, err := store.NewSQLStore(ctx, config.AppConfig.DatabaseURL, store.Options{
		Timeout: config.AppConfig.StoreTimeout,
		Retries: config.AppConfig.StoreRetries,
	})
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbStore.Close()

	generator, err := core.NewGeminiGenerator(ctx, config.AppConfig.GeminiAPIKey, config.AppConfig.GeminiModel)
	if err != nil {
		log.Fatalf("Failed to initialize Gemini client: %v", err)
	}
	defer generator.Close()

	extraction := core.NewExtractionService(generator, config.AppConfig.AITimeout, logger.With("component", "extraction"))
	journal := core.NewJournalService(dbStore, config.AppConfig.Profile, logger.With("component", "journal"))
	tracker := core.NewTrackerService(extraction, journal, logger.With("component", "tracker"))

	apiHandler := api.NewAPIHandler(tracker, logger.With("component", "api"))
	router := api.NewRouter(apiHandler)

	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: config.AppConfig.AITimeout + 15*time.Second, // extraction plus the store write
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info(ctx, "starting server", "addr", serverAddr, "auth", config.AppConfig.JWTSecret != "")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "shutting down server")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info(ctx, "server exited")
}
