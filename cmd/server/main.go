package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"

	"tero-session/auth"
	"tero-session/client"
	"tero-session/domain"
	"tero-session/hub"
	"tero-session/internal"
	"tero-session/moderation"
	"tero-session/repositories"
	"tero-session/runtime/workers"
	"tero-session/services"
	"tero-session/store"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
// 3. It provides a structured way to handle graceful shutdowns for the server and background workers.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	replacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return err
	}

	// 2. Database (BadgerDB) for the finished-game archive
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Core state: one store + registry pair per game type
	spinSessions := store.New[domain.SpinSession](config.SessionTTL, log)
	quizSessions := store.New[domain.QuizSession](config.SessionTTL, log)
	spinConns := store.NewRegistry[domain.SpinSession](config.ConnectionTTL, log)
	quizConns := store.NewRegistry[domain.QuizSession](config.ConnectionTTL, log)

	notifier := hub.New(log, config.SendBufferSize)

	// 4. Collaborators
	moderator, err := moderation.NewDefault(replacement)
	if err != nil {
		return fmt.Errorf("moderation setup failed: %w", err)
	}
	tokens := auth.NewValidator(config.BindTokenSecret)
	m2m := auth.NewM2MClient(log, config.AuthBaseURL,
		config.AuthClientID, config.AuthClientSecret, config.AuthAudience)
	platform := client.NewPlatformClient(log, config.PlatformBaseURL, m2m)
	archive := repositories.NewArchiveRepository(db, log, config.ArchiveLimit)

	// 5. Services & transport
	sessionService := services.NewSessionService(log, spinSessions, quizSessions)
	spinService := services.NewSpinService(log, spinSessions, spinConns, notifier, tokens, moderator)
	quizService := services.NewQuizService(log, quizSessions, quizConns, notifier, tokens, moderator, archive, platform)
	handler := hub.NewHandler(log, notifier, sessionService, spinService, quizService)

	// 6. Supervision: one reconciler per game type, swept concurrently
	sup := workers.NewSupervisor(log, config.RestartInterval)
	sup.Add(
		workers.NewReconciler(log, "spin", spinSessions, spinConns, notifier, config.SweepInterval),
		workers.NewReconciler(log, "quiz", quizSessions, quizConns, notifier, config.SweepInterval),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go sup.Run(ctx)

	// 7. HTTP server (session creation + websocket hubs)
	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: handler.Router()}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting session server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
	case err := <-errChan:
		return err
	}

	// 9. Final Cleanup
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = server.Shutdown(shutdownCtx)
	sup.Stop()
	log.Info("Program stopped cleanly")

	return nil
}
