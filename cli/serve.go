package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"siramm-project/web-service/config"
	"siramm-project/web-service/handlers"
	"siramm-project/web-service/logging"
	"siramm-project/web-service/repositories"
	"siramm-project/web-service/services"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the task API for the web front end",
		RunE:  runServe,
	}
	cmd.Flags().String("port", "", "Listen port (overrides SERVER_PORT)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetString("port"); port != "" {
		cfg.ServerPort = port
	}

	logging.InitLogger(logging.Options{
		SystemName: "siramm-web",
		FilePath:   cfg.LogFile,
		Stdout:     cfg.LogStdout,
		Level:      cfg.LogLevel,
	})
	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting SIRAMM web service...")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	journal, closeJournal, err := openJournal(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeJournal()

	registry := services.NewSessionRegistry(newRemote(cfg), journal, taskOptions(cfg)...)
	registry.SetIdleTimeout(cfg.SessionIdleTimeout)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           handlers.NewRouter(registry, cfg.SessionCookie, cfg.CORSOrigin),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Logger.Infof("Event ID: SERVER_START_INFO, Description: Server running on http://localhost%s", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logging.Logger.Errorf("Event ID: SERVER_FATAL_ERROR, Description: Server failed: %v", err)
			return err
		}
	case <-ctx.Done():
		logging.Logger.Info("Event ID: SERVER_SHUTDOWN, Description: Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logging.Logger.Errorf("Event ID: SERVER_SHUTDOWN_FAILED, Description: %v", err)
		}
	}

	registry.Shutdown()
	return nil
}

// openJournal uses MongoDB when MONGO_URI is set and memory otherwise.
func openJournal(ctx context.Context, cfg config.Config) (repositories.MutationJournal, func(), error) {
	if cfg.MongoURI == "" {
		logging.Logger.Info("Event ID: JOURNAL_MEMORY, Description: MONGO_URI not set, pending mutations are kept in memory")
		return repositories.NewMemoryJournal(), func() {}, nil
	}
	journal, disconnect, err := repositories.ConnectMongoJournal(ctx, cfg.MongoURI, cfg.MongoDBName, cfg.MongoCollection)
	if err != nil {
		logging.Logger.Errorf("Event ID: DB_CONNECTION_FAILED, Description: %v", err)
		return nil, nil, err
	}
	return journal, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := disconnect(ctx); err != nil {
			logging.Logger.Warnf("Event ID: DB_DISCONNECT_FAILED, Description: %v", err)
		}
	}, nil
}
