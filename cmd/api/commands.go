package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/emilythestrangee/forum-core/backend/internal/config"
	"github.com/emilythestrangee/forum-core/backend/internal/database"
	"github.com/emilythestrangee/forum-core/backend/internal/logger"
	"github.com/emilythestrangee/forum-core/backend/internal/server"
)

const shutdownTimeout = 10 * time.Second

// runtimeDeps are loaded once per command invocation.
type runtimeDeps struct {
	cfg *config.Config
	log *zap.Logger
}

func newRootCmd() *cobra.Command {
	deps := &runtimeDeps{}

	rootCmd := &cobra.Command{
		Use:           "forumd",
		Short:         "Forum backend: posts, comments and votes over HTTP",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			log, err := logger.New(cfg.LogLevel)
			if err != nil {
				return err
			}
			deps.cfg = cfg
			deps.log = log
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if deps.log != nil {
				_ = deps.log.Sync()
			}
		},
	}

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP API",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(cmd.Context(), deps)
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the Postgres schema and exit",
			RunE: func(cmd *cobra.Command, args []string) error {
				return runMigrate(deps)
			},
		},
	)
	return rootCmd
}

func runServe(ctx context.Context, deps *runtimeDeps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := server.OpenStore(deps.cfg, deps.log)
	if err != nil {
		return fmt.Errorf("opening %s store: %w", deps.cfg.StoreDriver, err)
	}

	srv := server.New(deps.cfg, store, deps.log)
	defer func() {
		if err := srv.Close(); err != nil {
			deps.log.Warn("closing store", zap.Error(err))
		}
	}()

	httpServer := srv.HTTPServer()
	errCh := make(chan error, 1)
	go func() {
		deps.log.Info("server starting",
			zap.String("addr", httpServer.Addr),
			zap.String("store", deps.cfg.StoreDriver),
			zap.String("env", deps.cfg.Env),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	deps.log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	deps.log.Info("server stopped")
	return nil
}

func runMigrate(deps *runtimeDeps) error {
	if deps.cfg.StoreDriver != config.StorePostgres {
		deps.log.Info("nothing to migrate", zap.String("store", deps.cfg.StoreDriver))
		return nil
	}

	db, err := database.Open(deps.cfg.DB, deps.log)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := database.Migrate(db); err != nil {
		return err
	}
	deps.log.Info("migrations applied", zap.String("database", deps.cfg.DB.Name))
	return nil
}
