package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"tasktracker/internal/manager"
	"tasktracker/internal/server"
	"tasktracker/internal/storage/sqlite"
)

func newServeCmd(configPath *string) *cobra.Command {
	var (
		addr     string
		dbPath   string
		inMemory bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Address = addr
			}
			if cmd.Flags().Changed("db") {
				cfg.DBPath = dbPath
			}
			if inMemory {
				cfg.DBPath = ""
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store := manager.New()
			var sink manager.Sink
			if cfg.DBPath != "" {
				db, err := sqlite.Open(cfg.DBPath, logger)
				if err != nil {
					return fmt.Errorf("open database: %w", err)
				}
				defer db.Close()

				if err := manager.Restore(ctx, store, db); err != nil {
					return fmt.Errorf("restore from %s: %w", cfg.DBPath, err)
				}
				sink = db
				logger.Info("state restored",
					slog.String("db", cfg.DBPath),
					slog.Int("tasks", len(store.GetTasks())),
					slog.Int("epics", len(store.GetEpics())),
					slog.Int("subtasks", len(store.GetSubtasks())))
			} else {
				logger.Info("running without persistence")
			}

			srv := server.New(manager.NewBacked(store, sink, logger), logger, cfg.HistoryLimit)
			httpServer := &http.Server{
				Addr:    cfg.Address,
				Handler: srv.Engine(),
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("starting server", slog.String("addr", httpServer.Addr))
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				if err != nil {
					return fmt.Errorf("server stopped unexpectedly: %w", err)
				}
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("failed to shutdown server", slog.String("error", err.Error()))
			}
			logger.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides config)")
	cmd.Flags().StringVar(&dbPath, "db", "", "path to sqlite database file (overrides config)")
	cmd.Flags().BoolVar(&inMemory, "memory", false, "keep state in memory only")
	return cmd
}
