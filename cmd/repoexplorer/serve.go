package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"repo-explorer/internal/api"
	"repo-explorer/internal/chat"
	"repo-explorer/internal/metrics"
)

func serveCMD(cfgPath *string) *cobra.Command {
	var port string
	var serve = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap(*cfgPath)
			if err != nil {
				return err
			}
			defer a.logger.Sync()
			if port != "" {
				a.cfg.Server.Port = port
			}
			return a.serve(cmd.Context())
		},
	}
	serve.Flags().StringVarP(&port, "port", "p", "", "listen port (overrides PORT)")
	return serve
}

func (a *app) serve(ctx context.Context) error {
	store := a.loadDataset(ctx)

	m := metrics.New()
	m.SetRepositories(store.Len())

	classifier, closeClassifier, err := a.classifier(ctx, store)
	if err != nil {
		return err
	}
	defer closeClassifier()

	svc := chat.NewService(store, classifier, m, a.logger, chat.WithDefaultFilters(a.defaultFilters()))

	// a nil *elastic.Client must not reach the handler as a non-nil Searcher
	var searcher api.Searcher
	if es, err := a.elasticClient(); err != nil {
		a.logger.Warn("Full-text search disabled", zap.Error(err))
	} else {
		searcher = es
	}

	srv := &http.Server{
		Addr:    ":" + a.cfg.Server.Port,
		Handler: api.NewHandler(svc, searcher, m.Handler(), a.logger).Routes(),
	}

	go func() {
		a.logger.Info("Starting server", zap.String("addr", srv.Addr), zap.Bool("chat_available", svc.Available()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	a.logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("Server forced to shutdown", zap.Error(err))
		return err
	}
	a.logger.Info("Server exited")
	return nil
}
