package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"github.com/rpattn/salesingest/internal/ingestion"
	"github.com/rpattn/salesingest/internal/middleware"
	"github.com/rpattn/salesingest/internal/query"
	"github.com/rpattn/salesingest/internal/ui"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the run trigger and query box over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		a, err := newApp(ctx, appOptions{withDrive: true})
		if err != nil {
			return err
		}
		defer a.Close()

		logger := a.logger

		corsHandler := cors.New(cors.Options{
			AllowedOrigins:   a.cfg.Server.AllowedOrigins,
			AllowCredentials: true,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
		})

		ingestionHandler := ingestion.NewHTTPHandler(a.ingestion)
		queryHandler := query.NewHTTPHandler(a.query)

		mux := http.NewServeMux()
		mux.Handle("/api/run", ingestionHandler)
		mux.Handle("/api/ledger", ingestionHandler)
		mux.Handle("/api/query", queryHandler)
		mux.Handle("/api/query/download", queryHandler)
		mux.Handle("/metrics", promhttp.Handler())
		mux.Handle("/", ui.Handler())

		// A run downloads and loads the whole folder inside one request.
		server := &http.Server{
			Addr:         a.cfg.Server.Addr,
			Handler:      corsHandler.Handler(middleware.LoggingMiddleware(logger, mux)),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 10 * time.Minute,
			IdleTimeout:  60 * time.Second,
		}

		serveErr := make(chan error, 1)
		go func() {
			logger.Info("starting server", "addr", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-quit:
		case err := <-serveErr:
			if err != nil {
				return err
			}
		}
		logger.Info("shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}

		logger.Info("server exited")
		return nil
	},
}
