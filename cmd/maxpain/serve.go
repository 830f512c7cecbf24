package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func serveCmd() *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve generated reports over HTTP",
		Long: `Serve the output directory and a JSON endpoint for the most
recent report.

GET /api/results returns the latest json report; everything under /
is the raw report tree (csv/, json/, html/).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			addr := cfg.Server.Listen
			if listen != "" {
				addr = listen
			}

			r := chi.NewRouter()
			r.Use(middleware.RequestID)
			r.Use(middleware.RealIP)
			r.Use(middleware.Recoverer)
			r.Use(middleware.Compress(5))
			r.Use(zapLoggerMiddleware(logger))

			r.Get("/api/results", latestResultsHandler(cfg.Output.Directory))
			r.Handle("/*", http.FileServer(http.Dir(cfg.Output.Directory)))

			srv := &http.Server{
				Addr:              addr,
				Handler:           r,
				ReadHeaderTimeout: 10 * time.Second,
			}

			errCh := make(chan error, 1)
			go func() {
				logger.Info("serving reports", zap.String("addr", addr), zap.String("dir", cfg.Output.Directory))
				errCh <- srv.ListenAndServe()
			}()

			select {
			case <-cmd.Context().Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			}
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides server.listen)")
	return cmd
}

// latestResultsHandler serves the newest json report. Report names are
// date-prefixed, so lexicographic order is chronological.
func latestResultsHandler(outputDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jsonDir := filepath.Join(outputDir, "json")
		entries, err := os.ReadDir(jsonDir)
		if err != nil {
			http.Error(w, "no reports generated yet", http.StatusNotFound)
			return
		}

		var names []string
		for _, e := range entries {
			if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
				names = append(names, e.Name())
			}
		}
		if len(names) == 0 {
			http.Error(w, "no reports generated yet", http.StatusNotFound)
			return
		}
		sort.Strings(names)

		w.Header().Set("Content-Type", "application/json")
		http.ServeFile(w, r, filepath.Join(jsonDir, names[len(names)-1]))
	}
}

func zapLoggerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
