package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ugrc/lsli-skid/internal/model"
)

var servePort int

// newServeMux builds the trigger routes around a run function. Only one
// sync runs at a time; the published dataset is global state.
func newServeMux(ctx context.Context, run func(context.Context) (*model.RunSummary, error)) *http.ServeMux {
	var running atomic.Bool

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /run", func(w http.ResponseWriter, r *http.Request) {
		if !running.CompareAndSwap(false, true) {
			http.Error(w, `{"error":"a sync is already running"}`, http.StatusConflict)
			return
		}

		go func() {
			defer running.Store(false)
			summary, err := run(ctx)
			if err != nil {
				zap.L().Error("triggered sync failed", zap.Error(err))
				return
			}
			zap.L().Info("triggered sync complete",
				zap.String("run_id", summary.RunID),
				zap.Int("points_loaded", summary.PointsLoaded),
				zap.Int("areas_loaded", summary.AreasLoaded),
			)
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
	})

	return mux
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an HTTP server that triggers syncs on request",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		p := buildPipeline()
		mux := newServeMux(ctx, p.Run)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
