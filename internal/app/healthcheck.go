package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/vk/loopctl/internal/ctxlog"
)

const shutdownTimeout = 5 * time.Second

// healthHandler reports liveness.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

// statusHandler serves the last published controller status as JSON.
func (a *App) statusHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(a.Status()); err != nil {
		a.logger.Warn("Failed to write status.", "error", err)
	}
}

func (a *App) healthMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.healthHandler)
	mux.HandleFunc("/status", a.statusHandler)
	return mux
}

func (a *App) hubMux() *http.ServeMux {
	mux := a.healthMux()
	mux.Handle("/socket.io/", a.hub.Handler())
	return mux
}

// serve runs srv on ln until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, name string, srv *http.Server, ln net.Listener) error {
	logger := ctxlog.FromContext(ctx).With("server", name)
	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting.", "address", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%s server failed: %w", name, err)
	case <-ctx.Done():
	}

	logger.Debug("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Graceful shutdown failed, closing connections.", "error", err)
		srv.Close()
	}
	<-errCh
	logger.Debug("Server shut down gracefully.")
	return nil
}
