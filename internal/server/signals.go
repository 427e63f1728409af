package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// SignalHandler manages graceful shutdown of the HTTP server
type SignalHandler struct {
	server          *http.Server
	shutdownTimeout time.Duration
	logger          *slog.Logger
	onShutdown      []func()
}

// NewSignalHandler creates a new signal handler. onShutdown hooks run after
// the server has stopped accepting requests.
func NewSignalHandler(server *http.Server, shutdownTimeout time.Duration, logger *slog.Logger, onShutdown ...func()) *SignalHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SignalHandler{
		server:          server,
		shutdownTimeout: shutdownTimeout,
		logger:          logger,
		onShutdown:      onShutdown,
	}
}

// WaitForShutdown blocks until SIGINT or SIGTERM, or until serveErr delivers
// a startup failure, then shuts the server down.
func (sh *SignalHandler) WaitForShutdown(serveErr <-chan error) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case sig := <-quit:
		sh.logger.Info("Received signal, initiating graceful shutdown", "signal", sig.String())
	case err := <-serveErr:
		sh.runHooks()
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), sh.shutdownTimeout)
	defer cancel()

	err := sh.server.Shutdown(ctx)
	if err != nil {
		sh.logger.Error("Server forced to shutdown due to timeout", "error", err)
	} else {
		sh.logger.Info("Server gracefully shut down")
	}
	sh.runHooks()
	return err
}

func (sh *SignalHandler) runHooks() {
	for _, hook := range sh.onShutdown {
		hook()
	}
}

// HandleSignals starts the server and blocks until it is shut down.
func HandleSignals(server *http.Server, shutdownTimeout time.Duration, logger *slog.Logger, onShutdown ...func()) error {
	handler := NewSignalHandler(server, shutdownTimeout, logger, onShutdown...)

	serveErr := make(chan error, 1)
	go func() {
		handler.logger.Info("Starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	return handler.WaitForShutdown(serveErr)
}
