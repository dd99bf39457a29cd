package main

import (
	"context"
	"github.com/myrjola/portrait/internal/errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const (
	// Telegram gives up on a webhook call after a while and retries, so updates are acknowledged quickly.
	requestTimeout  = 5 * time.Second
	shutdownTimeout = 5 * time.Second
)

func (app *application) newServer() *http.Server {
	return &http.Server{
		ErrorLog:          slog.NewLogLogger(app.logger.Handler(), slog.LevelError),
		Handler:           app.routes(),
		IdleTimeout:       time.Minute,
		ReadTimeout:       requestTimeout,
		WriteTimeout:      requestTimeout,
		ReadHeaderTimeout: time.Second,
	}
}

// configureAndStartServer serves the health check and, in webhook mode, the Telegram updates. It returns
// once ctx is done and the server has drained.
func (app *application) configureAndStartServer(ctx context.Context, addr string) error {
	srv := app.newServer()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.Wrap(err, "TCP listen", slog.String("addr", addr))
	}
	app.logger.LogAttrs(ctx, slog.LevelInfo, "starting server", slog.Any("Addr", listener.Addr().String()))

	served := make(chan error, 1)
	go func() {
		served <- srv.Serve(listener)
	}()

	select {
	case err = <-served:
		return errors.Wrap(err, "server serve")
	case <-ctx.Done():
	}
	app.logger.LogAttrs(ctx, slog.LevelInfo, "shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err = srv.Shutdown(shutdownCtx); err != nil { //nolint:contextcheck // ctx is done
		return errors.Wrap(err, "shutdown server")
	}
	if err = <-served; !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server serve")
	}
	return nil
}
