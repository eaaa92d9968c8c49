package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"docqa/internal/app"
	"docqa/internal/stubserver"
)

const shutdownTimeout = 10 * time.Second

func main() {
	deps, err := app.BuildStub()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := newServer(deps)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		deps.Log.Info("stub backend listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		deps.Log.Error("stub backend stopped", "err", err)
	}
}

func newServer(deps app.Deps) *http.Server {
	backend := stubserver.New(deps.Log, app.StubOptions(deps.Config))
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", deps.Config.Port),
		Handler:           backend.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
