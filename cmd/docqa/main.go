package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"docqa/internal/app"
	"docqa/internal/controller"
	"docqa/internal/state"
	"docqa/internal/ui"
)

func main() {
	deps, err := app.Build()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := state.New()
	confirm := ui.NewPromptConfirmer()
	ctl := controller.New(deps.Client, store, confirm, controller.Options{
		NumChunks:      deps.Config.NumChunks,
		HistoryTimeout: deps.Config.HistoryTimeout,
	}, deps.Log)

	program := tea.NewProgram(ui.NewModel(ctx, store, ctl, confirm, deps.Log), tea.WithAltScreen(), tea.WithContext(ctx))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		probe, cancel := context.WithTimeout(gctx, 5*time.Second)
		defer cancel()
		if err := deps.Client.Health(probe); err != nil {
			deps.Log.Warn("document service unreachable", "url", deps.Config.APIBaseURL, "err", err)
		}
		return nil
	})
	g.Go(func() error {
		_, err := program.Run()
		stop()
		if errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		deps.Log.Error("client stopped", "err", err)
	}
	ctl.History.Wait()
}
