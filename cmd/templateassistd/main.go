package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sst/templateassist/internal/config"
	"github.com/sst/templateassist/internal/logging"
	"github.com/sst/templateassist/pkg/app"
	"github.com/sst/templateassist/pkg/app/paths"
	"github.com/sst/templateassist/pkg/server"
	"golang.org/x/sync/errgroup"
)

func main() {
	defer logging.RecoverPanic("templateassistd", nil)

	debug := flag.Bool("debug", false, "Debug")
	verbose := flag.Bool("verbose", false, "Display logs to stderr")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cwd, _ := os.Getwd()
	cfg, err := config.Load(cwd, *debug)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	recorder, closeLog, err := logging.Setup(logging.Options{
		Dir:     paths.Log(cwd),
		Debug:   cfg.Debug,
		Verbose: *verbose,
	})
	if err != nil {
		slog.Error("failed to set up logging", "error", err)
		os.Exit(1)
	}
	defer closeLog()

	a, err := app.New(cfg, app.WithLogs(recorder))
	if err != nil {
		slog.Error("failed to create app", "error", err)
		os.Exit(1)
	}
	defer a.Shutdown()

	srv := server.New(a, cfg.Server.Addr)

	wg, ctx := errgroup.WithContext(ctx)
	wg.Go(func() error {
		defer stop()
		return srv.Start(ctx)
	})
	wg.Go(func() error {
		for ev := range a.Store.Subscribe(ctx) {
			slog.Debug("template cache event", "type", ev.Type, "scope", ev.Payload.Scope, "count", ev.Payload.Count)
		}
		return nil
	})
	if cfg.Templates.Watch {
		wg.Go(func() error {
			return a.Watch(ctx)
		})
	}

	if err := wg.Wait(); err != nil {
		slog.Error("server stopped", "error", err)
	}
}
