// Package main is the entry point for the felix-index engine: it loads
// configuration, connects the store, runs one index pass over the
// configured project, and then keeps the filesystem watcher running until
// interrupted (unless disabled).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/madeindigio/felix-index/internal/config"
	"github.com/madeindigio/felix-index/internal/embedqueue"
	"github.com/madeindigio/felix-index/internal/orchestrate"
	"github.com/madeindigio/felix-index/internal/registry"
	"github.com/madeindigio/felix-index/internal/resolve"
	"github.com/madeindigio/felix-index/internal/store"
	"github.com/madeindigio/felix-index/internal/watch"
	"github.com/madeindigio/felix-index/pkg/embedder"
	"github.com/madeindigio/felix-index/pkg/parser"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.SetupLogging(); err != nil {
		fmt.Fprintf(os.Stderr, "error configuring logging: %v\n", err)
		os.Exit(1)
	}
	if cfg.ProjectPath == "" {
		fmt.Fprintln(os.Stderr, "error: --project is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s := store.New(&store.ConnectionConfig{
		DBPath:    cfg.DbPath,
		URL:       cfg.SurrealDBURL,
		Username:  cfg.SurrealDBUser,
		Password:  cfg.SurrealDBPass,
		Namespace: cfg.GetSurrealDBNamespace(),
		Database:  cfg.GetSurrealDBDatabase(),
	})
	if err := s.Connect(ctx); err != nil {
		slog.Error("failed to connect store", "error", err)
		os.Exit(1)
	}
	defer s.Close()

	emb, err := embedder.NewEmbedderFromMainConfig(cfg)
	if err != nil {
		slog.Error("failed to build embedder", "error", err)
		os.Exit(1)
	}

	parserReg := parser.NewRegistry(parser.DefaultExtractorConfig())
	embedQueue := embedqueue.New(emb, s, 50)
	resolver := resolve.New(s)
	scheduler := resolve.NewScheduler(resolver, 0)
	defer scheduler.Stop()

	orch := orchestrate.New(s, parserReg, embedQueue, scheduler, orchestrate.Config{
		ConcurrencyOverride: cfg.IndexConcurrency,
	})
	watchers := watch.NewManager(orch, parserReg)
	projects := registry.New(s, orch, watchers, embedQueue)

	result, err := projects.IndexProject(ctx, cfg.ProjectPath, cfg.ForceReindex)
	if err != nil {
		slog.Error("index pass failed", "error", err)
		os.Exit(1)
	}
	slog.Info("index pass complete",
		"success", result.Success,
		"files_processed", result.FilesProcessed,
		"files_skipped", result.FilesSkipped,
		"components", result.ComponentCount,
		"relationships", result.RelationshipCount,
		"errors", result.ErrorCount,
		"duration", result.ProcessingTime,
	)
	for _, w := range result.Warnings {
		slog.Warn("index warning", "message", w)
	}
	for _, e := range result.Errors {
		slog.Error("index error", "message", e)
	}

	if cfg.DisableFileWatcher || !watch.Enabled() {
		return
	}

	slog.Info("watching for changes, press ctrl-c to stop")
	<-ctx.Done()
	slog.Info("shutting down")
	if err := projects.Cleanup(context.Background()); err != nil {
		slog.Warn("cleanup error", "error", err)
	}
}
