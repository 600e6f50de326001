// Crafting tree viewer backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"crafttree/internal/app"
	"crafttree/internal/rpc"
)

func main() {
	dbPath := flag.String("db", "data/crafttree.db", "Path to the session SQLite database")
	dataPaths := flag.String("data", "data/items.json", "Comma-separated item database sources, tried in order")
	fallbackData := flag.String("fallback-data", "", "Item database tried when every -data source fails")
	viewportW := flag.Float64("viewport-w", 1280, "Default viewport width for new sessions")
	viewportH := flag.Float64("viewport-h", 800, "Default viewport height for new sessions")
	noUpwardCascade := flag.Bool("no-upward-cascade", false, "Disable upward recompute when collecting items")
	verbose := flag.Bool("verbose", false, "Enable verbose logging")
	flag.Parse()

	// Setup logging
	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Create context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutting down...")
		cancel()
	}()

	var sources []string
	for _, p := range strings.Split(*dataPaths, ",") {
		if p = strings.TrimSpace(p); p != "" {
			sources = append(sources, p)
		}
	}
	if *fallbackData != "" {
		sources = append(sources, *fallbackData)
	}

	application, err := app.New(ctx, app.Config{
		DataPaths:     sources,
		DBPath:        *dbPath,
		ViewportW:     *viewportW,
		ViewportH:     *viewportH,
		UpwardCascade: !*noUpwardCascade,
		Logger:        logger,
	})
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer func() { _ = application.Close() }()

	server := rpc.NewServer(application, logger)

	logger.Info("starting rpc server", "db", *dbPath, "sources", sources)
	if err := server.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	fmt.Fprintln(os.Stderr, "server stopped")
}
