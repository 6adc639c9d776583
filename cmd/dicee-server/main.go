package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/playdicee/dicee/internal/room"
	"github.com/playdicee/dicee/internal/server"
	"github.com/playdicee/dicee/internal/store"
)

var CLI struct {
	Config   string `short:"c" long:"config" default:"dicee-server.hcl" help:"Path to HCL configuration file"`
	Addr     string `short:"a" long:"addr" help:"Listen address (overrides config)"`
	DB       string `long:"db" help:"Snapshot database path (overrides config)"`
	LogLevel string `short:"l" long:"log-level" help:"Log level (overrides config)"`
}

func main() {
	ctx := kong.Parse(&CLI)

	cfg, err := server.LoadConfig(CLI.Config)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		ctx.Exit(1)
	}

	// Apply command line overrides
	if CLI.DB != "" {
		cfg.Storage.Path = CLI.DB
	}
	if CLI.LogLevel != "" {
		cfg.Server.LogLevel = CLI.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		ctx.Exit(1)
	}
	addr := cfg.Address()
	if CLI.Addr != "" {
		addr = CLI.Addr
	}

	logger := log.New(os.Stderr)
	switch cfg.Server.LogLevel {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "warn":
		logger.SetLevel(log.WarnLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.InfoLevel)
	}
	if cfg.Server.LogFile != "" {
		logFile, err := os.OpenFile(cfg.Server.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			fmt.Printf("Failed to open log file: %v\n", err)
			ctx.Exit(1)
		}
		defer func() { _ = logFile.Close() }()
		logger.SetOutput(logFile)
	}

	st, err := store.Open(cfg.Storage.Path)
	if err != nil {
		logger.Error("Failed to open snapshot store", "path", cfg.Storage.Path, "error", err)
		ctx.Exit(1)
	}
	defer func() { _ = st.Close() }()

	roomCfg, err := cfg.RoomConfig()
	if err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		ctx.Exit(1)
	}
	gcWindow, err := cfg.GCWindow()
	if err != nil {
		fmt.Printf("Invalid configuration: %v\n", err)
		ctx.Exit(1)
	}

	hub := server.NewHub(logger)
	manager := room.NewManager(room.ManagerOptions{
		Store:     st,
		Logger:    logger,
		Config:    roomCfg,
		SenderFor: hub.SenderFor,
		GCWindow:  gcWindow,
	})

	logger.Info("Starting dicee server", "addr", addr, "db", cfg.Storage.Path)
	wsServer := server.NewServer(addr, hub, manager, logger)

	runCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		return manager.Run(gctx)
	})
	g.Go(func() error {
		return wsServer.Start()
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		err := wsServer.Stop(shutdownCtx)
		manager.Close()
		return err
	})

	if err := g.Wait(); err != nil && runCtx.Err() == nil {
		logger.Error("Server failed", "error", err)
		ctx.Exit(1)
	}
}
