package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/iceice666/sunflower/internal/config"
	"github.com/iceice666/sunflower/internal/daemon"
	"github.com/iceice666/sunflower/internal/transport"
)

var (
	configPath = flag.String("config", "", "Path to configuration file")
	debug      = flag.Bool("debug", false, "Enable debug mode - shows detailed logging for all components")
	Version    = "dev"
)

func main() {
	flag.Parse()

	if *debug {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
		log.Println("[MAIN] Debug mode enabled")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("[MAIN] Failed to load config: %v", err)
	}

	if *debug {
		cfg.Debug = true
		log.Printf("[MAIN] Configuration loaded successfully")
		log.Printf("[MAIN] - Transport: %s", cfg.Daemon.Transport)
		log.Printf("[MAIN] - TCP Address: %s", cfg.Daemon.TCPAddr)
		log.Printf("[MAIN] - Socket Path: %s", cfg.Daemon.SocketPath)
		log.Printf("[MAIN] - Sample Rate: %d", cfg.Audio.SampleRate)
		log.Printf("[MAIN] - Database Path: %s", cfg.Storage.DatabasePath)
		log.Printf("[MAIN] - Cache Directory: %s", cfg.Storage.CacheDir)
	}

	d, err := daemon.New(cfg)
	if err != nil {
		log.Fatalf("[MAIN] Failed to create daemon: %v", err)
	}

	requests, responses := d.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool := daemon.NewTaskPool(requests, cfg.Debug)
	pool.Run(ctx, responses)

	setupGracefulShutdown(cancel, d, pool)

	// A Terminate request tears the daemon down from inside; stop serving
	// when that happens.
	go func() {
		<-d.Done()
		cancel()
	}()

	server := transport.NewServer(cfg, pool)
	if err := server.Serve(ctx); err != nil {
		log.Printf("[MAIN] Transport error: %v", err)
	}

	pool.Close()
	d.Shutdown()
	log.Printf("[MAIN] Daemon exited")
}

func setupGracefulShutdown(cancel context.CancelFunc, d *daemon.Daemon, pool *daemon.TaskPool) {
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)

		sig := <-c
		log.Printf("[MAIN] Received signal: %v", sig)
		log.Printf("[MAIN] Initiating graceful shutdown...")

		cancel()
		pool.Close()
		d.Shutdown()

		log.Printf("[MAIN] Graceful shutdown completed")
		os.Exit(0)
	}()
}
