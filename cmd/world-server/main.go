package main

import (
	"context"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/velvetmanor/world/internal/config"
	"github.com/velvetmanor/world/internal/server"
	"github.com/velvetmanor/world/internal/telemetry"
)

// main starts the development asset server. It serves the build
// manifest and compressed bundles to world sessions and pushes a
// WebSocket reload event when the pipeline regenerates the manifest.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	timings := telemetry.NewTimings()
	srv := server.New(cfg.Server, cfg.Assets, timings)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go srv.Hub().Run(ctx)
	go srv.WatchManifest(ctx, cfg.Assets.ManifestPath(), 2*time.Second)

	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	log.Printf("[Server] world asset server starting on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
