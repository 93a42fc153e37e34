package server

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/velvetmanor/world/internal/config"
	"github.com/velvetmanor/world/internal/telemetry"
)

// Server is the development asset server: it serves the build manifest
// and compressed bundles to the runtime loader, and notifies live
// sessions over WebSocket when the manifest is regenerated.
type Server struct {
	cfg     config.ServerConfig
	assets  config.AssetsConfig
	hub     *Hub
	timings *telemetry.Timings
}

// New builds an asset server around the configured asset layout.
func New(cfg config.ServerConfig, assets config.AssetsConfig, timings *telemetry.Timings) *Server {
	return &Server{
		cfg:     cfg,
		assets:  assets,
		hub:     NewHub(),
		timings: timings,
	}
}

// Hub exposes the WebSocket hub so main can run it and the manifest
// watcher can broadcast through it.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Routes assembles the handler chain: CORS and rate limiting wrap every
// route, matching how the loader and validator consume the directory
// layout contract.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /manifests/{name}", s.handleManifest)
	mux.HandleFunc("GET /chunks/{file}", s.bundleHandler(s.assets.ChunksDir))
	mux.HandleFunc("GET /props/{file}", s.bundleHandler(s.assets.PropsDir))
	mux.HandleFunc("GET /stats", s.handleStats)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	var handler http.Handler = mux
	handler = RateLimitMiddleware(s.cfg.RateLimit, s.cfg.RateLimitWindow)(handler)
	handler = CORSMiddleware(handler)
	return handler
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"ok","service":"world-server"}`)
}

// handleManifest serves a manifest file by name. http.ServeFile sets
// Content-Length, which the loader needs for progress reporting.
func (s *Server) handleManifest(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	if !safeFileName(name) || !strings.HasSuffix(name, ".json") {
		http.Error(w, "invalid manifest name", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	http.ServeFile(w, r, filepath.Join(s.assets.ManifestDir, name))
}

// bundleHandler serves compressed bundle files out of one output
// directory.
func (s *Server) bundleHandler(dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file := r.PathValue("file")
		if !safeFileName(file) {
			http.Error(w, "invalid bundle name", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		http.ServeFile(w, r, filepath.Join(dir, file))
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.timings == nil {
		http.Error(w, "stats disabled", http.StatusNotFound)
		return
	}
	data, err := s.timings.JSON()
	if err != nil {
		http.Error(w, "failed to render stats", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// safeFileName rejects anything that could escape the served directory.
func safeFileName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, "/\\")
}
