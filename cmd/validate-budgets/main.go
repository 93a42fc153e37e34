package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/velvetmanor/world/internal/budget"
	"github.com/velvetmanor/world/internal/config"
)

// main runs the build-time budget gate: every manifest entry must exist
// on disk and every chunk must fit the per-chunk download ceiling.
// Exits non-zero iff any hard error was recorded, blocking release.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	manifestPath := flag.String("manifest", cfg.Assets.ManifestPath(), "path of the manifest to validate")
	chunksDir := flag.String("chunks", cfg.Assets.ChunksDir, "directory of streamed room bundles")
	propsDir := flag.String("props", cfg.Assets.PropsDir, "directory of shared prop bundles")
	scanDir := flag.String("scan", filepath.Dir(cfg.Assets.ChunksDir), "asset root swept for stray uncompressed scene files")
	flag.Parse()

	v := budget.New(budget.Config{
		ManifestPath: *manifestPath,
		ChunksDir:    *chunksDir,
		PropsDir:     *propsDir,
		SourceDir:    cfg.Assets.SourceDir,
		ScanDirs:     []string{*scanDir},
	})

	result := v.Run()
	os.Exit(v.Report(result))
}
