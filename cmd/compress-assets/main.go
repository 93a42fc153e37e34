package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/velvetmanor/world/internal/config"
	"github.com/velvetmanor/world/internal/pipeline"
)

// Base asset names published as always-resident props; everything else
// streams as a room chunk.
var defaultProps = []string{"side_table", "god_gundam"}

// Hero assets keep the higher-fidelity texture mode.
var defaultHeroes = []string{"god_gundam", "mansion_front_door"}

// main runs the build-time compression pipeline: raw scene sources in,
// content-addressed compressed bundles and a manifest out. Safe to
// re-run; unchanged sources are skipped.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	sourceDir := flag.String("source", cfg.Assets.SourceDir, "directory of raw scene sources")
	chunksDir := flag.String("chunks", cfg.Assets.ChunksDir, "output directory for streamed room bundles")
	propsDir := flag.String("props", cfg.Assets.PropsDir, "output directory for shared prop bundles")
	manifestPath := flag.String("manifest", cfg.Assets.ManifestPath(), "path of the manifest to write")
	propList := flag.String("prop-names", strings.Join(defaultProps, ","), "comma-separated base names published as props")
	heroList := flag.String("hero-names", strings.Join(defaultHeroes, ","), "comma-separated base names allow-listed for high-fidelity textures")
	flag.Parse()

	p := pipeline.New(pipeline.Config{
		SourceDir:    *sourceDir,
		ChunksDir:    *chunksDir,
		PropsDir:     *propsDir,
		ManifestPath: *manifestPath,
		Props:        splitNames(*propList),
		Heroes:       splitNames(*heroList),
	}, nil)

	summary, err := p.Run()
	if err != nil {
		log.Printf("[Pipeline] run failed: %v", err)
		os.Exit(1)
	}

	// Missing or unparseable sources are logged and skipped; only a
	// failure to produce outputs or the manifest is a hard error.
	fmt.Printf("Compressed %d, skipped %d unchanged, %d sources skipped, %d warnings\n",
		summary.Processed, summary.Skipped, summary.Failed, summary.Warnings)
}

func splitNames(list string) []string {
	var names []string
	for _, name := range strings.Split(list, ",") {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			names = append(names, trimmed)
		}
	}
	return names
}
