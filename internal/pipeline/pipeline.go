package pipeline

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/velvetmanor/world/internal/codec"
	"github.com/velvetmanor/world/internal/manifest"
)

// BundleExt is the extension of compressed output files.
const BundleExt = ".bundle"

// hashLength is the number of hex characters used for content addressing.
const hashLength = 10

// Config controls one pipeline run.
type Config struct {
	SourceDir    string
	ChunksDir    string
	PropsDir     string
	ManifestPath string

	// Props lists the base asset names published as always-resident
	// bundles; everything else is a streamed room chunk.
	Props []string

	// Heroes lists the base asset names allow-listed for the
	// higher-fidelity texture mode.
	Heroes []string
}

// Summary reports what a pipeline run did.
type Summary struct {
	Processed int
	Skipped   int
	Failed    int
	Warnings  int
}

// Pipeline compresses raw scene sources into content-addressed bundles
// and emits the asset manifest. Runs are idempotent: already-hashed
// outputs are skipped and unchanged manifests are left byte-identical.
type Pipeline struct {
	cfg        Config
	geometry   *codec.GeometryCodec
	transcoder Transcoder

	warnedNoTranscoder bool
}

// New builds a pipeline. A nil transcoder defaults to the external tool
// lookup; tests inject fakes.
func New(cfg Config, transcoder Transcoder) *Pipeline {
	if transcoder == nil {
		transcoder = NewExternalTranscoder()
	}
	return &Pipeline{
		cfg:        cfg,
		geometry:   codec.NewGeometryCodec(),
		transcoder: transcoder,
	}
}

// Run processes every source scene, writes missing outputs, removes
// stale hashed outputs, and rewrites the manifest.
func (p *Pipeline) Run() (*Summary, error) {
	entries, err := os.ReadDir(p.cfg.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read source directory %s: %w", p.cfg.SourceDir, err)
	}

	for _, dir := range []string{p.cfg.ChunksDir, p.cfg.PropsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}

	summary := &Summary{}
	out := manifest.New()

	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)

	for _, name := range names {
		srcPath := filepath.Join(p.cfg.SourceDir, name)
		entry, category, err := p.processSource(srcPath, summary)
		if err != nil {
			if os.IsNotExist(err) {
				log.Printf("[Pipeline] skip %s: source missing", name)
				summary.Failed++
				continue
			}
			log.Printf("[Pipeline] skip %s: %v", name, err)
			summary.Failed++
			continue
		}

		logical := baseName(name)
		if category == "prop" {
			out.Props[logical] = *entry
		} else {
			out.Chunks[logical] = *entry
		}
	}

	if err := out.Write(p.cfg.ManifestPath); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}

	return summary, nil
}

// processSource compresses a single source scene unless its hashed
// output already exists.
func (p *Pipeline) processSource(srcPath string, summary *Summary) (*manifest.Entry, string, error) {
	data, err := readSource(srcPath)
	if err != nil {
		return nil, "", err
	}

	src, err := parseSourceScene(srcPath, data)
	if err != nil {
		return nil, "", err
	}

	base := baseName(srcPath)
	category := "chunk"
	outDir := p.cfg.ChunksDir
	if containsName(p.cfg.Props, base) {
		category = "prop"
		outDir = p.cfg.PropsDir
	}
	hero := containsName(p.cfg.Heroes, base)

	hash, err := p.contentHash(data, src)
	if err != nil {
		return nil, "", err
	}

	outName := fmt.Sprintf("%s.%s%s", base, hash, BundleExt)
	outPath := filepath.Join(outDir, outName)

	if info, err := os.Stat(outPath); err == nil {
		summary.Skipped++
		return &manifest.Entry{File: outName, Size: info.Size()}, category, nil
	}

	if err := p.removeStale(outDir, base, outName); err != nil {
		return nil, "", err
	}

	bundle, err := p.buildBundle(src, hero, summary)
	if err != nil {
		return nil, "", err
	}

	encoded, err := p.geometry.Encode(bundle)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode bundle: %w", err)
	}

	if err := os.WriteFile(outPath, encoded, 0o644); err != nil {
		return nil, "", fmt.Errorf("failed to write bundle %s: %w", outPath, err)
	}

	log.Printf("[Pipeline] compressed %s -> %s (%d bytes)", filepath.Base(srcPath), outName, len(encoded))
	summary.Processed++
	return &manifest.Entry{File: outName, Size: int64(len(encoded))}, category, nil
}

// buildBundle assembles the codec bundle from a parsed source scene,
// transcoding textures when a transcoder is available and degrading to
// geometry-only output when it is not.
func (p *Pipeline) buildBundle(src *SourceScene, hero bool, summary *Summary) (*codec.Bundle, error) {
	bundle := &codec.Bundle{
		Name:         src.Name,
		HighFidelity: hero,
	}

	for _, mesh := range src.Meshes {
		indices := make([]uint32, 0, len(mesh.Faces)*3)
		for _, face := range mesh.Faces {
			for _, idx := range face {
				indices = append(indices, uint32(idx))
			}
		}
		bundle.Meshes = append(bundle.Meshes, codec.Mesh{
			Name:     mesh.Name,
			Vertices: mesh.Vertices,
			Indices:  indices,
		})
	}

	if len(src.Textures) == 0 {
		return bundle, nil
	}

	if !p.transcoder.Available() {
		if !p.warnedNoTranscoder {
			log.Printf("[Pipeline] warning: texture transcoder unavailable, emitting geometry-only bundles")
			p.warnedNoTranscoder = true
		}
		summary.Warnings++
		return bundle, nil
	}

	for _, tex := range src.Textures {
		imgPath := filepath.Join(p.cfg.SourceDir, tex.Image)

		width, height, err := imageDimensions(imgPath)
		if err != nil {
			log.Printf("[Pipeline] warning: skipping texture %s: %v", tex.Name, err)
			summary.Warnings++
			continue
		}

		payload, err := p.transcoder.Transcode(imgPath, hero)
		if err != nil {
			log.Printf("[Pipeline] warning: transcode failed for %s, omitting texture: %v", tex.Name, err)
			summary.Warnings++
			continue
		}

		bundle.Textures = append(bundle.Textures, codec.Texture{
			Name:    tex.Name,
			Width:   uint16(width),
			Height:  uint16(height),
			Payload: payload,
		})
	}

	return bundle, nil
}

// contentHash covers the source file bytes plus every referenced image,
// so texture edits force recompression of the owning scene.
func (p *Pipeline) contentHash(data []byte, src *SourceScene) (string, error) {
	h := sha256.New()
	h.Write(data)
	for _, tex := range src.Textures {
		imgData, err := os.ReadFile(filepath.Join(p.cfg.SourceDir, tex.Image))
		if err != nil {
			if os.IsNotExist(err) {
				// Hash the absence so a later-added image changes the hash.
				h.Write([]byte(tex.Image))
				continue
			}
			return "", fmt.Errorf("failed to read texture image %s: %w", tex.Image, err)
		}
		h.Write(imgData)
	}
	return hex.EncodeToString(h.Sum(nil))[:hashLength], nil
}

// removeStale deletes previous hashed outputs for the same base asset
// before a new output is written.
func (p *Pipeline) removeStale(outDir, base, keep string) error {
	matches, err := filepath.Glob(filepath.Join(outDir, base+".*"+BundleExt))
	if err != nil {
		return err
	}
	for _, match := range matches {
		if filepath.Base(match) == keep {
			continue
		}
		if err := os.Remove(match); err != nil {
			return fmt.Errorf("failed to remove stale output %s: %w", match, err)
		}
		log.Printf("[Pipeline] removed stale output %s", filepath.Base(match))
	}
	return nil
}

func imageDimensions(path string) (int, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return cfg.Width, cfg.Height, nil
}

func containsName(list []string, name string) bool {
	for _, value := range list {
		if value == name {
			return true
		}
	}
	return false
}
