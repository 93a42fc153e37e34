package budget

import (
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/velvetmanor/world/internal/manifest"
)

// MaxChunkBytes is the per-chunk download ceiling. Chunk entries above
// it are hard errors; prop entries above it only warn, since props are
// fetched once and kept resident.
const MaxChunkBytes = 2 * 1024 * 1024

// strayExtensions are uncompressed scene source formats that must never
// ship outside the compressed-output directories.
var strayExtensions = []string{".json", ".png", ".jpg", ".gltf", ".glb"}

// Config points the validator at the build outputs to check.
type Config struct {
	ManifestPath string
	ChunksDir    string
	PropsDir     string

	// SourceDir is the designated raw-source directory, excluded from
	// the stray scan along with the compressed-output and manifest
	// directories.
	SourceDir string

	// ScanDirs are asset directories swept for stray uncompressed scene
	// files sitting outside the excluded directories above.
	ScanDirs []string
}

// Result aggregates everything a validation run found.
type Result struct {
	Validated  int
	TotalBytes int64
	Errors     []string
	Warnings   []string
}

// OK reports whether the run recorded no hard errors.
func (r *Result) OK() bool {
	return len(r.Errors) == 0
}

// Validator is the build-time budget gate: it checks every manifest
// entry against disk and the download ceiling, and sweeps for stray
// uncompressed sources.
type Validator struct {
	cfg Config
}

// New builds a validator.
func New(cfg Config) *Validator {
	return &Validator{cfg: cfg}
}

// Run validates the manifest against disk. A missing or malformed
// manifest is itself a hard error, reported through the result.
func (v *Validator) Run() *Result {
	result := &Result{}

	m, err := manifest.Load(v.cfg.ManifestPath)
	if err != nil {
		result.Errors = append(result.Errors, err.Error())
		return result
	}

	v.checkCategory(result, "chunk", m.Chunks, v.cfg.ChunksDir)
	v.checkCategory(result, "prop", m.Props, v.cfg.PropsDir)
	v.scanStrays(result)

	return result
}

// checkCategory verifies each entry exists on disk and fits the ceiling.
func (v *Validator) checkCategory(result *Result, category string, entries map[string]manifest.Entry, dir string) {
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		entry := entries[name]
		path := filepath.Join(dir, entry.File)

		info, err := os.Stat(path)
		if err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("%s %q: referenced file %s is missing", category, name, entry.File))
			continue
		}

		result.Validated++
		result.TotalBytes += entry.Size

		if info.Size() != entry.Size {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s %q: manifest size %d does not match on-disk size %d", category, name, entry.Size, info.Size()))
		}

		if entry.Size > MaxChunkBytes {
			msg := fmt.Sprintf("%s %q: %d bytes exceeds the %d byte ceiling", category, name, entry.Size, MaxChunkBytes)
			if category == "chunk" {
				result.Errors = append(result.Errors, msg)
			} else {
				result.Warnings = append(result.Warnings, msg)
			}
		}
	}
}

// scanStrays sweeps the configured asset directories for uncompressed
// scene files sitting outside the compressed-output directories.
func (v *Validator) scanStrays(result *Result) {
	excluded := map[string]bool{}
	for _, dir := range []string{v.cfg.ChunksDir, v.cfg.PropsDir, v.cfg.SourceDir, filepath.Dir(v.cfg.ManifestPath)} {
		if dir == "" {
			continue
		}
		if abs, err := filepath.Abs(dir); err == nil {
			excluded[abs] = true
		}
	}

	for _, dir := range v.cfg.ScanDirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if abs, absErr := filepath.Abs(path); absErr == nil && excluded[abs] {
					return fs.SkipDir
				}
				return nil
			}
			ext := strings.ToLower(filepath.Ext(path))
			for _, stray := range strayExtensions {
				if ext == stray {
					result.Warnings = append(result.Warnings,
						fmt.Sprintf("stray uncompressed scene file: %s", path))
					break
				}
			}
			return nil
		})
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			log.Printf("[Budget] warning: stray scan failed for %s: %v", dir, err)
		}
	}
}

// Report prints a human-readable summary and returns the process exit
// code: 1 iff any hard error was recorded.
func (v *Validator) Report(result *Result) int {
	for _, msg := range result.Errors {
		fmt.Printf("ERROR: %s\n", msg)
	}
	for _, msg := range result.Warnings {
		fmt.Printf("WARNING: %s\n", msg)
	}

	fmt.Printf("Validated %d entries, %d bytes total, %d errors, %d warnings\n",
		result.Validated, result.TotalBytes, len(result.Errors), len(result.Warnings))

	if result.OK() {
		return 0
	}
	return 1
}
