package manifest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
)

// CurrentVersion is the manifest schema version written by the pipeline.
const CurrentVersion = 1

// Entry describes one compressed output file.
type Entry struct {
	File string `json:"file" validate:"required"`
	Size int64  `json:"size" validate:"min=0"`
}

// Manifest is the build-time index of compressed assets, split into
// streamed room bundles ("chunks") and always-resident bundles ("props").
// It is produced once per build and read-only afterwards.
type Manifest struct {
	Version   int              `json:"version" validate:"min=1"`
	Generated string           `json:"generated" validate:"required"`
	Chunks    map[string]Entry `json:"chunks" validate:"dive"`
	Props     map[string]Entry `json:"props" validate:"dive"`
}

var validate = validator.New()

// New returns an empty manifest stamped with the current time.
func New() *Manifest {
	return &Manifest{
		Version:   CurrentVersion,
		Generated: time.Now().UTC().Format(time.RFC3339),
		Chunks:    make(map[string]Entry),
		Props:     make(map[string]Entry),
	}
}

// Load reads and validates a manifest file. A missing or malformed file
// is an error; so is any entry failing schema validation.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest %s: %w", path, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", path, err)
	}

	if err := validate.Struct(&m); err != nil {
		return nil, fmt.Errorf("manifest %s failed validation: %w", path, err)
	}

	return &m, nil
}

// Write persists the manifest as indented JSON. Writing is idempotent:
// when the chunk and prop entry sets match the manifest already on disk,
// the previous generated stamp is kept so repeated builds with unchanged
// sources produce byte-identical output.
func (m *Manifest) Write(path string) error {
	if previous, err := Load(path); err == nil {
		if reflect.DeepEqual(previous.Chunks, m.Chunks) && reflect.DeepEqual(previous.Props, m.Props) {
			m.Generated = previous.Generated
		}
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	data = append(data, '\n')

	if existing, err := os.ReadFile(path); err == nil && bytes.Equal(existing, data) {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest %s: %w", path, err)
	}
	return nil
}

// TotalSize sums the recorded byte size of every entry.
func (m *Manifest) TotalSize() int64 {
	var total int64
	for _, e := range m.Chunks {
		total += e.Size
	}
	for _, e := range m.Props {
		total += e.Size
	}
	return total
}

// EntryCount returns the number of chunk and prop entries.
func (m *Manifest) EntryCount() int {
	return len(m.Chunks) + len(m.Props)
}
