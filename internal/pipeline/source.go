package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SourceScene is the raw scene description exported by the content
// tooling: mesh geometry plus references to texture image files relative
// to the source directory.
type SourceScene struct {
	Name     string          `json:"name"`
	Meshes   []SourceMesh    `json:"meshes"`
	Textures []SourceTexture `json:"textures"`
}

// SourceMesh is uncompressed mesh geometry in the export format.
type SourceMesh struct {
	Name     string      `json:"name"`
	Vertices [][]float64 `json:"vertices"`
	Faces    [][]int     `json:"faces"`
}

// SourceTexture references a texture image by path relative to the
// source directory.
type SourceTexture struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

// parseSourceScene decodes a source file, defaulting the scene name to
// the file's base name.
func parseSourceScene(path string, data []byte) (*SourceScene, error) {
	var src SourceScene
	if err := json.Unmarshal(data, &src); err != nil {
		return nil, fmt.Errorf("failed to parse source scene %s: %w", path, err)
	}
	if src.Name == "" {
		src.Name = baseName(path)
	}
	if len(src.Meshes) == 0 {
		return nil, fmt.Errorf("source scene %s has no meshes", path)
	}
	for i, mesh := range src.Meshes {
		for j, face := range mesh.Faces {
			for _, idx := range face {
				if idx < 0 || idx >= len(mesh.Vertices) {
					return nil, fmt.Errorf("source scene %s mesh %d face %d references vertex %d out of range", path, i, j, idx)
				}
			}
		}
	}
	return &src, nil
}

// baseName strips the directory and extension from a source path.
func baseName(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// readSource loads the source file bytes. A missing file is reported via
// os.IsNotExist so callers can skip it without aborting the run.
func readSource(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return data, nil
}
