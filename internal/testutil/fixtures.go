package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// AssetTree is a temporary directory laid out per the asset directory
// contract: source/, chunks/, props/ and manifests/.
type AssetTree struct {
	Root        string
	SourceDir   string
	ChunksDir   string
	PropsDir    string
	ManifestDir string
}

// ManifestPath returns the conventional manifest location in the tree.
func (a *AssetTree) ManifestPath() string {
	return filepath.Join(a.ManifestDir, "asset-manifest.json")
}

// NewAssetTree creates the directory layout under t.TempDir.
func NewAssetTree(t *testing.T) *AssetTree {
	t.Helper()

	root := t.TempDir()
	tree := &AssetTree{
		Root:        root,
		SourceDir:   filepath.Join(root, "source"),
		ChunksDir:   filepath.Join(root, "chunks"),
		PropsDir:    filepath.Join(root, "props"),
		ManifestDir: filepath.Join(root, "manifests"),
	}
	for _, dir := range []string{tree.SourceDir, tree.ChunksDir, tree.PropsDir, tree.ManifestDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("failed to create %s: %v", dir, err)
		}
	}
	return tree
}

// WriteSourceScene writes a minimal valid source scene file and returns
// its path.
func (a *AssetTree) WriteSourceScene(t *testing.T, name string) string {
	t.Helper()

	source := map[string]any{
		"name": name,
		"meshes": []map[string]any{
			{
				"name": name + "_floor",
				"vertices": [][]float64{
					{0, 0, 0},
					{4, 0, 0},
					{4, 0, 4},
					{0, 0, 4},
				},
				"faces": [][]int{
					{0, 1, 2},
					{0, 2, 3},
				},
			},
		},
	}

	data, err := json.MarshalIndent(source, "", "  ")
	if err != nil {
		t.Fatalf("failed to marshal source scene: %v", err)
	}

	path := filepath.Join(a.SourceDir, name+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write source scene: %v", err)
	}
	return path
}

// WriteFile writes arbitrary bytes into the tree, creating parents.
func (a *AssetTree) WriteFile(t *testing.T, relPath string, data []byte) string {
	t.Helper()

	path := filepath.Join(a.Root, relPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", relPath, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", relPath, err)
	}
	return path
}

// WriteBundle writes a placeholder bundle file of the given size into a
// compressed-output directory.
func WriteBundle(t *testing.T, dir, name string, size int) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, make([]byte, size), 0o644); err != nil {
		t.Fatalf("failed to write bundle %s: %v", name, err)
	}
	return path
}
