package budget

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/velvetmanor/world/internal/manifest"
	"github.com/velvetmanor/world/internal/testutil"
)

func validatorConfig(tree *testutil.AssetTree) Config {
	return Config{
		ManifestPath: tree.ManifestPath(),
		ChunksDir:    tree.ChunksDir,
		PropsDir:     tree.PropsDir,
		SourceDir:    tree.SourceDir,
		ScanDirs:     []string{tree.Root},
	}
}

func writeManifest(t *testing.T, tree *testutil.AssetTree, m *manifest.Manifest) {
	t.Helper()
	if err := m.Write(tree.ManifestPath()); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
}

func TestValidManifestPasses(t *testing.T) {
	tree := testutil.NewAssetTree(t)
	testutil.WriteBundle(t, tree.ChunksDir, "study.a1b2c3d4e5.bundle", 1024)
	testutil.WriteBundle(t, tree.PropsDir, "side_table.f6a7b8c9d0.bundle", 256)

	m := manifest.New()
	m.Chunks["study"] = manifest.Entry{File: "study.a1b2c3d4e5.bundle", Size: 1024}
	m.Props["side_table"] = manifest.Entry{File: "side_table.f6a7b8c9d0.bundle", Size: 256}
	writeManifest(t, tree, m)

	result := New(validatorConfig(tree)).Run()
	if !result.OK() {
		t.Fatalf("expected pass, errors: %v", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", result.Warnings)
	}
	if result.Validated != 2 || result.TotalBytes != 1280 {
		t.Errorf("validated %d entries, %d bytes", result.Validated, result.TotalBytes)
	}
}

func TestOversizeChunkIsHardError(t *testing.T) {
	tree := testutil.NewAssetTree(t)
	size := MaxChunkBytes + 1
	testutil.WriteBundle(t, tree.ChunksDir, "attic.a1b2c3d4e5.bundle", size)

	m := manifest.New()
	m.Chunks["attic"] = manifest.Entry{File: "attic.a1b2c3d4e5.bundle", Size: int64(size)}
	writeManifest(t, tree, m)

	result := New(validatorConfig(tree)).Run()
	if result.OK() {
		t.Fatalf("expected hard error for oversize chunk")
	}
	if len(result.Errors) != 1 || !strings.Contains(result.Errors[0], "exceeds") {
		t.Fatalf("errors = %v", result.Errors)
	}
	if New(validatorConfig(tree)).Report(result) != 1 {
		t.Errorf("expected exit code 1")
	}
}

func TestOversizePropOnlyWarns(t *testing.T) {
	tree := testutil.NewAssetTree(t)
	size := MaxChunkBytes + 1
	testutil.WriteBundle(t, tree.PropsDir, "god_gundam.a1b2c3d4e5.bundle", size)

	m := manifest.New()
	m.Props["god_gundam"] = manifest.Entry{File: "god_gundam.a1b2c3d4e5.bundle", Size: int64(size)}
	writeManifest(t, tree, m)

	result := New(validatorConfig(tree)).Run()
	if !result.OK() {
		t.Fatalf("oversize prop should not be a hard error: %v", result.Errors)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "exceeds") {
		t.Fatalf("warnings = %v", result.Warnings)
	}
	if New(validatorConfig(tree)).Report(result) != 0 {
		t.Errorf("expected exit code 0")
	}
}

func TestMissingReferencedFileIsHardError(t *testing.T) {
	tree := testutil.NewAssetTree(t)

	m := manifest.New()
	m.Chunks["study"] = manifest.Entry{File: "study.a1b2c3d4e5.bundle", Size: 1024}
	writeManifest(t, tree, m)

	result := New(validatorConfig(tree)).Run()
	if result.OK() {
		t.Fatalf("expected hard error for missing file")
	}
	if !strings.Contains(result.Errors[0], "missing") {
		t.Fatalf("errors = %v", result.Errors)
	}
	if result.Validated != 0 {
		t.Errorf("missing entries must not count as validated")
	}
}

func TestSizeMismatchWarns(t *testing.T) {
	tree := testutil.NewAssetTree(t)
	testutil.WriteBundle(t, tree.ChunksDir, "study.a1b2c3d4e5.bundle", 2048)

	m := manifest.New()
	m.Chunks["study"] = manifest.Entry{File: "study.a1b2c3d4e5.bundle", Size: 1024}
	writeManifest(t, tree, m)

	result := New(validatorConfig(tree)).Run()
	if !result.OK() {
		t.Fatalf("size drift should not be a hard error: %v", result.Errors)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "does not match") {
		t.Fatalf("warnings = %v", result.Warnings)
	}
}

func TestMalformedManifestIsHardError(t *testing.T) {
	tree := testutil.NewAssetTree(t)
	tree.WriteFile(t, filepath.Join("manifests", "asset-manifest.json"), []byte(`{"version":`))

	result := New(validatorConfig(tree)).Run()
	if result.OK() {
		t.Fatalf("expected hard error for malformed manifest")
	}
}

func TestStrayScanFlagsUncompressedFiles(t *testing.T) {
	tree := testutil.NewAssetTree(t)
	writeManifest(t, tree, manifest.New())

	// Legitimate locations: raw sources and the manifest itself.
	tree.WriteFile(t, filepath.Join("source", "study.json"), []byte(`{}`))
	tree.WriteFile(t, filepath.Join("source", "study.png"), []byte{0x89})
	// Strays outside the excluded directories.
	tree.WriteFile(t, filepath.Join("models", "leftover.gltf"), []byte(`{}`))
	tree.WriteFile(t, "orphan.png", []byte{0x89})
	// Compressed outputs are never strays.
	testutil.WriteBundle(t, tree.ChunksDir, "study.a1b2c3d4e5.bundle", 16)

	result := New(validatorConfig(tree)).Run()
	if !result.OK() {
		t.Fatalf("strays are warnings, not errors: %v", result.Errors)
	}
	if len(result.Warnings) != 2 {
		t.Fatalf("warnings = %v", result.Warnings)
	}
	joined := strings.Join(result.Warnings, "\n")
	if !strings.Contains(joined, "leftover.gltf") || !strings.Contains(joined, "orphan.png") {
		t.Fatalf("expected both strays flagged:\n%s", joined)
	}
	if strings.Contains(joined, filepath.Join("source", "study")) {
		t.Fatalf("raw source directory must be excluded from the scan:\n%s", joined)
	}
}
