package pipeline

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/velvetmanor/world/internal/codec"
	"github.com/velvetmanor/world/internal/manifest"
	"github.com/velvetmanor/world/internal/testutil"
)

// fakeTranscoder stands in for the external texture tool.
type fakeTranscoder struct {
	available bool
	payload   []byte
	err       error

	heroCalls []bool
}

func (f *fakeTranscoder) Available() bool { return f.available }

func (f *fakeTranscoder) Transcode(src string, hero bool) ([]byte, error) {
	f.heroCalls = append(f.heroCalls, hero)
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

func pipelineConfig(tree *testutil.AssetTree) Config {
	return Config{
		SourceDir:    tree.SourceDir,
		ChunksDir:    tree.ChunksDir,
		PropsDir:     tree.PropsDir,
		ManifestPath: tree.ManifestPath(),
	}
}

func writePNG(t *testing.T, tree *testutil.AssetTree, name string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 128, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	tree.WriteFile(t, filepath.Join("source", name), buf.Bytes())
}

// writeTexturedScene writes a source scene that references one image.
func writeTexturedScene(t *testing.T, tree *testutil.AssetTree, name string) {
	t.Helper()
	scene := `{
  "name": "` + name + `",
  "meshes": [
    {
      "name": "` + name + `_body",
      "vertices": [[0,0,0],[1,0,0],[0,1,0]],
      "faces": [[0,1,2]]
    }
  ],
  "textures": [
    {"name": "` + name + `_body", "image": "` + name + `.png"}
  ]
}`
	tree.WriteFile(t, filepath.Join("source", name+".json"), []byte(scene))
	writePNG(t, tree, name+".png", 8, 8)
}

func findBundle(t *testing.T, dir, base string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, base+".*"+BundleExt))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected exactly one %s bundle in %s, got %v (err %v)", base, dir, matches, err)
	}
	return matches[0]
}

func TestRunCompressesSourcesIntoHashedBundles(t *testing.T) {
	tree := testutil.NewAssetTree(t)
	tree.WriteSourceScene(t, "study")
	tree.WriteSourceScene(t, "side_table")

	cfg := pipelineConfig(tree)
	cfg.Props = []string{"side_table"}

	summary, err := New(cfg, &fakeTranscoder{}).Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Processed != 2 || summary.Failed != 0 {
		t.Fatalf("summary = %+v", summary)
	}

	chunkPath := findBundle(t, tree.ChunksDir, "study")
	propPath := findBundle(t, tree.PropsDir, "side_table")

	// Output names carry a 10-char content hash.
	parts := strings.Split(filepath.Base(chunkPath), ".")
	if len(parts) != 3 || len(parts[1]) != 10 {
		t.Fatalf("unexpected output name %s", filepath.Base(chunkPath))
	}

	m, err := manifest.Load(tree.ManifestPath())
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	if m.Chunks["study"].File != filepath.Base(chunkPath) {
		t.Errorf("chunk entry = %+v", m.Chunks["study"])
	}
	if m.Props["side_table"].File != filepath.Base(propPath) {
		t.Errorf("prop entry = %+v", m.Props["side_table"])
	}
	stat, err := os.Stat(chunkPath)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if m.Chunks["study"].Size != stat.Size() {
		t.Errorf("recorded size %d, on disk %d", m.Chunks["study"].Size, stat.Size())
	}
}

func TestRunIsIdempotent(t *testing.T) {
	tree := testutil.NewAssetTree(t)
	tree.WriteSourceScene(t, "study")
	cfg := pipelineConfig(tree)

	if _, err := New(cfg, &fakeTranscoder{}).Run(); err != nil {
		t.Fatalf("first run: %v", err)
	}
	bundlePath := findBundle(t, tree.ChunksDir, "study")
	bundleStat, _ := os.Stat(bundlePath)
	manifestBefore, err := os.ReadFile(tree.ManifestPath())
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}

	summary, err := New(cfg, &fakeTranscoder{}).Run()
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if summary.Processed != 0 || summary.Skipped != 1 {
		t.Fatalf("expected unchanged source skipped, summary = %+v", summary)
	}

	manifestAfter, err := os.ReadFile(tree.ManifestPath())
	if err != nil {
		t.Fatalf("read manifest: %v", err)
	}
	if !bytes.Equal(manifestBefore, manifestAfter) {
		t.Fatalf("manifest changed between identical runs:\n%s\n---\n%s", manifestBefore, manifestAfter)
	}
	if after, _ := os.Stat(bundlePath); !after.ModTime().Equal(bundleStat.ModTime()) {
		t.Errorf("bundle was rewritten despite identical content")
	}
}

func TestRunRemovesStaleOutputs(t *testing.T) {
	tree := testutil.NewAssetTree(t)
	path := tree.WriteSourceScene(t, "study")
	cfg := pipelineConfig(tree)

	if _, err := New(cfg, &fakeTranscoder{}).Run(); err != nil {
		t.Fatalf("first run: %v", err)
	}
	oldPath := findBundle(t, tree.ChunksDir, "study")

	// Editing the source changes the content hash.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read source: %v", err)
	}
	edited := bytes.Replace(data, []byte(`"study_floor"`), []byte(`"study_ground"`), 1)
	if err := os.WriteFile(path, edited, 0o644); err != nil {
		t.Fatalf("edit source: %v", err)
	}

	if _, err := New(cfg, &fakeTranscoder{}).Run(); err != nil {
		t.Fatalf("second run: %v", err)
	}

	newPath := findBundle(t, tree.ChunksDir, "study")
	if newPath == oldPath {
		t.Fatalf("expected a new hash after the source changed")
	}
	if _, err := os.Stat(oldPath); !os.IsNotExist(err) {
		t.Errorf("stale output %s not removed", filepath.Base(oldPath))
	}
}

func TestHeroAssetsGetHighFidelityTextures(t *testing.T) {
	tree := testutil.NewAssetTree(t)
	writeTexturedScene(t, tree, "god_gundam")
	writeTexturedScene(t, tree, "study")

	cfg := pipelineConfig(tree)
	cfg.Heroes = []string{"god_gundam"}

	tc := &fakeTranscoder{available: true, payload: []byte{0xAB, 0xCD}}
	if _, err := New(cfg, tc).Run(); err != nil {
		t.Fatalf("run: %v", err)
	}

	// Sources process in sorted order: god_gundam then study.
	if len(tc.heroCalls) != 2 || !tc.heroCalls[0] || tc.heroCalls[1] {
		t.Fatalf("hero flags = %v", tc.heroCalls)
	}

	data, err := os.ReadFile(findBundle(t, tree.ChunksDir, "god_gundam"))
	if err != nil {
		t.Fatalf("read bundle: %v", err)
	}
	bundle, err := codec.NewGeometryCodec().Decode(data)
	if err != nil {
		t.Fatalf("decode bundle: %v", err)
	}
	if !bundle.HighFidelity {
		t.Errorf("hero bundle not flagged high-fidelity")
	}
	if len(bundle.Textures) != 1 || !bytes.Equal(bundle.Textures[0].Payload, tc.payload) {
		t.Fatalf("texture payload mangled: %+v", bundle.Textures)
	}
	if bundle.Textures[0].Width != 8 || bundle.Textures[0].Height != 8 {
		t.Errorf("texture dimensions = %dx%d", bundle.Textures[0].Width, bundle.Textures[0].Height)
	}
}

func TestMissingTranscoderDegradesToGeometryOnly(t *testing.T) {
	tree := testutil.NewAssetTree(t)
	writeTexturedScene(t, tree, "study")
	cfg := pipelineConfig(tree)

	summary, err := New(cfg, &fakeTranscoder{available: false}).Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Processed != 1 || summary.Warnings == 0 {
		t.Fatalf("summary = %+v", summary)
	}

	data, err := os.ReadFile(findBundle(t, tree.ChunksDir, "study"))
	if err != nil {
		t.Fatalf("read bundle: %v", err)
	}
	bundle, err := codec.NewGeometryCodec().Decode(data)
	if err != nil {
		t.Fatalf("decode bundle: %v", err)
	}
	if len(bundle.Meshes) != 1 || len(bundle.Textures) != 0 {
		t.Fatalf("expected geometry-only bundle, got %d meshes %d textures",
			len(bundle.Meshes), len(bundle.Textures))
	}
}

func TestBadSourceSkippedWithoutAbortingRun(t *testing.T) {
	tree := testutil.NewAssetTree(t)
	tree.WriteSourceScene(t, "study")
	tree.WriteFile(t, filepath.Join("source", "broken.json"), []byte(`{"meshes": [`))
	tree.WriteFile(t, filepath.Join("source", "dangling.json"), []byte(`{
  "meshes": [{"name": "m", "vertices": [[0,0,0]], "faces": [[0, 5, 9]]}]
}`))

	summary, err := New(pipelineConfig(tree), &fakeTranscoder{}).Run()
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Processed != 1 || summary.Failed != 2 {
		t.Fatalf("summary = %+v", summary)
	}

	m, err := manifest.Load(tree.ManifestPath())
	if err != nil {
		t.Fatalf("load manifest: %v", err)
	}
	if m.EntryCount() != 1 {
		t.Fatalf("expected only the valid source in the manifest, got %d entries", m.EntryCount())
	}
}
