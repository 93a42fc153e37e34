package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/velvetmanor/world/internal/codec"
	"github.com/velvetmanor/world/internal/scene"
	"github.com/velvetmanor/world/internal/telemetry"
)

var (
	// ErrUninitialized is returned when Load is called before Init. It is
	// a programming error, never a recoverable condition.
	ErrUninitialized = errors.New("loader: not initialized with a render context")

	// ErrAborted is the expected outcome of cancellation. Callers must
	// distinguish it from transfer or decode failure.
	ErrAborted = errors.New("loader: load aborted")
)

// LoadError wraps a transfer or decode failure for one URL.
type LoadError struct {
	URL string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("loader: failed to load %s: %v", e.URL, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// RenderContext is the handle to the active GPU context the codecs need.
// The real renderer lives in the client; tests supply fakes.
type RenderContext interface {
	MaxTextureSize() int
}

// Progress reports transfer progress for one load. It is only emitted
// when the server reports a known total size.
type Progress struct {
	Loaded  int64
	Total   int64
	Percent float64
}

// LoadOptions carries the optional per-load callbacks.
type LoadOptions struct {
	OnProgress func(Progress)
}

// Loader fetches compressed bundles and decodes them into renderable
// scene graphs. It must be initialized once with a render context before
// first use; codec instances are created at Init and reused for the
// whole session.
type Loader struct {
	client  *http.Client
	timings *telemetry.Timings

	mu          sync.Mutex
	initialized bool
	geometry    *codec.GeometryCodec
	texture     *codec.TextureCodec
	cache       map[string]*scene.Node
}

// New builds an uninitialized loader. A nil client falls back to the
// default HTTP client; a nil timings collector disables load timing.
func New(client *http.Client, timings *telemetry.Timings) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Loader{
		client:  client,
		timings: timings,
		cache:   make(map[string]*scene.Node),
	}
}

// Init wires the loader to the active GPU context and constructs the
// session codecs. Calling Init twice is an error.
func (l *Loader) Init(rc RenderContext) error {
	if rc == nil {
		return fmt.Errorf("loader: render context is nil")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.initialized {
		return fmt.Errorf("loader: already initialized")
	}
	l.geometry = codec.NewGeometryCodec()
	l.texture = codec.NewTextureCodec(rc.MaxTextureSize())
	l.initialized = true
	return nil
}

// Load fetches and decodes one bundle. Cancellation through ctx rejects
// with ErrAborted: immediately when ctx is already cancelled, and
// mid-flight without installing anything into the returned graph.
// Transfer and decode failures surface as *LoadError.
func (l *Loader) Load(ctx context.Context, url string, opts LoadOptions) (*scene.Node, error) {
	l.mu.Lock()
	if !l.initialized {
		l.mu.Unlock()
		return nil, ErrUninitialized
	}
	if cached, ok := l.cache[url]; ok {
		l.mu.Unlock()
		return cached, nil
	}
	l.mu.Unlock()

	if ctx.Err() != nil {
		return nil, ErrAborted
	}

	start := time.Now()

	data, err := l.fetch(ctx, url, opts.OnProgress)
	if err != nil {
		return nil, l.classify(ctx, url, err)
	}

	root, err := l.decode(url, data)
	if err != nil {
		return nil, l.classify(ctx, url, err)
	}

	if l.timings != nil {
		l.timings.Record("load "+bundleKey(url), time.Since(start))
	}

	l.mu.Lock()
	l.cache[url] = root
	l.mu.Unlock()

	return root, nil
}

// Preload performs a full load purely to warm the decoded-bundle cache,
// discarding the result.
func (l *Loader) Preload(ctx context.Context, url string) error {
	_, err := l.Load(ctx, url, LoadOptions{})
	return err
}

// Evict drops the cached graph for one URL. The chunk manager calls it
// when it disposes a room's scene graph, so a later load of the same URL
// fetches and decodes from scratch instead of handing back a graph whose
// GPU resources were already released.
func (l *Loader) Evict(url string) {
	l.mu.Lock()
	delete(l.cache, url)
	l.mu.Unlock()
}

// fetch downloads the bundle bytes, reporting progress only when the
// response carries a known total size.
func (l *Loader) fetch(ctx context.Context, url string, onProgress func(Progress)) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var body io.Reader = resp.Body
	if onProgress != nil && resp.ContentLength > 0 {
		body = &progressReader{
			inner:      resp.Body,
			total:      resp.ContentLength,
			onProgress: onProgress,
		}
	}

	return io.ReadAll(body)
}

// decode turns the compressed container into a scene graph. Nothing is
// shared with the cache until decode fully succeeds.
func (l *Loader) decode(url string, data []byte) (*scene.Node, error) {
	bundle, err := l.geometry.Decode(data)
	if err != nil {
		return nil, err
	}

	root := &scene.Node{Name: bundle.Name}

	for i := range bundle.Meshes {
		mesh := &bundle.Meshes[i]
		root.Add(&scene.Node{
			Name: mesh.Name,
			Mesh: &scene.Mesh{
				Geometry: &scene.Geometry{
					VertexCount: len(mesh.Vertices),
					IndexCount:  len(mesh.Indices),
				},
				Materials: []*scene.Material{{Name: mesh.Name}},
			},
		})
	}

	for i := range bundle.Textures {
		tex, err := l.texture.Decode(&bundle.Textures[i])
		if err != nil {
			releaseDecoded(root)
			return nil, err
		}
		attachTexture(root, tex)
	}

	return root, nil
}

// classify maps an error to the abort kind when the context was
// cancelled, and wraps everything else as a load failure.
func (l *Loader) classify(ctx context.Context, url string, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrAborted
	}
	log.Printf("[Loader] load failed for %s: %v", url, err)
	return &LoadError{URL: url, Err: err}
}

// attachTexture routes a decoded texture to its mesh's material slot by
// the "<mesh>_<slot>" naming convention; unmatched textures land on the
// first mesh's base color slot.
func attachTexture(root *scene.Node, tex *scene.Texture) {
	meshName, slot := tex.Name, ""
	if idx := strings.LastIndex(tex.Name, "_"); idx > 0 {
		meshName, slot = tex.Name[:idx], tex.Name[idx+1:]
	}

	target := findMaterial(root, meshName)
	if target == nil {
		target = firstMaterial(root)
	}
	if target == nil {
		tex.Dispose()
		return
	}

	switch slot {
	case "normal":
		target.NormalMap = tex
	case "roughness":
		target.RoughnessMap = tex
	case "metalness":
		target.MetalnessMap = tex
	case "ao":
		target.AOMap = tex
	case "emissive":
		target.EmissiveMap = tex
	default:
		target.Map = tex
	}
}

func findMaterial(root *scene.Node, meshName string) *scene.Material {
	for _, child := range root.Children {
		if child.Name == meshName && child.Mesh != nil && len(child.Mesh.Materials) > 0 {
			return child.Mesh.Materials[0]
		}
	}
	return nil
}

func firstMaterial(root *scene.Node) *scene.Material {
	for _, child := range root.Children {
		if child.Mesh != nil && len(child.Mesh.Materials) > 0 {
			return child.Mesh.Materials[0]
		}
	}
	return nil
}

// releaseDecoded frees bitmaps decoded before a mid-decode failure so an
// aborted load leaves no dangling bitmap memory behind.
func releaseDecoded(root *scene.Node) {
	scene.Dispose(root)
}

func bundleKey(url string) string {
	if idx := strings.LastIndex(url, "/"); idx >= 0 {
		return url[idx+1:]
	}
	return url
}

// progressReader invokes the progress callback as bytes arrive. It is
// only installed when the total size is known.
type progressReader struct {
	inner      io.Reader
	loaded     int64
	total      int64
	onProgress func(Progress)
}

func (r *progressReader) Read(p []byte) (int, error) {
	n, err := r.inner.Read(p)
	if n > 0 {
		r.loaded += int64(n)
		r.onProgress(Progress{
			Loaded:  r.loaded,
			Total:   r.total,
			Percent: float64(r.loaded) / float64(r.total) * 100,
		})
	}
	return n, err
}
