package scene

// Node is a single element of a loaded room's scene graph. A node may
// carry a drawable mesh, a light, or act as a pure grouping parent.
type Node struct {
	Name     string
	Children []*Node
	Mesh     *Mesh
	Light    *Light
}

// Add appends a child node and returns it for chaining.
func (n *Node) Add(child *Node) *Node {
	n.Children = append(n.Children, child)
	return child
}

// Mesh pairs a geometry buffer with its material slots.
type Mesh struct {
	Geometry  *Geometry
	Materials []*Material
}

// Geometry holds GPU-side vertex and index buffers for one mesh.
type Geometry struct {
	VertexCount int
	IndexCount  int

	disposed bool
}

// Dispose releases the geometry's GPU buffers. Safe to call more than once.
func (g *Geometry) Dispose() {
	if g == nil || g.disposed {
		return
	}
	g.disposed = true
}

// Disposed reports whether the geometry's buffers have been released.
func (g *Geometry) Disposed() bool {
	return g != nil && g.disposed
}

// Material carries the fixed set of texture-bearing slots a drawable can
// reference. Every slot is optional; disposal walks all of them.
type Material struct {
	Name string

	Map             *Texture
	NormalMap       *Texture
	RoughnessMap    *Texture
	MetalnessMap    *Texture
	AOMap           *Texture
	EmissiveMap     *Texture
	BumpMap         *Texture
	DisplacementMap *Texture
	AlphaMap        *Texture
	EnvMap          *Texture
	LightMap        *Texture
	SpecularMap     *Texture

	disposed bool
}

// Textures enumerates every texture slot, including nil ones, in a fixed
// order. Callers must nil-check each entry.
func (m *Material) Textures() []*Texture {
	return []*Texture{
		m.Map,
		m.NormalMap,
		m.RoughnessMap,
		m.MetalnessMap,
		m.AOMap,
		m.EmissiveMap,
		m.BumpMap,
		m.DisplacementMap,
		m.AlphaMap,
		m.EnvMap,
		m.LightMap,
		m.SpecularMap,
	}
}

// Disposed reports whether the material has been disposed.
func (m *Material) Disposed() bool {
	return m != nil && m.disposed
}

// Texture is a GPU texture handle, optionally backed by a decoded Bitmap
// whose memory must be released explicitly.
type Texture struct {
	Name   string
	Bitmap *Bitmap

	disposed bool
}

// Dispose releases the texture handle and, when present, its backing
// bitmap. Idempotent.
func (t *Texture) Dispose() {
	if t == nil || t.disposed {
		return
	}
	t.disposed = true
	if t.Bitmap != nil {
		t.Bitmap.Release()
	}
}

// Disposed reports whether the texture handle has been released.
func (t *Texture) Disposed() bool {
	return t != nil && t.disposed
}

// Bitmap is decoded image memory produced by the texture codec. It is not
// tied to ordinary garbage collection and must be released explicitly.
type Bitmap struct {
	Width  int
	Height int
	Pixels []byte

	released bool
}

// Release frees the bitmap's pixel memory. Safe to call more than once.
func (b *Bitmap) Release() {
	if b == nil || b.released {
		return
	}
	b.released = true
	b.Pixels = nil
}

// Released reports whether the bitmap memory has been freed.
func (b *Bitmap) Released() bool {
	return b != nil && b.released
}

// Light is a scene light which may own a shadow-map render target.
type Light struct {
	Name      string
	ShadowMap *RenderTarget
}

// RenderTarget is an offscreen GPU surface (shadow maps, probes).
type RenderTarget struct {
	Width  int
	Height int

	disposed bool
}

// Dispose releases the render target. Idempotent.
func (r *RenderTarget) Dispose() {
	if r == nil || r.disposed {
		return
	}
	r.disposed = true
}

// Disposed reports whether the render target has been released.
func (r *RenderTarget) Disposed() bool {
	return r != nil && r.disposed
}

// EstimateMemory walks a subtree and estimates resident GPU bytes:
// 12 bytes per vertex position, 4 bytes per index, plus decoded bitmap
// memory for every texture slot still holding pixels.
func EstimateMemory(root *Node) int64 {
	if root == nil {
		return 0
	}
	var total int64
	if root.Mesh != nil {
		if g := root.Mesh.Geometry; g != nil {
			total += int64(g.VertexCount)*12 + int64(g.IndexCount)*4
		}
		for _, mat := range root.Mesh.Materials {
			if mat == nil {
				continue
			}
			for _, tex := range mat.Textures() {
				if tex != nil && tex.Bitmap != nil {
					total += int64(len(tex.Bitmap.Pixels))
				}
			}
		}
	}
	for _, child := range root.Children {
		total += EstimateMemory(child)
	}
	return total
}
