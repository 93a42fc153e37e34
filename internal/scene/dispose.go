package scene

// Dispose recursively reclaims GPU memory for a scene subtree: geometry
// buffers, every texture slot of every material, shadow-map render
// targets, and the decoded bitmaps behind codec-produced textures.
//
// Every step is nil-checked and idempotent, so Dispose is safe to call on
// partially constructed subtrees and safe to call twice.
func Dispose(root *Node) {
	if root == nil {
		return
	}

	if root.Mesh != nil {
		root.Mesh.Geometry.Dispose()
		for _, mat := range root.Mesh.Materials {
			disposeMaterial(mat)
		}
	}

	if root.Light != nil {
		root.Light.ShadowMap.Dispose()
	}

	for _, child := range root.Children {
		Dispose(child)
	}
}

func disposeMaterial(m *Material) {
	if m == nil || m.disposed {
		return
	}
	m.disposed = true
	for _, tex := range m.Textures() {
		tex.Dispose()
	}
}
