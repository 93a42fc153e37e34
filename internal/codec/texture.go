package codec

import (
	"fmt"

	"github.com/velvetmanor/world/internal/scene"
)

// TextureCodec turns transcoded texture payloads into bitmap-backed
// textures the renderer can upload. One instance is created per session
// (sized to the GPU's texture limits) and reused across loads.
type TextureCodec struct {
	maxTextureSize int
}

// NewTextureCodec builds a texture codec clamped to the GPU's maximum
// texture dimension.
func NewTextureCodec(maxTextureSize int) *TextureCodec {
	if maxTextureSize <= 0 {
		maxTextureSize = 4096
	}
	return &TextureCodec{maxTextureSize: maxTextureSize}
}

// Decode produces a texture whose bitmap memory must be released
// explicitly when the owning scene is disposed.
func (c *TextureCodec) Decode(t *Texture) (*scene.Texture, error) {
	if t == nil {
		return nil, fmt.Errorf("texture is nil")
	}
	if t.Width == 0 || t.Height == 0 {
		return nil, fmt.Errorf("texture %q has zero dimensions", t.Name)
	}
	if int(t.Width) > c.maxTextureSize || int(t.Height) > c.maxTextureSize {
		return nil, fmt.Errorf("texture %q (%dx%d) exceeds GPU limit %d",
			t.Name, t.Width, t.Height, c.maxTextureSize)
	}
	if len(t.Payload) == 0 {
		return nil, fmt.Errorf("texture %q has empty payload", t.Name)
	}

	pixels := make([]byte, len(t.Payload))
	copy(pixels, t.Payload)

	return &scene.Texture{
		Name: t.Name,
		Bitmap: &scene.Bitmap{
			Width:  int(t.Width),
			Height: int(t.Height),
			Pixels: pixels,
		},
	}, nil
}
