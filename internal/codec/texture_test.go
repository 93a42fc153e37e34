package codec

import "testing"

func TestTextureDecode(t *testing.T) {
	codec := NewTextureCodec(2048)

	src := &Texture{Name: "lamp", Width: 16, Height: 16, Payload: make([]byte, 1024)}
	tex, err := codec.Decode(src)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tex.Name != "lamp" {
		t.Errorf("name = %q", tex.Name)
	}
	if tex.Bitmap == nil || tex.Bitmap.Width != 16 || tex.Bitmap.Height != 16 {
		t.Fatalf("bitmap mangled: %+v", tex.Bitmap)
	}

	// The bitmap owns its pixel memory; mutating the source payload must
	// not bleed through.
	src.Payload[0] = 0xFF
	if tex.Bitmap.Pixels[0] == 0xFF {
		t.Errorf("bitmap shares memory with the source payload")
	}
}

func TestTextureDecodeValidation(t *testing.T) {
	codec := NewTextureCodec(2048)

	cases := []struct {
		name string
		tex  *Texture
	}{
		{"nil", nil},
		{"zero width", &Texture{Name: "t", Width: 0, Height: 4, Payload: []byte{1}}},
		{"zero height", &Texture{Name: "t", Width: 4, Height: 0, Payload: []byte{1}}},
		{"over limit", &Texture{Name: "t", Width: 4096, Height: 4, Payload: []byte{1}}},
		{"empty payload", &Texture{Name: "t", Width: 4, Height: 4}},
	}
	for _, tc := range cases {
		if _, err := codec.Decode(tc.tex); err == nil {
			t.Errorf("%s: expected decode error", tc.name)
		}
	}
}

func TestTextureCodecDefaultLimit(t *testing.T) {
	codec := NewTextureCodec(0)

	ok := &Texture{Name: "t", Width: 4096, Height: 4096, Payload: []byte{1}}
	if _, err := codec.Decode(ok); err != nil {
		t.Errorf("4096 should fit the default limit: %v", err)
	}
	over := &Texture{Name: "t", Width: 4097, Height: 4096, Payload: []byte{1}}
	if _, err := codec.Decode(over); err == nil {
		t.Errorf("expected error above the default limit")
	}
}
