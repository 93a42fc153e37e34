package codec

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

const (
	// Magic number for the room bundle format
	BundleMagic = "ROOM"
	// Current format version
	BundleVersion = 1
	// Gzip compression level (balance between size and speed)
	DefaultGzipLevel = 6

	// Quantization precision for vertex positions (1mm)
	Quantization = 0.001

	// Header flag bits
	flagHighFidelity = 0x01
)

// Bundle is the decoded form of a compressed room or prop file.
type Bundle struct {
	Name         string
	HighFidelity bool
	Meshes       []Mesh
	Textures     []Texture
}

// Mesh is one drawable's geometry inside a bundle.
type Mesh struct {
	Name     string
	Vertices [][]float64 // x, y, z triples
	Indices  []uint32
}

// Texture is a transcoded texture payload inside a bundle. The payload is
// the compressed texture container produced at build time; the runtime
// texture codec turns it into upload-ready bitmap memory.
type Texture struct {
	Name    string
	Width   uint16
	Height  uint16
	Payload []byte
}

// GeometryCodec encodes and decodes the binary bundle container. One
// instance is created per session and reused across loads.
type GeometryCodec struct {
	level int
}

// NewGeometryCodec builds a codec using the default gzip level.
func NewGeometryCodec() *GeometryCodec {
	return &GeometryCodec{level: DefaultGzipLevel}
}

// Encode serializes a bundle to its quantized binary form and compresses
// it with gzip.
func (c *GeometryCodec) Encode(b *Bundle) ([]byte, error) {
	if b == nil {
		return nil, fmt.Errorf("bundle is nil")
	}
	if len(b.Meshes) > math.MaxUint16 || len(b.Textures) > math.MaxUint16 {
		return nil, fmt.Errorf("bundle %q has too many sections", b.Name)
	}

	var buf bytes.Buffer
	buf.WriteString(BundleMagic)
	buf.WriteByte(BundleVersion)

	var flags byte
	if b.HighFidelity {
		flags |= flagHighFidelity
	}
	buf.WriteByte(flags)

	if err := writeString(&buf, b.Name); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint16(len(b.Meshes))); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint16(len(b.Textures))); err != nil {
		return nil, err
	}

	for i := range b.Meshes {
		if err := encodeMesh(&buf, &b.Meshes[i]); err != nil {
			return nil, fmt.Errorf("mesh %q: %w", b.Meshes[i].Name, err)
		}
	}
	for i := range b.Textures {
		if err := encodeTexture(&buf, &b.Textures[i]); err != nil {
			return nil, fmt.Errorf("texture %q: %w", b.Textures[i].Name, err)
		}
	}

	return gzipCompress(buf.Bytes(), c.level)
}

// Decode parses a gzip-compressed bundle container.
func (c *GeometryCodec) Decode(data []byte) (*Bundle, error) {
	raw, err := gzipDecompress(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress bundle: %w", err)
	}

	r := bytes.NewReader(raw)

	magic := make([]byte, 4)
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("failed to read magic: %w", err)
	}
	if string(magic) != BundleMagic {
		return nil, fmt.Errorf("invalid bundle magic %q", string(magic))
	}

	version, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("failed to read version: %w", err)
	}
	if version != BundleVersion {
		return nil, fmt.Errorf("unsupported bundle version %d", version)
	}

	flags, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("failed to read flags: %w", err)
	}

	name, err := readString(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read bundle name: %w", err)
	}

	var meshCount, textureCount uint16
	if err := binary.Read(r, binary.LittleEndian, &meshCount); err != nil {
		return nil, fmt.Errorf("failed to read mesh count: %w", err)
	}
	if err := binary.Read(r, binary.LittleEndian, &textureCount); err != nil {
		return nil, fmt.Errorf("failed to read texture count: %w", err)
	}

	bundle := &Bundle{
		Name:         name,
		HighFidelity: flags&flagHighFidelity != 0,
		Meshes:       make([]Mesh, meshCount),
		Textures:     make([]Texture, textureCount),
	}

	for i := range bundle.Meshes {
		if err := decodeMesh(r, &bundle.Meshes[i]); err != nil {
			return nil, fmt.Errorf("mesh %d: %w", i, err)
		}
	}
	for i := range bundle.Textures {
		if err := decodeTexture(r, &bundle.Textures[i]); err != nil {
			return nil, fmt.Errorf("texture %d: %w", i, err)
		}
	}

	return bundle, nil
}

func encodeMesh(buf *bytes.Buffer, m *Mesh) error {
	if err := writeString(buf, m.Name); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(m.Vertices))); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(m.Indices))); err != nil {
		return err
	}
	for i, v := range m.Vertices {
		if len(v) < 3 {
			return fmt.Errorf("vertex %d has insufficient coordinates", i)
		}
		q := [3]int32{
			int32(math.Round(v[0] / Quantization)),
			int32(math.Round(v[1] / Quantization)),
			int32(math.Round(v[2] / Quantization)),
		}
		if err := binary.Write(buf, binary.LittleEndian, q); err != nil {
			return err
		}
	}
	return binary.Write(buf, binary.LittleEndian, m.Indices)
}

func decodeMesh(r *bytes.Reader, m *Mesh) error {
	name, err := readString(r)
	if err != nil {
		return err
	}
	m.Name = name

	var vertexCount, indexCount uint32
	if err := binary.Read(r, binary.LittleEndian, &vertexCount); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &indexCount); err != nil {
		return err
	}

	m.Vertices = make([][]float64, vertexCount)
	for i := range m.Vertices {
		var q [3]int32
		if err := binary.Read(r, binary.LittleEndian, &q); err != nil {
			return err
		}
		m.Vertices[i] = []float64{
			float64(q[0]) * Quantization,
			float64(q[1]) * Quantization,
			float64(q[2]) * Quantization,
		}
	}

	m.Indices = make([]uint32, indexCount)
	return binary.Read(r, binary.LittleEndian, m.Indices)
}

func encodeTexture(buf *bytes.Buffer, t *Texture) error {
	if err := writeString(buf, t.Name); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.LittleEndian, t.Width); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.LittleEndian, t.Height); err != nil {
		return err
	}
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(t.Payload))); err != nil {
		return err
	}
	_, err := buf.Write(t.Payload)
	return err
}

func decodeTexture(r *bytes.Reader, t *Texture) error {
	name, err := readString(r)
	if err != nil {
		return err
	}
	t.Name = name

	if err := binary.Read(r, binary.LittleEndian, &t.Width); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &t.Height); err != nil {
		return err
	}

	var payloadLen uint32
	if err := binary.Read(r, binary.LittleEndian, &payloadLen); err != nil {
		return err
	}
	if int64(payloadLen) > int64(r.Len()) {
		return fmt.Errorf("texture payload length %d exceeds remaining data", payloadLen)
	}
	t.Payload = make([]byte, payloadLen)
	_, err = io.ReadFull(r, t.Payload)
	return err
}

func writeString(buf *bytes.Buffer, s string) error {
	if len(s) > math.MaxUint16 {
		return fmt.Errorf("string too long: %d bytes", len(s))
	}
	if err := binary.Write(buf, binary.LittleEndian, uint16(len(s))); err != nil {
		return err
	}
	_, err := buf.WriteString(s)
	return err
}

func readString(r *bytes.Reader) (string, error) {
	var length uint16
	if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
		return "", err
	}
	b := make([]byte, length)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func gzipCompress(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer

	writer, err := gzip.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return nil, fmt.Errorf("failed to write to gzip: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close gzip writer: %w", err)
	}

	return buf.Bytes(), nil
}

func gzipDecompress(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer reader.Close()

	return io.ReadAll(reader)
}
