package pipeline

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// Transcoder converts a source texture image into a compressed payload.
// The pipeline checks Available before each run and degrades to
// geometry-only output when no transcoder can be found, so an optional
// external binary never fails the build.
type Transcoder interface {
	// Available reports whether the transcoder can run in this environment.
	Available() bool
	// Transcode compresses the image at src. Hero assets use the
	// higher-fidelity mode; everything else uses the compact mode.
	Transcode(src string, hero bool) ([]byte, error)
}

// ExternalTranscoder shells out to the toktx KTX2 tool when it is
// installed on the build machine.
type ExternalTranscoder struct {
	path string
}

// NewExternalTranscoder locates the transcoding tool on PATH. The zero
// path means the tool is unavailable.
func NewExternalTranscoder() *ExternalTranscoder {
	path, err := exec.LookPath("toktx")
	if err != nil {
		return &ExternalTranscoder{}
	}
	return &ExternalTranscoder{path: path}
}

// Available reports whether toktx was found on PATH.
func (t *ExternalTranscoder) Available() bool {
	return t.path != ""
}

// Transcode runs toktx against the source image and returns the KTX2
// container bytes. Hero assets are encoded with UASTC for fidelity;
// everything else uses ETC1S for the smaller footprint.
func (t *ExternalTranscoder) Transcode(src string, hero bool) ([]byte, error) {
	if t.path == "" {
		return nil, fmt.Errorf("texture transcoder is not available")
	}

	tmp, err := os.MkdirTemp("", "transcode")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	out := filepath.Join(tmp, "texture.ktx2")
	args := []string{"--genmipmap", "--t2"}
	if hero {
		args = append(args, "--uastc", "2", "--zcmp", "18")
	} else {
		args = append(args, "--bcmp")
	}
	args = append(args, out, src)

	cmd := exec.Command(t.path, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("toktx failed for %s: %w: %s", src, err, output)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcoded texture: %w", err)
	}
	return data, nil
}
