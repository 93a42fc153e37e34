package quality

// Settings is the whole-swap value object describing every tunable
// rendering knob for one tier. Presets are immutable; tier changes swap
// the entire settings object between frames, never individual fields.
type Settings struct {
	Tier                Tier
	PixelRatio          float64
	ShadowMapSize       int
	ShadowDistance      float64
	LODBias             float64
	ReflectionProbeSize int
	Antialias           bool
	Post                PostProcessing
}

// PostProcessing bundles the post effects. Each effect is independently
// nil (disabled).
type PostProcessing struct {
	Vignette            *VignetteEffect
	Bloom               *BloomEffect
	Grain               *GrainEffect
	ChromaticAberration *ChromaticAberrationEffect
	AmbientOcclusion    *AmbientOcclusionEffect
	DepthOfField        *DepthOfFieldEffect
	ToneMapping         string
	Samples             int
}

type VignetteEffect struct {
	Darkness float64
	Offset   float64
}

type BloomEffect struct {
	Intensity float64
	Threshold float64
}

type GrainEffect struct {
	Intensity float64
}

type ChromaticAberrationEffect struct {
	Offset float64
}

type AmbientOcclusionEffect struct {
	Radius    float64
	Intensity float64
}

type DepthOfFieldEffect struct {
	FocusDistance float64
	Bokeh         float64
}

// presets are the canonical per-tier settings. They are never handed out
// directly; Preset returns a deep copy so callers cannot mutate them.
var presets = map[Tier]Settings{
	TierLow: {
		Tier:                TierLow,
		PixelRatio:          0.75,
		ShadowMapSize:       512,
		ShadowDistance:      15,
		LODBias:             1.5,
		ReflectionProbeSize: 64,
		Antialias:           false,
		Post: PostProcessing{
			Vignette:    &VignetteEffect{Darkness: 0.8, Offset: 0.3},
			ToneMapping: "aces",
			Samples:     0,
		},
	},
	TierMedium: {
		Tier:                TierMedium,
		PixelRatio:          1.0,
		ShadowMapSize:       1024,
		ShadowDistance:      30,
		LODBias:             1.0,
		ReflectionProbeSize: 128,
		Antialias:           true,
		Post: PostProcessing{
			Vignette:         &VignetteEffect{Darkness: 0.8, Offset: 0.3},
			Bloom:            &BloomEffect{Intensity: 0.4, Threshold: 0.9},
			Grain:            &GrainEffect{Intensity: 0.035},
			AmbientOcclusion: &AmbientOcclusionEffect{Radius: 0.3, Intensity: 0.8},
			ToneMapping:      "aces",
			Samples:          2,
		},
	},
	TierHigh: {
		Tier:                TierHigh,
		PixelRatio:          1.5,
		ShadowMapSize:       2048,
		ShadowDistance:      50,
		LODBias:             0.0,
		ReflectionProbeSize: 256,
		Antialias:           true,
		Post: PostProcessing{
			Vignette:            &VignetteEffect{Darkness: 0.8, Offset: 0.3},
			Bloom:               &BloomEffect{Intensity: 0.5, Threshold: 0.85},
			Grain:               &GrainEffect{Intensity: 0.05},
			ChromaticAberration: &ChromaticAberrationEffect{Offset: 0.0012},
			AmbientOcclusion:    &AmbientOcclusionEffect{Radius: 0.4, Intensity: 1.0},
			DepthOfField:        &DepthOfFieldEffect{FocusDistance: 6, Bokeh: 2.5},
			ToneMapping:         "aces",
			Samples:             4,
		},
	},
}

// Preset returns a copy of the settings for a tier. TierAuto resolves to
// the medium preset; live tuning replaces it as samples come in.
func Preset(tier Tier) Settings {
	resolved := tier
	if resolved == TierAuto {
		resolved = TierMedium
	}
	return clone(presets[resolved])
}

// ApplyReducedMotion returns a copy with grain, chromatic aberration and
// depth of field disabled, independent of the tier's defaults. Bloom,
// vignette and tone mapping are untouched.
func ApplyReducedMotion(s Settings) Settings {
	out := clone(s)
	out.Post.Grain = nil
	out.Post.ChromaticAberration = nil
	out.Post.DepthOfField = nil
	return out
}

// clone deep-copies a settings object so preset pointers never escape.
func clone(s Settings) Settings {
	out := s
	if s.Post.Vignette != nil {
		v := *s.Post.Vignette
		out.Post.Vignette = &v
	}
	if s.Post.Bloom != nil {
		v := *s.Post.Bloom
		out.Post.Bloom = &v
	}
	if s.Post.Grain != nil {
		v := *s.Post.Grain
		out.Post.Grain = &v
	}
	if s.Post.ChromaticAberration != nil {
		v := *s.Post.ChromaticAberration
		out.Post.ChromaticAberration = &v
	}
	if s.Post.AmbientOcclusion != nil {
		v := *s.Post.AmbientOcclusion
		out.Post.AmbientOcclusion = &v
	}
	if s.Post.DepthOfField != nil {
		v := *s.Post.DepthOfField
		out.Post.DepthOfField = &v
	}
	return out
}
