package quality

import "testing"

func TestPresetResolvesAutoToMedium(t *testing.T) {
	s := Preset(TierAuto)
	if s.Tier != TierMedium {
		t.Fatalf("expected auto preset to resolve to medium, got %s", s.Tier)
	}
}

func TestPresetReturnsIndependentCopies(t *testing.T) {
	first := Preset(TierHigh)
	if first.Post.Grain == nil {
		t.Fatalf("expected high preset to enable grain")
	}
	first.Post.Grain.Intensity = 99
	first.PixelRatio = 0

	second := Preset(TierHigh)
	if second.Post.Grain.Intensity == 99 {
		t.Fatalf("preset mutation leaked into the canonical settings")
	}
	if second.PixelRatio != 1.5 {
		t.Fatalf("expected high pixel ratio 1.5, got %v", second.PixelRatio)
	}
}

func TestReducedMotionNullsMotionEffects(t *testing.T) {
	for _, tier := range []Tier{TierLow, TierMedium, TierHigh} {
		s := ApplyReducedMotion(Preset(tier))
		if s.Post.Grain != nil {
			t.Fatalf("tier %s: expected grain disabled", tier)
		}
		if s.Post.ChromaticAberration != nil {
			t.Fatalf("tier %s: expected chromatic aberration disabled", tier)
		}
		if s.Post.DepthOfField != nil {
			t.Fatalf("tier %s: expected depth of field disabled", tier)
		}
	}
}

func TestReducedMotionLeavesOtherEffectsUntouched(t *testing.T) {
	base := Preset(TierHigh)
	s := ApplyReducedMotion(base)

	if s.Post.Bloom == nil || s.Post.Bloom.Intensity != base.Post.Bloom.Intensity {
		t.Fatalf("expected bloom untouched by reduced motion")
	}
	if s.Post.Vignette == nil || s.Post.Vignette.Darkness != base.Post.Vignette.Darkness {
		t.Fatalf("expected vignette untouched by reduced motion")
	}
	if s.Post.ToneMapping != base.Post.ToneMapping {
		t.Fatalf("expected tone mapping untouched by reduced motion")
	}
}

func TestTierRoundTrip(t *testing.T) {
	for _, name := range []string{"auto", "low", "medium", "high"} {
		tier, err := ParseTier(name)
		if err != nil {
			t.Fatalf("unexpected error parsing %q: %v", name, err)
		}
		if tier.String() != name {
			t.Fatalf("expected round trip for %q, got %q", name, tier.String())
		}
	}

	if _, err := ParseTier("ultra"); err == nil {
		t.Fatalf("expected error for unknown tier")
	}
}

func TestTierStepping(t *testing.T) {
	tests := []struct {
		name string
		from Tier
		up   Tier
		down Tier
	}{
		{"low", TierLow, TierMedium, TierLow},
		{"medium", TierMedium, TierHigh, TierLow},
		{"high", TierHigh, TierHigh, TierMedium},
	}
	for _, tt := range tests {
		if got := tt.from.higher(); got != tt.up {
			t.Errorf("%s.higher() = %s, want %s", tt.name, got, tt.up)
		}
		if got := tt.from.lower(); got != tt.down {
			t.Errorf("%s.lower() = %s, want %s", tt.name, got, tt.down)
		}
	}
}
