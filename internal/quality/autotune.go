package quality

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/velvetmanor/world/internal/telemetry"
)

const (
	// WindowSamples is the number of frame samples required before an
	// adjustment is considered.
	WindowSamples = 60
	// SampleInterval is the nominal frame interval used to size the
	// rolling window's age cap.
	SampleInterval = 16670 * time.Microsecond
	// AdjustCooldown is the minimum time between adjustments.
	AdjustCooldown = 5 * time.Second
	// DowngradeP95 is the P95 frame time above which the tier drops one
	// step.
	DowngradeP95 = 20 * time.Millisecond
	// UpgradeP95 is the P95 frame time below which the tier rises one
	// step, desktop only.
	UpgradeP95 = 12 * time.Millisecond
)

type frameSample struct {
	at    time.Time
	frame time.Duration
}

// TunerOptions configure an AutoTuner at session start.
type TunerOptions struct {
	// Preference is the persisted qualityTier setting. Tuning only runs
	// for TierAuto; fixed tiers are applied as-is.
	Preference Tier
	// IsMobile is fixed at session start. Mobile sessions never
	// auto-upgrade, an asymmetric policy to conserve battery.
	IsMobile bool
	// ReducedMotion applies the accessibility override independent of
	// tier.
	ReducedMotion bool
	// Apply receives the new settings on every tier change, swapped
	// wholesale between frames.
	Apply func(Settings)
	// Recorder receives tier-change events.
	Recorder telemetry.Recorder
	// Now overrides the time source for tests.
	Now func() time.Time
}

// AutoTuner samples per-frame render cost and retunes the quality tier
// without user input. It owns its sample window exclusively; the window
// is pruned to a fixed time span and never grows unbounded.
type AutoTuner struct {
	mu sync.Mutex

	preference    Tier
	tier          Tier
	isMobile      bool
	reducedMotion bool

	samples    []frameSample
	lastAdjust time.Time

	apply    func(Settings)
	recorder telemetry.Recorder
	now      func() time.Time
}

// NewAutoTuner builds a tuner. The auto meta-tier resolves to medium
// until live samples say otherwise.
func NewAutoTuner(opts TunerOptions) *AutoTuner {
	t := &AutoTuner{
		preference:    opts.Preference,
		tier:          TierMedium,
		isMobile:      opts.IsMobile,
		reducedMotion: opts.ReducedMotion,
		apply:         opts.Apply,
		recorder:      opts.Recorder,
		now:           opts.Now,
	}
	if t.preference != TierAuto {
		t.tier = t.preference
	}
	if t.recorder == nil {
		t.recorder = telemetry.NopRecorder{}
	}
	if t.now == nil {
		t.now = time.Now
	}
	return t
}

// RecordFrame appends one frame-time sample and adjusts the tier when
// the rolling window and cooldown allow it. It is called once per frame
// and never blocks.
func (t *AutoTuner) RecordFrame(frame time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.preference != TierAuto {
		return
	}

	now := t.now()
	t.samples = append(t.samples, frameSample{at: now, frame: frame})
	t.prune(now)

	if len(t.samples) < WindowSamples {
		return
	}
	if now.Sub(t.lastAdjust) < AdjustCooldown {
		return
	}

	p95 := t.p95()

	next := t.tier
	switch {
	case p95 > DowngradeP95:
		next = t.tier.lower()
	case p95 < UpgradeP95 && !t.isMobile:
		next = t.tier.higher()
	}

	if next == t.tier {
		return
	}

	log.Printf("[AutoTune] p95=%s, tier %s -> %s", p95, t.tier, next)
	previous := t.tier
	t.tier = next
	t.samples = t.samples[:0]
	t.lastAdjust = now

	t.recorder.RecordEvent("quality_tier_changed", map[string]any{
		"from":   previous.String(),
		"to":     next.String(),
		"p95_ms": p95.Milliseconds(),
	})

	if t.apply != nil {
		t.apply(t.settingsLocked())
	}
}

// prune drops samples older than the window span from now.
func (t *AutoTuner) prune(now time.Time) {
	cutoff := now.Add(-WindowSamples * SampleInterval)
	keep := t.samples[:0]
	for _, s := range t.samples {
		if !s.at.Before(cutoff) {
			keep = append(keep, s)
		}
	}
	t.samples = keep
}

// p95 sorts the current window and picks the 95th-percentile frame time.
func (t *AutoTuner) p95() time.Duration {
	sorted := make([]time.Duration, len(t.samples))
	for i, s := range t.samples {
		sorted[i] = s.frame
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	idx := len(sorted) * 95 / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// Tier returns the currently resolved tier.
func (t *AutoTuner) Tier() Tier {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tier
}

// Settings returns the active settings for the resolved tier with the
// reduced-motion override applied when set.
func (t *AutoTuner) Settings() Settings {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.settingsLocked()
}

func (t *AutoTuner) settingsLocked() Settings {
	s := Preset(t.tier)
	if t.reducedMotion {
		s = ApplyReducedMotion(s)
	}
	return s
}

// SetReducedMotion toggles the accessibility override. The next settings
// read picks it up; no tier change is involved.
func (t *AutoTuner) SetReducedMotion(on bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.reducedMotion = on
}

// SetPreference switches between a fixed tier and auto tuning. Switching
// resets the sample window so auto mode starts from fresh observations.
func (t *AutoTuner) SetPreference(pref Tier) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.preference = pref
	t.samples = t.samples[:0]
	if pref == TierAuto {
		t.tier = TierMedium
		return
	}
	t.tier = pref
	if t.apply != nil {
		t.apply(t.settingsLocked())
	}
}
