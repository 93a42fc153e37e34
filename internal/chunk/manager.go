package chunk

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/velvetmanor/world/internal/loader"
	"github.com/velvetmanor/world/internal/scene"
	"github.com/velvetmanor/world/internal/telemetry"
)

// Loader is the slice of the asset loader the manager drives. Every
// transition into preloading goes through Load; every disposal goes
// through Evict, so the loader's cache never outlives a disposed graph.
type Loader interface {
	Load(ctx context.Context, url string, opts loader.LoadOptions) (*scene.Node, error)
	Evict(url string)
}

// Chunk tracks one room's streamed content and lifecycle state. It is
// owned exclusively by the Manager and mutated only through permitted
// transitions.
type Chunk struct {
	ID             string
	LoadedAt       time.Time
	LastActiveAt   time.Time
	MemoryEstimate int64

	state  State
	root   *scene.Node
	cancel context.CancelFunc
}

// Info is a read-only snapshot of a chunk for callers outside the
// manager.
type Info struct {
	ID             string
	State          State
	LoadedAt       time.Time
	LastActiveAt   time.Time
	MemoryEstimate int64
}

// Manager orchestrates the load/activate/dispose lifecycle per room as
// the user navigates. It is the sole owner of chunk state and the only
// component permitted to invoke the loader or disposal, which rules out
// double-dispose and use-after-dispose.
type Manager struct {
	mu     sync.Mutex
	chunks map[string]*Chunk
	active string

	loader       Loader
	urlFor       func(id string) string
	dispose      func(*scene.Node)
	recorder     telemetry.Recorder
	memoryBudget int64
	now          func() time.Time
}

// Option customizes a Manager.
type Option func(*Manager)

// WithRecorder wires the telemetry recorder for room-entry events.
func WithRecorder(r telemetry.Recorder) Option {
	return func(m *Manager) { m.recorder = r }
}

// WithMemoryBudget caps resident chunk memory; dormant chunks beyond the
// budget are disposed oldest-first. Zero disables eviction.
func WithMemoryBudget(bytes int64) Option {
	return func(m *Manager) { m.memoryBudget = bytes }
}

// WithClock overrides the time source for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithDisposeFunc overrides the disposal routine for tests.
func WithDisposeFunc(dispose func(*scene.Node)) Option {
	return func(m *Manager) { m.dispose = dispose }
}

// NewManager builds a lifecycle manager. urlFor resolves a room id to
// its bundle URL (manifest lookup plus base URL, supplied by the glue).
func NewManager(ld Loader, urlFor func(id string) string, opts ...Option) *Manager {
	m := &Manager{
		chunks:   make(map[string]*Chunk),
		loader:   ld,
		urlFor:   urlFor,
		dispose:  scene.Dispose,
		recorder: telemetry.NopRecorder{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Preload begins loading a room's bundle. The chunk enters preloading
// and settles to loaded on success or rolls back to unloaded on
// cancellation or failure. Several preloads may be in flight at once.
func (m *Manager) Preload(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.chunk(id)
	if err := m.transition(c, StatePreloading); err != nil {
		return err
	}

	loadCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	go m.runLoad(loadCtx, c.ID)
	return nil
}

// CancelPreload aborts an in-flight load cooperatively. The chunk rolls
// back to unloaded; no resources are installed.
func (m *Manager) CancelPreload(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.chunks[id]
	if !ok || c.state != StatePreloading {
		return fmt.Errorf("%w: cannot cancel %s in state %s", ErrInvalidTransition, id, m.stateOf(id))
	}
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	return m.transition(c, StateUnloaded)
}

// runLoad performs the asynchronous load and settles the chunk.
func (m *Manager) runLoad(ctx context.Context, id string) {
	root, err := m.loader.Load(ctx, m.urlFor(id), loader.LoadOptions{})

	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.chunks[id]
	if !ok || c.state != StatePreloading {
		// Cancelled and rolled back while the load was settling. A late
		// success must not leak its resources or linger in the loader
		// cache.
		if root != nil {
			m.dispose(root)
			m.loader.Evict(m.urlFor(id))
		}
		return
	}
	c.cancel = nil

	if err != nil {
		if !errors.Is(err, loader.ErrAborted) {
			log.Printf("[Chunk] load failed for %s: %v", id, err)
		}
		_ = m.transition(c, StateUnloaded)
		return
	}

	c.root = root
	c.MemoryEstimate = scene.EstimateMemory(root)
	c.LoadedAt = m.now()
	_ = m.transition(c, StateLoaded)
}

// Activate promotes a loaded or dormant chunk to the visible room. The
// previously active chunk is demoted to dormant, never disposed
// immediately. Exactly one chunk is active at any time.
func (m *Manager) Activate(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.chunks[id]
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, StateUnloaded, StateActive)
	}
	if !canTransition(c.state, StateActive) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.state, StateActive)
	}

	if m.active != "" && m.active != id {
		prev := m.chunks[m.active]
		prev.LastActiveAt = m.now()
		if err := m.transition(prev, StateDormant); err != nil {
			return err
		}
	}

	if err := m.transition(c, StateActive); err != nil {
		return err
	}
	c.LastActiveAt = m.now()
	m.active = id

	m.recorder.RecordEvent("room_entered", map[string]any{
		"room":         id,
		"memory_bytes": c.MemoryEstimate,
	})

	m.evict()
	return nil
}

// Dispose releases a dormant chunk's GPU resources and returns it to
// unloaded, allowing a full reload on re-entry.
func (m *Manager) Dispose(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.chunks[id]
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, StateUnloaded, StateDisposed)
	}
	return m.disposeLocked(c)
}

func (m *Manager) disposeLocked(c *Chunk) error {
	if err := m.transition(c, StateDisposed); err != nil {
		return err
	}

	m.dispose(c.root)
	m.loader.Evict(m.urlFor(c.ID))
	c.root = nil
	c.MemoryEstimate = 0
	c.LoadedAt = time.Time{}

	// Disposed and unloaded are the same re-entry point; nothing
	// survives disposal.
	return m.transition(c, StateUnloaded)
}

// evict disposes dormant chunks oldest-first until resident memory fits
// the budget. Caller holds the lock.
func (m *Manager) evict() {
	if m.memoryBudget <= 0 {
		return
	}

	for m.residentBytesLocked() > m.memoryBudget {
		var oldest *Chunk
		for _, c := range m.chunks {
			if c.state != StateDormant {
				continue
			}
			if oldest == nil || c.LastActiveAt.Before(oldest.LastActiveAt) {
				oldest = c
			}
		}
		if oldest == nil {
			return
		}
		log.Printf("[Chunk] evicting dormant chunk %s (%d bytes)", oldest.ID, oldest.MemoryEstimate)
		if err := m.disposeLocked(oldest); err != nil {
			return
		}
	}
}

// State returns a chunk's lifecycle state; unknown ids are unloaded.
func (m *Manager) State(id string) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateOf(id)
}

// Active returns the id of the active chunk, or "".
func (m *Manager) Active() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// Get returns a read-only snapshot of one chunk.
func (m *Manager) Get(id string) (Info, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.chunks[id]
	if !ok {
		return Info{}, false
	}
	return Info{
		ID:             c.ID,
		State:          c.state,
		LoadedAt:       c.LoadedAt,
		LastActiveAt:   c.LastActiveAt,
		MemoryEstimate: c.MemoryEstimate,
	}, true
}

// ResidentBytes sums the memory estimates of all resident chunks.
func (m *Manager) ResidentBytes() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.residentBytesLocked()
}

func (m *Manager) residentBytesLocked() int64 {
	var total int64
	for _, c := range m.chunks {
		switch c.state {
		case StateLoaded, StateActive, StateDormant:
			total += c.MemoryEstimate
		}
	}
	return total
}

// transition applies one lifecycle edge, rejecting anything outside the
// permitted set. Caller holds the lock.
func (m *Manager) transition(c *Chunk, to State) error {
	if !canTransition(c.state, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, c.state, to)
	}
	from := c.state
	c.state = to
	if from == StateActive && m.active == c.ID {
		m.active = ""
	}
	return nil
}

func (m *Manager) chunk(id string) *Chunk {
	c, ok := m.chunks[id]
	if !ok {
		c = &Chunk{ID: id, state: StateUnloaded}
		m.chunks[id] = c
	}
	return c
}

func (m *Manager) stateOf(id string) State {
	if c, ok := m.chunks[id]; ok {
		return c.state
	}
	return StateUnloaded
}
