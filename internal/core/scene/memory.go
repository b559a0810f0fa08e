package scene

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/zeusync/collider/internal/core/observability/log"
	"github.com/zeusync/collider/internal/core/signal"
	"github.com/zeusync/collider/internal/core/systems/physics"
)

// Memory is a Finder over objects held in process. Positions are sources on
// the graph given to NewMemory.
type Memory struct {
	g      *signal.Graph
	logger log.Log

	delay   time.Duration
	timeout time.Duration
	poll    time.Duration

	mu      sync.RWMutex
	objects map[string]*object
}

type MemoryOption func(*Memory)

// WithDelay makes every lookup take at least d, like a remote scene would.
func WithDelay(d time.Duration) MemoryOption {
	return func(m *Memory) { m.delay = d }
}

// WithWait makes lookups of absent objects poll until timeout before
// failing, so objects added shortly after the lookup are still found.
func WithWait(timeout, poll time.Duration) MemoryOption {
	return func(m *Memory) {
		m.timeout = timeout
		if poll > 0 {
			m.poll = poll
		}
	}
}

func WithMemoryLogger(l log.Log) MemoryOption {
	return func(m *Memory) {
		if l != nil {
			m.logger = l
		}
	}
}

func NewMemory(g *signal.Graph, opts ...MemoryOption) *Memory {
	m := &Memory{
		g:       g,
		logger:  log.NewNop(),
		poll:    10 * time.Millisecond,
		objects: make(map[string]*object),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Add places a new object.
func (m *Memory) Add(name string, pos physics.Vec3) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.objects[name]; exists {
		return fmt.Errorf("scene: object %q already exists", name)
	}
	m.objects[name] = &object{name: name, pos: signal.NewSource(m.g, pos)}
	return nil
}

// Move sets the position of an existing object.
func (m *Memory) Move(name string, pos physics.Vec3) error {
	o, ok := m.get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	o.pos.Set(pos)
	return nil
}

// MoveTx stages the move on tx so several objects move in one pass.
func (m *Memory) MoveTx(tx *signal.Tx, name string, pos physics.Vec3) error {
	o, ok := m.get(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	o.pos.SetTx(tx, pos)
	return nil
}

// Remove forgets the object. Handles already given out keep working.
func (m *Memory) Remove(name string) {
	m.mu.Lock()
	delete(m.objects, name)
	m.mu.Unlock()
}

// Names returns the object names sorted.
func (m *Memory) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.objects))
}

// States returns the visual states applied to name, oldest first.
func (m *Memory) States(name string) []VisualState {
	o, ok := m.get(name)
	if !ok {
		return nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]VisualState, len(o.states))
	for i, s := range o.states {
		out[i] = maps.Clone(s)
	}
	return out
}

func (m *Memory) FindObjectByName(ctx context.Context, name string) (ObjectHandle, error) {
	if m.delay > 0 {
		if err := sleep(ctx, m.delay); err != nil {
			return nil, err
		}
	}

	deadline := time.Now().Add(m.timeout)
	for {
		if o, ok := m.get(name); ok {
			return o, nil
		}
		if m.timeout <= 0 || time.Now().After(deadline) {
			m.logger.Debug("scene lookup failed", log.String("name", name))
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		if err := sleep(ctx, m.poll); err != nil {
			return nil, err
		}
	}
}

func (m *Memory) get(name string) (*object, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.objects[name]
	return o, ok
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type object struct {
	name string
	pos  *signal.Source[physics.Vec3]

	mu     sync.Mutex
	states []VisualState
}

func (o *object) Name() string { return o.name }

func (o *object) Position() signal.Signal[physics.Vec3] { return o.pos }

func (o *object) ApplyVisualState(state VisualState) {
	o.mu.Lock()
	o.states = append(o.states, maps.Clone(state))
	o.mu.Unlock()
}

var _ Finder = (*Memory)(nil)
