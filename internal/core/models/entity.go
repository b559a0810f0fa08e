package models

import (
	"context"
	"errors"
	"sync"

	"github.com/zeusync/collider/internal/core/collision"
	"github.com/zeusync/collider/internal/core/scene"
	"github.com/zeusync/collider/internal/core/signal"
	"github.com/zeusync/collider/internal/core/systems/physics"
)

var (
	ErrDuplicateID = errors.New("models: duplicate entity id")
	ErrInvalidSize = physics.ErrInvalidSize
	ErrInvalidID   = errors.New("models: empty entity id")
	ErrNotFound    = errors.New("models: entity not found")
	ErrNotReady    = errors.New("models: entity not ready")
)

// State is the resolution state of an Entity.
type State uint8

const (
	StatePending State = iota
	StateReady
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Entity is a named box whose position comes from a scene object. Until the
// object resolves, Ready reads false and every collision test involving the
// entity reads false.
type Entity struct {
	id     string
	object string

	size     *signal.Source[physics.Vec3]
	position signal.Signal[physics.Vec3]
	deferred *signal.Deferred[physics.Vec3]
	ready    signal.Signal[bool]
	readySrc *signal.Source[bool]
	box      *collision.Box

	mu     sync.RWMutex
	state  State
	err    error
	handle scene.ObjectHandle

	done     chan struct{}
	doneOnce sync.Once
	readySub *signal.Subscription
}

func newPendingEntity(g *signal.Graph, id, object string, size physics.Vec3) (*Entity, error) {
	ready := signal.NewSource(g, false)
	e := &Entity{
		id:       id,
		object:   object,
		size:     signal.NewSource(g, size),
		deferred: signal.NewDeferred(g, physics.Vec3{}),
		ready:    ready,
		readySrc: ready,
		done:     make(chan struct{}),
	}
	e.position = e.deferred

	box, err := collision.NewPendingBox(e.position, e.size, ready)
	if err != nil {
		return nil, err
	}
	e.box = box
	// done closes from the pass that commits ready, so Wait returns with the
	// bound position already visible
	e.readySub = ready.Subscribe(func(v bool) {
		if v {
			e.finish(StateReady, nil)
		}
	})
	return e, nil
}

func newResolvedEntity(id string, position signal.Signal[physics.Vec3], size physics.Vec3) (*Entity, error) {
	g := position.Graph()
	e := &Entity{
		id:       id,
		size:     signal.NewSource(g, size),
		position: position,
		ready:    signal.Constant(g, true),
		state:    StateReady,
		done:     make(chan struct{}),
	}
	box, err := collision.NewBox(position, e.size)
	if err != nil {
		return nil, err
	}
	e.box = box
	close(e.done)
	return e, nil
}

func (e *Entity) ID() string { return e.id }

// Object is the scene object name the entity resolves, empty for entities
// registered with a position signal.
func (e *Entity) Object() string { return e.object }

func (e *Entity) Box() *collision.Box { return e.box }

// Position follows the scene object once resolved. While the entity is
// pending it reads the origin placeholder; use Snapshot to tell the two apart.
func (e *Entity) Position() signal.Signal[physics.Vec3] { return e.position }

// Snapshot returns the committed box and whether it is real. ok is false
// while the entity is pending or after it failed.
func (e *Entity) Snapshot() (physics.Box3, bool) { return e.box.Snapshot() }

func (e *Entity) Size() signal.Signal[physics.Vec3] { return e.size }

// Ready flips to true once the position is bound. It never flips back.
func (e *Entity) Ready() signal.Signal[bool] { return e.ready }

// SetSize animates the size. Negative components are rejected.
func (e *Entity) SetSize(size physics.Vec3) error {
	if err := physics.ValidateSize(size); err != nil {
		return err
	}
	e.size.Set(size)
	return nil
}

func (e *Entity) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Err is the resolution failure, nil unless State is StateFailed.
func (e *Entity) Err() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.err
}

// Done is closed once the entity is ready or failed.
func (e *Entity) Done() <-chan struct{} { return e.done }

// Wait blocks until the entity resolves, fails or ctx ends.
func (e *Entity) Wait(ctx context.Context) error {
	select {
	case <-e.done:
		return e.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ApplyVisualState forwards to the scene object.
func (e *Entity) ApplyVisualState(state scene.VisualState) error {
	e.mu.RLock()
	h := e.handle
	e.mu.RUnlock()
	if h == nil {
		return ErrNotReady
	}
	h.ApplyVisualState(state)
	return nil
}

func (e *Entity) setHandle(h scene.ObjectHandle) {
	e.mu.Lock()
	e.handle = h
	e.mu.Unlock()
}

func (e *Entity) finish(state State, err error) {
	e.doneOnce.Do(func() {
		e.mu.Lock()
		e.state = state
		e.err = err
		e.mu.Unlock()
		e.readySub.Cancel()
		close(e.done)
	})
}

var _ collision.Collidable = (*Entity)(nil)
