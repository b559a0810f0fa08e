package collision

import (
	"errors"
	"fmt"

	"github.com/zeusync/collider/internal/core/signal"
	"github.com/zeusync/collider/internal/core/systems/physics"
)

var (
	ErrNegativeHalfExtent = physics.ErrNegativeHalfExtent
	ErrInvalidSize        = physics.ErrInvalidSize
	ErrNilBox             = errors.New("collision: nil box signal")
)

// Collidable is anything that exposes a reactive box.
type Collidable interface {
	ID() string
	Box() *Box
}

// Box is the reactive form of physics.Box3: three intervals sharing the
// position signal per axis, each with half the size as its half extent.
type Box struct {
	position signal.Signal[physics.Vec3]
	size     signal.Signal[physics.Vec3]
	ready    signal.Signal[bool]

	centers [3]signal.Signal[float64]
	halves  [3]signal.Signal[float64]
}

// NewBox validates the current size and derives the per-axis signals once,
// so every pair test involving the box shares them.
func NewBox(position, size signal.Signal[physics.Vec3]) (*Box, error) {
	return newBox(position, size, nil)
}

// NewPendingBox is NewBox gated by ready: while ready is false no test
// involving the box reports a collision, whatever the position reads.
func NewPendingBox(position, size signal.Signal[physics.Vec3], ready signal.Signal[bool]) (*Box, error) {
	if ready == nil {
		return nil, ErrNilBox
	}
	return newBox(position, size, ready)
}

func newBox(position, size signal.Signal[physics.Vec3], ready signal.Signal[bool]) (*Box, error) {
	if position == nil || size == nil {
		return nil, ErrNilBox
	}
	if size.Graph() != position.Graph() || (ready != nil && ready.Graph() != position.Graph()) {
		return nil, signal.ErrForeignGraph
	}
	if _, err := physics.NewBox3(position.Get(), size.Get()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNegativeHalfExtent, err)
	}

	b := &Box{position: position, size: size, ready: ready}
	for i, axis := range physics.Axes {
		b.centers[i] = signal.Map(position, func(v physics.Vec3) float64 { return v.Axis(axis) })
		b.halves[i] = signal.Map(size, func(v physics.Vec3) float64 { return v.Axis(axis) / 2 })
	}
	return b, nil
}

func (b *Box) Position() signal.Signal[physics.Vec3] { return b.position }

func (b *Box) Size() signal.Signal[physics.Vec3] { return b.size }

// Ready is nil for boxes that are live from construction.
func (b *Box) Ready() signal.Signal[bool] { return b.ready }

func (b *Box) Graph() *signal.Graph { return b.position.Graph() }

// Snapshot reads position, size and readiness from the same committed pass.
// ok is false while a pending box is not ready; the position is then a
// placeholder.
func (b *Box) Snapshot() (box physics.Box3, ok bool) {
	b.Graph().Read(func(r *signal.Reader) {
		box = b.peek(r)
		ok = b.ready == nil || signal.Peek(r, b.ready)
	})
	return box, ok
}

func (b *Box) peek(r *signal.Reader) physics.Box3 {
	return physics.Box3{Position: signal.Peek(r, b.position), Size: signal.Peek(r, b.size)}
}

// Body is a standalone Collidable.
type Body struct {
	id  string
	box *Box
}

func NewBody(id string, box *Box) *Body { return &Body{id: id, box: box} }

func (b *Body) ID() string { return b.id }

func (b *Body) Box() *Box { return b.box }
