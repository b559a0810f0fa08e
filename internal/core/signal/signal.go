package signal

import "sync/atomic"

// Signal is a read-only time-varying value. Only this package implements it;
// build new signals with the constructors and combinators.
type Signal[T comparable] interface {
	// Get returns the latest committed value.
	Get() T
	// Subscribe delivers every committed change to fn until cancelled.
	Subscribe(fn func(T)) *Subscription
	// Graph returns the graph the signal belongs to.
	Graph() *Graph

	peek() T
	base() *node
}

// Subscription is the handle returned by Subscribe. Cancel is idempotent and
// takes effect before the next delivery, even within a running pass.
type Subscription struct {
	id     uint64
	active atomic.Bool
	cancel func()
}

func newSubscription(id uint64, cancel func()) *Subscription {
	s := &Subscription{id: id, cancel: cancel}
	s.active.Store(true)
	return s
}

func (s *Subscription) ID() uint64 { return s.id }

func (s *Subscription) Active() bool { return s.active.Load() }

func (s *Subscription) Cancel() {
	if s == nil {
		return
	}
	if s.active.CompareAndSwap(true, false) && s.cancel != nil {
		s.cancel()
	}
}

// Source is a signal written by its owner.
type Source[T comparable] struct {
	cell[T]

	// start is the value at the first write of the running pass.
	start   T
	touched bool
}

// NewSource creates a writable signal holding initial.
func NewSource[T comparable](g *Graph, initial T) *Source[T] {
	s := &Source[T]{}
	n := g.newNode("source")
	s.init(n, initial)
	n.settle = s.settle

	return s
}

// Set queues value. When no pass is running the caller applies it, and every
// downstream effect, before Set returns. From a subscriber callback or while
// another goroutine runs a pass it is applied in the next pass.
func (s *Source[T]) Set(value T) {
	s.n.g.enqueue(s.write(value))
}

// SetTx stages value on tx; it is applied with the rest of the batch.
func (s *Source[T]) SetTx(tx *Tx, value T) {
	tx.stage(s.n.g, s.write(value))
}

func (s *Source[T]) write(value T) write {
	return func() *node {
		s.mark()
		s.value = value
		return s.n
	}
}

// Update queues fn applied to the value current at the time the write runs.
func (s *Source[T]) Update(fn func(T) T) {
	s.n.g.enqueue(func() *node {
		s.mark()
		s.value = fn(s.value)
		return s.n
	})
}

func (s *Source[T]) mark() {
	if !s.touched {
		s.touched = true
		s.start = s.value
	}
}

func (s *Source[T]) settle() bool {
	s.touched = false
	return s.start != s.value
}

// Computed is a signal derived from other signals.
type Computed[T comparable] struct {
	cell[T]
	compute func() T
}

// derive links the inputs and computes the initial value under the graph lock.
func derive[T comparable](kind string, compute func() T, inputs ...*node) *Computed[T] {
	g := graphOf(inputs...)
	c := &Computed[T]{compute: compute}

	g.mu.Lock()
	defer g.mu.Unlock()

	n := g.newNode(kind)
	for _, in := range inputs {
		n.link(in)
	}
	c.init(n, compute())
	n.recompute = c.recompute
	return c
}

func (c *Computed[T]) recompute() bool {
	v := c.compute()
	if v == c.value {
		return false
	}
	c.value = v
	return true
}

// Constant returns a signal that never changes.
func Constant[T comparable](g *Graph, value T) *Computed[T] {
	c := &Computed[T]{compute: func() T { return value }}
	n := g.newNode("constant")
	c.init(n, value)
	n.recompute = c.recompute
	return c
}

// Deferred is a signal whose single input is supplied later with Bind. Until
// then it holds its placeholder value.
type Deferred[T comparable] struct {
	cell[T]
	src Signal[T]
}

func NewDeferred[T comparable](g *Graph, placeholder T) *Deferred[T] {
	d := &Deferred[T]{}
	n := g.newNode("deferred")
	d.init(n, placeholder)
	n.recompute = d.recompute
	return d
}

// Bind wires src as the input. The value follows src from the next pass on.
func (d *Deferred[T]) Bind(src Signal[T]) error {
	if err := d.link(src); err != nil {
		return err
	}
	d.n.g.enqueue(d.touch)
	return nil
}

// BindTx is Bind with the first recompute staged on tx, so the bound value
// commits in the same pass as the other writes of the batch.
func (d *Deferred[T]) BindTx(tx *Tx, src Signal[T]) error {
	if tx.g != d.n.g {
		return ErrForeignGraph
	}
	if err := d.link(src); err != nil {
		return err
	}
	tx.stage(d.n.g, d.touch)
	return nil
}

func (d *Deferred[T]) link(src Signal[T]) error {
	if src == nil {
		return ErrNilSignal
	}
	g := d.n.g
	if src.Graph() != g {
		return ErrForeignGraph
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	switch {
	case d.src != nil:
		return ErrAlreadyBound
	case src.base().dependsOn(d.n):
		return ErrCycle
	}
	d.src = src
	d.n.link(src.base())
	return nil
}

func (d *Deferred[T]) touch() *node { return d.n }

// Bound reports whether Bind succeeded.
func (d *Deferred[T]) Bound() bool {
	d.n.g.mu.RLock()
	defer d.n.g.mu.RUnlock()
	return d.src != nil
}

func (d *Deferred[T]) recompute() bool {
	if d.src == nil {
		return false
	}
	v := d.src.peek()
	if v == d.value {
		return false
	}
	d.value = v
	return true
}

var (
	_ Signal[int] = (*Source[int])(nil)
	_ Signal[int] = (*Computed[int])(nil)
	_ Signal[int] = (*Deferred[int])(nil)
)
