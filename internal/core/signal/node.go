package signal

import "slices"

// node is the type-erased vertex of the graph. All fields are guarded by the
// owning graph's mu.
type node struct {
	id   uint64
	g    *Graph
	kind string

	inputs  []*node
	outputs []*node

	// settle is set for sources: it reports whether the writes of the current
	// pass left the value different from where the pass started.
	settle func() bool
	// recompute is set for derived nodes and reports whether the value changed.
	recompute func() bool
	// pending snapshots the current value and subscribers into a delivery,
	// or returns nil when nobody listens.
	pending func() func()
}

func (n *node) anyInputIn(set map[*node]bool) bool {
	for _, in := range n.inputs {
		if set[in] {
			return true
		}
	}
	return false
}

// link adds the edge in -> n. Caller holds g.mu.
func (n *node) link(in *node) {
	n.inputs = append(n.inputs, in)
	in.outputs = append(in.outputs, n)
}

// dependsOn reports whether target is n or reachable from n through inputs.
// Caller holds g.mu.
func (n *node) dependsOn(target *node) bool {
	seen := make(map[*node]bool)
	stack := []*node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == target {
			return true
		}
		if seen[cur] {
			continue
		}
		seen[cur] = true
		stack = append(stack, cur.inputs...)
	}
	return false
}

type listener[T comparable] struct {
	sub *Subscription
	fn  func(T)
}

// cell holds the value and subscribers shared by every signal kind.
type cell[T comparable] struct {
	n     *node
	value T
	subs  []*listener[T]
}

func (c *cell[T]) init(n *node, value T) {
	c.n = n
	c.value = value
	n.pending = c.pending
}

// Get returns the last committed value. It never waits for queued writes.
func (c *cell[T]) Get() T {
	c.n.g.mu.RLock()
	defer c.n.g.mu.RUnlock()
	return c.value
}

// Subscribe registers fn to receive every committed change of the value.
// Callbacks run after the pass that produced the change, outside the graph
// lock, so they may read signals, write sources or cancel subscriptions.
func (c *cell[T]) Subscribe(fn func(T)) *Subscription {
	g := c.n.g
	l := &listener[T]{fn: fn}
	l.sub = newSubscription(g.nextID.Add(1), func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		c.subs = slices.DeleteFunc(c.subs, func(x *listener[T]) bool { return x == l })
	})

	g.mu.Lock()
	c.subs = append(c.subs, l)
	g.mu.Unlock()
	return l.sub
}

// Graph returns the graph owning the signal.
func (c *cell[T]) Graph() *Graph { return c.n.g }

func (c *cell[T]) peek() T { return c.value }

func (c *cell[T]) base() *node { return c.n }

func (c *cell[T]) pending() func() {
	if len(c.subs) == 0 {
		return nil
	}
	value := c.value
	subs := slices.Clone(c.subs)
	return func() {
		for _, l := range subs {
			if l.sub.Active() {
				l.fn(value)
			}
		}
	}
}

// subscribers reports how many listeners are attached.
func (c *cell[T]) subscribers() int {
	c.n.g.mu.RLock()
	defer c.n.g.mu.RUnlock()
	return len(c.subs)
}
