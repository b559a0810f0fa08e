package signal

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeusync/collider/internal/core/observability/log"
)

// write mutates one node inside a pass and returns it as a pass root.
type write func() *node

// PassStats describes one propagation pass.
type PassStats struct {
	Writes     int
	Recomputed int
	Changed    int
	Notified   int
	Duration   time.Duration
}

// Observer receives a callback after every pass. Observers must return quickly.
type Observer interface {
	OnPass(stats PassStats)
}

// Graph serializes all writes to the signals it owns.
type Graph struct {
	// mu guards node values, edges and subscriber lists.
	mu sync.RWMutex

	// qmu guards the write queue and the runner state.
	qmu     sync.Mutex
	idle    *sync.Cond
	queue   []write
	running bool

	nextID atomic.Uint64
	passes atomic.Uint64

	logger    log.Log
	observers []Observer
}

type GraphOption func(*Graph)

func WithLogger(l log.Log) GraphOption {
	return func(g *Graph) {
		if l != nil {
			g.logger = l
		}
	}
}

func WithObserver(obs Observer) GraphOption {
	return func(g *Graph) {
		if obs != nil {
			g.observers = append(g.observers, obs)
		}
	}
}

func NewGraph(opts ...GraphOption) *Graph {
	g := &Graph{logger: log.NewNop()}
	g.idle = sync.NewCond(&g.qmu)
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Passes returns the number of completed propagation passes.
func (g *Graph) Passes() uint64 {
	return g.passes.Load()
}

// Tx collects the writes of one Batch. It belongs to the goroutine running
// the batch.
type Tx struct {
	g      *Graph
	writes []write
	done   bool
}

func (tx *Tx) stage(g *Graph, w write) {
	if g != tx.g {
		panic("signal: write staged on a batch of another graph")
	}
	if tx.done {
		g.enqueue(w)
		return
	}
	tx.writes = append(tx.writes, w)
}

// Batch runs fn and applies every write staged on tx in a single pass once fn
// returns. Only staged writes are held back: Set calls inside fn, and writes
// from other goroutines, are applied as usual. A tx used after fn returned
// writes directly. Staged writes are dropped if fn panics.
func (g *Graph) Batch(fn func(tx *Tx)) {
	tx := &Tx{g: g}
	fn(tx)
	tx.done = true
	g.enqueue(tx.writes...)
}

// Sync blocks until every write queued so far has been applied and its
// callbacks have run. Calling it from a subscriber callback deadlocks.
func (g *Graph) Sync() {
	g.qmu.Lock()
	for g.running || len(g.queue) > 0 {
		g.idle.Wait()
	}
	g.qmu.Unlock()
}

func (g *Graph) newNode(kind string) *node {
	return &node{id: g.nextID.Add(1), g: g, kind: kind}
}

// enqueue queues ws together and, when no pass is in flight, turns the caller
// into the runner until the queue is empty. Writes queued together always
// land in the same pass.
func (g *Graph) enqueue(ws ...write) {
	if len(ws) == 0 {
		return
	}
	g.qmu.Lock()
	g.queue = append(g.queue, ws...)
	if g.running {
		g.qmu.Unlock()
		return
	}
	g.running = true
	g.qmu.Unlock()
	g.drain()
}

func (g *Graph) drain() {
	finished := false
	defer func() {
		if !finished {
			// a callback panicked; release the runner so the graph stays usable
			g.qmu.Lock()
			g.running = false
			g.idle.Broadcast()
			g.qmu.Unlock()
		}
	}()

	for {
		g.qmu.Lock()
		if len(g.queue) == 0 {
			g.running = false
			g.idle.Broadcast()
			g.qmu.Unlock()
			finished = true
			return
		}
		writes := g.queue
		g.queue = nil
		g.qmu.Unlock()

		g.pass(writes)
	}
}

func (g *Graph) pass(writes []write) {
	start := time.Now()

	deliveries, stats := g.propagate(writes)
	for _, d := range deliveries {
		d()
	}

	stats.Notified = len(deliveries)
	stats.Duration = time.Since(start)
	g.passes.Add(1)

	g.logger.Debug("signal pass",
		log.Int("writes", stats.Writes),
		log.Int("recomputed", stats.Recomputed),
		log.Int("changed", stats.Changed),
		log.Int("notified", stats.Notified),
		log.Duration("duration", stats.Duration),
	)
	for _, obs := range g.observers {
		obs.OnPass(stats)
	}
}

// propagate applies writes and recomputes under the graph lock. It returns the
// subscriber deliveries to run once the lock is released.
func (g *Graph) propagate(writes []write) ([]func(), PassStats) {
	g.mu.Lock()
	defer g.mu.Unlock()

	touched := make(map[*node]bool, len(writes))
	roots := make([]*node, 0, len(writes))
	for _, w := range writes {
		n := w()
		if n == nil || touched[n] {
			continue
		}
		touched[n] = true
		roots = append(roots, n)
	}

	order := topoOrder(roots)
	changed := make(map[*node]bool, len(order))
	stats := PassStats{Writes: len(writes)}

	for _, n := range order {
		switch {
		case touched[n] && n.settle != nil:
			changed[n] = n.settle()
		case touched[n] || n.anyInputIn(changed):
			stats.Recomputed++
			changed[n] = n.recompute()
		}
	}

	var deliveries []func()
	for _, n := range order {
		if !changed[n] {
			continue
		}
		stats.Changed++
		if d := n.pending(); d != nil {
			deliveries = append(deliveries, d)
		}
	}
	return deliveries, stats
}

// topoOrder returns roots and everything downstream of them, inputs before
// outputs. Reverse DFS post-order over output edges.
func topoOrder(roots []*node) []*node {
	seen := make(map[*node]bool)
	post := make([]*node, 0, len(roots))

	var visit func(n *node)
	visit = func(n *node) {
		if seen[n] {
			return
		}
		seen[n] = true
		for _, out := range n.outputs {
			visit(out)
		}
		post = append(post, n)
	}
	for _, r := range roots {
		visit(r)
	}

	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}
