package signal

// Reader gives access to committed values inside Graph.Read.
type Reader struct {
	g *Graph
}

// Read runs fn under the graph read lock, so every value fn reads through
// Peek comes from the same committed pass. fn must not call Get, write,
// subscribe or cancel.
func (g *Graph) Read(fn func(r *Reader)) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	fn(&Reader{g: g})
}

// Peek reads s inside Read. It panics when s belongs to another graph.
func Peek[T comparable](r *Reader, s Signal[T]) T {
	if s.Graph() != r.g {
		panic("signal: Peek on a signal of another graph")
	}
	return s.peek()
}
