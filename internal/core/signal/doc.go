// Package signal implements the push-based dataflow graph the collision core
// is built on.
//
// A Graph owns a set of nodes. Sources are written by their owner; Computed
// signals are pure functions of other signals and are recomputed by the graph,
// never written directly:
//
//	g := signal.NewGraph()
//	x := signal.NewSource(g, 1.0)
//	doubled := signal.Map(x, func(v float64) float64 { return v * 2 })
//	doubled.Subscribe(func(v float64) { fmt.Println(v) })
//	x.Set(3) // prints 6
//
// # Passes
//
// Writes are queued and applied in passes. A pass applies every queued
// write, recomputes the affected subgraph once in topological order and only
// then runs subscriber callbacks. A computation therefore never observes one
// input at its new value and a sibling at its old one, and a callback never
// runs while the graph is half updated. Writes made from callbacks are run in
// a follow-up pass before the outermost Set returns.
//
// Batch groups writes staged on its Tx into one pass. The grouping is local
// to the batch: other goroutines keep writing and propagating while it runs.
//
//	g.Batch(func(tx *signal.Tx) {
//		a.SetTx(tx, 1)
//		b.SetTx(tx, 2)
//	})
//
// Values are compared with == and a write or recomputation that produces an
// equal value stops propagation at that node.
//
// Compute functions receive their inputs as arguments and must not call Get
// on any signal of the same graph.
package signal
