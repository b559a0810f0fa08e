package signal

import "slices"

// Map derives a signal by applying fn to in.
func Map[A, B comparable](in Signal[A], fn func(A) B) *Computed[B] {
	mustInputs(in)
	return derive("map", func() B { return fn(in.peek()) }, in.base())
}

// Map2 derives a signal from two inputs. Both arguments always come from the
// same pass.
func Map2[A, B, C comparable](a Signal[A], b Signal[B], fn func(A, B) C) *Computed[C] {
	mustInputs(a, b)
	return derive("map2", func() C { return fn(a.peek(), b.peek()) }, a.base(), b.base())
}

// Map3 derives a signal from three inputs.
func Map3[A, B, C, D comparable](a Signal[A], b Signal[B], c Signal[C], fn func(A, B, C) D) *Computed[D] {
	mustInputs(a, b, c)
	return derive("map3", func() D { return fn(a.peek(), b.peek(), c.peek()) }, a.base(), b.base(), c.base())
}

// Combine derives a signal from any number of inputs of one type. fn gets
// the values in input order and must not retain the slice.
func Combine[A, B comparable](ins []Signal[A], fn func([]A) B) *Computed[B] {
	if len(ins) == 0 {
		panic("signal: Combine needs at least one input, use Constant")
	}
	nodes := make([]*node, len(ins))
	checks := make([]erased, len(ins))
	for i, in := range ins {
		if in == nil {
			panic(ErrNilSignal)
		}
		nodes[i] = in.base()
		checks[i] = in
	}
	mustSameGraph(checks...)

	ins = slices.Clone(ins)
	buf := make([]A, len(ins))
	return derive("combine", func() B {
		for i, in := range ins {
			buf[i] = in.peek()
		}
		return fn(buf)
	}, nodes...)
}

// All is true iff every input is true.
func All(ins ...Signal[bool]) *Computed[bool] {
	return Combine(ins, func(vs []bool) bool {
		for _, v := range vs {
			if !v {
				return false
			}
		}
		return true
	})
}

// Any is true iff at least one input is true.
func Any(ins ...Signal[bool]) *Computed[bool] {
	return Combine(ins, func(vs []bool) bool {
		for _, v := range vs {
			if v {
				return true
			}
		}
		return false
	})
}

// CountTrue counts the true inputs.
func CountTrue(ins ...Signal[bool]) *Computed[int] {
	return Combine(ins, func(vs []bool) int {
		n := 0
		for _, v := range vs {
			if v {
				n++
			}
		}
		return n
	})
}

func Not(in Signal[bool]) *Computed[bool] {
	return Map(in, func(v bool) bool { return !v })
}

// erased lets the graph checks accept signals of mixed element types.
type erased interface {
	Graph() *Graph
}

func mustInputs(ins ...erased) {
	for _, in := range ins {
		if in == nil {
			panic(ErrNilSignal)
		}
	}
	mustSameGraph(ins...)
}

func mustSameGraph(ins ...erased) {
	if len(ins) == 0 {
		return
	}
	g := ins[0].Graph()
	for _, in := range ins[1:] {
		if in.Graph() != g {
			panic(ErrForeignGraph)
		}
	}
}

func graphOf(nodes ...*node) *Graph {
	return nodes[0].g
}
