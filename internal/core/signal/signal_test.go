package signal

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu    sync.Mutex
	stats []PassStats
}

func (o *recordingObserver) OnPass(s PassStats) {
	o.mu.Lock()
	o.stats = append(o.stats, s)
	o.mu.Unlock()
}

func TestSourceSetGet(t *testing.T) {
	g := NewGraph()
	s := NewSource(g, 1)
	require.Equal(t, 1, s.Get())

	var seen []int
	s.Subscribe(func(v int) { seen = append(seen, v) })

	s.Set(2)
	s.Set(2)
	s.Update(func(v int) int { return v + 3 })

	require.Equal(t, 5, s.Get())
	require.Equal(t, []int{2, 5}, seen, "equal writes must not notify")
}

func TestMapChainPropagates(t *testing.T) {
	g := NewGraph()
	x := NewSource(g, 1.0)
	doubled := Map(x, func(v float64) float64 { return v * 2 })
	positive := Map(doubled, func(v float64) bool { return v > 0 })

	require.Equal(t, 2.0, doubled.Get())
	require.True(t, positive.Get())

	var flips []bool
	positive.Subscribe(func(v bool) { flips = append(flips, v) })

	x.Set(-4)
	require.Equal(t, -8.0, doubled.Get())
	require.False(t, positive.Get())

	x.Set(-5)
	require.Equal(t, []bool{false}, flips, "unchanged derived value must not notify")
}

func TestDiamondIsGlitchFree(t *testing.T) {
	g := NewGraph()
	x := NewSource(g, 1)
	a := Map(x, func(v int) int { return v + 1 })
	b := Map(x, func(v int) int { return v * 2 })

	type pair struct{ a, b int }
	var calls []pair
	sum := Map2(a, b, func(av, bv int) int {
		calls = append(calls, pair{av, bv})
		return av + bv
	})
	calls = nil

	x.Set(5)
	require.Equal(t, []pair{{6, 10}}, calls, "joined node recomputes once with both new inputs")
	require.Equal(t, 16, sum.Get())
}

func TestSubscribersSeeConsistentGraph(t *testing.T) {
	g := NewGraph()
	x := NewSource(g, 0)
	a := Map(x, func(v int) int { return v })
	b := Map(x, func(v int) int { return -v })

	var mismatches int
	a.Subscribe(func(av int) {
		if b.Get() != -av {
			mismatches++
		}
	})
	for i := 1; i <= 10; i++ {
		x.Set(i)
	}
	require.Zero(t, mismatches)
}

func TestBatchCoalescesIntoOnePass(t *testing.T) {
	obs := &recordingObserver{}
	g := NewGraph(WithObserver(obs))
	a := NewSource(g, 0)
	b := NewSource(g, 0)

	var calls int
	sum := Map2(a, b, func(x, y int) int { calls++; return x + y })
	calls = 0

	var notified []int
	sum.Subscribe(func(v int) { notified = append(notified, v) })

	g.Batch(func(tx *Tx) {
		a.SetTx(tx, 1)
		b.SetTx(tx, 2)
		a.SetTx(tx, 3)
		require.Equal(t, 0, sum.Get(), "nothing staged is applied inside a batch")
	})

	require.Equal(t, 1, calls)
	require.Equal(t, []int{5}, notified)
	require.Len(t, obs.stats, 1)
	require.Equal(t, 3, obs.stats[0].Writes)
	require.Equal(t, uint64(1), g.Passes())
}

func TestBatchRevertingWriteDoesNotNotify(t *testing.T) {
	g := NewGraph()
	s := NewSource(g, 7)
	var notified int
	s.Subscribe(func(int) { notified++ })

	g.Batch(func(tx *Tx) {
		s.SetTx(tx, 8)
		s.SetTx(tx, 7)
	})
	require.Zero(t, notified)
}

func TestBatchIsLocalToItsGoroutine(t *testing.T) {
	g := NewGraph()
	x := NewSource(g, 0)
	y := NewSource(g, 0)
	doubled := Map(x, func(v int) int { return v * 2 })

	inside := make(chan struct{})
	release := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		g.Batch(func(tx *Tx) {
			y.SetTx(tx, 1)
			close(inside)
			<-release
		})
	}()
	<-inside

	x.Set(5)
	require.Equal(t, 5, x.Get(), "a batch elsewhere does not hold back Set")
	require.Equal(t, 10, doubled.Get())
	require.Equal(t, 0, y.Get())

	close(release)
	<-finished
	require.Equal(t, 1, y.Get())
}

func TestBatchOutsideItsFuncAndAcrossGraphs(t *testing.T) {
	g := NewGraph()
	s := NewSource(g, 0)
	var kept *Tx
	g.Batch(func(tx *Tx) { kept = tx })

	s.SetTx(kept, 3)
	require.Equal(t, 3, s.Get(), "a finished tx writes directly")

	other := NewSource(NewGraph(), 0)
	require.Panics(t, func() {
		g.Batch(func(tx *Tx) { other.SetTx(tx, 1) })
	})
	d := NewDeferred(NewGraph(), 0)
	g.Batch(func(tx *Tx) {
		require.ErrorIs(t, d.BindTx(tx, s), ErrForeignGraph)
	})
}

func TestReadSeesOnePass(t *testing.T) {
	g := NewGraph()
	x := NewSource(g, 0)
	neg := Map(x, func(v int) int { return -v })

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 1; ; i++ {
			select {
			case <-stop:
				return
			default:
				x.Set(i)
			}
		}
	}()
	for i := 0; i < 1000; i++ {
		g.Read(func(r *Reader) {
			require.Equal(t, Peek[int](r, x), -Peek[int](r, neg))
		})
	}
	close(stop)
	<-done

	require.Panics(t, func() {
		g.Read(func(r *Reader) { Peek[int](r, NewSource(NewGraph(), 0)) })
	})
}

func TestWriteFromCallbackRunsBeforeSetReturns(t *testing.T) {
	g := NewGraph()
	x := NewSource(g, 0)
	mirror := NewSource(g, 0)
	x.Subscribe(func(v int) { mirror.Set(v * 10) })

	x.Set(4)
	require.Equal(t, 40, mirror.Get())
}

func TestCancelIsIdempotentAndImmediate(t *testing.T) {
	g := NewGraph()
	x := NewSource(g, 0)

	var first, second int
	var secondSub *Subscription
	x.Subscribe(func(int) {
		first++
		secondSub.Cancel()
	})
	secondSub = x.Subscribe(func(int) { second++ })

	x.Set(1)
	require.Equal(t, 1, first)
	require.Zero(t, second, "cancelled inside the same delivery")

	secondSub.Cancel()
	secondSub.Cancel()
	require.False(t, secondSub.Active())
	require.Equal(t, 1, x.subscribers())

	var nilSub *Subscription
	require.NotPanics(t, nilSub.Cancel)
}

func TestDeferredBind(t *testing.T) {
	g := NewGraph()
	d := NewDeferred(g, -1)
	plusOne := Map(d, func(v int) int { return v + 1 })
	require.Equal(t, 0, plusOne.Get())
	require.False(t, d.Bound())

	src := NewSource(g, 41)
	require.NoError(t, d.Bind(src))
	require.True(t, d.Bound())
	require.Equal(t, 41, d.Get())
	require.Equal(t, 42, plusOne.Get())

	src.Set(1)
	require.Equal(t, 2, plusOne.Get())

	require.ErrorIs(t, d.Bind(src), ErrAlreadyBound)
}

func TestDeferredRejectsCycle(t *testing.T) {
	g := NewGraph()
	d := NewDeferred(g, 0)
	loop := Map(d, func(v int) int { return v + 1 })

	require.ErrorIs(t, d.Bind(loop), ErrCycle)
	require.ErrorIs(t, d.Bind(d), ErrCycle)
	require.False(t, d.Bound())
}

func TestForeignGraphAndNilInputs(t *testing.T) {
	a := NewSource(NewGraph(), 1)
	b := NewSource(NewGraph(), 2)

	require.PanicsWithValue(t, ErrForeignGraph, func() {
		Map2(a, b, func(x, y int) int { return x + y })
	})
	require.PanicsWithValue(t, ErrNilSignal, func() {
		Map[int, int](nil, func(v int) int { return v })
	})

	d := NewDeferred(a.Graph(), 0)
	require.ErrorIs(t, d.Bind(b), ErrForeignGraph)
	require.ErrorIs(t, d.Bind(nil), ErrNilSignal)
}

func TestBooleanCombinators(t *testing.T) {
	g := NewGraph()
	ins := []*Source[bool]{NewSource(g, false), NewSource(g, false), NewSource(g, false)}
	sigs := []Signal[bool]{ins[0], ins[1], ins[2]}

	all := All(sigs...)
	anyOf := Any(sigs...)
	count := CountTrue(sigs...)
	none := Not(anyOf)

	require.False(t, all.Get())
	require.False(t, anyOf.Get())
	require.True(t, none.Get())

	ins[1].Set(true)
	require.False(t, all.Get())
	require.True(t, anyOf.Get())
	require.Equal(t, 1, count.Get())

	g.Batch(func(tx *Tx) {
		ins[0].SetTx(tx, true)
		ins[2].SetTx(tx, true)
	})
	require.True(t, all.Get())
	require.Equal(t, 3, count.Get())
	require.False(t, none.Get())
}

func TestConstant(t *testing.T) {
	g := NewGraph()
	c := Constant(g, false)
	require.False(t, c.Get())
	require.PanicsWithValue(t, "signal: Combine needs at least one input, use Constant", func() {
		All()
	})
}

func TestConcurrentWritersConverge(t *testing.T) {
	g := NewGraph()
	const writers = 8
	sources := make([]Signal[int], writers)
	raw := make([]*Source[int], writers)
	for i := range raw {
		raw[i] = NewSource(g, 0)
		sources[i] = raw[i]
	}
	total := Combine(sources, func(vs []int) int {
		sum := 0
		for _, v := range vs {
			sum += v
		}
		return sum
	})

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for n := 1; n <= 100; n++ {
				raw[i].Set(n)
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, writers*100, total.Get())
}

func TestSyncWaitsForOtherRunner(t *testing.T) {
	g := NewGraph()
	x := NewSource(g, 0)
	y := NewSource(g, 0)

	entered := make(chan struct{})
	release := make(chan struct{})
	x.Subscribe(func(v int) {
		if v == 1 {
			close(entered)
			<-release
		}
	})

	go x.Set(1)
	<-entered

	// the other goroutine is the runner, so this write only gets queued
	y.Set(5)
	require.Equal(t, 0, y.Get())

	close(release)
	g.Sync()
	require.Equal(t, 5, y.Get())
	g.Sync()
}

func BenchmarkSourceSetFanOut(b *testing.B) {
	g := NewGraph()
	x := NewSource(g, 0)
	for i := 0; i < 16; i++ {
		Map(x, func(v int) bool { return v%2 == 0 })
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x.Set(i)
	}
}
