package collision

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zeusync/collider/internal/core/signal"
	"github.com/zeusync/collider/internal/core/systems/physics"
)

type testBody struct {
	*Body
	pos  *signal.Source[physics.Vec3]
	size *signal.Source[physics.Vec3]
}

func newTestBody(t *testing.T, g *signal.Graph, id string, pos, size physics.Vec3) testBody {
	t.Helper()
	p := signal.NewSource(g, pos)
	s := signal.NewSource(g, size)
	box, err := NewBox(p, s)
	require.NoError(t, err)
	return testBody{Body: NewBody(id, box), pos: p, size: s}
}

var small = physics.V3(0.1, 0.1, 0.1)

func TestOverlapsReactive(t *testing.T) {
	g := signal.NewGraph()
	ca := signal.NewSource(g, 0.0)
	cb := signal.NewSource(g, 3.0)
	ha := signal.NewSource(g, 1.0)
	hb := signal.NewSource(g, 2.0)

	ov, err := Overlaps(ca, cb, ha, hb)
	require.NoError(t, err)
	require.True(t, ov.Get(), "touching counts as overlap")

	cb.Set(3.0000001)
	require.False(t, ov.Get())

	ha.Set(1.5)
	require.True(t, ov.Get(), "half extents are animatable")

	ha.Set(-10)
	require.False(t, ov.Get(), "negative half extent never reports overlap")

	swapped, err := Overlaps(cb, ca, hb, signal.Constant(g, 1.5))
	require.NoError(t, err)
	ha.Set(1.5)
	require.Equal(t, ov.Get(), swapped.Get())
}

func TestOverlapsRejectsNegativeHalfExtent(t *testing.T) {
	g := signal.NewGraph()
	c := signal.Constant(g, 0.0)

	_, err := Overlaps(c, c, signal.Constant(g, -0.5), signal.Constant(g, 1.0))
	require.ErrorIs(t, err, ErrNegativeHalfExtent)

	_, err = Overlaps(c, nil, c, c)
	require.ErrorIs(t, err, ErrNilBox)
}

func TestNewBoxValidation(t *testing.T) {
	g := signal.NewGraph()
	pos := signal.NewSource(g, physics.V3(0, 0, 0))

	_, err := NewBox(pos, signal.Constant(g, physics.V3(1, -1, 1)))
	require.ErrorIs(t, err, ErrNegativeHalfExtent)
	require.ErrorIs(t, err, ErrInvalidSize)

	_, err = NewBox(pos, signal.Constant(signal.NewGraph(), small))
	require.ErrorIs(t, err, signal.ErrForeignGraph)

	_, err = NewPendingBox(pos, signal.Constant(g, small), nil)
	require.ErrorIs(t, err, ErrNilBox)
}

func TestCollidesScenario(t *testing.T) {
	g := signal.NewGraph()
	a := newTestBody(t, g, "a", physics.V3(0, 0, 0), small)
	b := newTestBody(t, g, "b", physics.V3(0.1, 0, 0), small)

	hit := Collides(a, b)
	require.True(t, hit.Get(), "distance 0.1 equals the half extent sum")

	b.pos.Set(physics.V3(0.2, 0, 0))
	require.False(t, hit.Get())

	b.pos.Set(physics.V3(0.05, 0.05, -0.05))
	require.True(t, hit.Get())

	a.size.Set(physics.V3(0.1, 0.1, 0))
	b.size.Set(physics.V3(0.1, 0.1, 0))
	require.False(t, hit.Get(), "flat boxes at different z are separated")
}

func TestCollidesTruthTable(t *testing.T) {
	// unit boxes: offset 0 overlaps on an axis, offset 2 separates on it
	offset := func(overlap bool) float64 {
		if overlap {
			return 0
		}
		return 2
	}
	for mask := 0; mask < 8; mask++ {
		ox, oy, oz := mask&1 != 0, mask&2 != 0, mask&4 != 0
		t.Run(fmt.Sprintf("x=%v y=%v z=%v", ox, oy, oz), func(t *testing.T) {
			g := signal.NewGraph()
			one := physics.V3(1, 1, 1)
			a := newTestBody(t, g, "a", physics.V3(0, 0, 0), one)
			b := newTestBody(t, g, "b", physics.V3(offset(ox), offset(oy), offset(oz)), one)

			axes := AxisTests(a, b)
			require.Equal(t, ox, axes[0].Get())
			require.Equal(t, oy, axes[1].Get())
			require.Equal(t, oz, axes[2].Get())
			require.Equal(t, ox && oy && oz, Collides(a, b).Get())
			require.Equal(t, Collides(a, b).Get(), Collides(b, a).Get())
		})
	}
}

func TestCollidesSelf(t *testing.T) {
	g := signal.NewGraph()
	a := newTestBody(t, g, "a", physics.V3(5, 5, 5), small)
	require.True(t, Collides(a, a).Get(), "self pairs are not excluded")
}

func TestPendingBoxNeverCollides(t *testing.T) {
	g := signal.NewGraph()
	ready := signal.NewSource(g, false)
	pos := signal.NewSource(g, physics.V3(0, 0, 0))
	box, err := NewPendingBox(pos, signal.Constant(g, small), ready)
	require.NoError(t, err)
	pending := NewBody("pending", box)
	other := newTestBody(t, g, "other", physics.V3(0, 0, 0), small)

	hit := Collides(pending, other)
	require.False(t, hit.Get(), "placeholder position must not produce a positive")

	_, ok := box.Snapshot()
	require.False(t, ok, "a pending box has no trustworthy position")

	ready.Set(true)
	require.True(t, hit.Get())
	snap, ok := box.Snapshot()
	require.True(t, ok)
	require.Equal(t, physics.Box3{Position: physics.V3(0, 0, 0), Size: small}, snap)
}

func TestContactsAreReadFromOnePass(t *testing.T) {
	g := signal.NewGraph()
	subject := newTestBody(t, g, "subject", physics.V3(5, 0, 0), small)
	left := newTestBody(t, g, "left", physics.V3(0, 0, 0), small)
	right := newTestBody(t, g, "right", physics.V3(0.05, 0, 0), small)
	s := NewSet(subject, left, right)

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			x := 5.0
			if i%2 == 0 {
				x = 0.02
			}
			subject.pos.Set(physics.V3(x, 0, 0))
		}
	}()

	for i := 0; i < 2000; i++ {
		ids := s.Colliding()
		require.True(t, len(ids) == 0 || len(ids) == 2, "mixed pass: %v", ids)
	}
	close(stop)
	<-done

	subject.pos.Set(physics.V3(0.02, 0, 0))
	require.Equal(t, []Contact{
		{ID: "left", Box: physics.Box3{Position: physics.V3(0, 0, 0), Size: small}},
		{ID: "right", Box: physics.Box3{Position: physics.V3(0.05, 0, 0), Size: small}},
	}, s.Contacts())
}

func TestCollisionSet(t *testing.T) {
	build := func(t *testing.T, colliding int) (*Set, testBody) {
		g := signal.NewGraph()
		subject := newTestBody(t, g, "subject", physics.V3(0, 0, 0), small)
		others := make([]Collidable, 0, 5)
		for i := 0; i < 5; i++ {
			x := 10.0 + float64(i)
			if i < colliding {
				x = 0.05
			}
			others = append(others, newTestBody(t, g, fmt.Sprintf("o%d", i), physics.V3(x, 0, 0), small))
		}
		return NewSet(subject, others...), subject
	}

	t.Run("empty", func(t *testing.T) {
		g := signal.NewGraph()
		subject := newTestBody(t, g, "subject", physics.V3(0, 0, 0), small)
		s := NewSet(subject)
		require.False(t, s.Any().Get())
		require.Zero(t, s.Count().Get())
		require.False(t, CollidesWithAny(subject).Get())
		require.Empty(t, s.Pairs())
	})

	t.Run("single equals pairwise", func(t *testing.T) {
		g := signal.NewGraph()
		subject := newTestBody(t, g, "subject", physics.V3(0, 0, 0), small)
		other := newTestBody(t, g, "other", physics.V3(1, 0, 0), small)
		anyOf := CollidesWithAny(subject, other)
		pair := Collides(subject, other)
		for _, x := range []float64{1, 0.1, 0.05, 0.11, 0} {
			other.pos.Set(physics.V3(x, 0, 0))
			require.Equal(t, pair.Get(), anyOf.Get(), "x=%g", x)
		}
	})

	for _, n := range []int{0, 1, 3} {
		t.Run(fmt.Sprintf("%d of 5 colliding", n), func(t *testing.T) {
			s, _ := build(t, n)
			require.Equal(t, n > 0, s.Any().Get())
			require.Equal(t, n, s.Count().Get())
			require.Len(t, s.Colliding(), n)
			require.Len(t, s.Pairs(), 5)
		})
	}

	t.Run("tracks movement", func(t *testing.T) {
		s, subject := build(t, 1)
		require.Equal(t, []string{"o0"}, s.Colliding())

		subject.pos.Set(physics.V3(11.05, 0, 0))
		require.Equal(t, []string{"o1"}, s.Colliding())
		require.Equal(t, 1, s.Count().Get())

		subject.pos.Set(physics.V3(50, 0, 0))
		require.Empty(t, s.Colliding())
		require.False(t, s.Any().Get())
	})

	t.Run("duplicates are harmless", func(t *testing.T) {
		g := signal.NewGraph()
		subject := newTestBody(t, g, "subject", physics.V3(0, 0, 0), small)
		other := newTestBody(t, g, "other", physics.V3(0, 0, 0), small)
		s := NewSet(subject, other, other)
		require.True(t, s.Any().Get())
		require.Equal(t, 2, s.Count().Get())
	})
}
