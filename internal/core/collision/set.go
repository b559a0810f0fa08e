package collision

import (
	"github.com/zeusync/collider/internal/core/signal"
	"github.com/zeusync/collider/internal/core/systems/physics"
)

// Pair is one subject/other test of a Set.
type Pair struct {
	Other     Collidable
	Colliding signal.Signal[bool]
}

// Set checks one subject against many others. Duplicates in others are kept
// and only double count in Count.
type Set struct {
	subject Collidable
	pairs   []Pair
	anyOf   signal.Signal[bool]
	count   signal.Signal[int]
}

func NewSet(subject Collidable, others ...Collidable) *Set {
	s := &Set{subject: subject, pairs: make([]Pair, 0, len(others))}
	tests := make([]signal.Signal[bool], 0, len(others))
	for _, o := range others {
		c := Collides(subject, o)
		s.pairs = append(s.pairs, Pair{Other: o, Colliding: c})
		tests = append(tests, c)
	}

	if len(tests) == 0 {
		g := subject.Box().Graph()
		s.anyOf = signal.Constant(g, false)
		s.count = signal.Constant(g, 0)
		return s
	}
	s.anyOf = signal.Any(tests...)
	s.count = signal.CountTrue(tests...)
	return s
}

func (s *Set) Subject() Collidable { return s.subject }

// Any is true iff at least one pair collides.
func (s *Set) Any() signal.Signal[bool] { return s.anyOf }

// Count is the number of colliding pairs.
func (s *Set) Count() signal.Signal[int] { return s.count }

// Pairs returns the per-pair tests in the order others were given.
func (s *Set) Pairs() []Pair {
	out := make([]Pair, len(s.pairs))
	copy(out, s.pairs)
	return out
}

// Contact is one colliding other and its box.
type Contact struct {
	ID  string
	Box physics.Box3
}

// Colliding lists the ids of others currently colliding, in input order.
func (s *Set) Colliding() []string {
	var ids []string
	for _, c := range s.Contacts() {
		ids = append(ids, c.ID)
	}
	return ids
}

// Contacts lists the colliding others with their boxes. Everything is read
// from one committed pass, so the list never mixes two states of the scene.
func (s *Set) Contacts() []Contact {
	var out []Contact
	s.subject.Box().Graph().Read(func(r *signal.Reader) {
		for _, p := range s.pairs {
			if signal.Peek(r, p.Colliding) {
				out = append(out, Contact{ID: p.Other.ID(), Box: p.Other.Box().peek(r)})
			}
		}
	})
	return out
}
