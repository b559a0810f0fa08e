package edge

import (
	"slices"
	"sync/atomic"

	"github.com/zeusync/collider/internal/core/events/bus"
)

// Stream is a subscribable view of one or both kinds of a Detector.
type Stream struct {
	d     *Detector
	kinds []Kind
}

// Subscription is returned by Stream.Subscribe. Cancel is idempotent and
// stops delivery immediately without affecting other subscribers.
type Subscription struct {
	active atomic.Bool
	subs   []bus.Subscription
}

func (s *Subscription) Active() bool { return s != nil && s.active.Load() }

func (s *Subscription) Cancel() {
	if s == nil || !s.active.CompareAndSwap(true, false) {
		return
	}
	for _, sub := range s.subs {
		_ = sub.Cancel()
	}
}

// Subscribe delivers every later transition of the stream's kinds to fn, in
// the goroutine that committed the change. An Enter subscriber that joins
// while the signal is true first receives the Enter that started the
// current true period.
func (st *Stream) Subscribe(fn func(Event)) *Subscription {
	d := st.d
	s := &Subscription{}
	s.active.Store(true)
	if d.closed.Load() {
		s.active.Store(false)
		return s
	}

	d.mu.Lock()
	// transitions up to floor are already reflected in the catch-up below
	floor := d.seq
	handler := func(e bus.Event) error {
		ev, ok := e.(Event)
		if !ok || ev.Seq <= floor || !s.active.Load() {
			return nil
		}
		fn(ev)
		return nil
	}
	for _, k := range st.kinds {
		sub, err := d.bus.SubscribeTopic(d.topic, k.eventType(), handler)
		if err != nil {
			// topic is gone: the detector was closed concurrently
			d.mu.Unlock()
			s.Cancel()
			return s
		}
		s.subs = append(s.subs, sub)
	}
	var catchUp *Event
	if d.prev && slices.Contains(st.kinds, Enter) {
		ev := d.lastEnter
		catchUp = &ev
	}
	d.mu.Unlock()

	if catchUp != nil && s.active.Load() {
		fn(*catchUp)
	}
	return s
}
