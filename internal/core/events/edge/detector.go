package edge

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/zeusync/collider/internal/core/events/bus"
	"github.com/zeusync/collider/internal/core/observability/log"
	"github.com/zeusync/collider/internal/core/signal"
)

// Detector turns a boolean signal into Enter and Exit events. The previous
// value starts false, so the first true observed is always an Enter.
type Detector struct {
	topic  string
	label  string
	bus    bus.EventBus
	logger log.Log
	now    func() time.Time

	// mu orders transitions against new subscriptions.
	mu        sync.Mutex
	prev      bool
	seq       uint64
	lastEnter Event

	source signal.Signal[bool]
	sub    *signal.Subscription
	closed atomic.Bool
}

type Option func(*Detector)

// WithLabel sets the Origin of emitted events. Defaults to the topic id.
func WithLabel(label string) Option {
	return func(d *Detector) { d.label = label }
}

// WithBus publishes through a shared bus instead of a private one.
func WithBus(b bus.EventBus) Option {
	return func(d *Detector) {
		if b != nil {
			d.bus = b
		}
	}
}

func WithLogger(l log.Log) Option {
	return func(d *Detector) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) {
		if now != nil {
			d.now = now
		}
	}
}

// NewDetector starts watching source. A source that is already true counts
// as the first transition: it is recorded as an Enter that later Enter
// subscribers receive on subscription.
func NewDetector(source signal.Signal[bool], opts ...Option) *Detector {
	if source == nil {
		panic(signal.ErrNilSignal)
	}
	d := &Detector{
		topic:  uuid.NewString(),
		logger: log.NewNop(),
		now:    time.Now,
		source: source,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.bus == nil {
		d.bus = bus.New()
	}
	if d.label == "" {
		d.label = d.topic
	}
	_ = d.bus.CreateTopic(d.topic)

	d.sub = source.Subscribe(d.observe)
	d.observe(source.Get())
	return d
}

// OnEnter returns the Enter stream of a new detector on src.
func OnEnter(src signal.Signal[bool], opts ...Option) *Stream {
	return NewDetector(src, opts...).OnEnter()
}

// OnExit returns the Exit stream of a new detector on src.
func OnExit(src signal.Signal[bool], opts ...Option) *Stream {
	return NewDetector(src, opts...).OnExit()
}

func (d *Detector) OnEnter() *Stream { return &Stream{d: d, kinds: []Kind{Enter}} }

func (d *Detector) OnExit() *Stream { return &Stream{d: d, kinds: []Kind{Exit}} }

// OnChange delivers both kinds in transition order.
func (d *Detector) OnChange() *Stream { return &Stream{d: d, kinds: []Kind{Enter, Exit}} }

func (d *Detector) Label() string { return d.label }

// Topic is the bus topic the detector publishes into.
func (d *Detector) Topic() string { return d.topic }

// Active reports the last observed value.
func (d *Detector) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.prev
}

// Transitions returns the number of events emitted so far.
func (d *Detector) Transitions() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seq
}

// Close detaches from the source and cancels every subscription.
func (d *Detector) Close() {
	if !d.closed.CompareAndSwap(false, true) {
		return
	}
	d.sub.Cancel()
	_ = d.bus.DeleteTopic(d.topic)
}

func (d *Detector) observe(v bool) {
	if d.closed.Load() {
		return
	}

	d.mu.Lock()
	if v == d.prev {
		d.mu.Unlock()
		return
	}
	d.prev = v
	d.seq++
	ev := Event{Kind: Exit, Seq: d.seq, At: d.now(), Origin: d.label}
	if v {
		ev.Kind = Enter
		d.lastEnter = ev
	}
	d.mu.Unlock()

	d.logger.Debug("collision edge",
		log.String("origin", ev.Origin),
		log.String("kind", ev.Kind.String()),
		log.Uint64("seq", ev.Seq),
	)
	if err := d.bus.PublishToTopic(d.topic, ev); err != nil {
		d.logger.Warn("edge delivery failed", log.String("origin", ev.Origin), log.Error(err))
	}
}
