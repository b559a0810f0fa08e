package simulation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zeusync/collider/internal/core/collision"
	"github.com/zeusync/collider/internal/core/events/bus"
	"github.com/zeusync/collider/internal/core/events/edge"
	"github.com/zeusync/collider/internal/core/models"
	"github.com/zeusync/collider/internal/core/observability/log"
	"github.com/zeusync/collider/internal/core/observability/metrics"
	"github.com/zeusync/collider/internal/core/scene"
	"github.com/zeusync/collider/internal/core/signal"
	"github.com/zeusync/collider/internal/core/systems/physics"
	"github.com/zeusync/collider/internal/core/watch"
	"github.com/zeusync/collider/pkg/concurrent"
)

// Simulation runs a scene: it places objects in memory, registers entities
// against them, wires every rule to an edge detector and replays the script.
type Simulation struct {
	cfg    *scene.Config
	logger log.Log

	graph    *signal.Graph
	memory   *scene.Memory
	registry *models.Registry
	bus      bus.EventBus
	hub      *watch.Hub

	rules []*rule

	mu     sync.Mutex
	events []RuleEvent

	started atomic.Bool
	closed  atomic.Bool
}

// RuleEvent records one transition of a rule with the boxes involved, as
// committed when the event was handled.
type RuleEvent struct {
	Rule      string
	Kind      edge.Kind
	Seq       uint64
	Subject   physics.Box3
	Colliding []string
	Contacts  []collision.Contact
}

type rule struct {
	cfg      scene.RuleConfig
	subject  *models.Entity
	set      *collision.Set
	detector *edge.Detector
	subs     []*edge.Subscription
	watch    *signal.Subscription
}

// New validates cfg and builds the graph, scene and registry. collector and
// hub may be nil.
func New(cfg *scene.Config, logger log.Log, collector *metrics.Collector, hub *watch.Hub) (*Simulation, error) {
	if cfg == nil {
		return nil, ErrNoConfig
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if logger == nil {
		logger = log.NewNop()
	}
	logger = logger.With(log.String("component", "simulation"))

	graphOpts := []signal.GraphOption{signal.WithLogger(logger)}
	b := bus.New()
	if collector != nil {
		graphOpts = append(graphOpts, signal.WithObserver(collector))
		b.AddObserver(collector)
	}
	g := signal.NewGraph(graphOpts...)

	memory := scene.NewMemory(g,
		scene.WithDelay(cfg.Resolve.Delay),
		scene.WithWait(cfg.Resolve.Timeout, cfg.Resolve.Poll),
		scene.WithMemoryLogger(logger),
	)
	for _, o := range cfg.Objects {
		pos, _ := physics.FromSlice(o.Position)
		if err := memory.Add(o.Name, pos); err != nil {
			return nil, err
		}
	}

	registry := models.NewRegistry(g, memory, models.WithLogger(logger))
	if collector != nil {
		collector.EntityStates(func() (int, int, int) {
			st := registry.Stats()
			return st.Pending, st.Ready, st.Failed
		})
	}

	s := &Simulation{
		cfg:      cfg,
		logger:   logger,
		graph:    g,
		memory:   memory,
		registry: registry,
		bus:      b,
		hub:      hub,
	}

	s.logger.Info("Simulation created",
		log.Int("objects", len(cfg.Objects)),
		log.Int("entities", len(cfg.Entities)),
		log.Int("rules", len(cfg.Rules)))

	return s, nil
}

func (s *Simulation) Graph() *signal.Graph { return s.graph }

func (s *Simulation) Memory() *scene.Memory { return s.memory }

func (s *Simulation) Registry() *models.Registry { return s.registry }

// Run registers the entities, wires the rules, waits for resolution and
// replays the script. Entities that fail to resolve are logged and never
// collide; they do not fail the run. A Simulation runs once: later calls
// return ErrAlreadyRunning.
func (s *Simulation) Run(ctx context.Context) error {
	if s.closed.Load() {
		return ErrSimulationClosed
	}
	if !s.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}

	s.logger.Info("Starting simulation")

	entities := make([]*models.Entity, 0, len(s.cfg.Entities))
	for _, ec := range s.cfg.Entities {
		size, _ := physics.FromSlice(ec.Size)
		e, err := s.registry.Register(ctx, ec.ID, ec.Object, size)
		if err != nil {
			return err
		}
		entities = append(entities, e)
	}

	for _, rc := range s.cfg.Rules {
		if err := s.wireRule(rc); err != nil {
			return err
		}
	}
	s.watchRules()

	err := concurrent.ForEach(ctx, entities, 0, func(ctx context.Context, e *models.Entity) error {
		if err := e.Wait(ctx); err != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		return nil
	})
	if err != nil {
		return err
	}
	// resolution callbacks may still be running in resolver goroutines
	s.graph.Sync()
	st := s.registry.Stats()
	s.logger.Info("Entities resolved", log.Int("ready", st.Ready), log.Int("failed", st.Failed))

	for i, step := range s.cfg.Script {
		if err := s.applyStep(i, step); err != nil {
			return err
		}
		s.graph.Sync()
		if step.Delay > 0 {
			if err := sleep(ctx, step.Delay); err != nil {
				return err
			}
		}
	}

	s.logger.Info("Simulation finished", log.Int("events", len(s.Events())))
	return nil
}

func (s *Simulation) wireRule(rc scene.RuleConfig) error {
	subject, err := s.registry.Lookup(rc.Subject)
	if err != nil {
		return err
	}
	others := make([]collision.Collidable, 0, len(rc.Others))
	for _, id := range rc.Others {
		o, err := s.registry.Lookup(id)
		if err != nil {
			return err
		}
		others = append(others, o)
	}

	r := &rule{cfg: rc, subject: subject, set: collision.NewSet(subject, others...)}
	r.detector = edge.NewDetector(r.set.Any(),
		edge.WithBus(s.bus),
		edge.WithLabel(rc.Name),
		edge.WithLogger(s.logger),
	)
	r.subs = append(r.subs,
		r.detector.OnEnter().Subscribe(func(ev edge.Event) { s.onEdge(r, ev, rc.Enter) }),
		r.detector.OnExit().Subscribe(func(ev edge.Event) { s.onEdge(r, ev, rc.Exit) }),
	)
	s.rules = append(s.rules, r)
	return nil
}

func (s *Simulation) onEdge(r *rule, ev edge.Event, state scene.VisualState) {
	contacts := r.set.Contacts()
	subject, _ := r.subject.Snapshot()
	ids := make([]string, 0, len(contacts))
	for _, c := range contacts {
		ids = append(ids, c.ID)
	}

	s.mu.Lock()
	s.events = append(s.events, RuleEvent{
		Rule:      r.cfg.Name,
		Kind:      ev.Kind,
		Seq:       ev.Seq,
		Subject:   subject,
		Colliding: ids,
		Contacts:  contacts,
	})
	s.mu.Unlock()

	s.logger.Info("Collision "+ev.Kind.String(),
		log.String("rule", r.cfg.Name),
		log.String("subject", r.subject.ID()),
		log.String("subject_min", subject.Min().String()),
		log.String("subject_max", subject.Max().String()),
		log.Strings("colliding", ids),
		log.Uint64("seq", ev.Seq))

	if len(state) == 0 {
		return
	}
	if err := r.subject.ApplyVisualState(state); err != nil {
		s.logger.Warn("Visual state not applied", log.String("rule", r.cfg.Name), log.Error(err))
	}
}

func (s *Simulation) watchRules() {
	if len(s.cfg.Watch.Signals) == 0 {
		return
	}
	sinks := []watch.Sink{watch.NewLogSink(s.logger)}
	if s.hub != nil {
		sinks = append(sinks, s.hub)
	}
	for _, name := range s.cfg.Watch.Signals {
		for _, r := range s.rules {
			if r.cfg.Name == name {
				r.watch = watch.Watch(name, r.set.Any(), sinks...)
			}
		}
	}
}

// applyStep moves every object of the step in one batch.
func (s *Simulation) applyStep(i int, step scene.StepConfig) error {
	var err error
	s.graph.Batch(func(tx *signal.Tx) {
		for _, m := range step.Moves {
			to, _ := physics.FromSlice(m.To)
			if err = s.memory.MoveTx(tx, m.Object, to); err != nil {
				return
			}
		}
	})
	if err != nil {
		return fmt.Errorf("script[%d]: %w", i, err)
	}
	s.logger.Debug("Script step applied", log.Int("step", i), log.Int("moves", len(step.Moves)))
	return nil
}

// Events returns the rule transitions seen so far.
func (s *Simulation) Events() []RuleEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RuleEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Close detaches every rule. It is safe to call more than once.
func (s *Simulation) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	for _, r := range s.rules {
		r.watch.Cancel()
		for _, sub := range r.subs {
			sub.Cancel()
		}
		r.detector.Close()
	}
	s.logger.Info("Simulation closed")
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
