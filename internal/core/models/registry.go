package models

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/zeusync/collider/internal/core/observability/log"
	"github.com/zeusync/collider/internal/core/scene"
	"github.com/zeusync/collider/internal/core/signal"
	"github.com/zeusync/collider/internal/core/systems/physics"
	"github.com/zeusync/collider/pkg/concurrent"
)

const defaultShards = 16

// Registry maps ids to entities. Entities resolve their scene object in the
// background; registration itself never blocks on the scene.
type Registry struct {
	g      *signal.Graph
	finder scene.Finder
	logger log.Log

	shards []*shard
}

type shard struct {
	mu       sync.RWMutex
	entities map[string]*Entity
}

type RegistryOption func(*Registry)

func WithLogger(l log.Log) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithShards sets the number of lock shards. Values below one are ignored.
func WithShards(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.shards = make([]*shard, n)
		}
	}
}

func NewRegistry(g *signal.Graph, finder scene.Finder, opts ...RegistryOption) *Registry {
	r := &Registry{
		g:      g,
		finder: finder,
		logger: log.NewNop(),
		shards: make([]*shard, defaultShards),
	}
	for _, opt := range opts {
		opt(r)
	}
	for i := range r.shards {
		r.shards[i] = &shard{entities: make(map[string]*Entity)}
	}
	return r
}

func (r *Registry) Graph() *signal.Graph { return r.g }

func (r *Registry) shardFor(id string) *shard {
	return r.shards[xxhash.Sum64String(id)%uint64(len(r.shards))]
}

// Register adds a pending entity for the named scene object and starts
// resolving it. ctx bounds the lookup, not the entity's lifetime.
func (r *Registry) Register(ctx context.Context, id, object string, size physics.Vec3) (*Entity, error) {
	if err := r.validate(id, size); err != nil {
		return nil, err
	}

	s := r.shardFor(id)
	s.mu.Lock()
	if _, exists := s.entities[id]; exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	e, err := newPendingEntity(r.g, id, object, size)
	if err != nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("entity %s: %w", id, err)
	}
	s.entities[id] = e
	s.mu.Unlock()

	r.logger.Debug("entity registered", log.String("id", id), log.String("object", object))
	go r.resolve(ctx, e)
	return e, nil
}

// RegisterSignal adds an entity that is ready at once, positioned by a
// signal the caller owns.
func (r *Registry) RegisterSignal(id string, position signal.Signal[physics.Vec3], size physics.Vec3) (*Entity, error) {
	if err := r.validate(id, size); err != nil {
		return nil, err
	}
	if position == nil {
		return nil, fmt.Errorf("entity %s: %w", id, signal.ErrNilSignal)
	}
	if position.Graph() != r.g {
		return nil, fmt.Errorf("entity %s: %w", id, signal.ErrForeignGraph)
	}

	s := r.shardFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.entities[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateID, id)
	}
	e, err := newResolvedEntity(id, position, size)
	if err != nil {
		return nil, fmt.Errorf("entity %s: %w", id, err)
	}
	s.entities[id] = e
	return e, nil
}

func (r *Registry) validate(id string, size physics.Vec3) error {
	if id == "" {
		return ErrInvalidID
	}
	if err := physics.ValidateSize(size); err != nil {
		return fmt.Errorf("entity %s: %w", id, err)
	}
	return nil
}

func (r *Registry) resolve(ctx context.Context, e *Entity) {
	h, err := r.finder.FindObjectByName(ctx, e.object)
	if err == nil && h == nil {
		err = scene.ErrNotFound
	}
	if err == nil && h.Position().Graph() != r.g {
		err = signal.ErrForeignGraph
	}
	if err != nil {
		r.fail(e, err)
		return
	}

	e.setHandle(h)
	var bindErr error
	r.g.Batch(func(tx *signal.Tx) {
		if bindErr = e.deferred.BindTx(tx, h.Position()); bindErr == nil {
			e.readySrc.SetTx(tx, true)
		}
	})
	if bindErr != nil {
		r.fail(e, bindErr)
		return
	}
	r.logger.Debug("entity resolved", log.String("id", e.id), log.String("object", e.object))
}

func (r *Registry) fail(e *Entity, err error) {
	err = fmt.Errorf("entity %s: resolve %q: %w", e.id, e.object, err)
	r.logger.Warn("entity resolution failed", log.String("id", e.id), log.Error(err))
	e.finish(StateFailed, err)
}

// Unregister forgets id. Signals already composed from the entity keep
// working.
func (r *Registry) Unregister(id string) error {
	s := r.shardFor(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entities[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.entities, id)
	return nil
}

func (r *Registry) Lookup(id string) (*Entity, error) {
	s := r.shardFor(id)
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entities[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, nil
}

func (r *Registry) Len() int {
	n := 0
	for _, s := range r.shards {
		s.mu.RLock()
		n += len(s.entities)
		s.mu.RUnlock()
	}
	return n
}

// IDs returns every registered id, sorted.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, r.Len())
	for _, s := range r.shards {
		s.mu.RLock()
		for id := range s.entities {
			ids = append(ids, id)
		}
		s.mu.RUnlock()
	}
	slices.Sort(ids)
	return ids
}

// Stats counts entities per state.
type Stats struct {
	Pending int
	Ready   int
	Failed  int
}

func (r *Registry) Stats() Stats {
	var st Stats
	for _, s := range r.shards {
		s.mu.RLock()
		for _, e := range s.entities {
			switch e.State() {
			case StatePending:
				st.Pending++
			case StateReady:
				st.Ready++
			case StateFailed:
				st.Failed++
			}
		}
		s.mu.RUnlock()
	}
	return st
}

// AwaitAll waits for the given entities, or every registered one when ids
// is empty, and returns the first failure.
func (r *Registry) AwaitAll(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		ids = r.IDs()
	}
	entities := make([]*Entity, 0, len(ids))
	for _, id := range ids {
		e, err := r.Lookup(id)
		if err != nil {
			return err
		}
		entities = append(entities, e)
	}
	return concurrent.ForEach(ctx, entities, 0, func(ctx context.Context, e *Entity) error {
		return e.Wait(ctx)
	})
}
