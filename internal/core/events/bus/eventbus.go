package bus

import (
	"errors"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var ErrUnknownTopic = errors.New("bus: unknown topic")

// simpleEvent is a basic Event for publishers without their own type.
type simpleEvent struct {
	typeStr string
	source  string
	ts      time.Time
	data    any
}

func (e simpleEvent) Type() string         { return e.typeStr }
func (e simpleEvent) Source() string       { return e.source }
func (e simpleEvent) Timestamp() time.Time { return e.ts }
func (e simpleEvent) Data() any            { return e.data }

// NewEvent creates a simple Event.
func NewEvent(typ, src string, data any) Event {
	return simpleEvent{typeStr: typ, source: src, ts: time.Now(), data: data}
}

type subscription struct {
	id        string
	topic     string
	eventType string
	handler   EventHandler
	active    atomic.Bool
	cancel    func()
}

func (s *subscription) ID() string        { return s.id }
func (s *subscription) Topic() string     { return s.topic }
func (s *subscription) EventType() string { return s.eventType }
func (s *subscription) IsActive() bool    { return s.active.Load() }
func (s *subscription) Cancel() error {
	if s.active.CompareAndSwap(true, false) && s.cancel != nil {
		s.cancel()
	}
	return nil
}

// inMemoryBus keeps handlers per topic and event type in subscription order.
type inMemoryBus struct {
	mu        sync.RWMutex
	handlers  map[string]map[string][]*subscription
	metrics   EventBusMetrics
	observers map[EventBusObserver]struct{}
}

// New creates an EventBus with the default topic "".
func New() EventBus {
	b := &inMemoryBus{
		handlers:  make(map[string]map[string][]*subscription),
		observers: make(map[EventBusObserver]struct{}),
	}
	b.handlers[""] = make(map[string][]*subscription)
	return b
}

func (b *inMemoryBus) Publish(event Event) error {
	return b.deliver("", event)
}

func (b *inMemoryBus) PublishToTopic(topic string, event Event) error {
	return b.deliver(topic, event)
}

func (b *inMemoryBus) Subscribe(eventType string, handler EventHandler) (Subscription, error) {
	return b.SubscribeTopic("", eventType, handler)
}

func (b *inMemoryBus) SubscribeTopic(topic, eventType string, handler EventHandler) (Subscription, error) {
	if handler == nil {
		return nil, errors.New("bus: nil handler")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	types, ok := b.handlers[topic]
	if !ok {
		return nil, ErrUnknownTopic
	}

	s := &subscription{id: uuid.NewString(), topic: topic, eventType: eventType, handler: handler}
	s.active.Store(true)
	s.cancel = func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if types, ok := b.handlers[topic]; ok {
			types[eventType] = slices.DeleteFunc(types[eventType], func(x *subscription) bool { return x == s })
		}
	}
	types[eventType] = append(types[eventType], s)
	return s, nil
}

func (b *inMemoryBus) Unsubscribe(sub Subscription) error {
	if sub == nil {
		return nil
	}
	return sub.Cancel()
}

func (b *inMemoryBus) CreateTopic(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.handlers[name]; !exists {
		b.handlers[name] = make(map[string][]*subscription)
	}
	return nil
}

func (b *inMemoryBus) DeleteTopic(name string) error {
	b.mu.Lock()
	types, ok := b.handlers[name]
	if !ok {
		b.mu.Unlock()
		return ErrUnknownTopic
	}
	delete(b.handlers, name)
	b.mu.Unlock()

	for _, subs := range types {
		for _, s := range subs {
			s.active.Store(false)
		}
	}
	return nil
}

func (b *inMemoryBus) AddObserver(obs EventBusObserver) {
	b.mu.Lock()
	b.observers[obs] = struct{}{}
	b.mu.Unlock()
}

func (b *inMemoryBus) RemoveObserver(obs EventBusObserver) {
	b.mu.Lock()
	delete(b.observers, obs)
	b.mu.Unlock()
}

func (b *inMemoryBus) GetMetrics() EventBusMetrics {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.metrics
}

func (b *inMemoryBus) GetTopics() []TopicInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]TopicInfo, 0, len(b.handlers))
	for name, types := range b.handlers {
		info := TopicInfo{Name: name, EventTypes: len(types)}
		for _, subs := range types {
			info.Subs += len(subs)
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (b *inMemoryBus) deliver(topic string, event Event) error {
	start := time.Now()
	etype := event.Type()

	b.mu.RLock()
	types, ok := b.handlers[topic]
	if !ok {
		b.mu.RUnlock()
		return ErrUnknownTopic
	}
	subs := slices.Clone(types[etype])
	observers := make([]EventBusObserver, 0, len(b.observers))
	for obs := range b.observers {
		observers = append(observers, obs)
	}
	b.mu.RUnlock()

	for _, obs := range observers {
		obs.OnPublish(topic, etype, event)
	}

	var all error
	delivered := 0
	for _, s := range subs {
		if !s.active.Load() {
			continue
		}
		delivered++
		if err := s.handler(event); err != nil {
			all = errors.Join(all, err)
		}
	}

	if len(observers) > 0 {
		dur := time.Since(start)
		for _, obs := range observers {
			obs.OnDelivered(topic, etype, delivered, all, dur)
		}
		b.mu.Lock()
		b.metrics.Published++
		b.metrics.DeliveredHandlers += uint64(delivered)
		if all != nil {
			b.metrics.Errors++
		}
		b.metrics.Topics = uint64(len(b.handlers))
		var active uint64
		for _, ts := range b.handlers {
			for _, ss := range ts {
				active += uint64(len(ss))
			}
		}
		b.metrics.SubscribersActive = active
		b.mu.Unlock()
	}
	return all
}
