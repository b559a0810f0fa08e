package bus

import "time"

// EventBus is an in-process pub/sub bus used to fan collision edge events out
// to their subscribers.
//
// Key characteristics:
// - Type-based fan-out: handlers subscribe by Event.Type() string.
// - Topics: every edge detector publishes into its own topic, so subscribers
//   of one detector never see another's events.
// - Synchronous delivery: Publish calls handlers in the caller goroutine, in
//   subscription order.
// - Error aggregation: handler errors are joined and returned from Publish.
// - Optional observability: observers see every publish and delivery.
//
// All methods are safe for concurrent use.
type EventBus interface {
	// Publish delivers the event to the subscribers of event.Type() in the
	// default topic.
	Publish(event Event) error
	// Subscribe registers a handler for an event type in the default topic.
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
	// Unsubscribe cancels the given Subscription. Nil is a no-op.
	Unsubscribe(Subscription) error

	// CreateTopic declares a topic. Repeat declarations are idempotent.
	CreateTopic(name string) error
	// DeleteTopic cancels every subscription of the topic and forgets it.
	DeleteTopic(name string) error
	// SubscribeTopic registers a handler for eventType within a topic.
	SubscribeTopic(topic, eventType string, handler EventHandler) (Subscription, error)
	// PublishToTopic publishes to a specific topic.
	PublishToTopic(topic string, event Event) error

	// AddObserver registers an observer to receive delivery callbacks.
	AddObserver(obs EventBusObserver)
	// RemoveObserver unregisters a previously added observer.
	RemoveObserver(obs EventBusObserver)
	// GetMetrics returns a snapshot of the counters collected while at least
	// one observer was registered.
	GetMetrics() EventBusMetrics
	// GetTopics returns a snapshot of the known topics.
	GetTopics() []TopicInfo
}

// Event is an immutable message transported by the EventBus.
type Event interface {
	Type() string
	Source() string
	Timestamp() time.Time
	Data() any
}

type (
	// EventHandler is invoked per delivered event. Returned errors are joined
	// into the Publish result.
	EventHandler func(event Event) error
)

// Subscription is a registered handler. Cancel is idempotent and stops
// delivery before the next handler call, including within a Publish that
// is already running.
type Subscription interface {
	ID() string
	Topic() string
	EventType() string
	IsActive() bool
	Cancel() error
}

// EventBusObserver is notified about deliveries. Observers should return
// quickly.
type EventBusObserver interface {
	OnPublish(topic, eventType string, event Event)
	OnDelivered(topic, eventType string, handlers int, err error, duration time.Duration)
}

// EventBusMetrics counts activity while observers are registered.
type EventBusMetrics struct {
	Published         uint64
	DeliveredHandlers uint64
	Errors            uint64
	SubscribersActive uint64
	Topics            uint64
}

// TopicInfo is a snapshot about a topic.
type TopicInfo struct {
	Name       string
	EventTypes int
	Subs       int
}
