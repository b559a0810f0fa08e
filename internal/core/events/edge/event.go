package edge

import (
	"time"

	"github.com/zeusync/collider/internal/core/events/bus"
)

// Kind is the direction of a transition.
type Kind uint8

const (
	Enter Kind = iota + 1
	Exit
)

// Bus event types published by a Detector.
const (
	TypeEnter = "edge.enter"
	TypeExit  = "edge.exit"
)

func (k Kind) String() string {
	switch k {
	case Enter:
		return "enter"
	case Exit:
		return "exit"
	default:
		return "unknown"
	}
}

func (k Kind) eventType() string {
	if k == Enter {
		return TypeEnter
	}
	return TypeExit
}

// Event is one transition of the watched signal. Seq increases by one per
// transition of a detector.
type Event struct {
	Kind   Kind
	Seq    uint64
	At     time.Time
	Origin string
}

func (e Event) Type() string         { return e.Kind.eventType() }
func (e Event) Source() string       { return e.Origin }
func (e Event) Timestamp() time.Time { return e.At }
func (e Event) Data() any            { return e.Kind }

var _ bus.Event = Event{}
