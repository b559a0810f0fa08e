// Package watch reports signal values to diagnostic sinks. Nothing in the
// collision core depends on it.
package watch

import (
	"sync/atomic"
	"time"

	"github.com/zeusync/collider/internal/core/observability/log"
	"github.com/zeusync/collider/internal/core/signal"
)

// Sample is one observed value of a watched signal.
type Sample struct {
	Label string    `json:"label"`
	Value any       `json:"value"`
	Seq   uint64    `json:"seq"`
	At    time.Time `json:"at"`
}

// Sink receives samples in the goroutine that committed the change and must
// not block.
type Sink interface {
	Observe(s Sample)
}

type SinkFunc func(Sample)

func (f SinkFunc) Observe(s Sample) { f(s) }

// Watch reports the current value of sig and then every change, until the
// returned subscription is cancelled.
func Watch[T comparable](label string, sig signal.Signal[T], sinks ...Sink) *signal.Subscription {
	var seq atomic.Uint64
	emit := func(v T) {
		s := Sample{Label: label, Value: v, Seq: seq.Add(1), At: time.Now()}
		for _, sink := range sinks {
			sink.Observe(s)
		}
	}
	sub := sig.Subscribe(emit)
	emit(sig.Get())
	return sub
}

// LogSink writes samples to a logger at info level.
type LogSink struct {
	logger log.Log
}

func NewLogSink(l log.Log) *LogSink {
	if l == nil {
		l = log.NewNop()
	}
	return &LogSink{logger: l.With(log.String("component", "watch"))}
}

func (s *LogSink) Observe(sample Sample) {
	s.logger.Info("signal",
		log.String("label", sample.Label),
		log.Any("value", sample.Value),
		log.Uint64("seq", sample.Seq),
	)
}
