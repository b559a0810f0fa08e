package bus

import (
	"strconv"
	"sync/atomic"
	"testing"
	"time"
)

func benchEvt(t string) Event {
	return NewEvent(t, "bench", nil)
}

// counting handler keeps the delivery loop from being optimised away
func makeHandler(c *int64) EventHandler {
	return func(Event) error {
		atomic.AddInt64(c, 1)
		return nil
	}
}

type nopObserver struct{}

func (nopObserver) OnPublish(string, string, Event) {}

func (nopObserver) OnDelivered(string, string, int, error, time.Duration) {}

func BenchmarkPublishManySubscribers(b *testing.B) {
	for _, subs := range []int{1, 4, 16, 64, 256} {
		b.Run("subs="+strconv.Itoa(subs), func(b *testing.B) {
			bus := New()
			var c int64
			for i := 0; i < subs; i++ {
				_, _ = bus.Subscribe("edge.enter", makeHandler(&c))
			}
			e := benchEvt("edge.enter")
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				_ = bus.Publish(e)
			}
		})
	}
}

func BenchmarkPublishManyTopics(b *testing.B) {
	for _, tcount := range []int{1, 8, 128} {
		b.Run("topics="+strconv.Itoa(tcount), func(b *testing.B) {
			bus := New()
			var c int64
			names := make([]string, tcount)
			for ti := range names {
				names[ti] = "detector-" + strconv.Itoa(ti)
				_ = bus.CreateTopic(names[ti])
				_, _ = bus.SubscribeTopic(names[ti], "edge.enter", makeHandler(&c))
				_, _ = bus.SubscribeTopic(names[ti], "edge.exit", makeHandler(&c))
			}
			enter, exit := benchEvt("edge.enter"), benchEvt("edge.exit")
			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				e := enter
				if i%2 == 1 {
					e = exit
				}
				_ = bus.PublishToTopic(names[i%tcount], e)
			}
		})
	}
}

func BenchmarkConcurrentPublishers(b *testing.B) {
	bus := New()
	var c int64
	for i := 0; i < 64; i++ {
		_, _ = bus.Subscribe("tick", makeHandler(&c))
	}
	bus.AddObserver(nopObserver{})
	e := benchEvt("tick")
	b.ReportAllocs()
	b.SetParallelism(4)
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = bus.Publish(e)
		}
	})
}
