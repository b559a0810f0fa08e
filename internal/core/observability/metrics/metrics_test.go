package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/collider/internal/core/events/bus"
	"github.com/zeusync/collider/internal/core/events/edge"
	"github.com/zeusync/collider/internal/core/signal"
)

func TestGraphPasses(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(WithRegistry(reg))
	g := signal.NewGraph(signal.WithObserver(c))

	src := signal.NewSource(g, 1)
	doubled := signal.Map(src, func(v int) int { return v * 2 })
	doubled.Subscribe(func(int) {})

	src.Set(2)
	src.Set(3)

	require.Equal(t, 2.0, testutil.ToFloat64(c.passes))
	require.Equal(t, 2.0, testutil.ToFloat64(c.recomputed))
	require.Equal(t, 4.0, testutil.ToFloat64(c.changed))
	require.Equal(t, 2.0, testutil.ToFloat64(c.notified))
	require.Equal(t, 1, testutil.CollectAndCount(c.passDuration))
}

func TestEdgeEventsThroughBus(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(WithRegistry(reg), WithNamespace("test"))
	b := bus.New()
	b.AddObserver(c)

	g := signal.NewGraph()
	src := signal.NewSource(g, false)
	d := edge.NewDetector(src, edge.WithBus(b))
	d.OnChange().Subscribe(func(edge.Event) {})

	src.Set(true)
	src.Set(false)
	src.Set(true)

	require.Equal(t, 2.0, testutil.ToFloat64(c.published.WithLabelValues(edge.TypeEnter)))
	require.Equal(t, 1.0, testutil.ToFloat64(c.published.WithLabelValues(edge.TypeExit)))
	require.Equal(t, 3.0, testutil.ToFloat64(c.delivered))

	c.OnDelivered("t", "x", 0, errors.New("boom"), 0)
	require.Equal(t, 1.0, testutil.ToFloat64(c.errors))
}

func TestEntityStates(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(WithRegistry(reg), WithConstLabels(prometheus.Labels{"scene": "demo"}))
	pending := 3
	c.EntityStates(func() (int, int, int) { return pending, 2, 1 })

	families, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, f := range families {
		if f.GetName() != "collider_registry_entities" {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "state" {
					values[l.GetValue()] = m.GetGauge().GetValue()
				}
			}
		}
	}
	require.Equal(t, map[string]float64{"pending": 3, "ready": 2, "failed": 1}, values)
}
