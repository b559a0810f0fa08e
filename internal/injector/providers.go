package injector

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zeusync/collider/internal/core/observability/log"
	"github.com/zeusync/collider/internal/core/observability/metrics"
	"github.com/zeusync/collider/internal/core/watch"
	"github.com/zeusync/collider/internal/simulation"
)

// App is everything the command line needs to run and expose a scene.
type App struct {
	Logger     log.Log
	Metrics    *metrics.Collector
	Hub        *watch.Hub
	Simulation *simulation.Simulation
}

func ProvideLogger(level log.Level) log.Log {
	return log.New(level)
}

// ProvideMetrics registers the collectors on registerer. A nil registerer
// disables metrics.
func ProvideMetrics(registerer prometheus.Registerer) *metrics.Collector {
	if registerer == nil {
		return nil
	}
	return metrics.New(metrics.WithRegistry(registerer))
}

func ProvideHub(logger log.Log) *watch.Hub {
	return watch.NewHub(logger)
}
