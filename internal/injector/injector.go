//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package injector

import (
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/zeusync/collider/internal/core/observability/log"
	"github.com/zeusync/collider/internal/core/scene"
	"github.com/zeusync/collider/internal/simulation"
)

func InitializeApp(cfg *scene.Config, level log.Level, registerer prometheus.Registerer) (*App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,
		ProvideHub,
		simulation.New,
		wire.Struct(new(App), "*"),
	)
	return nil, nil
}
