package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/zeusync/collider/internal/core/observability/log"
	"github.com/zeusync/collider/internal/core/scene"
	"github.com/zeusync/collider/internal/core/watch"
	"github.com/zeusync/collider/internal/injector"
	"github.com/zeusync/collider/internal/simulation"
)

type runOptions struct {
	scene     string
	watchAddr string
	logLevel  string
	hold      bool
}

func runCmd() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a scene and print its collision events",
		Long: `Run loads the scene file, resolves every entity, wires the rules and
replays the script. With --watch-addr the watched signals are streamed over
a websocket at /watch and metrics are served at /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScene(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.scene, "scene", "s", "scene.yaml", "Scene file (.yaml or .json)")
	cmd.Flags().StringVar(&opts.watchAddr, "watch-addr", "", "Listen address for /watch and /metrics (overrides the scene)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "Log level (overrides the scene)")
	cmd.Flags().BoolVar(&opts.hold, "hold", false, "Keep serving after the script ends until interrupted")

	return cmd
}

func runScene(ctx context.Context, opts runOptions, out io.Writer) error {
	cfg, err := scene.LoadFile(opts.scene)
	if err != nil {
		return err
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.watchAddr != "" {
		cfg.Watch.Addr = opts.watchAddr
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())

	app, err := injector.InitializeApp(cfg, level, registry)
	if err != nil {
		return err
	}
	defer func() {
		_ = app.Simulation.Close()
		_ = app.Hub.Close()
	}()

	if cfg.Watch.Addr != "" {
		stop, err := serve(cfg.Watch.Addr, app.Hub, registry, app.Logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	runErr := app.Simulation.Run(ctx)
	printEvents(out, app.Simulation.Events())
	if runErr != nil {
		return runErr
	}

	if opts.hold && cfg.Watch.Addr != "" {
		app.Logger.Info("Holding until interrupted", log.String("addr", cfg.Watch.Addr))
		<-ctx.Done()
	}
	return nil
}

// serve starts the watch and metrics endpoints and returns a func that shuts
// them down.
func serve(addr string, hub *watch.Hub, registry *prometheus.Registry, logger log.Log) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("watch listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/watch", hub)
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Watch server failed", log.Error(err))
		}
	}()
	logger.Info("Watch server listening", log.String("addr", ln.Addr().String()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.Warn("Watch server shutdown", log.Error(err))
		}
	}, nil
}

func printEvents(out io.Writer, events []simulation.RuleEvent) {
	for _, e := range events {
		colliding := strings.Join(e.Colliding, ",")
		if colliding == "" {
			colliding = "-"
		}
		fmt.Fprintf(out, "%-4d %-16s %-5s %s\n", e.Seq, e.Rule, e.Kind, colliding)
	}
}
