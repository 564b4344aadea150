package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/fluxgatelabs/coilscope/configs"
	"github.com/fluxgatelabs/coilscope/internal/bus"
	"github.com/fluxgatelabs/coilscope/internal/engine"
	"github.com/fluxgatelabs/coilscope/internal/front"
	"github.com/fluxgatelabs/coilscope/internal/source"
	"github.com/fluxgatelabs/coilscope/internal/telemetry"
	"github.com/fluxgatelabs/coilscope/pkg/logging"
)

// runner is one supervised component
type runner struct {
	name string
	run  func(ctx context.Context) error
}

// App wires the bus, engine, sources and front ends together and runs
// them until the context is cancelled or a component fails
type App struct {
	ctx     *Context
	config  *configs.Config
	logger  logging.Logger
	b       *bus.Bus
	runners []runner
}

// NewApp builds the application from the resolved configuration
func NewApp(ctx *Context) (*App, error) {
	logger := setupLogging(ctx)
	ctx.Logger = logger

	config, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}
	ctx.Config = config

	app := &App{
		ctx:    ctx,
		config: config,
		logger: logger,
		b:      bus.New(config.Bus.QueueSize),
	}

	var metrics *telemetry.Metrics
	if config.Metrics.Enabled {
		metrics = telemetry.New()
		app.addRunner("metrics", func(runCtx context.Context) error {
			return metrics.Serve(runCtx, config.Metrics.Addr, logger)
		})
	}

	eng, err := engine.New(config.Engine, app.b, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create calculation engine: %w", err)
	}
	app.addRunner("engine", eng.Run)

	factory := source.NewFactory()
	for i, srcCfg := range config.Sources {
		src, err := factory.Create(srcCfg, app.b, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create source %d: %w", i, err)
		}
		app.addRunner("source/"+src.Name(), src.Run)
	}

	if config.WebSocket.Enabled {
		ws := front.NewWebSocketServer(config.WebSocket, app.b, logger)
		app.addRunner("websocket", ws.Run)
	}

	if config.MQTT.Enabled {
		mq, err := front.NewMQTTPublisher(config.MQTT, app.b, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create mqtt publisher: %w", err)
		}
		app.addRunner("mqtt", mq.Run)
	}

	logger.Debug("application assembled", logging.Fields{
		"components": len(app.runners),
		"sources":    len(config.Sources),
		"websocket":  config.WebSocket.Enabled,
		"mqtt":       config.MQTT.Enabled,
		"metrics":    config.Metrics.Enabled,
	})

	return app, nil
}

func (a *App) addRunner(name string, run func(ctx context.Context) error) {
	a.runners = append(a.runners, runner{name: name, run: run})
}

// Run starts every component and blocks until ctx is cancelled or a
// component returns an error; the first failure tears the rest down.
func (a *App) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.logger.Info("coilscope starting", logging.Fields{
		"components": len(a.runners),
	})

	var wg sync.WaitGroup
	errCh := make(chan error, len(a.runners))

	for _, r := range a.runners {
		wg.Add(1)
		go func(r runner) {
			defer wg.Done()
			if err := r.run(runCtx); err != nil {
				errCh <- fmt.Errorf("%s: %w", r.name, err)
				cancel()
			}
		}(r)
	}

	wg.Wait()
	a.b.Close()
	a.logger.Info("coilscope stopped")

	select {
	case err := <-errCh:
		return err
	default:
		return nil
	}
}
