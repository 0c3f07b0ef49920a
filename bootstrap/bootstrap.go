// Package bootstrap wires the runtime of a process that embeds generated controllers:
// the channel registry, its Prometheus metrics and the debug HTTP server.
// Configuration comes from a handful of environment variables.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	apihttp "github.com/artpar/ctrlgen/adapters/http"
	"github.com/artpar/ctrlgen/adapters/metrics"
	"github.com/artpar/ctrlgen/config"
	"github.com/artpar/ctrlgen/pkg/pubsub"
)

// Environment variable names for runtime configuration.
const (
	EnvAddr      = "CTRLGEN_DEBUG_ADDR"
	EnvLogLevel  = "CTRLGEN_LOG_LEVEL"
	EnvLogFormat = "CTRLGEN_LOG_FORMAT"
)

// DefaultAddr is the debug server address when none is configured.
const DefaultAddr = "127.0.0.1:9090"

// Config configures an App. Zero fields fall back to the environment and then to
// defaults.
type Config struct {
	// Addr is the debug server address. "-" disables the server.
	Addr string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	Logging config.LoggingConfig
}

// Task is a long-running part of the process, usually a controller's Run method.
type Task func(ctx context.Context) error

type namedTask struct {
	name string
	run  Task
}

// App is a process hosting generated controllers.
type App struct {
	Logger     zerolog.Logger
	Registry   *pubsub.Registry
	Metrics    *metrics.Collector
	HTTPServer *http.Server

	gatherer *prometheus.Registry

	mu      sync.Mutex
	tasks   []namedTask
	started bool
}

// New creates the application.
func New() (*App, error) {
	return NewWithConfig(Config{})
}

// NewWithConfig creates the application with explicit configuration.
func NewWithConfig(cfg Config) (*App, error) {
	cfg = withEnv(cfg)

	logger := config.NewLogger(cfg.Logging, os.Stderr)

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewWithRegistry(promReg)

	a := &App{
		Logger:   logger,
		Metrics:  m,
		gatherer: promReg,
		Registry: pubsub.NewRegistry(
			pubsub.WithLogger(logger.With().Str("component", "pubsub").Logger()),
			pubsub.WithObserver(m),
		),
	}

	if cfg.Addr != "-" {
		h := apihttp.NewHandler(a.Registry, logger)
		a.HTTPServer = &http.Server{
			Addr:         cfg.Addr,
			Handler:      apihttp.NewRouter(h, promReg, logger),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		}
		logger.Info().Str("addr", cfg.Addr).Msg("debug server configured")
	}

	return a, nil
}

func withEnv(cfg Config) Config {
	if cfg.Addr == "" {
		cfg.Addr = os.Getenv(EnvAddr)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = os.Getenv(EnvLogLevel)
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = os.Getenv(EnvLogFormat)
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	return cfg
}

// Go registers a task to start with Run. Tasks registered after Run started are
// rejected.
func (a *App) Go(name string, run Task) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.started {
		return fmt.Errorf("register %s: app already running", name)
	}
	a.tasks = append(a.tasks, namedTask{name: name, run: run})
	return nil
}

// Run starts every task and the debug server and blocks until ctx is done or one of
// them fails. It then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	a.mu.Lock()
	a.started = true
	tasks := append([]namedTask(nil), a.tasks...)
	a.mu.Unlock()

	var ln net.Listener
	if a.HTTPServer != nil {
		var err error
		if ln, err = net.Listen("tcp", a.HTTPServer.Addr); err != nil {
			return fmt.Errorf("listen %s: %w", a.HTTPServer.Addr, err)
		}
	}

	eg, egCtx := errgroup.WithContext(ctx)
	for _, t := range tasks {
		eg.Go(func() error {
			a.Logger.Debug().Str("task", t.name).Msg("task started")
			err := t.run(egCtx)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("%s: %w", t.name, err)
			}
			return nil
		})
	}

	if ln != nil {
		eg.Go(func() error {
			a.Logger.Info().Str("addr", ln.Addr().String()).Msg("starting debug server")
			if err := a.HTTPServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("debug server: %w", err)
			}
			return nil
		})
		eg.Go(func() error {
			<-egCtx.Done()
			return a.Shutdown()
		})
	}

	err := eg.Wait()
	a.Logger.Info().Msg("shutdown complete")
	return err
}

// Shutdown stops the debug server.
func (a *App) Shutdown() error {
	if a.HTTPServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := a.HTTPServer.Shutdown(ctx); err != nil {
		a.Logger.Error().Err(err).Msg("debug server shutdown error")
		return err
	}
	return nil
}

// Gatherer returns the Prometheus registry the metrics are registered in.
func (a *App) Gatherer() prometheus.Gatherer {
	return a.gatherer
}
