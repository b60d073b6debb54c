package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/tenderflow/internal/pipeline"
	"github.com/ajitpratap0/tenderflow/pkg/config"
	"github.com/ajitpratap0/tenderflow/pkg/connect"
	jsonpool "github.com/ajitpratap0/tenderflow/pkg/json"
	"github.com/ajitpratap0/tenderflow/pkg/logger"
	"github.com/ajitpratap0/tenderflow/pkg/metrics"
	"github.com/ajitpratap0/tenderflow/pkg/observability"
	"github.com/ajitpratap0/tenderflow/pkg/publish"
	"github.com/ajitpratap0/tenderflow/pkg/store"
)

const envPrefix = "TENDERFLOW_"

// app carries the state shared by every subcommand.
type app struct {
	configFile string
	logLevel   string
	driver     string
	uri        string

	cfg           *config.Config
	log           *zap.Logger
	handle        *connect.Handle
	shutdownTrace func(context.Context) error
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg := config.Default()
	if a.configFile != "" {
		if err := config.Load(a.configFile, cfg); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
	}
	if err := config.ApplyEnv(envPrefix, cfg); err != nil {
		return fmt.Errorf("failed to read environment: %w", err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.driver != "" {
		cfg.Store.Driver = a.driver
	}
	if a.uri != "" {
		cfg.Store.URI = a.uri
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	if err := logger.Init(cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.log = logger.Get()

	shutdown, err := observability.Init(cfg.Tracing, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.shutdownTrace = shutdown
	return nil
}

func (a *app) teardown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if a.handle != nil {
		if err := a.handle.Close(); err != nil {
			a.log.Warn("Failed to close backend", zap.Error(err))
		}
	}
	if a.shutdownTrace != nil {
		if err := a.shutdownTrace(ctx); err != nil {
			a.log.Warn("Failed to flush traces", zap.Error(err))
		}
	}
	if a.cfg != nil && a.cfg.Metrics.TextfilePath != "" {
		if err := metrics.WriteTextfile(a.cfg.Metrics.TextfilePath); err != nil {
			a.log.Warn("Failed to write metrics", zap.Error(err))
		}
	}
	if a.log != nil {
		_ = logger.Sync()
	}
	return nil
}

// processor dials the configured backend and wraps it.
func (a *app) processor(ctx context.Context) (*pipeline.Processor, error) {
	ctx = logger.ContextWithBackend(ctx, a.cfg.Store.Driver)
	handle, err := connect.Dial(ctx, a.cfg.Store, a.cfg.Connect, a.log)
	if err != nil {
		return nil, err
	}
	a.handle = handle

	pc, err := pipeline.ProcessorConfigFrom(a.cfg.Export)
	if err != nil {
		return nil, err
	}
	a.log.Debug("Store ready",
		zap.String("driver", handle.Driver),
		zap.Strings("capabilities", store.Capabilities(handle.Adapter)))
	return pipeline.NewProcessor(handle.Adapter, pc, a.log), nil
}

func (a *app) publisher(ctx context.Context) (*publish.S3Publisher, error) {
	return publish.New(ctx, a.cfg.Publish.S3, a.log)
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := jsonpool.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
