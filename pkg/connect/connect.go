// Package connect acquires store adapters from configuration.
//
// Drivers are looked up in a registry. A driver with no registered dialer is
// rejected immediately with ErrorTypeUnsupportedBackend; a backend that
// cannot be reached is retried with exponential backoff and finally reported
// with ErrorTypeConnection.
package connect

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/ajitpratap0/tenderflow/pkg/config"
	"github.com/ajitpratap0/tenderflow/pkg/metrics"
	"github.com/ajitpratap0/tenderflow/pkg/store"
	"github.com/ajitpratap0/tenderflow/pkg/tendererrors"
)

// Handle owns an adapter and the resources behind it.
type Handle struct {
	Adapter store.Adapter
	Driver  string
	closers []func() error
}

// Close releases the backend resources in reverse acquisition order.
func (h *Handle) Close() error {
	var errs []error
	for i := len(h.closers) - 1; i >= 0; i-- {
		if err := h.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	h.closers = nil
	return errors.Join(errs...)
}

// Dial opens the backend described by storeCfg.
func Dial(ctx context.Context, storeCfg config.StoreConfig, connectCfg config.ConnectConfig, logger *zap.Logger) (*Handle, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	dialer, ok := Lookup(storeCfg.Driver)
	if !ok {
		return nil, tendererrors.Newf(tendererrors.ErrorTypeUnsupportedBackend, "unsupported backend %q", storeCfg.Driver).
			WithDetail("available", Drivers())
	}

	params := Params{Store: storeCfg, Connect: connectCfg, Logger: logger}
	policy := PolicyFromConfig(connectCfg)

	var handle *Handle
	err := policy.Execute(ctx, func(attempt int) error {
		h, err := dialer(ctx, params)
		if err != nil {
			metrics.ConnectAttempts.WithLabelValues(storeCfg.Driver, "failure").Inc()
			logger.Warn("Backend connection attempt failed",
				zap.String("driver", storeCfg.Driver),
				zap.Int("attempt", attempt),
				zap.Error(err))
			return err
		}
		metrics.ConnectAttempts.WithLabelValues(storeCfg.Driver, "success").Inc()
		handle = h
		return nil
	}, tendererrors.IsRetryable)
	if err != nil {
		if tendererrors.IsRetryable(err) || ctx.Err() != nil {
			return nil, tendererrors.Wrap(err, tendererrors.ErrorTypeConnection, "failed to connect to backend").
				WithDetail("driver", storeCfg.Driver).
				WithDetail("attempts", policy.MaxAttempts)
		}
		return nil, err
	}

	handle.Driver = storeCfg.Driver
	logger.Info("Connected to backend",
		zap.String("driver", storeCfg.Driver),
		zap.String("adapter", handle.Adapter.Name()),
		zap.Strings("capabilities", store.Capabilities(handle.Adapter)))
	return handle, nil
}

// pingContext bounds a liveness probe by the configured timeout.
func pingContext(ctx context.Context, cfg config.ConnectConfig) (context.Context, context.CancelFunc) {
	if cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, cfg.Timeout)
}
