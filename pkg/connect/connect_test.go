package connect

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ajitpratap0/tenderflow/pkg/config"
	"github.com/ajitpratap0/tenderflow/pkg/store"
	"github.com/ajitpratap0/tenderflow/pkg/tendererrors"
)

func fastConnect() config.ConnectConfig {
	cfg := config.Default().Connect
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 2 * time.Millisecond
	return cfg
}

func TestDial_UnsupportedBackend(t *testing.T) {
	calls := 0
	require.NoError(t, Register("counting-unused", func(context.Context, Params) (*Handle, error) {
		calls++
		return nil, nil
	}))

	_, err := Dial(context.Background(), config.StoreConfig{Driver: "cassandra"}, fastConnect(), zaptest.NewLogger(t))
	require.Error(t, err)
	assert.True(t, tendererrors.IsType(err, tendererrors.ErrorTypeUnsupportedBackend))
	assert.Zero(t, calls)
}

func TestDial_RetriesThenConnectionFailure(t *testing.T) {
	attempts := 0
	require.NoError(t, Register("flaky-down", func(context.Context, Params) (*Handle, error) {
		attempts++
		return nil, tendererrors.New(tendererrors.ErrorTypeConnection, "connection refused")
	}))

	cfg := fastConnect()
	cfg.MaxAttempts = 3
	_, err := Dial(context.Background(), config.StoreConfig{Driver: "flaky-down"}, cfg, zaptest.NewLogger(t))

	require.Error(t, err)
	assert.True(t, tendererrors.IsType(err, tendererrors.ErrorTypeConnection))
	assert.Equal(t, 3, attempts)
}

func TestDial_RecoversAfterTransientFailure(t *testing.T) {
	attempts := 0
	require.NoError(t, Register("flaky-up", func(context.Context, Params) (*Handle, error) {
		attempts++
		if attempts < 2 {
			return nil, tendererrors.New(tendererrors.ErrorTypeConnection, "connection reset")
		}
		return &Handle{Adapter: store.NewMemoryStore()}, nil
	}))

	h, err := Dial(context.Background(), config.StoreConfig{Driver: "flaky-up"}, fastConnect(), zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, "flaky-up", h.Driver)
	assert.NoError(t, h.Close())
}

func TestDial_ConfigErrorNotRetried(t *testing.T) {
	attempts := 0
	require.NoError(t, Register("misconfigured", func(context.Context, Params) (*Handle, error) {
		attempts++
		return nil, tendererrors.New(tendererrors.ErrorTypeConfig, "bad dsn")
	}))

	_, err := Dial(context.Background(), config.StoreConfig{Driver: "misconfigured"}, fastConnect(), nil)
	assert.True(t, tendererrors.IsType(err, tendererrors.ErrorTypeConfig))
	assert.Equal(t, 1, attempts)
}

func TestDial_MemoryWithSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"tender_id":"T1"},{"tender_id":"T2"}]`), 0o600))

	h, err := Dial(context.Background(), config.StoreConfig{Driver: "mock", SeedFile: path}, fastConnect(), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer h.Close()

	n, err := h.Adapter.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestDial_MemoryMissingSeed(t *testing.T) {
	_, err := Dial(context.Background(), config.StoreConfig{Driver: "memory", SeedFile: "/nonexistent/seed.json"}, fastConnect(), nil)
	assert.True(t, tendererrors.IsType(err, tendererrors.ErrorTypeIO))
}

func TestDial_SQLite(t *testing.T) {
	storeCfg := config.StoreConfig{
		Driver: "sqlite",
		URI:    filepath.Join(t.TempDir(), "tenders.db"),
		Table:  "tenders",
	}
	h, err := Dial(context.Background(), storeCfg, fastConnect(), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer h.Close()

	s, ok := h.Adapter.(*store.SQLStore)
	require.True(t, ok)
	require.NoError(t, s.EnsureSchema(context.Background()))
	assert.Contains(t, store.Capabilities(h.Adapter), store.CapabilityAggregate)
}

func TestDial_PostgresBadURI(t *testing.T) {
	_, err := Dial(context.Background(), config.StoreConfig{Driver: "postgres", URI: "postgres://localhost:notaport/tenders", Table: "tenders"}, fastConnect(), nil)
	assert.True(t, tendererrors.IsType(err, tendererrors.ErrorTypeConfig))
}

func TestRegister_Duplicate(t *testing.T) {
	err := Register("memory", dialMemory)
	assert.True(t, tendererrors.IsType(err, tendererrors.ErrorTypeConfig))
	assert.Subset(t, Drivers(), []string{"memory", "mongodb", "mysql", "postgres", "sqlite"})
}

func TestHandle_CloseJoinsErrors(t *testing.T) {
	var order []string
	h := &Handle{closers: []func() error{
		func() error { order = append(order, "pool"); return errors.New("pool") },
		func() error { order = append(order, "db"); return nil },
	}}
	err := h.Close()
	assert.EqualError(t, err, "pool")
	assert.Equal(t, []string{"db", "pool"}, order)
	assert.NoError(t, h.Close())
}
