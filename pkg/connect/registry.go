package connect

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/tenderflow/pkg/config"
	"github.com/ajitpratap0/tenderflow/pkg/tendererrors"
)

// Params is what a Dialer receives.
type Params struct {
	Store   config.StoreConfig
	Connect config.ConnectConfig
	Logger  *zap.Logger
}

// Dialer opens one backend. Failures to reach the backend must be reported
// with tendererrors.ErrorTypeConnection so Dial retries them.
type Dialer func(ctx context.Context, p Params) (*Handle, error)

var (
	mu      sync.RWMutex
	dialers = make(map[string]Dialer)
	aliases = map[string]string{
		"mock":       "memory",
		"mongo":      "mongodb",
		"postgresql": "postgres",
		"pgx":        "postgres",
		"mariadb":    "mysql",
		"sqlite3":    "sqlite",
	}
)

// Register adds a dialer under name. Registering a name twice is an error.
func Register(name string, d Dialer) error {
	mu.Lock()
	defer mu.Unlock()

	name = strings.ToLower(name)
	if _, exists := dialers[name]; exists {
		return tendererrors.Newf(tendererrors.ErrorTypeConfig, "driver %s already registered", name)
	}
	dialers[name] = d
	return nil
}

// Lookup returns the dialer for name, resolving aliases.
func Lookup(name string) (Dialer, bool) {
	mu.RLock()
	defer mu.RUnlock()

	name = strings.ToLower(strings.TrimSpace(name))
	if canonical, ok := aliases[name]; ok {
		name = canonical
	}
	d, ok := dialers[name]
	return d, ok
}

// Drivers returns the registered driver names, sorted.
func Drivers() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(dialers))
	for name := range dialers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	for name, d := range map[string]Dialer{
		"memory":   dialMemory,
		"mongodb":  dialMongo,
		"postgres": dialPostgres,
		"mysql":    dialMySQL,
		"sqlite":   dialSQLite,
	} {
		if err := Register(name, d); err != nil {
			panic(err)
		}
	}
}
