// Detail lookup provider registration.

package profile

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
)

// Lookup fetches detailed profile data for a username.
type Lookup interface {
	// Name returns the provider identifier (e.g., "rapidapi", "instagram").
	Name() string

	// Lookup returns the detailed record, ErrNoData when the payload lacks the
	// expected data, or a transport error.
	Lookup(ctx context.Context, username string) (*Record, error)
}

// LookupConfig holds configuration for creating lookup providers.
type LookupConfig struct {
	Logger  *slog.Logger
	APIKey  string            // Provider API key, when one is required
	Host    string            // Provider host override
	Cookies map[string]string // Session cookies for providers that accept them
}

// LookupFactory builds a provider from its configuration.
type LookupFactory func(ctx context.Context, cfg *LookupConfig) (Lookup, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]LookupFactory)
)

// RegisterLookup adds a provider to the global registry.
// This should be called from each provider package's init() function.
func RegisterLookup(name string, factory LookupFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// NewLookup builds the registered provider called name.
func NewLookup(ctx context.Context, name string, cfg *LookupConfig) (Lookup, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown detail provider %q (registered: %v)", name, LookupNames())
	}
	if cfg == nil {
		cfg = &LookupConfig{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return factory(ctx, cfg)
}

// LookupNames returns the registered provider names, sorted.
func LookupNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
