package connector

import (
	"context"
	"fmt"
	"sync"

	"github.com/Konsultn-Engineering/enmap/dialect"
)

// Provider dials connections for one database kind.
type Provider interface {
	Connect(ctx context.Context, cfg Config) (Connection, error)
	Dialect() dialect.Dialect
	HealthCheck(ctx context.Context, conn Connection) error
}

var globalManager = &manager{
	providers: make(map[string]Provider),
}

type manager struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// Register makes a provider available under name. Built-in providers
// register themselves from init; tests register fakes.
func Register(name string, provider Provider) {
	globalManager.mu.Lock()
	defer globalManager.mu.Unlock()
	globalManager.providers[name] = provider
}

func lookupProvider(name string) (Provider, error) {
	globalManager.mu.RLock()
	provider, ok := globalManager.providers[name]
	globalManager.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("connector: provider %s not registered", name)
	}
	return provider, nil
}

// New builds a Connector for a registered provider.
func New(name string, config Config) (Connector, error) {
	provider, err := lookupProvider(name)
	if err != nil {
		return nil, err
	}
	return &standardConnector{provider: provider, config: config}, nil
}

type standardConnector struct {
	provider Provider
	config   Config
}

// Connect dials once, honoring the config's ConnectTimeout. A Retry block
// in the config turns Connect into ConnectWithRetry.
func (c *standardConnector) Connect(ctx context.Context) (Connection, error) {
	if c.config.Retry != nil {
		return c.ConnectWithRetry(ctx, *c.config.Retry)
	}
	if c.config.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.config.ConnectTimeout)
		defer cancel()
	}
	return c.provider.Connect(ctx, c.config)
}

func (c *standardConnector) ConnectWithRetry(ctx context.Context, opts RetryOptions) (Connection, error) {
	return retryConnect(ctx, opts, func(ctx context.Context) (Connection, error) {
		if c.config.ConnectTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, c.config.ConnectTimeout)
			defer cancel()
		}
		return c.provider.Connect(ctx, c.config)
	})
}
