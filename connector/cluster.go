package connector

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
)

// Cluster groups a primary connection with read replicas. Writes always go
// to the primary; Read picks a replica by the configured strategy.
type Cluster struct {
	config   ClusterConfig
	primary  Connection
	replicas []Connection

	mu      sync.Mutex
	readIdx int
}

// NewCluster dials every member of the cluster through the named
// provider. Connections opened before a failure are closed.
func NewCluster(ctx context.Context, provider string, cfg ClusterConfig) (*Cluster, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	p, err := lookupProvider(provider)
	if err != nil {
		return nil, err
	}

	primary, err := p.Connect(ctx, cfg.Primary)
	if err != nil {
		return nil, fmt.Errorf("connector: connect primary: %w", err)
	}

	var replicas []Connection
	for i, replicaCfg := range cfg.Replicas {
		replica, err := p.Connect(ctx, replicaCfg)
		if err != nil {
			primary.Close()
			for _, r := range replicas {
				r.Close()
			}
			return nil, fmt.Errorf("connector: connect replica %d: %w", i, err)
		}
		replicas = append(replicas, replica)
	}

	return &Cluster{config: cfg, primary: primary, replicas: replicas}, nil
}

// NewStaticCluster wraps already-established connections, for callers that
// dial members themselves.
func NewStaticCluster(cfg ClusterConfig, primary Connection, replicas ...Connection) (*Cluster, error) {
	if !readStrategies[cfg.ReadStrategy] {
		return nil, fmt.Errorf("connector: invalid read strategy: %s", cfg.ReadStrategy)
	}
	return &Cluster{config: cfg, primary: primary, replicas: replicas}, nil
}

func (c *Cluster) Primary() Connection {
	return c.primary
}

func (c *Cluster) Replicas() []Connection {
	out := make([]Connection, len(c.replicas))
	copy(out, c.replicas)
	return out
}

// Read returns a connection for read statements. Without replicas, or
// under the primary strategy, it is the primary.
func (c *Cluster) Read() Connection {
	if len(c.replicas) == 0 {
		return c.primary
	}
	switch c.config.ReadStrategy {
	case "random":
		return c.replicas[rand.Intn(len(c.replicas))]
	case "round_robin":
		c.mu.Lock()
		idx := c.readIdx % len(c.replicas)
		c.readIdx++
		c.mu.Unlock()
		return c.replicas[idx]
	default:
		return c.primary
	}
}

// Write returns the connection for write statements: always the primary.
func (c *Cluster) Write() Connection {
	return c.primary
}

// Health checks every member and fails on the first unhealthy one.
func (c *Cluster) Health(ctx context.Context) error {
	if err := c.primary.Health(ctx); err != nil {
		return fmt.Errorf("connector: primary health: %w", err)
	}
	for i, replica := range c.replicas {
		if err := replica.Health(ctx); err != nil {
			return fmt.Errorf("connector: replica %d health: %w", i, err)
		}
	}
	return nil
}

// Stats aggregates pool statistics across every member.
func (c *Cluster) Stats() ConnectionStats {
	stats := c.primary.Stats()
	for _, replica := range c.replicas {
		rs := replica.Stats()
		stats.OpenConnections += rs.OpenConnections
		stats.InUse += rs.InUse
		stats.Idle += rs.Idle
	}
	return stats
}

// Close closes every member, returning the last error seen.
func (c *Cluster) Close() error {
	var lastErr error
	if err := c.primary.Close(); err != nil {
		lastErr = err
	}
	for _, replica := range c.replicas {
		if err := replica.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
