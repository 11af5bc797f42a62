package connector

import (
	"fmt"
	"time"
)

// Config describes one database connection.
type Config struct {
	Host           string            `json:"host" yaml:"host"`
	Port           int               `json:"port" yaml:"port"`
	Database       string            `json:"database" yaml:"database"`
	Username       string            `json:"username" yaml:"username"`
	Password       string            `json:"password" yaml:"password"`
	SSLMode        string            `json:"ssl_mode" yaml:"ssl_mode"`
	Params         map[string]string `json:"params" yaml:"params"`
	Pool           PoolConfig        `json:"pool" yaml:"pool"`
	ConnectTimeout time.Duration     `json:"connect_timeout" yaml:"connect_timeout"`
	Retry          *RetryOptions     `json:"retry,omitempty" yaml:"retry,omitempty"`
}

// PoolConfig defines connection pool settings.
type PoolConfig struct {
	MaxOpen     int           `json:"max_open" yaml:"max_open"`
	MaxIdle     int           `json:"max_idle" yaml:"max_idle"`
	MaxLifetime time.Duration `json:"max_lifetime" yaml:"max_lifetime"`
	MaxIdleTime time.Duration `json:"max_idle_time" yaml:"max_idle_time"`
	// StmtCacheSize bounds the prepared-statement cache of database/sql
	// backed providers. Zero means the default; pgx manages its own.
	StmtCacheSize int `json:"stmt_cache_size" yaml:"stmt_cache_size"`
}

// withDefaults fills unset pool knobs.
func (pc PoolConfig) withDefaults() PoolConfig {
	if pc.MaxOpen <= 0 {
		pc.MaxOpen = 10
	}
	if pc.MaxIdle < 0 {
		pc.MaxIdle = 5
	}
	if pc.MaxLifetime == 0 {
		pc.MaxLifetime = time.Hour
	}
	if pc.MaxIdleTime == 0 {
		pc.MaxIdleTime = 30 * time.Minute
	}
	return pc
}

// RetryOptions defines connection retry behavior: MaxRetries attempts
// with exponential backoff from BaseDelay, capped at MaxDelay.
type RetryOptions struct {
	MaxRetries int           `json:"max_retries" yaml:"max_retries"`
	BaseDelay  time.Duration `json:"base_delay" yaml:"base_delay"`
	MaxDelay   time.Duration `json:"max_delay" yaml:"max_delay"`
	Backoff    float64       `json:"backoff" yaml:"backoff"`
}

// ClusterConfig defines a primary-replica database cluster.
type ClusterConfig struct {
	Primary      Config   `json:"primary" yaml:"primary"`
	Replicas     []Config `json:"replicas" yaml:"replicas"`
	ReadStrategy string   `json:"read_strategy" yaml:"read_strategy"`
}

var readStrategies = map[string]bool{
	"":            true, // defaults to primary
	"primary":     true,
	"random":      true,
	"round_robin": true,
}

// Validate checks the cluster configuration.
func (cc *ClusterConfig) Validate() error {
	if cc.Primary.Host == "" && cc.Primary.Database == "" {
		return fmt.Errorf("connector: cluster primary is required")
	}
	if !readStrategies[cc.ReadStrategy] {
		return fmt.Errorf("connector: invalid read strategy: %s", cc.ReadStrategy)
	}
	return nil
}
