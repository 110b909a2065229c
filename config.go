package profscale

import (
	"fmt"
	"time"
)

// GroupConfig configures the NATS-backed coordination group.
type GroupConfig struct {
	// GroupPath names the membership group. All controller nodes managing
	// the same cluster must join the same path.
	GroupPath string `yaml:"groupPath"`

	// BucketPrefix prefixes the KV bucket names derived from GroupPath.
	BucketPrefix string `yaml:"bucketPrefix"`

	// NodeIDPrefix is the prefix for node IDs (e.g., "node" produces
	// "node-0", "node-1").
	NodeIDPrefix string `yaml:"nodeIdPrefix"`

	// NodeIDMin is the minimum stable ID number (inclusive).
	NodeIDMin int `yaml:"nodeIdMin"`

	// NodeIDMax is the maximum stable ID number (inclusive). Determines the
	// maximum number of concurrent controller nodes.
	NodeIDMax int `yaml:"nodeIdMax"`

	// NodeIDTTL is how long a node ID claim remains valid. Renewed
	// automatically at a third of the TTL.
	NodeIDTTL time.Duration `yaml:"nodeIdTtl"`

	// PresenceInterval is how often nodes re-publish their presence entry.
	// Shorter intervals detect departures faster at the cost of traffic.
	PresenceInterval time.Duration `yaml:"presenceInterval"`

	// PresenceTTL is how long a presence entry remains valid before the
	// node is considered gone. Must be greater than PresenceInterval.
	// Recommended: 3x PresenceInterval.
	PresenceTTL time.Duration `yaml:"presenceTtl"`

	// ElectionTTL is the master lease duration. Mastership is renewed at a
	// third of this interval; a crashed master is replaced within one TTL.
	ElectionTTL time.Duration `yaml:"electionTtl"`

	// EventBufferSize is the membership event queue depth.
	EventBufferSize int `yaml:"eventBufferSize"`

	// Replicas is the replica count for the backing KV buckets.
	Replicas int `yaml:"replicas"`
}

// Config is the configuration for the Controller.
//
// All duration fields accept standard Go duration strings like "30s", "5m".
type Config struct {
	// PollInterval is the period of the reconciliation scheduler while this
	// node is master. The first scheduled pass runs one full interval after
	// mastership is gained; an immediate pass covers the gap.
	PollInterval time.Duration `yaml:"pollInterval"`

	// OperationTimeout bounds individual coordination and reconciliation
	// operations (KV reads, presence publishes, scale commands).
	OperationTimeout time.Duration `yaml:"operationTimeout"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`

	// Group configures the coordination group.
	Group GroupConfig `yaml:"group"`
}

// DefaultConfig returns a Config with sensible defaults.
//
// Returns:
//   - Config: Configuration with default values
func DefaultConfig() Config {
	return Config{
		PollInterval:     10 * time.Second,
		OperationTimeout: 10 * time.Second,
		ShutdownTimeout:  10 * time.Second,
		Group: GroupConfig{
			GroupPath:        "profscale/controller",
			BucketPrefix:     "profscale",
			NodeIDPrefix:     "node",
			NodeIDMin:        0,
			NodeIDMax:        99,
			NodeIDTTL:        30 * time.Second,
			PresenceInterval: 2 * time.Second,
			PresenceTTL:      6 * time.Second,
			ElectionTTL:      15 * time.Second,
			EventBufferSize:  64,
			Replicas:         1,
		},
	}
}

// SetDefaults fills in missing configuration values with production defaults.
//
// Parameters:
//   - cfg: Config to apply defaults to (modified in place)
func SetDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaults.PollInterval
	}
	if cfg.OperationTimeout == 0 {
		cfg.OperationTimeout = defaults.OperationTimeout
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if cfg.Group.GroupPath == "" {
		cfg.Group.GroupPath = defaults.Group.GroupPath
	}
	if cfg.Group.BucketPrefix == "" {
		cfg.Group.BucketPrefix = defaults.Group.BucketPrefix
	}
	if cfg.Group.NodeIDPrefix == "" {
		cfg.Group.NodeIDPrefix = defaults.Group.NodeIDPrefix
	}
	if cfg.Group.NodeIDMax == 0 {
		cfg.Group.NodeIDMax = defaults.Group.NodeIDMax
	}
	if cfg.Group.NodeIDTTL == 0 {
		cfg.Group.NodeIDTTL = defaults.Group.NodeIDTTL
	}
	if cfg.Group.PresenceInterval == 0 {
		cfg.Group.PresenceInterval = defaults.Group.PresenceInterval
	}
	if cfg.Group.PresenceTTL == 0 {
		cfg.Group.PresenceTTL = defaults.Group.PresenceTTL
	}
	if cfg.Group.ElectionTTL == 0 {
		cfg.Group.ElectionTTL = defaults.Group.ElectionTTL
	}
	if cfg.Group.EventBufferSize == 0 {
		cfg.Group.EventBufferSize = defaults.Group.EventBufferSize
	}
	if cfg.Group.Replicas == 0 {
		cfg.Group.Replicas = defaults.Group.Replicas
	}
}

// Validate checks configuration constraints.
//
// Hard validation rules:
//   - PollInterval > 0 (the scheduler needs a period)
//   - PresenceTTL >= 2 * PresenceInterval (allow one missed publish)
//   - NodeIDTTL >= PresenceTTL (identity must outlive presence)
//   - ElectionTTL >= 3 * PresenceInterval (renewal headroom)
//   - NodeIDMax >= NodeIDMin (non-empty ID pool)
//
// Returns:
//   - error: Validation error with explanation, nil if valid
func (cfg *Config) Validate() error {
	if cfg.PollInterval <= 0 {
		return fmt.Errorf("PollInterval must be > 0, got %v", cfg.PollInterval)
	}

	if cfg.Group.PresenceTTL < 2*cfg.Group.PresenceInterval {
		return fmt.Errorf(
			"PresenceTTL (%v) must be >= 2*PresenceInterval (%v) to allow one missed publish",
			cfg.Group.PresenceTTL, cfg.Group.PresenceInterval,
		)
	}

	if cfg.Group.NodeIDTTL < cfg.Group.PresenceTTL {
		return fmt.Errorf(
			"NodeIDTTL (%v) must be >= PresenceTTL (%v) to prevent ID expiry before presence",
			cfg.Group.NodeIDTTL, cfg.Group.PresenceTTL,
		)
	}

	if cfg.Group.ElectionTTL < 3*cfg.Group.PresenceInterval {
		return fmt.Errorf(
			"ElectionTTL (%v) must be >= 3*PresenceInterval (%v) for renewal headroom",
			cfg.Group.ElectionTTL, cfg.Group.PresenceInterval,
		)
	}

	if cfg.Group.NodeIDMax < cfg.Group.NodeIDMin {
		return fmt.Errorf(
			"NodeIDMax (%d) must be >= NodeIDMin (%d)",
			cfg.Group.NodeIDMax, cfg.Group.NodeIDMin,
		)
	}

	return nil
}

// TestConfig returns a configuration optimized for fast test execution.
//
// Test timings are 10-50x faster than production defaults to enable rapid
// iteration without sacrificing coverage. Use DefaultConfig() for
// production deployments.
//
// Returns:
//   - Config: Configuration with fast timings for tests
//
// Example:
//
//	cfg := profscale.TestConfig()
//	cfg.Group.GroupPath = "test/controller"
//	ctrl, err := profscale.NewController(cfg, deps)
func TestConfig() Config {
	cfg := DefaultConfig()

	cfg.PollInterval = 200 * time.Millisecond
	cfg.OperationTimeout = 5 * time.Second
	cfg.ShutdownTimeout = 5 * time.Second
	cfg.Group.PresenceInterval = 200 * time.Millisecond
	cfg.Group.PresenceTTL = 1 * time.Second
	cfg.Group.ElectionTTL = 1 * time.Second
	cfg.Group.NodeIDTTL = 2 * time.Second

	return cfg
}
