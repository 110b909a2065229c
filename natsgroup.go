package profscale

import (
	"context"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/profscale/profscale/internal/group"
	"github.com/profscale/profscale/internal/logging"
	"github.com/profscale/profscale/internal/metrics"
)

// NewCoordinationService creates a NATS JetStream KV-backed coordination
// service.
//
// All groups created through the service share the connection and the
// timing configuration; Join supplies the group path.
//
// Parameters:
//   - conn: Established NATS connection; the service never closes it
//   - cfg: Controller configuration (the Group section is used)
//   - opts: Optional logger and metrics
//
// Returns:
//   - CoordinationService: Service creating NATS-backed groups
//
// Example:
//
//	conn, _ := nats.Connect(nats.DefaultURL)
//	svc := profscale.NewCoordinationService(conn, cfg)
//	grp, err := svc.Join(ctx, cfg.Group.GroupPath)
func NewCoordinationService(conn *nats.Conn, cfg Config, opts ...Option) CoordinationService {
	SetDefaults(&cfg)

	return group.NewService(groupConfig(conn, cfg, opts))
}

// NewNATSGroup creates a group handle on cfg.Group.GroupPath.
//
// Convenience wrapper over NewCoordinationService for the common case of a
// single group per process.
//
// Parameters:
//   - ctx: Context for the join
//   - conn: Established NATS connection
//   - cfg: Controller configuration
//   - opts: Optional logger and metrics
//
// Returns:
//   - Group: Inert group handle; call Start to join
//   - error: Configuration error
func NewNATSGroup(ctx context.Context, conn *nats.Conn, cfg Config, opts ...Option) (Group, error) {
	SetDefaults(&cfg)

	return NewCoordinationService(conn, cfg, opts...).Join(ctx, cfg.Group.GroupPath)
}

func groupConfig(conn *nats.Conn, cfg Config, opts []Option) group.Config {
	options := controllerOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	if options.logger == nil {
		options.logger = logging.NewNop()
	}
	if options.metrics == nil {
		options.metrics = metrics.NewNop()
	}

	return group.Config{
		Conn:             conn,
		GroupPath:        cfg.Group.GroupPath,
		BucketPrefix:     cfg.Group.BucketPrefix,
		NodeIDPrefix:     cfg.Group.NodeIDPrefix,
		NodeIDMin:        cfg.Group.NodeIDMin,
		NodeIDMax:        cfg.Group.NodeIDMax,
		PresenceInterval: cfg.Group.PresenceInterval,
		PresenceTTL:      cfg.Group.PresenceTTL,
		ElectionTTL:      cfg.Group.ElectionTTL,
		IDClaimTTL:       cfg.Group.NodeIDTTL,
		OperationTimeout: cfg.OperationTimeout,
		EventBufferSize:  cfg.Group.EventBufferSize,
		Replicas:         cfg.Group.Replicas,
		Storage:          jetstream.MemoryStorage,
		Logger:           options.logger,
		Metrics:          options.metrics,
	}
}
