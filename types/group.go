package types

import "context"

// MembershipState is the per-node record a node publishes into its
// coordination group.
//
// The payload is intentionally empty: the presence of the entry signals
// membership and liveness, and the coordination service tracks node identity
// itself. The state is created on activation, republished whenever the
// node's leadership status changes, and removed on deactivation.
type MembershipState struct{}

// GroupEvent describes a membership change delivered to group listeners.
type GroupEvent int

const (
	// EventConnected is delivered when this node joins (or rejoins) the
	// group and the coordination service connection is established.
	EventConnected GroupEvent = iota

	// EventChanged is delivered when group composition or mastership
	// changes.
	EventChanged

	// EventDisconnected is delivered when the coordination service
	// connection is lost. The node must assume it is not master until a
	// later Connected/Changed event proves otherwise.
	EventDisconnected
)

// String returns the string representation of the event.
func (e GroupEvent) String() string {
	switch e {
	case EventConnected:
		return "Connected"
	case EventChanged:
		return "Changed"
	case EventDisconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

// GroupListener receives membership events from a Group.
//
// Events are delivered in the order the coordination service emits them,
// from a single dispatch goroutine: implementations never see overlapping
// calls from the same group.
type GroupListener interface {
	// OnGroupEvent is invoked for each membership event.
	OnGroupEvent(group Group, event GroupEvent)
}

// GroupListenerFunc adapts a function to the GroupListener interface.
type GroupListenerFunc func(group Group, event GroupEvent)

// OnGroupEvent calls f(group, event).
func (f GroupListenerFunc) OnGroupEvent(group Group, event GroupEvent) {
	f(group, event)
}

// Group is a handle on a named membership group within the coordination
// service. Exactly one member of the group is master at any instant.
//
// Implementations can use:
//   - NATS JetStream KV (built-in, see profscale.NewNATSGroup)
//   - External coordination services (ZooKeeper, etcd, Consul)
type Group interface {
	// Update publishes this node's membership state. Returns ErrGroupClosed
	// if the group has been torn down; callers racing a shutdown are
	// expected to swallow that error, since a later event re-synchronizes
	// state.
	Update(ctx context.Context, state MembershipState) error

	// IsMaster reports whether this node is the group master at this
	// instant.
	IsMaster() bool

	// AddListener registers a listener for membership events.
	AddListener(listener GroupListener)

	// RemoveListener removes a previously registered listener. Removing a
	// listener that was never added is a no-op.
	RemoveListener(listener GroupListener)

	// Start joins the group and begins delivering events.
	Start(ctx context.Context) error

	// Close leaves the group, removes this node's membership state and
	// stops event delivery. Close is idempotent.
	Close() error
}

// CoordinationService creates group handles. The group formation protocol,
// master designation and watch semantics are owned by the implementation.
type CoordinationService interface {
	// Join returns a handle on the named group. The handle is inert until
	// Start is called.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeout
	//   - groupPath: Group name, unique per cluster concern
	//
	// Returns:
	//   - Group: Group handle
	//   - error: Join error
	Join(ctx context.Context, groupPath string) (Group, error)
}
