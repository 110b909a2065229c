package profscale

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/profscale/profscale/internal/engine"
	"github.com/profscale/profscale/internal/logging"
	"github.com/profscale/profscale/internal/metrics"
	"github.com/profscale/profscale/internal/scheduler"
	"github.com/profscale/profscale/types"
)

// Pass trigger names reported in PassResult and logs.
const (
	TriggerPoll          = "poll"
	TriggerConfiguration = "configuration"
	TriggerMastership    = "mastership"
)

// Services bundles the capabilities the controller reconciles with.
//
// All fields are required. The requirements source and change tracker are
// often the same object (both built-in stores implement both interfaces).
type Services struct {
	// Requirements hands out requirements document snapshots.
	Requirements RequirementsSource

	// Tracker invokes callbacks when the requirements document changes.
	Tracker ConfigurationChangeTracker

	// Inventory reports the live instances of each profile.
	Inventory InventoryProvider

	// Autoscalers produces per-profile autoscaler capabilities.
	Autoscalers AutoscalerFactory

	// Versions reports the cluster's default workload version.
	Versions ClusterVersionSource
}

// Controller keeps running workload instances consistent with the declared
// requirements document.
//
// Controllers form a membership group through a coordination service; the
// single master runs reconciliation, the rest stand by. The controller
// reacts to three inputs, all funneled into reconciliation passes:
//
//   - mastership changes (immediate pass on gaining mastership)
//   - requirements document changes (pass per change, while master)
//   - the poll scheduler (pass per PollInterval, while master)
//
// Passes never run while the controller is not master, and never overlap.
type Controller struct {
	cfg     Config
	logger  Logger
	metrics MetricsCollector
	hooks   Hooks

	services  Services
	engine    *engine.Engine
	scheduler *scheduler.Scheduler

	mu      sync.Mutex
	state   State
	group   Group
	untrack func()
	started bool
	closed  bool

	// passMu serializes reconciliation passes across the scheduler, the
	// configuration tracker and mastership transitions.
	passMu sync.Mutex
}

// Compile-time assertion that Controller implements GroupListener.
var _ types.GroupListener = (*Controller)(nil)

// NewController creates a controller bound to the given services.
//
// The controller is inert until Start is called with a coordination group.
//
// Parameters:
//   - cfg: Controller configuration; missing values get defaults
//   - services: Capability bindings; all fields must be non-nil
//   - opts: Optional logger, metrics and hooks
//
// Returns:
//   - *Controller: A new controller instance
//   - error: Configuration or binding validation error
//
// Example:
//
//	ctrl, err := profscale.NewController(profscale.DefaultConfig(), profscale.Services{
//	    Requirements: store,
//	    Tracker:      store,
//	    Inventory:    inventory,
//	    Autoscalers:  factory,
//	    Versions:     versions,
//	})
func NewController(cfg Config, services Services, opts ...Option) (*Controller, error) {
	SetDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	switch {
	case services.Requirements == nil:
		return nil, fmt.Errorf("requirements source is required")
	case services.Tracker == nil:
		return nil, fmt.Errorf("configuration change tracker is required")
	case services.Inventory == nil:
		return nil, fmt.Errorf("inventory provider is required")
	case services.Autoscalers == nil:
		return nil, fmt.Errorf("autoscaler factory is required")
	case services.Versions == nil:
		return nil, fmt.Errorf("cluster version source is required")
	}

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

	c := &Controller{
		cfg:      cfg,
		logger:   options.logger,
		metrics:  options.metrics,
		services: services,
		state:    StateUnknown,
	}
	if options.hooks != nil {
		c.hooks = *options.hooks
	}

	eng, err := engine.New(engine.Config{
		Requirements: services.Requirements,
		Inventory:    services.Inventory,
		Factory:      services.Autoscalers,
		Versions:     services.Versions,
		Logger:       options.logger,
		Metrics:      options.metrics,
	})
	if err != nil {
		return nil, err
	}
	c.engine = eng

	c.scheduler = scheduler.New(func() {
		c.runPass(TriggerPoll)
	}, options.logger)

	return c, nil
}

// Start attaches the controller to the group and starts the group.
//
// The controller remains in the Unknown state until the group delivers its
// first event.
//
// Parameters:
//   - ctx: Context for group startup
//   - group: Coordination group to join; the controller owns it from here
//     and closes it on Stop
//
// Returns:
//   - error: ErrControllerStarted, ErrControllerClosed, or group start error
func (c *Controller) Start(ctx context.Context, group Group) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrControllerClosed
	}
	if c.started {
		c.mu.Unlock()
		return ErrControllerStarted
	}
	c.group = group
	c.started = true
	c.mu.Unlock()

	group.AddListener(c)

	if err := group.Start(ctx); err != nil {
		group.RemoveListener(c)

		c.mu.Lock()
		c.group = nil
		c.started = false
		c.mu.Unlock()

		return fmt.Errorf("failed to start group: %w", err)
	}

	c.logger.Info("Controller started", "group", c.cfg.Group.GroupPath, "pollInterval", c.cfg.PollInterval)

	return nil
}

// Stop detaches from the group, disables the scheduler, unregisters the
// configuration trigger and closes the group. Idempotent.
//
// Returns:
//   - error: Group close error
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.started = false
	group := c.group
	c.group = nil
	c.mu.Unlock()

	c.scheduler.Disable()
	c.untrackConfiguration()

	if group == nil {
		return nil
	}

	group.RemoveListener(c)

	if err := group.Close(); err != nil {
		return fmt.Errorf("failed to close group: %w", err)
	}

	c.logger.Info("Controller stopped")

	return nil
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// IsMaster reports whether this controller currently runs reconciliation.
func (c *Controller) IsMaster() bool {
	return c.State() == StateMaster
}

// Reconcile runs one reconciliation pass out of cycle.
//
// Intended for operational tooling; the pass is subject to the same
// mastership guard as scheduled passes.
//
// Parameters:
//   - ctx: Context for the pass
//
// Returns:
//   - PassResult: Per-profile outcome summary
//   - error: Snapshot error, or nil when the pass was skipped as non-master
func (c *Controller) Reconcile(ctx context.Context) (PassResult, error) {
	c.passMu.Lock()
	defer c.passMu.Unlock()

	if c.State() != StateMaster {
		return PassResult{}, nil
	}

	return c.engine.Reconcile(ctx, TriggerMastership)
}

// OnGroupEvent handles membership events from the coordination group.
//
// Events arrive sequentially from the group's dispatch goroutine. An event
// from a group other than the bound one, or delivered after Stop, is
// counted and ignored.
func (c *Controller) OnGroupEvent(group Group, event GroupEvent) {
	c.metrics.RecordGroupEvent(event)

	c.mu.Lock()
	valid := c.started && !c.closed && c.group == group
	c.mu.Unlock()

	if !valid {
		c.metrics.RecordInvalidEvent()
		c.logger.Warn("Ignoring membership event without valid bindings", "event", event.String())

		return
	}

	c.logger.Debug("Membership event received", "event", event.String(), "master", group.IsMaster())

	switch event {
	case EventConnected, EventChanged:
		if group.IsMaster() {
			c.becomeMaster(group)
		} else {
			c.becomeStandby(group)
		}
	case EventDisconnected:
		c.becomeDisconnected()
	default:
		c.metrics.RecordInvalidEvent()
		c.logger.Warn("Ignoring unknown membership event", "event", int(event))
	}
}

// becomeMaster transitions to the Master state: republish membership, track
// configuration changes, enable the poll scheduler and run an immediate
// pass so a new master converges without waiting a full interval.
func (c *Controller) becomeMaster(group Group) {
	c.setState(StateMaster)
	c.publishMembership(group)
	c.trackConfiguration()
	c.scheduler.Enable(c.cfg.PollInterval)
	c.runPass(TriggerMastership)
}

// becomeStandby transitions to the Standby state: republish membership,
// disable the poll scheduler and stop tracking configuration changes.
func (c *Controller) becomeStandby(group Group) {
	c.setState(StateStandby)
	c.publishMembership(group)
	c.scheduler.Disable()
	c.untrackConfiguration()
}

// becomeDisconnected transitions to the Disconnected state and stops
// tracking configuration changes. The scheduler is left installed; the
// mastership guard in runPass keeps passes from running, and a later
// Connected or Changed event re-synchronizes everything.
func (c *Controller) becomeDisconnected() {
	c.setState(StateDisconnected)
	c.untrackConfiguration()
}

// publishMembership republishes this node's membership state after a
// transition. A group closed by a concurrent shutdown is expected; other
// failures are logged and the transition proceeds.
func (c *Controller) publishMembership(group Group) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.OperationTimeout)
	defer cancel()

	err := group.Update(ctx, MembershipState{})
	if err != nil && !errors.Is(err, ErrGroupClosed) {
		c.logger.Warn("Failed to publish membership state", "error", err)
	}
}

func (c *Controller) trackConfiguration() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.untrack != nil {
		return
	}

	c.untrack = c.services.Tracker.TrackConfiguration(func() {
		c.runPass(TriggerConfiguration)
	})
}

func (c *Controller) untrackConfiguration() {
	c.mu.Lock()
	untrack := c.untrack
	c.untrack = nil
	c.mu.Unlock()

	if untrack != nil {
		untrack()
	}
}

// runPass runs one reconciliation pass if this node is master.
//
// Serialized by passMu: triggers arriving during a pass wait for it, then
// re-check mastership before running their own.
func (c *Controller) runPass(trigger string) {
	c.passMu.Lock()
	defer c.passMu.Unlock()

	if c.State() != StateMaster {
		c.logger.Debug("Skipping reconciliation pass while not master", "trigger", trigger)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.OperationTimeout)
	defer cancel()

	result, err := c.engine.Reconcile(ctx, trigger)
	if err != nil {
		c.logger.Error("Reconciliation pass failed", "trigger", trigger, "error", err)
		c.fireOnError(err)

		return
	}

	c.fireOnReconcilePass(result)
}

// setState transitions the controller state, recording metrics and firing
// the state-change hook. No-op when the state is unchanged.
func (c *Controller) setState(to State) {
	c.mu.Lock()
	from := c.state
	if from == to {
		c.mu.Unlock()
		return
	}
	c.state = to
	c.mu.Unlock()

	c.metrics.RecordStateTransition(from, to)
	c.logger.Info("Controller state changed", "from", from.String(), "to", to.String())

	if c.hooks.OnStateChanged != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), c.cfg.OperationTimeout)
			defer cancel()

			if err := c.hooks.OnStateChanged(ctx, from, to); err != nil {
				c.logger.Warn("OnStateChanged hook failed", "from", from.String(), "to", to.String(), "error", err)
			}
		}()
	}
}

func (c *Controller) fireOnReconcilePass(result PassResult) {
	if c.hooks.OnReconcilePass == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.OperationTimeout)
		defer cancel()

		if err := c.hooks.OnReconcilePass(ctx, result); err != nil {
			c.logger.Warn("OnReconcilePass hook failed", "trigger", result.Trigger, "error", err)
		}
	}()
}

func (c *Controller) fireOnError(err error) {
	if c.hooks.OnError == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.OperationTimeout)
		defer cancel()

		if hookErr := c.hooks.OnError(ctx, err); hookErr != nil {
			c.logger.Warn("OnError hook failed", "error", hookErr)
		}
	}()
}
