package group

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/profscale/profscale/internal/kvutil"
	"github.com/profscale/profscale/internal/natsutil"
	"github.com/profscale/profscale/types"
)

// Key under which the group master claim lives in the election bucket.
const masterKey = "master"

// Config holds the settings for a NATS-backed group.
//
// All fields must be populated; defaults are applied by the public
// constructor in the root package.
type Config struct {
	// Conn is an established NATS connection. The group does not own the
	// connection and never closes it.
	Conn *nats.Conn

	// GroupPath names the group. Nodes joining the same path coordinate
	// with each other.
	GroupPath string

	// BucketPrefix prefixes the KV bucket names derived from GroupPath.
	BucketPrefix string

	// NodeIDPrefix, NodeIDMin and NodeIDMax bound the stable node ID pool.
	NodeIDPrefix string
	NodeIDMin    int
	NodeIDMax    int

	// PresenceInterval is how often the presence entry is re-published.
	// PresenceTTL is the presence bucket TTL, typically 3x the interval.
	PresenceInterval time.Duration
	PresenceTTL      time.Duration

	// ElectionTTL is the master lease duration. Mastership is renewed at a
	// third of this interval.
	ElectionTTL time.Duration

	// IDClaimTTL is the node ID lease duration.
	IDClaimTTL time.Duration

	// OperationTimeout bounds individual KV operations during Start.
	OperationTimeout time.Duration

	// EventBufferSize is the membership event queue depth. Events are
	// dropped with a warning when the queue is full; a later event
	// re-synchronizes listeners since they query IsMaster directly.
	EventBufferSize int

	// Replicas and Storage configure the backing KV buckets.
	Replicas int
	Storage  jetstream.StorageType

	Logger  types.Logger
	Metrics types.GroupMetrics
}

// Group is a NATS JetStream KV implementation of types.Group.
type Group struct {
	cfg Config

	js         jetstream.JetStream
	electionKV jetstream.KeyValue
	presenceKV jetstream.KeyValue
	idKV       jetstream.KeyValue

	election *election
	presence *presencePublisher
	claimer  *idClaimer
	nodeID   string

	listenerMu sync.Mutex
	listeners  []types.GroupListener

	events chan types.GroupEvent

	mu      sync.Mutex
	started bool
	closed  bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// Compile-time assertion that Group implements types.Group.
var _ types.Group = (*Group)(nil)

// New creates a group handle from a validated config. The handle is inert
// until Start is called.
func New(cfg Config) (*Group, error) {
	if cfg.Conn == nil {
		return nil, fmt.Errorf("group: NATS connection is required")
	}
	if cfg.GroupPath == "" {
		return nil, fmt.Errorf("group: group path is required")
	}

	return &Group{
		cfg:    cfg,
		events: make(chan types.GroupEvent, cfg.EventBufferSize),
		stopCh: make(chan struct{}),
	}, nil
}

// NodeID returns this node's claimed stable ID, or "" before Start.
func (g *Group) NodeID() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.nodeID
}

// Start joins the group: claims a node ID, publishes presence, contends for
// mastership and begins delivering events. The first event delivered is
// Connected.
func (g *Group) Start(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return types.ErrGroupClosed
	}
	if g.started {
		return nil
	}

	js, err := jetstream.New(g.cfg.Conn)
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}
	g.js = js

	if err := g.ensureBuckets(ctx); err != nil {
		return err
	}

	opCtx, cancel := context.WithTimeout(ctx, g.cfg.OperationTimeout)
	defer cancel()

	g.claimer = newIDClaimer(g.idKV, g.cfg.NodeIDPrefix, g.cfg.NodeIDMin, g.cfg.NodeIDMax, g.cfg.IDClaimTTL, g.cfg.Logger)
	nodeID, err := g.claimer.claim(opCtx)
	if err != nil {
		return fmt.Errorf("failed to claim node ID: %w", err)
	}
	g.nodeID = nodeID

	g.election = newElection(g.electionKV, masterKey)

	isMaster, err := g.election.requestMastership(opCtx, nodeID)
	if err != nil {
		g.cfg.Logger.Warn("Initial mastership request failed", "node", nodeID, "error", err)
	}
	g.cfg.Metrics.RecordMastershipChange(isMaster)

	g.presence = newPresencePublisher(g.presenceKV, nodeID, g.cfg.PresenceInterval, g.election.master, g.cfg.Logger, g.cfg.Metrics)
	if err := g.presence.start(opCtx); err != nil {
		// Hand the claimed ID back; a failed Start must not pin it until
		// the claim TTL expires.
		if relErr := g.claimer.release(); relErr != nil {
			g.cfg.Logger.Warn("Failed to release node ID after start failure", "node", nodeID, "error", relErr)
		}
		g.nodeID = ""

		return fmt.Errorf("failed to start presence publisher: %w", err)
	}

	g.started = true

	g.wg.Add(4)
	go g.dispatchLoop()
	go g.monitorMastership()
	go g.watchPresence()
	go g.watchConnection()

	if isMaster {
		g.cfg.Logger.Info("Joined group as master", "group", g.cfg.GroupPath, "node", nodeID)
	} else {
		g.cfg.Logger.Info("Joined group as standby", "group", g.cfg.GroupPath, "node", nodeID)
	}

	g.emit(types.EventConnected)

	return nil
}

// Update publishes this node's membership state by refreshing its presence
// entry. The state payload carries no data; the entry itself reflects the
// node's identity and current mastership.
func (g *Group) Update(ctx context.Context, _ types.MembershipState) error {
	g.mu.Lock()
	closed, started := g.closed, g.started
	presence := g.presence
	g.mu.Unlock()

	if closed {
		return types.ErrGroupClosed
	}
	if !started {
		return types.ErrGroupNotStarted
	}

	return presence.refresh(ctx)
}

// IsMaster reports whether this node currently holds the master lease.
func (g *Group) IsMaster() bool {
	g.mu.Lock()
	started := g.started
	g.mu.Unlock()

	if !started {
		return false
	}

	return g.election.master()
}

// AddListener registers a listener for membership events.
func (g *Group) AddListener(listener types.GroupListener) {
	if listener == nil {
		return
	}

	g.listenerMu.Lock()
	defer g.listenerMu.Unlock()

	g.listeners = append(g.listeners, listener)
}

// RemoveListener removes a previously registered listener. Function-typed
// listeners are matched by function identity.
func (g *Group) RemoveListener(listener types.GroupListener) {
	if listener == nil {
		return
	}

	g.listenerMu.Lock()
	defer g.listenerMu.Unlock()

	for i, l := range g.listeners {
		if sameListener(l, listener) {
			g.listeners = append(g.listeners[:i], g.listeners[i+1:]...)
			return
		}
	}
}

// Close leaves the group: releases mastership, removes the presence entry
// and node ID claim, and stops event delivery. Idempotent.
func (g *Group) Close() error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil
	}
	g.closed = true
	started := g.started
	g.started = false
	g.mu.Unlock()

	if !started {
		return nil
	}

	close(g.stopCh)
	g.wg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), g.cfg.OperationTimeout)
	defer cancel()

	if g.election.master() {
		if err := g.election.releaseMastership(ctx); err != nil {
			g.cfg.Logger.Warn("Failed to release mastership on close", "node", g.nodeID, "error", err)
		}
	}

	if err := g.presence.stop(); err != nil {
		g.cfg.Logger.Warn("Failed to stop presence publisher", "node", g.nodeID, "error", err)
	}

	if err := g.claimer.release(); err != nil {
		g.cfg.Logger.Warn("Failed to release node ID", "node", g.nodeID, "error", err)
	}

	g.cfg.Logger.Info("Left group", "group", g.cfg.GroupPath, "node", g.nodeID)

	return nil
}

// ensureBuckets creates or opens the three KV buckets backing the group.
func (g *Group) ensureBuckets(ctx context.Context) error {
	type bucketSpec struct {
		kind string
		ttl  time.Duration
		dst  *jetstream.KeyValue
	}

	specs := []bucketSpec{
		{kind: "ids", ttl: g.cfg.IDClaimTTL, dst: &g.idKV},
		{kind: "election", ttl: g.cfg.ElectionTTL, dst: &g.electionKV},
		{kind: "presence", ttl: g.cfg.PresenceTTL, dst: &g.presenceKV},
	}

	for _, spec := range specs {
		kv, err := kvutil.EnsureKVBucketWithRetry(ctx, g.js, jetstream.KeyValueConfig{
			Bucket:   bucketName(g.cfg.BucketPrefix, g.cfg.GroupPath, spec.kind),
			TTL:      spec.ttl,
			Replicas: g.cfg.Replicas,
			Storage:  g.cfg.Storage,
		}, 3)
		if err != nil {
			return fmt.Errorf("failed to ensure %s bucket: %w", spec.kind, err)
		}

		*spec.dst = kv
	}

	return nil
}

// monitorMastership renews the master lease while held and contends for a
// vacant lease otherwise, at a third of the lease TTL.
func (g *Group) monitorMastership() {
	defer g.wg.Done()

	ticker := time.NewTicker(g.cfg.ElectionTTL / 3)
	defer ticker.Stop()

	for {
		select {
		case <-g.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), g.cfg.OperationTimeout)
			g.tickMastership(ctx)
			cancel()
		}
	}
}

func (g *Group) tickMastership(ctx context.Context) {
	if g.election.master() {
		if err := g.election.renewMastership(ctx); err != nil {
			// A renewal that failed because the coordination store is
			// unreachable means this node's view of the group is stale, not
			// that another node took over.
			if natsutil.IsConnectivityError(err) {
				g.cfg.Logger.Warn("Mastership renewal failed, coordination store unreachable", "node", g.nodeID, "error", err)
				g.cfg.Metrics.RecordMastershipChange(false)
				g.emit(types.EventDisconnected)

				return
			}

			g.cfg.Logger.Info("Lost group mastership", "group", g.cfg.GroupPath, "node", g.nodeID, "error", err)
			g.cfg.Metrics.RecordMastershipChange(false)
			g.refreshPresence(ctx)
			g.emit(types.EventChanged)
		}

		return
	}

	isMaster, err := g.election.requestMastership(ctx, g.nodeID)
	if err != nil {
		if natsutil.IsConnectivityError(err) {
			g.cfg.Logger.Warn("Mastership request failed, coordination store unreachable", "node", g.nodeID, "error", err)
			g.emit(types.EventDisconnected)

			return
		}

		g.cfg.Logger.Warn("Mastership request failed", "node", g.nodeID, "error", err)

		return
	}

	if isMaster {
		g.cfg.Logger.Info("Acquired group mastership", "group", g.cfg.GroupPath, "node", g.nodeID)
		g.cfg.Metrics.RecordMastershipChange(true)
		g.refreshPresence(ctx)
		g.emit(types.EventChanged)
	}
}

func (g *Group) refreshPresence(ctx context.Context) {
	if err := g.presence.refresh(ctx); err != nil {
		g.cfg.Logger.Warn("Failed to refresh presence entry", "node", g.nodeID, "error", err)
	}
}

// watchPresence emits Changed events when group composition or a remote
// node's mastership changes.
//
// Presence entries are re-put every PresenceInterval as heartbeats, so raw
// KV updates arrive far more often than the group actually changes. The
// watcher keeps the observed member set (with each member's master flag)
// and emits only when that set changes: a heartbeat that merely refreshes
// an entry is absorbed. This node's own entry is skipped entirely — its
// heartbeats, and the refresh performed by Update, would otherwise echo
// back as events and feed a republish-on-event listener forever.
func (g *Group) watchPresence() {
	defer g.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		<-g.stopCh
		cancel()
	}()

	watcher, err := g.presenceKV.Watch(ctx, "presence.>")
	if err != nil {
		g.cfg.Logger.Error("Failed to watch presence bucket", "group", g.cfg.GroupPath, "error", err)
		return
	}
	defer func() {
		if err := watcher.Stop(); err != nil {
			g.cfg.Logger.Warn("Failed to stop presence watcher", "error", err)
		}
	}()

	// The watcher replays current entries first, then delivers a nil marker.
	// Replayed entries seed the member set without emitting.
	replaying := true
	ownKey := presenceKey(g.nodeID)
	members := make(map[string]bool) // presence key -> master flag

	for {
		select {
		case <-g.stopCh:
			return
		case entry := <-watcher.Updates():
			if entry == nil {
				replaying = false
				continue
			}
			if entry.Key() == ownKey {
				continue
			}

			if g.applyPresenceUpdate(members, entry) && !replaying {
				g.emit(types.EventChanged)
			}
		}
	}
}

// applyPresenceUpdate folds one KV update into the member set and reports
// whether it changed group composition or a member's mastership.
func (g *Group) applyPresenceUpdate(members map[string]bool, entry jetstream.KeyValueEntry) bool {
	key := entry.Key()

	switch entry.Operation() {
	case jetstream.KeyValueDelete, jetstream.KeyValuePurge:
		if _, ok := members[key]; !ok {
			return false
		}
		delete(members, key)

		return true
	default:
		var pe presenceEntry
		if err := json.Unmarshal(entry.Value(), &pe); err != nil {
			g.cfg.Logger.Warn("Ignoring malformed presence entry", "key", key, "error", err)
			return false
		}

		prev, ok := members[key]
		members[key] = pe.Master

		return !ok || prev != pe.Master
	}
}

// watchConnection maps NATS connection status changes to group events.
func (g *Group) watchConnection() {
	defer g.wg.Done()

	statusCh := g.cfg.Conn.StatusChanged(nats.CONNECTED, nats.RECONNECTING, nats.DISCONNECTED, nats.CLOSED)

	for {
		select {
		case <-g.stopCh:
			return
		case status, ok := <-statusCh:
			if !ok {
				return
			}

			switch status {
			case nats.CONNECTED:
				g.cfg.Logger.Info("Coordination connection restored", "group", g.cfg.GroupPath, "node", g.nodeID)
				g.emit(types.EventConnected)
			case nats.RECONNECTING, nats.DISCONNECTED, nats.CLOSED:
				// Mastership cannot be renewed while disconnected; clear the
				// local lease so IsMaster reflects reality immediately.
				g.election.clear()
				g.cfg.Logger.Warn("Coordination connection lost", "group", g.cfg.GroupPath, "node", g.nodeID, "status", status.String())
				g.emit(types.EventDisconnected)
			}
		}
	}
}

// dispatchLoop delivers events to listeners sequentially from a single
// goroutine, so listeners never see overlapping calls.
func (g *Group) dispatchLoop() {
	defer g.wg.Done()

	for {
		select {
		case <-g.stopCh:
			return
		case event := <-g.events:
			g.listenerMu.Lock()
			listeners := make([]types.GroupListener, len(g.listeners))
			copy(listeners, g.listeners)
			g.listenerMu.Unlock()

			for _, l := range listeners {
				l.OnGroupEvent(g, event)
			}
		}
	}
}

// emit queues an event for dispatch without blocking group internals.
func (g *Group) emit(event types.GroupEvent) {
	select {
	case g.events <- event:
	case <-g.stopCh:
	default:
		g.cfg.Logger.Warn("Event queue full, dropping membership event", "group", g.cfg.GroupPath, "event", event.String())
	}
}

// sameListener compares listeners for removal. Interface equality panics on
// func-typed dynamic values, so those are matched by function pointer.
func sameListener(a, b types.GroupListener) bool {
	va := reflect.ValueOf(a)
	vb := reflect.ValueOf(b)

	if va.Kind() == reflect.Func || vb.Kind() == reflect.Func {
		return va.Kind() == vb.Kind() && va.Pointer() == vb.Pointer()
	}

	return a == b
}

var bucketNameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// bucketName derives a valid KV bucket name from the group path.
func bucketName(prefix, groupPath, kind string) string {
	group := bucketNameSanitizer.ReplaceAllString(strings.Trim(groupPath, "/"), "-")

	return fmt.Sprintf("%s-%s-%s", prefix, group, kind)
}
