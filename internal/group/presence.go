package group

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/profscale/profscale/types"
)

// Common errors for presence operations.
var (
	ErrPresenceNotStarted     = errors.New("presence publisher not started")
	ErrPresenceAlreadyStarted = errors.New("presence publisher already started")
)

// presenceEntry is the value stored under a node's presence key.
type presenceEntry struct {
	Node      string    `json:"node"`
	Master    bool      `json:"master"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// presencePublisher keeps this node's presence entry alive in the presence
// bucket.
//
// The entry is re-put at a regular interval; the bucket TTL should be ~3x
// the interval so a crashed node falls out of the group after three missed
// publishes. Deleting the entry on Stop signals departure immediately
// instead of waiting for the TTL.
type presencePublisher struct {
	kv       jetstream.KeyValue
	nodeID   string
	interval time.Duration
	master   func() bool
	logger   types.Logger
	metrics  types.GroupMetrics

	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	ticker  *time.Ticker
}

// newPresencePublisher creates a presence publisher for nodeID.
//
// The master function is sampled on every publish so the presence entry
// reflects current mastership without extra coordination.
func newPresencePublisher(
	kv jetstream.KeyValue,
	nodeID string,
	interval time.Duration,
	master func() bool,
	logger types.Logger,
	metrics types.GroupMetrics,
) *presencePublisher {
	return &presencePublisher{
		kv:       kv,
		nodeID:   nodeID,
		interval: interval,
		master:   master,
		logger:   logger,
		metrics:  metrics,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// start publishes the first presence entry immediately, then keeps it alive
// in the background until stop is called.
func (p *presencePublisher) start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return ErrPresenceAlreadyStarted
	}

	p.started = true
	p.ticker = time.NewTicker(p.interval)

	if err := p.publish(ctx); err != nil {
		p.started = false
		p.ticker.Stop()

		return fmt.Errorf("failed to publish initial presence: %w", err)
	}

	go p.publishLoop()

	return nil
}

// stop halts publishing and deletes the presence entry.
//
// Blocks until the publisher goroutine exits. Delete failures are returned
// for logging but the publisher is stopped regardless.
func (p *presencePublisher) stop() error {
	p.mu.Lock()

	if !p.started {
		p.mu.Unlock()
		return ErrPresenceNotStarted
	}

	p.ticker.Stop()
	close(p.stopCh)
	p.started = false

	p.mu.Unlock()

	<-p.doneCh

	// Use a fresh context: the caller's context is usually already
	// cancelled during shutdown.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := p.kv.Delete(ctx, presenceKey(p.nodeID)); err != nil {
		return fmt.Errorf("stopped but failed to delete presence entry: %w", err)
	}

	return nil
}

// refresh re-publishes the presence entry out of cycle, used when this
// node's membership state changes between ticks.
func (p *presencePublisher) refresh(ctx context.Context) error {
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()

	if !started {
		return ErrPresenceNotStarted
	}

	return p.publish(ctx)
}

func (p *presencePublisher) publishLoop() {
	defer close(p.doneCh)

	for {
		select {
		case <-p.stopCh:
			return
		case <-p.ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := p.publish(ctx)
			cancel()

			if err != nil {
				p.metrics.RecordPresencePublish(false)
				p.logger.Warn("Failed to publish presence", "node", p.nodeID, "error", err)
			} else {
				p.metrics.RecordPresencePublish(true)
			}
		}
	}
}

func (p *presencePublisher) publish(ctx context.Context) error {
	entry := presenceEntry{
		Node:      p.nodeID,
		Master:    p.master(),
		UpdatedAt: time.Now().UTC(),
	}

	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode presence entry: %w", err)
	}

	if _, err := p.kv.Put(ctx, presenceKey(p.nodeID), value); err != nil {
		return fmt.Errorf("failed to publish presence for %s: %w", p.nodeID, err)
	}

	return nil
}

// presenceKey generates the KV key for a node's presence entry.
func presenceKey(nodeID string) string {
	return fmt.Sprintf("presence.%s", nodeID)
}
