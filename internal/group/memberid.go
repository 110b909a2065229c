package group

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/profscale/profscale/types"
)

// Common errors returned by the ID claimer.
var (
	ErrNoAvailableID = errors.New("no available node ID in pool")
	ErrNotClaimed    = errors.New("node ID not claimed")
)

// idClaimer claims a stable node ID from a bounded pool.
//
// It uses atomic KV Create operations with TTL-based leases: nodes
// sequentially search the pool until finding an available ID, then renew
// the claim in the background. Stable IDs keep presence keys and log lines
// consistent across restarts.
type idClaimer struct {
	kv     jetstream.KeyValue
	prefix string
	minID  int
	maxID  int
	ttl    time.Duration
	logger types.Logger

	mu       sync.Mutex
	nodeID   string
	revision uint64
	stopCh   chan struct{}
	doneCh   chan struct{}
}

// newIDClaimer creates a claimer over the pool [minID, maxID].
func newIDClaimer(kv jetstream.KeyValue, prefix string, minID, maxID int, ttl time.Duration, logger types.Logger) *idClaimer {
	return &idClaimer{
		kv:     kv,
		prefix: prefix,
		minID:  minID,
		maxID:  maxID,
		ttl:    ttl,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// claim acquires the first available node ID and starts background renewal.
//
// Returns:
//   - string: Claimed node ID (e.g., "node-5")
//   - error: ErrNoAvailableID if the pool is exhausted, context or KV error
func (c *idClaimer) claim(ctx context.Context) (string, error) {
	for id := c.minID; id <= c.maxID; id++ {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}

		nodeID := fmt.Sprintf("%s-%d", c.prefix, id)
		key := idKey(nodeID)

		revision, err := c.kv.Create(ctx, key, []byte(time.Now().Format(time.RFC3339)))
		if err != nil {
			if errors.Is(err, jetstream.ErrKeyExists) {
				continue
			}

			return "", fmt.Errorf("failed to claim node ID %s: %w", nodeID, err)
		}

		c.mu.Lock()
		c.nodeID = nodeID
		c.revision = revision
		c.mu.Unlock()

		c.logger.Debug("Claimed stable node ID", "node", nodeID, "attempts", id-c.minID+1)

		go c.renewLoop()

		return nodeID, nil
	}

	return "", fmt.Errorf("%w: %s-%d..%s-%d all taken", ErrNoAvailableID, c.prefix, c.minID, c.prefix, c.maxID)
}

// release stops renewal and deletes the claim so the ID returns to the pool
// immediately.
func (c *idClaimer) release() error {
	c.mu.Lock()
	nodeID := c.nodeID
	c.nodeID = ""
	c.mu.Unlock()

	if nodeID == "" {
		return ErrNotClaimed
	}

	close(c.stopCh)
	<-c.doneCh

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := c.kv.Delete(ctx, idKey(nodeID)); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("released but failed to delete ID claim: %w", err)
	}

	return nil
}

// renewLoop keeps the claim alive at a third of the lease TTL.
func (c *idClaimer) renewLoop() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			nodeID := c.nodeID
			revision := c.revision
			c.mu.Unlock()

			if nodeID == "" {
				return
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			newRevision, err := c.kv.Update(ctx, idKey(nodeID), []byte(time.Now().Format(time.RFC3339)), revision)
			cancel()

			if err != nil {
				// Claim lost or transient failure; keep trying on the old
				// revision, the claim re-resolves when connectivity returns.
				c.logger.Warn("Failed to renew node ID claim", "node", nodeID, "error", err)

				continue
			}

			c.mu.Lock()
			c.revision = newRevision
			c.mu.Unlock()
		}
	}
}

// idKey generates the KV key for a node ID claim.
func idKey(nodeID string) string {
	return fmt.Sprintf("ids.%s", nodeID)
}
