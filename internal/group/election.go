package group

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// Common errors for mastership operations.
var (
	ErrNotMaster      = errors.New("not the master")
	ErrMastershipLost = errors.New("mastership was lost")
)

// election implements master designation using atomic NATS KV operations:
//   - Create (atomic): acquire mastership if the key doesn't exist
//   - Update (with revision): renew mastership while still holding the lease
//   - Delete: release mastership
//
// The master key holds the node ID and is deleted automatically when the
// bucket TTL expires, allowing failover when the master crashes.
//
// All fields are protected by mu for thread-safe concurrent access.
type election struct {
	kv  jetstream.KeyValue
	key string

	mu       sync.RWMutex
	nodeID   string
	revision uint64
	isMaster bool
}

// newElection creates a mastership agent on the given KV bucket.
//
// The bucket should be configured with a short TTL (10-30s) so a crashed
// master is replaced automatically.
func newElection(kv jetstream.KeyValue, key string) *election {
	return &election{
		kv:  kv,
		key: key,
	}
}

// requestMastership attempts to acquire or maintain mastership for nodeID.
//
// Returns true if this node is master after the call.
func (e *election) requestMastership(ctx context.Context, nodeID string) (bool, error) {
	isMaster, currentNodeID, _ := e.state()

	// Already master: renew the lease instead of re-creating the key.
	if isMaster && currentNodeID == nodeID {
		err := e.renewMastership(ctx)
		if err == nil {
			return true, nil
		}
		// Lease lost, fall through and try to acquire again.
		e.clear()
	}

	value := []byte(fmt.Sprintf("%s:%d", nodeID, time.Now().Unix()))

	revision, err := e.kv.Create(ctx, e.key, value)
	if err != nil {
		// Another node holds the key.
		if errors.Is(err, jetstream.ErrKeyExists) {
			return false, nil
		}

		return false, fmt.Errorf("failed to create master key: %w", err)
	}

	e.set(true, nodeID, revision)

	return true, nil
}

// renewMastership renews the current mastership lease.
//
// Uses Update with a revision check so a node whose key was taken over by
// another member fails instead of clobbering the new master.
func (e *election) renewMastership(ctx context.Context) error {
	isMaster, nodeID, revision := e.state()

	if !isMaster {
		return ErrNotMaster
	}

	value := []byte(fmt.Sprintf("%s:%d", nodeID, time.Now().Unix()))

	newRevision, err := e.kv.Update(ctx, e.key, value, revision)
	if err != nil {
		e.clear()

		return fmt.Errorf("%w: %w", ErrMastershipLost, err)
	}

	e.mu.Lock()
	e.revision = newRevision
	e.mu.Unlock()

	return nil
}

// releaseMastership voluntarily releases mastership by deleting the master
// key, allowing immediate failover.
func (e *election) releaseMastership(ctx context.Context) error {
	isMaster, _, _ := e.state()

	if !isMaster {
		return ErrNotMaster
	}

	err := e.kv.Delete(ctx, e.key)
	if err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("failed to delete master key: %w", err)
	}

	e.set(false, "", 0)

	return nil
}

// master reports whether this node currently believes it is master, based
// on local lease state only.
func (e *election) master() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.isMaster
}

func (e *election) state() (isMaster bool, nodeID string, revision uint64) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.isMaster, e.nodeID, e.revision
}

func (e *election) set(isMaster bool, nodeID string, revision uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.isMaster = isMaster
	e.nodeID = nodeID
	e.revision = revision
}

func (e *election) clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.isMaster = false
}
