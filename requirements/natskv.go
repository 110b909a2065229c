package requirements

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/puzpuzpuz/xsync/v4"

	"github.com/profscale/profscale/internal/kvutil"
	"github.com/profscale/profscale/internal/logging"
	"github.com/profscale/profscale/types"
)

// Key under which the requirements document is stored.
const documentKey = "requirements"

// ErrNoDocument is returned when the bucket holds no requirements document.
var ErrNoDocument = errors.New("no requirements document published")

// NATSKVConfig holds the settings for a KV-backed requirements store.
type NATSKVConfig struct {
	// Bucket is the KV bucket name holding the document.
	Bucket string

	// Replicas and Storage configure the bucket when it is created.
	Replicas int
	Storage  jetstream.StorageType

	// Logger is optional; change-tracking failures are logged through it.
	Logger types.Logger
}

// NATSKV implements a requirements store backed by a NATS JetStream KV
// bucket.
//
// The document is stored as JSON under a single key, so operators can
// publish requirements with the nats CLI:
//
//	nats kv put profscale-requirements requirements '{"profiles":[...]}'
//
// Change tracking is driven by a KV watcher: every document update fires
// the registered callbacks asynchronously.
type NATSKV struct {
	kv     jetstream.KeyValue
	logger types.Logger

	nextHandle atomic.Uint64
	callbacks  *xsync.Map[uint64, func()]

	mu      sync.Mutex
	watcher jetstream.KeyWatcher
	stopCh  chan struct{}
	doneCh  chan struct{}
	closed  bool
}

var (
	_ types.RequirementsSource         = (*NATSKV)(nil)
	_ types.ConfigurationChangeTracker = (*NATSKV)(nil)
)

// NewNATSKV creates a KV-backed requirements store, creating the bucket if
// it does not exist, and starts watching for document changes.
//
// Parameters:
//   - ctx: Context for bucket creation and watcher setup
//   - js: JetStream context
//   - cfg: Store configuration
//
// Returns:
//   - *NATSKV: Initialized store; call Close when done
//   - error: Bucket or watcher setup error
func NewNATSKV(ctx context.Context, js jetstream.JetStream, cfg NATSKVConfig) (*NATSKV, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("requirements: bucket name is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	kv, err := kvutil.EnsureKVBucketWithRetry(ctx, js, jetstream.KeyValueConfig{
		Bucket:   cfg.Bucket,
		Replicas: cfg.Replicas,
		Storage:  cfg.Storage,
	}, 3)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure requirements bucket: %w", err)
	}

	s := &NATSKV{
		kv:        kv,
		logger:    logger,
		callbacks: xsync.NewMap[uint64, func()](),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}

	watcher, err := kv.Watch(ctx, documentKey)
	if err != nil {
		return nil, fmt.Errorf("failed to watch requirements document: %w", err)
	}
	s.watcher = watcher

	go s.watchLoop()

	return s, nil
}

// Requirements returns a snapshot of the stored document.
//
// An empty bucket yields ErrNoDocument; reconciliation against an undefined
// desired state is worse than no reconciliation at all.
//
// Parameters:
//   - ctx: Context for the KV read
//
// Returns:
//   - *types.RequirementsDocument: Decoded document
//   - error: ErrNoDocument, decode error, or KV error
func (s *NATSKV) Requirements(ctx context.Context) (*types.RequirementsDocument, error) {
	entry, err := s.kv.Get(ctx, documentKey)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, ErrNoDocument
		}

		return nil, fmt.Errorf("failed to read requirements document: %w", err)
	}

	var doc types.RequirementsDocument
	if err := json.Unmarshal(entry.Value(), &doc); err != nil {
		return nil, fmt.Errorf("failed to decode requirements document: %w", err)
	}

	return &doc, nil
}

// SetRequirements publishes a new requirements document.
//
// Parameters:
//   - ctx: Context for the KV write
//   - doc: Document to publish; nil means an empty document
//
// Returns:
//   - error: Encode or KV error
func (s *NATSKV) SetRequirements(ctx context.Context, doc *types.RequirementsDocument) error {
	if doc == nil {
		doc = &types.RequirementsDocument{}
	}

	value, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode requirements document: %w", err)
	}

	if _, err := s.kv.Put(ctx, documentKey, value); err != nil {
		return fmt.Errorf("failed to publish requirements document: %w", err)
	}

	return nil
}

// TrackConfiguration registers cb to fire on every document change until
// the returned untrack function is called.
//
// Parameters:
//   - cb: Callback invoked asynchronously on each change
//
// Returns:
//   - func(): Idempotent untrack function
func (s *NATSKV) TrackConfiguration(cb func()) (untrack func()) {
	handle := s.nextHandle.Add(1)
	s.callbacks.Store(handle, cb)

	return func() {
		s.callbacks.Delete(handle)
	}
}

// Close stops the change watcher. Idempotent.
func (s *NATSKV) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	close(s.stopCh)
	<-s.doneCh

	if err := s.watcher.Stop(); err != nil {
		return fmt.Errorf("failed to stop requirements watcher: %w", err)
	}

	return nil
}

func (s *NATSKV) watchLoop() {
	defer close(s.doneCh)

	// The watcher replays the current value first, then delivers a nil
	// marker. Only updates after the marker are changes.
	replaying := true

	for {
		select {
		case <-s.stopCh:
			return
		case entry := <-s.watcher.Updates():
			if entry == nil {
				replaying = false
				continue
			}
			if replaying {
				continue
			}

			s.logger.Debug("Requirements document changed", "revision", entry.Revision())
			s.fire()
		}
	}
}

func (s *NATSKV) fire() {
	s.callbacks.Range(func(_ uint64, cb func()) bool {
		go cb()
		return true
	})
}
