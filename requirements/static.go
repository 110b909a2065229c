package requirements

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/profscale/profscale/types"
)

// Static implements an in-memory requirements store.
//
// The document is replaced wholesale with Update; readers always see a
// consistent snapshot. Registered change callbacks fire asynchronously on
// every Update.
type Static struct {
	mu  sync.RWMutex
	doc *types.RequirementsDocument

	nextHandle atomic.Uint64
	callbacks  *xsync.Map[uint64, func()]
}

var (
	_ types.RequirementsSource         = (*Static)(nil)
	_ types.ConfigurationChangeTracker = (*Static)(nil)
)

// NewStatic creates a new in-memory requirements store.
//
// Parameters:
//   - doc: Initial document; nil means an empty document
//
// Returns:
//   - *Static: Initialized static store
//
// Example:
//
//	doc := &types.RequirementsDocument{Profiles: []*types.ProfileRequirement{
//	    {Profile: "broker", MinimumInstances: ptr(3)},
//	    {Profile: "worker", MinimumInstances: ptr(5), DependentProfiles: []string{"broker"}},
//	}}
//	store := requirements.NewStatic(doc)
func NewStatic(doc *types.RequirementsDocument) *Static {
	if doc == nil {
		doc = &types.RequirementsDocument{}
	}

	return &Static{
		doc:       doc.Clone(),
		callbacks: xsync.NewMap[uint64, func()](),
	}
}

// Requirements returns a snapshot of the current document.
//
// Returns:
//   - *types.RequirementsDocument: Independent copy, never nil
//   - error: Always nil (never fails)
func (s *Static) Requirements(_ context.Context) (*types.RequirementsDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.doc.Clone(), nil
}

// Update replaces the document and fires registered change callbacks.
//
// Callbacks run asynchronously; Update returns without waiting for them.
//
// Parameters:
//   - doc: New document; nil means an empty document
func (s *Static) Update(doc *types.RequirementsDocument) {
	if doc == nil {
		doc = &types.RequirementsDocument{}
	}

	s.mu.Lock()
	s.doc = doc.Clone()
	s.mu.Unlock()

	s.fire()
}

// TrackConfiguration registers cb to fire on every Update until the
// returned untrack function is called.
//
// Parameters:
//   - cb: Callback invoked asynchronously on each change
//
// Returns:
//   - func(): Idempotent untrack function
func (s *Static) TrackConfiguration(cb func()) (untrack func()) {
	handle := s.nextHandle.Add(1)
	s.callbacks.Store(handle, cb)

	return func() {
		s.callbacks.Delete(handle)
	}
}

func (s *Static) fire() {
	s.callbacks.Range(func(_ uint64, cb func()) bool {
		go cb()
		return true
	})
}
