package testing

import (
	"context"
	"sync"

	"github.com/profscale/profscale/types"
)

// FakeInventory is an in-memory InventoryProvider.
//
// Instance lists are set per profile with SetInstances; lookups for unknown
// profiles return an empty slice. An error can be injected per profile to
// exercise failure paths.
type FakeInventory struct {
	mu        sync.Mutex
	instances map[string][]types.InstanceRecord
	errs      map[string]error
	queries   map[string]int
}

var _ types.InventoryProvider = (*FakeInventory)(nil)

// NewFakeInventory creates an empty fake inventory.
func NewFakeInventory() *FakeInventory {
	return &FakeInventory{
		instances: make(map[string][]types.InstanceRecord),
		errs:      make(map[string]error),
		queries:   make(map[string]int),
	}
}

// Queries returns how many times the profile has been looked up.
func (f *FakeInventory) Queries(profile string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.queries[profile]
}

// SetInstances replaces the instance list for a profile.
func (f *FakeInventory) SetInstances(profile string, records ...types.InstanceRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.instances[profile] = append([]types.InstanceRecord(nil), records...)
}

// FailProfile makes lookups for the profile return err.
func (f *FakeInventory) FailProfile(profile string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.errs[profile] = err
}

// InstancesForProfile returns the configured instances for the profile.
func (f *FakeInventory) InstancesForProfile(_ context.Context, profile string) ([]types.InstanceRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queries[profile]++

	if err := f.errs[profile]; err != nil {
		return nil, err
	}

	return append([]types.InstanceRecord(nil), f.instances[profile]...), nil
}

// ScaleUpCall records one CreateInstances invocation.
type ScaleUpCall struct {
	Request types.ScaleUpRequest
}

// ScaleDownCall records one DestroyInstances invocation.
type ScaleDownCall struct {
	Profile    string
	Count      int
	Candidates []types.InstanceRecord
}

// FakeAutoscaler records scale commands and optionally injects failures.
//
// It implements both Autoscaler and AutoscalerFactory: the factory returns
// itself for every profile, or nil for profiles listed as unavailable.
type FakeAutoscaler struct {
	mu          sync.Mutex
	scaleUps    []ScaleUpCall
	scaleDowns  []ScaleDownCall
	failUp      map[string]error
	failDown    map[string]error
	unavailable map[string]bool
	panicUp     map[string]bool
}

var (
	_ types.Autoscaler        = (*FakeAutoscaler)(nil)
	_ types.AutoscalerFactory = (*FakeAutoscaler)(nil)
)

// NewFakeAutoscaler creates a fake autoscaler that succeeds for every
// profile.
func NewFakeAutoscaler() *FakeAutoscaler {
	return &FakeAutoscaler{
		failUp:      make(map[string]error),
		failDown:    make(map[string]error),
		unavailable: make(map[string]bool),
		panicUp:     make(map[string]bool),
	}
}

// FailScaleUp makes CreateInstances fail for the profile.
func (f *FakeAutoscaler) FailScaleUp(profile string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failUp[profile] = err
}

// FailScaleDown makes DestroyInstances fail for the profile.
func (f *FakeAutoscaler) FailScaleDown(profile string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failDown[profile] = err
}

// PanicOnScaleUp makes CreateInstances panic for the profile.
func (f *FakeAutoscaler) PanicOnScaleUp(profile string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.panicUp[profile] = true
}

// SetUnavailable makes CreateAutoscaler return nil for the profile.
func (f *FakeAutoscaler) SetUnavailable(profile string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.unavailable[profile] = true
}

// CreateAutoscaler returns this fake, or nil for unavailable profiles.
func (f *FakeAutoscaler) CreateAutoscaler(_ *types.RequirementsDocument, requirement *types.ProfileRequirement) types.Autoscaler {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.unavailable[requirement.Profile] {
		return nil
	}

	return f
}

// CreateInstances records the request.
func (f *FakeAutoscaler) CreateInstances(_ context.Context, req types.ScaleUpRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.panicUp[req.Profile] {
		panic("fake autoscaler panic for " + req.Profile)
	}

	if err := f.failUp[req.Profile]; err != nil {
		return err
	}

	f.scaleUps = append(f.scaleUps, ScaleUpCall{Request: req})

	return nil
}

// DestroyInstances records the request.
func (f *FakeAutoscaler) DestroyInstances(_ context.Context, profile string, count int, candidates []types.InstanceRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failDown[profile]; err != nil {
		return err
	}

	f.scaleDowns = append(f.scaleDowns, ScaleDownCall{
		Profile:    profile,
		Count:      count,
		Candidates: append([]types.InstanceRecord(nil), candidates...),
	})

	return nil
}

// ScaleUps returns the recorded scale-up calls.
func (f *FakeAutoscaler) ScaleUps() []ScaleUpCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]ScaleUpCall(nil), f.scaleUps...)
}

// ScaleDowns returns the recorded scale-down calls.
func (f *FakeAutoscaler) ScaleDowns() []ScaleDownCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]ScaleDownCall(nil), f.scaleDowns...)
}

// Reset clears all recorded calls.
func (f *FakeAutoscaler) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.scaleUps = nil
	f.scaleDowns = nil
}

// FakeVersionSource returns a fixed default version.
type FakeVersionSource struct {
	mu      sync.Mutex
	version string
	err     error
}

var _ types.ClusterVersionSource = (*FakeVersionSource)(nil)

// NewFakeVersionSource creates a version source returning version.
func NewFakeVersionSource(version string) *FakeVersionSource {
	return &FakeVersionSource{version: version}
}

// Fail makes DefaultVersionID return err.
func (f *FakeVersionSource) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.err = err
}

// DefaultVersionID returns the configured version.
func (f *FakeVersionSource) DefaultVersionID(_ context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return "", f.err
	}

	return f.version, nil
}

// FakeGroup is an in-process Group for controller tests.
//
// Mastership is flipped with SetMaster; events are delivered synchronously
// from Emit, mirroring the sequential dispatch of the real group.
type FakeGroup struct {
	mu        sync.Mutex
	master    bool
	started   bool
	closed    bool
	updates   int
	listeners []types.GroupListener
}

var _ types.Group = (*FakeGroup)(nil)

// NewFakeGroup creates a fake group in the standby role.
func NewFakeGroup() *FakeGroup {
	return &FakeGroup{}
}

// SetMaster sets this node's mastership without emitting an event.
func (g *FakeGroup) SetMaster(master bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.master = master
}

// Emit delivers an event to all listeners synchronously.
func (g *FakeGroup) Emit(event types.GroupEvent) {
	g.mu.Lock()
	listeners := append([]types.GroupListener(nil), g.listeners...)
	g.mu.Unlock()

	for _, l := range listeners {
		l.OnGroupEvent(g, event)
	}
}

// Updates returns how many times Update was called.
func (g *FakeGroup) Updates() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.updates
}

// Update records the publish, or returns ErrGroupClosed after Close.
func (g *FakeGroup) Update(_ context.Context, _ types.MembershipState) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return types.ErrGroupClosed
	}
	if !g.started {
		return types.ErrGroupNotStarted
	}

	g.updates++

	return nil
}

// IsMaster reports the configured mastership.
func (g *FakeGroup) IsMaster() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.master
}

// AddListener registers a listener.
func (g *FakeGroup) AddListener(listener types.GroupListener) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.listeners = append(g.listeners, listener)
}

// RemoveListener removes a registered listener.
func (g *FakeGroup) RemoveListener(listener types.GroupListener) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for i, l := range g.listeners {
		if l == listener {
			g.listeners = append(g.listeners[:i], g.listeners[i+1:]...)
			return
		}
	}
}

// Start marks the group as started.
func (g *FakeGroup) Start(_ context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return types.ErrGroupClosed
	}
	g.started = true

	return nil
}

// Close marks the group as closed. Idempotent.
func (g *FakeGroup) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.closed = true
	g.started = false

	return nil
}
