package types

import "context"

// Hooks defines callbacks for controller lifecycle events.
//
// All hooks are optional and called asynchronously in background goroutines
// to avoid blocking the controller's event loop. Hook errors are logged but
// never fail controller operations.
//
// Best practices for hook implementations:
//   - Complete quickly
//   - Respect context cancellation
//   - Make hooks idempotent (may be called multiple times)
type Hooks struct {
	// OnStateChanged is called when the controller state transitions.
	OnStateChanged func(ctx context.Context, from, to State) error

	// OnReconcilePass is called after each completed reconciliation pass.
	OnReconcilePass func(ctx context.Context, result PassResult) error

	// OnError is called when a recoverable error occurs.
	OnError func(ctx context.Context, err error) error
}
