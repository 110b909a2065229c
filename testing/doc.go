// Package testing provides test utilities for the profscale library.
//
// This package offers helpers for setting up test environments: an embedded
// NATS server for integration testing, and fakes for the controller's
// capability interfaces. It follows Go's convention of providing testing
// utilities in a dedicated package (similar to net/http/httptest).
//
// Key utilities:
//   - StartEmbeddedNATS: Single NATS server with JetStream
//   - CreateJetStreamKV: Convenience wrapper for KV bucket creation
//   - NewTestLogger: Logger writing to testing.T
//   - FakeInventory, FakeAutoscaler, FakeVersionSource, FakeGroup: fakes for
//     unit-testing reconciliation without a cluster
//
// Example usage:
//
//	import (
//	    "testing"
//	    pstest "github.com/profscale/profscale/testing"
//	)
//
//	func TestMyComponent(t *testing.T) {
//	    _, nc := pstest.StartEmbeddedNATS(t)
//	    // Use nc for your tests
//	}
package testing
