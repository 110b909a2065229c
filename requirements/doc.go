// Package requirements provides built-in requirements stores.
//
// A requirements store is the combination of two capabilities: a
// RequirementsSource that hands out document snapshots, and a
// ConfigurationChangeTracker that invokes callbacks when the document
// changes. Two implementations are provided:
//
//   - Static: an in-memory document, updated programmatically. Useful for
//     tests and embedded deployments.
//   - NATSKV: a JSON document stored in a NATS JetStream KV bucket, with
//     change tracking driven by a KV watcher. Useful when operators manage
//     requirements out of band.
package requirements
