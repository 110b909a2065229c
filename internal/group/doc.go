// Package group implements membership groups on NATS JetStream KeyValue
// stores.
//
// A group is backed by three KV buckets:
//   - ids: stable node ID claims with TTL leases
//   - election: a single master key claimed atomically, renewed on a lease
//   - presence: per-node presence entries with TTL, watched for changes
//
// Exactly one group member holds the master key at any instant. Nodes that
// lose connectivity stop renewing their entries and fall out of the group
// when the TTLs expire, triggering Changed events on the survivors.
package group
