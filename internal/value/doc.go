// Package value provides the field-value model shared by schemas, snapshots
// and persisters.
//
// Every column value read from or written to an entity is a Value. The set of
// implementations is sealed: Null, Bool, Int, Float, String, Bytes and Time.
// All of them are comparable, so a Value can sit inside a map key (identity
// keys rely on this).
//
// Key design constraints:
//   - Equal is value equality, never reference identity
//   - Bytes is backed by a string so it stays immutable and comparable
//   - Time compares by instant, the location is ignored
//   - Canonical JSON (MarshalCanonical) is the only serialization used for
//     digests and the flush journal
//
// This package imports nothing internal.
package value
