// Package store provides a SQLite-backed message log.
//
// A session groups the messages one node published or received. Each
// message row keeps:
//   - payload: the exact wire bytes
//   - values_json: canonical JSON of the decoded values
//   - content_hash: ir.MessageHash over the type name and payload
//
// Rows are ordered by seq, an autoincrement column. Timestamps are only
// recorded on sessions and never used for ordering.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
