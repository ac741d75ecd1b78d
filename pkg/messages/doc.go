// Package messages persists in-app notification messages.
//
// A Message is the receiver-scoped in-app copy of a notification: sending to
// N users produces N rows, and a receiver deleting their copy never affects
// anyone else's (soft delete per reader).
//
// The package separates the Storage backend (memory for tests, PostgreSQL in
// production) from the Store orchestrator. Store owns the bulk-insert
// fallback: CreateBulk first attempts one multi-row insert and, if that
// fails, degrades to per-row inserts so a single malformed row cannot drop a
// whole admin broadcast.
package messages
