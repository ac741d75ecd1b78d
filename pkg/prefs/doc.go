// Package prefs manages per-user notification email preferences.
//
// The category catalog is fixed at compile time. Locked categories
// (verification, security, direct messages) can never be disabled: reads for
// them always answer "send" and update entries targeting them are silently
// dropped. Optional categories default to enabled; a user's opt-outs are
// stored compactly as a bitmask keyed by user id, where no stored row means
// "everything enabled".
//
// All read paths fail open. An unknown category, a missing account, or a
// storage error answers "send", because blocking a delivery on a
// classification error is worse than one redundant email.
//
// Reads go through a process-local LRU cache; Update invalidates only the
// local entry for that user. Other processes serve their cached value until
// eviction, an accepted staleness window.
package prefs
