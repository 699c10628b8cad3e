// Package domain holds cross-cutting types shared by every layer: the
// storage key prefix, sentinel errors, and the embedding contract consumed
// by the vector store and its decorators.
package domain

// KeyPrefix namespaces every key this engine writes to the backing store
// (pattern index, vector records, session snapshots, budget counters).
const KeyPrefix = "fetchcascade:"
