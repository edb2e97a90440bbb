// Package record defines the immutable Record wrapped around a JSON-shaped
// document, the identity strategies that key records inside a collection, and
// the Kind capability struct that carries per-entity-type hooks.
//
// Records are values: every setter returns either the receiver (when nothing
// changed) or a new Record. Documents are copied on construction and updated
// by path copying, so unchanged branches are shared between versions.
package record
