// Package service implements the collection store: an immutable State
// snapshot of records keyed by identity plus the UI workflow pointers
// (current, editing, deleting, selected), the Service that owns one State and
// reduces actions into it through a verb/status dispatch table, and the Hub
// that dispatches every action to every registered Service.
//
// All reduction is serialized by the Hub; the only asynchronous boundary is
// the network call made by an Executor, which reports back by dispatching
// START, SUCCESS, and ERROR actions.
package service
