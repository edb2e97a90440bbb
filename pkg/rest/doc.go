// Package rest performs the network side of a collection's asynchronous
// verbs. A Client validates the record, refuses a second call while one is
// in flight, builds the request from configurable hooks, and reports the
// call's START, SUCCESS, or ERROR through the owning service.
package rest
