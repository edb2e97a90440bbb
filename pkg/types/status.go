package types

// Status describes where an asynchronous call is in its life.
type Status string

// Lifecycle statuses. The zero value marks a synchronous action.
const (
	StatusNone    Status = ""
	StatusStart   Status = "START"   // Fetch started
	StatusSuccess Status = "SUCCESS" // Fetch completed successfully
	StatusError   Status = "ERROR"   // Fetch completed with an error
)

// Valid reports whether s is one of START, SUCCESS, or ERROR.
func (s Status) Valid() bool {
	switch s {
	case StatusStart, StatusSuccess, StatusError:
		return true
	default:
		return false
	}
}

// ActionType separates actions produced by network calls from actions
// produced directly by callers.
type ActionType string

// Action types.
const (
	ActionAsync ActionType = "ASYNC"
	ActionSync  ActionType = "SYNC"
)

// Document is a plain JSON-shaped key-value document as received from or sent
// to the server.
type Document = map[string]any
