package rest

import (
	"errors"
	"fmt"
	"net/http"
)

var errNoResponse = errors.New("response pre-processing returned no response")

// CallError reports a response with a non-2xx status.
type CallError struct {
	StatusCode int
	Body       string
}

func (e *CallError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("HTTP %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Body)
}
