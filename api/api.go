// Package api defines the result envelope the routing layer consumes and
// the human-readable message catalog.
package api

// Result is the {status, message, data} envelope returned by every service
// operation. Status=false marks a precondition failure; the routing layer
// translates it into the appropriate HTTP status. Infrastructure failures
// are returned as errors alongside, never folded into the envelope.
type Result struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// OK builds a success result.
func OK(message string, data any) Result {
	return Result{Status: true, Message: message, Data: data}
}

// Fail builds a precondition-failure result.
func Fail(message string) Result {
	return Result{Status: false, Message: message}
}
