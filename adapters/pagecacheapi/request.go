package pagecacheapi

import "context"

// Request provides minimal request access for transport adapters.
type Request interface {
	Context() context.Context
	Method() string
	// RawQuery is the undecoded query string, with parameters in request order.
	RawQuery() string
}

// Response provides a minimal response interface for transport adapters.
type Response interface {
	SetHeader(name, value string)
	WriteJSON(status int, payload any) error
}
