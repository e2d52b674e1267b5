package fetch

import "errors"

// Sentinel kinds for fetch failures. Callers classify with errors.Is.
var (
	ErrCircuitOpen = errors.New("circuit open for host")
	ErrHTTPStatus  = errors.New("non-2xx response")
	ErrDecode      = errors.New("payload decode failed")
	ErrTransport   = errors.New("transport failure")
)
