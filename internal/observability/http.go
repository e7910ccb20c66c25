package observability

import "net/http"

// RequestIDHeader carries the caller-supplied request id.
const RequestIDHeader = "X-Request-Id"

func RequestIDFromRequest(r *http.Request) string {
	return r.Header.Get(RequestIDHeader)
}
