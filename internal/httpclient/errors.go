package httpclient

import "fmt"

// UpstreamError carries the raw status and body of a failed provider call so
// callers can surface the provider's own error message.
type UpstreamError struct {
	StatusCode int
	Body       []byte
	URL        string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned %d from %s: %s", e.StatusCode, e.URL, truncate(e.Body, 512))
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
