package loader

import "fmt"

// Status describes how a Result was produced.
type Status string

const (
	// The fragment was served from the session cache without any I/O.
	StatusHit Status = "hit"
	// The fragment was retrieved from the content origin and stored.
	StatusFetched Status = "fetched"
	// Retrieval failed; the content is a fallback fragment and was not stored.
	StatusFallback Status = "fallback"
	// The caller stopped waiting before the retrieval settled.
	StatusPending Status = "pending"
)

// Result is the settled value of a load.
type Result struct {
	ID      string
	Content string
	Status  Status
	// Err is the failure behind a fallback or pending result.
	Err error
}

// Stored reports whether the content of the result is in the session cache.
func (r Result) Stored() bool {
	return r.Status == StatusHit || r.Status == StatusFetched
}

// CacheStatus formats the result as a Cache-Status header value (RFC 9211).
func (r Result) CacheStatus() string {
	switch r.Status {
	case StatusHit:
		return "SectionViewer; hit"
	case StatusFetched:
		return "SectionViewer; fwd=uri-miss; stored"
	case StatusFallback:
		return "SectionViewer; fwd=uri-miss; detail=fallback"
	default:
		return fmt.Sprintf("SectionViewer; fwd=uri-miss; detail=%s", r.Status)
	}
}
