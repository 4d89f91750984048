package linkverify

import (
	"time"
)

// BrokenLinkEvent is published to JetStream for every failure when a subject
// is configured, so downstream tooling can open issues or notify authors.
type BrokenLinkEvent struct {
	BuildID  string `json:"build_id"`
	Source   string `json:"source"`  // original path of the referencing item
	Current  string `json:"current"` // output path of the referencing item
	Title    string `json:"title,omitempty"`
	Raw      string `json:"raw"`
	Target   string `json:"target,omitempty"`
	Reason   Reason `json:"reason"`
	Severity string `json:"severity"`
	Status   int    `json:"status,omitempty"` // HTTP status code (0 for non-HTTP errors)
	Error    string `json:"error,omitempty"`

	Timestamp     time.Time `json:"timestamp"`
	FailureCount  int       `json:"failure_count,omitempty"`    // consecutive failures recorded in the cache
	FirstFailedAt time.Time `json:"first_failed_at,omitzero"`
}

func newEvent(buildID string, f Failure, title string) *BrokenLinkEvent {
	return &BrokenLinkEvent{
		BuildID:  buildID,
		Source:   f.Source,
		Current:  f.Current,
		Title:    title,
		Raw:      f.Raw,
		Target:   f.Target,
		Reason:   f.Reason,
		Severity: string(f.Severity),
		Status:   f.Status,
		Error:    f.Detail,
	}
}
