package engine

// Status classifies how a run ended.
type Status string

const (
	// StatusSuccess means every fetched punch was applied.
	StatusSuccess Status = "success"

	// StatusPartial means the run completed but some punches were
	// skipped or rejected along the way.
	StatusPartial Status = "partial"

	// StatusFailure means the run aborted before the backlog was fully
	// applied. Rows committed before the failure remain.
	StatusFailure Status = "failure"
)

// Report summarizes one sync run. Counters cover the whole run; Errors
// carries one message per distinct recovered problem, not one per punch.
type Report struct {
	RunID    string `json:"run_id"`
	DeviceID string `json:"device_id"`
	Mode     string `json:"mode"`
	Status   Status `json:"status"`

	UsersSeen int `json:"users_seen"`
	Fetched   int `json:"fetched"`
	Upserted  int `json:"upserted"`

	SpansCreated   int `json:"spans_created"`
	SpansClosed    int `json:"spans_closed"`
	SpansDiscarded int `json:"spans_discarded"`

	IdentitiesCreated int `json:"identities_created"`
	IdentitiesLinked  int `json:"identities_linked"`

	Deduplicated  int `json:"deduplicated"`
	StraysDropped int `json:"strays_dropped"`
	Skipped       int `json:"skipped"`

	Errors []string `json:"errors,omitempty"`
}

// note records a recovered problem on the report.
func (r *Report) note(msg string) {
	r.Errors = append(r.Errors, msg)
}

// finish settles the terminal status. A failure stays a failure; anything
// skipped or noted degrades success to partial.
func (r *Report) finish() {
	if r.Status == StatusFailure {
		return
	}
	if r.Skipped > 0 || len(r.Errors) > 0 {
		r.Status = StatusPartial
		return
	}
	r.Status = StatusSuccess
}
