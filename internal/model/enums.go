package model

// Job status
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// Terminal reports whether no further status transition is allowed.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Delivery attempt status
type AttemptStatus string

const (
	AttemptStatusQueued  AttemptStatus = "queued"
	AttemptStatusPosting AttemptStatus = "posting"
	AttemptStatusPosted  AttemptStatus = "posted"
	AttemptStatusFailed  AttemptStatus = "failed"
)

// Terminal reports whether the attempt has resolved.
func (s AttemptStatus) Terminal() bool {
	return s == AttemptStatusPosted || s == AttemptStatusFailed
}

// Target kinds (delivery platforms)
type TargetKind string

const (
	TargetLinkedIn  TargetKind = "linkedin"
	TargetTwitter   TargetKind = "twitter"
	TargetFacebook  TargetKind = "facebook"
	TargetInstagram TargetKind = "instagram"
	TargetEmail     TargetKind = "email"
)

var ValidTargets = []TargetKind{
	TargetLinkedIn, TargetTwitter, TargetFacebook, TargetInstagram, TargetEmail,
}

// IsValidTarget reports whether kind names a known delivery platform.
func IsValidTarget(kind TargetKind) bool {
	for _, t := range ValidTargets {
		if t == kind {
			return true
		}
	}
	return false
}

// Content formats
type ContentFormat string

const (
	FormatText     ContentFormat = "text"
	FormatMarkdown ContentFormat = "markdown"
	FormatHTML     ContentFormat = "html"
)

// Generation failure causes
type FailureCause string

const (
	CauseProducerError FailureCause = "producer_error"
	CauseTimeout       FailureCause = "timeout"
)
