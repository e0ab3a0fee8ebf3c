package model

import "time"

// DeliveryAttempt is one delivery try of a job's bundle to one target.
// Attempts are append-only log entries: re-distributing to the same target
// creates a new attempt rather than mutating a prior one.
type DeliveryAttempt struct {
	ID         string        `json:"id"`
	JobID      string        `json:"jobId"`
	TargetKind TargetKind    `json:"targetKind"`
	Status     AttemptStatus `json:"status"`

	// PostID/PostURL are set iff Status == posted and the adapter returned them.
	PostID  string `json:"postId,omitempty"`
	PostURL string `json:"postUrl,omitempty"`

	// ErrorMessage is set iff Status == failed.
	ErrorMessage string `json:"errorMessage,omitempty"`

	RequestedAt time.Time  `json:"requestedAt"`
	ResolvedAt  *time.Time `json:"resolvedAt,omitempty"`
}

// DistributeRequest selects the delivery targets for a completed job.
type DistributeRequest struct {
	Targets []TargetKind `json:"targets" validate:"required,min=1,dive,oneof=linkedin twitter facebook instagram email"`
}

// DistributeResponse acknowledges the created attempts.
type DistributeResponse struct {
	JobID      string   `json:"jobId"`
	AttemptIDs []string `json:"attemptIds"`
	Status     string   `json:"status"`
}

// AttemptListResponse holds attempt snapshots ordered by requestedAt asc.
type AttemptListResponse struct {
	JobID    string            `json:"jobId"`
	Attempts []DeliveryAttempt `json:"attempts"`
	Resolved bool              `json:"resolved"`
}

// TargetStats aggregates attempt outcomes for one platform.
type TargetStats struct {
	Total       int     `json:"total"`
	Successful  int     `json:"successful"`
	Failed      int     `json:"failed"`
	SuccessRate float64 `json:"successRate"`
}

// AnalyticsOverviewResponse summarizes distribution outcomes per platform.
type AnalyticsOverviewResponse struct {
	TotalJobs     int                        `json:"totalJobs"`
	PlatformStats map[TargetKind]TargetStats `json:"platformStats"`
}
