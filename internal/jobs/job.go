// Copyright (c) 2026 Fixaroo. All rights reserved.
// Author: dev@fixaroo.app

package jobs

import "time"

// JobStatus represents the lifecycle stage of a job request.
type JobStatus string

const (
	// JobStatusOpen indicates the request is waiting for a technician.
	JobStatusOpen JobStatus = "open"
	// JobStatusScheduled indicates a technician accepted and a visit is booked.
	JobStatusScheduled JobStatus = "scheduled"
	// JobStatusDispatched indicates the technician is on the way.
	JobStatusDispatched JobStatus = "dispatched"
	// JobStatusInProgress indicates work has started on site.
	JobStatusInProgress JobStatus = "in_progress"
	// JobStatusCompleted indicates the work is finished and billable.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusCancelled indicates the customer withdrew the request.
	JobStatusCancelled JobStatus = "cancelled"
)

// IsValid reports whether s is a recognised [JobStatus] value.
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusOpen, JobStatusScheduled, JobStatusDispatched,
		JobStatusInProgress, JobStatusCompleted, JobStatusCancelled:
		return true
	}
	return false
}

// JobRequest is the central aggregate of the Fixaroo marketplace.
//
// # Overview
//
// It represents one unit of work a customer wants done (a repair, an
// installation, a maintenance visit) from posting through completion or
// cancellation. Money is carried in integer cents to keep fee arithmetic
// exact.
type JobRequest struct {
	ID           string
	CustomerID   int64
	TechnicianID *int64 // nil until a technician accepts.
	Title        string
	Slug         string // URL-safe identifier (e.g. "leaking-kitchen-tap").
	Description  string
	Category     string
	Status       JobStatus

	QuotedAmountCents    int64      // Agreed price; 0 until quoted.
	ScheduledAt          *time.Time // Booked visit time; nil while open.
	DispatchedAt         *time.Time
	CancelledAt          *time.Time
	CancellationFeeCents int64 // Charged fee; 0 unless cancelled.

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time // nil = active; non-nil = soft-deleted.
}

// # Cancellation Fee Policy

// Fee tiers, in percent of the quoted amount. The notice window is measured
// against the booked visit time.
const (
	feePercentAfterDispatch = 100
	feePercentShortNotice   = 50 // less than 2 hours of notice
	feePercentLateNotice    = 25 // less than 24 hours of notice
	feePercentFreeNotice    = 0  // 24 hours or more of notice

	lateNoticeWindow  = 24 * time.Hour
	shortNoticeWindow = 2 * time.Hour
)

/*
CancellationFeeCentsAt computes the fee for cancelling the job at the given
moment.

Description: Once a technician has been dispatched (or is already working),
the full quoted amount is charged. Before dispatch the fee depends on how
much notice the customer gives relative to the booked visit: free with a day
or more, a quarter of the quote under a day, half under two hours. Jobs with
no booked visit yet cancel free.

Parameters:
  - at: time.Time (the cancellation moment)

Returns:
  - int64: Fee in cents, rounded down
*/
func (job *JobRequest) CancellationFeeCentsAt(at time.Time) int64 {
	percent := job.cancellationFeePercentAt(at)
	return job.QuotedAmountCents * int64(percent) / 100
}

func (job *JobRequest) cancellationFeePercentAt(at time.Time) int {
	if job.Status == JobStatusDispatched || job.Status == JobStatusInProgress {
		return feePercentAfterDispatch
	}

	// No visit booked yet: nothing to disrupt.
	if job.ScheduledAt == nil {
		return feePercentFreeNotice
	}

	notice := job.ScheduledAt.Sub(at)
	switch {
	case notice >= lateNoticeWindow:
		return feePercentFreeNotice
	case notice >= shortNoticeWindow:
		return feePercentLateNotice
	default:
		return feePercentShortNotice
	}
}

// Filter holds the parameters for a filtered job list query.
type Filter struct {
	Status       *JobStatus
	CustomerID   *int64
	TechnicianID *int64
	Categories   []string
	Query        string // Full-text search over title.
}

// # Field Identifiers

// Field name constants used for validation messages and JSON payloads.
const (
	FieldTitle        = "title"
	FieldDescription  = "description"
	FieldCategory     = "category"
	FieldStatus       = "status"
	FieldQuotedAmount = "quoted_amount_cents"
	FieldScheduledAt  = "scheduled_at"
)
