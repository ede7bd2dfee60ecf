// Copyright (c) 2026 Fixaroo. All rights reserved.
// Author: dev@fixaroo.app

package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/fixaroo/fixaroo/internal/platform/apperr"
	"github.com/fixaroo/fixaroo/internal/platform/validate"
	"github.com/fixaroo/fixaroo/pkg/slug"
	"github.com/fixaroo/fixaroo/pkg/uuid"
)

// # Service Layer

// Service orchestrates business rules for job requests: posting, matching,
// lifecycle transitions, and the cancellation fee policy.
type Service struct {
	repo   Repository
	logger *slog.Logger

	// now is swappable so fee-window tests can pin the clock.
	now func() time.Time
}

// NewService constructs a new jobs [Service].
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// # Posting & Discovery

// CreateInput holds the customer-supplied fields for a new job request.
type CreateInput struct {
	Title       string
	Description string
	Category    string
}

/*
CreateJob posts a new job request on behalf of a customer.

Parameters:
  - context: context.Context
  - customerID: int64
  - input: CreateInput

Returns:
  - *JobRequest: Created entity
  - error: Validation or persistence failures
*/
func (service *Service) CreateJob(context context.Context, customerID int64, input CreateInput) (*JobRequest, error) {
	validator := &validate.Validator{}
	validator.Required(FieldTitle, input.Title).
		MaxLen(FieldTitle, input.Title, 200).
		Required(FieldDescription, input.Description).
		MaxLen(FieldDescription, input.Description, 5000).
		Required(FieldCategory, input.Category)

	if err := validator.Err(); err != nil {
		return nil, err
	}

	job := &JobRequest{
		ID:          uuid.New(),
		CustomerID:  customerID,
		Title:       input.Title,
		Slug:        slug.From(input.Title),
		Description: input.Description,
		Category:    input.Category,
		Status:      JobStatusOpen,
	}

	if err := service.repo.Create(context, job); err != nil {
		return nil, err
	}

	service.logger.Info("job_created",
		slog.String("job_id", job.ID),
		slog.Int64("customer_id", customerID),
	)

	return job, nil
}

/*
ListJobs retrieves a paginated and filtered list of job requests.

Parameters:
  - context: context.Context
  - filter: Filter
  - limit, offset: int

Returns:
  - []*JobRequest: List of jobs
  - int: Total matching count
  - error: Retrieval errors
*/
func (service *Service) ListJobs(context context.Context, filter Filter, limit, offset int) ([]*JobRequest, int, error) {
	return service.repo.List(context, filter, limit, offset)
}

/*
GetJob retrieves a job by its UUID or Slug identifier.

Parameters:
  - context: context.Context
  - identifier: string

Returns:
  - *JobRequest: Hydrated entity
  - error: ErrNotFound if missing
*/
func (service *Service) GetJob(context context.Context, identifier string) (*JobRequest, error) {

	// Discriminator: ID vs Slug
	// UUIDs have a fixed length of 36 characters in standard hyphenated format.
	if len(identifier) == 36 {
		return service.repo.FindByID(context, identifier)
	}

	return service.repo.FindBySlug(context, identifier)
}

// # Lifecycle Transitions

/*
AcceptJob assigns a technician to an open job and books the visit.

Parameters:
  - context: context.Context
  - jobID: string
  - technicianID: int64
  - quotedAmountCents: int64
  - scheduledAt: time.Time

Returns:
  - *JobRequest: Updated entity
  - error: NotFound, Conflict (wrong state), or validation failures
*/
func (service *Service) AcceptJob(context context.Context, jobID string, technicianID, quotedAmountCents int64, scheduledAt time.Time) (*JobRequest, error) {
	job, err := service.repo.FindByID(context, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status != JobStatusOpen {
		return nil, apperr.Conflict("Job is no longer open for acceptance")
	}
	if quotedAmountCents <= 0 {
		return nil, apperr.Unprocessable("Quoted amount must be positive")
	}
	if scheduledAt.Before(service.now()) {
		return nil, apperr.Unprocessable("Scheduled time must be in the future")
	}

	job.TechnicianID = &technicianID
	job.QuotedAmountCents = quotedAmountCents
	job.ScheduledAt = &scheduledAt
	job.Status = JobStatusScheduled

	if err := service.repo.Update(context, job); err != nil {
		return nil, err
	}

	service.logger.Info("job_accepted",
		slog.String("job_id", job.ID),
		slog.Int64("technician_id", technicianID),
	)

	return job, nil
}

/*
DispatchJob marks the assigned technician as on the way.

Parameters:
  - context: context.Context
  - jobID: string
  - technicianID: int64 (must be the assigned technician)

Returns:
  - *JobRequest: Updated entity
  - error: NotFound, Forbidden, or Conflict failures
*/
func (service *Service) DispatchJob(context context.Context, jobID string, technicianID int64) (*JobRequest, error) {
	job, err := service.repo.FindByID(context, jobID)
	if err != nil {
		return nil, err
	}

	if job.TechnicianID == nil || *job.TechnicianID != technicianID {
		return nil, apperr.Forbidden("Only the assigned technician can dispatch")
	}
	if job.Status != JobStatusScheduled {
		return nil, apperr.Conflict("Job is not in a dispatchable state")
	}

	now := service.now()
	job.Status = JobStatusDispatched
	job.DispatchedAt = &now

	if err := service.repo.Update(context, job); err != nil {
		return nil, err
	}

	return job, nil
}

/*
CompleteJob closes out a dispatched or in-progress job.

Parameters:
  - context: context.Context
  - jobID: string
  - technicianID: int64 (must be the assigned technician)

Returns:
  - *JobRequest: Updated entity
  - error: NotFound, Forbidden, or Conflict failures
*/
func (service *Service) CompleteJob(context context.Context, jobID string, technicianID int64) (*JobRequest, error) {
	job, err := service.repo.FindByID(context, jobID)
	if err != nil {
		return nil, err
	}

	if job.TechnicianID == nil || *job.TechnicianID != technicianID {
		return nil, apperr.Forbidden("Only the assigned technician can complete the job")
	}
	if job.Status != JobStatusDispatched && job.Status != JobStatusInProgress {
		return nil, apperr.Conflict("Job is not in a completable state")
	}

	job.Status = JobStatusCompleted

	if err := service.repo.Update(context, job); err != nil {
		return nil, err
	}

	service.logger.Info("job_completed", slog.String("job_id", job.ID))

	return job, nil
}

// # Cancellation

// CancelOutcome reports what a cancellation cost the customer.
type CancelOutcome struct {
	Job      *JobRequest
	FeeCents int64
}

/*
CancelJob withdraws a job request on behalf of its customer and applies the
cancellation fee policy.

Description: The fee is computed against the booked visit time at the moment
of cancellation: free with at least a day of notice, a quarter of the quote
under a day, half under two hours, and the full quote once the technician has
been dispatched. Completed or already-cancelled jobs cannot be cancelled.

Parameters:
  - context: context.Context
  - jobID: string
  - customerID: int64 (must be the posting customer)

Returns:
  - *CancelOutcome: Updated entity plus the charged fee
  - error: NotFound, Forbidden, or Conflict failures
*/
func (service *Service) CancelJob(context context.Context, jobID string, customerID int64) (*CancelOutcome, error) {
	job, err := service.repo.FindByID(context, jobID)
	if err != nil {
		return nil, err
	}

	if job.CustomerID != customerID {
		return nil, apperr.Forbidden("Only the posting customer can cancel this job")
	}
	if job.Status == JobStatusCompleted || job.Status == JobStatusCancelled {
		return nil, apperr.Conflict("Job can no longer be cancelled")
	}

	now := service.now()
	fee := job.CancellationFeeCentsAt(now)

	job.Status = JobStatusCancelled
	job.CancelledAt = &now
	job.CancellationFeeCents = fee

	if err := service.repo.Update(context, job); err != nil {
		return nil, err
	}

	service.logger.Info("job_cancelled",
		slog.String("job_id", job.ID),
		slog.Int64("fee_cents", fee),
	)

	return &CancelOutcome{Job: job, FeeCents: fee}, nil
}

/*
WithdrawJob removes an open job request from the marketplace entirely.

Description: Unlike cancellation, withdrawal is only possible while the job
is still open — no technician has committed, so no fee applies and the
listing simply disappears (soft delete). Accepted or later-stage jobs must go
through CancelJob instead.

Parameters:
  - context: context.Context
  - jobID: string
  - customerID: int64 (must be the posting customer)

Returns:
  - error: NotFound, Forbidden, or Conflict failures
*/
func (service *Service) WithdrawJob(context context.Context, jobID string, customerID int64) error {
	job, err := service.repo.FindByID(context, jobID)
	if err != nil {
		return err
	}

	if job.CustomerID != customerID {
		return apperr.Forbidden("Only the posting customer can withdraw this job")
	}
	if job.Status != JobStatusOpen {
		return apperr.Conflict("Only open jobs can be withdrawn")
	}

	if err := service.repo.SoftDelete(context, jobID); err != nil {
		return err
	}

	service.logger.Info("job_withdrawn", slog.String("job_id", job.ID))
	return nil
}
