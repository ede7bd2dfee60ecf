// Copyright (c) 2026 Fixaroo. All rights reserved.
// Author: dev@fixaroo.app

package jobs

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fixaroo/fixaroo/internal/platform/apperr"
)

// # In-Memory Fake

type fakeRepo struct {
	jobs map[string]*JobRequest
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{jobs: map[string]*JobRequest{}}
}

func (r *fakeRepo) List(_ context.Context, filter Filter, limit, offset int) ([]*JobRequest, int, error) {
	var matched []*JobRequest
	for _, job := range r.jobs {
		if filter.Status != nil && job.Status != *filter.Status {
			continue
		}
		if filter.CustomerID != nil && job.CustomerID != *filter.CustomerID {
			continue
		}
		matched = append(matched, job)
	}
	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (r *fakeRepo) FindByID(_ context.Context, id string) (*JobRequest, error) {
	if job, ok := r.jobs[id]; ok {
		copied := *job
		return &copied, nil
	}
	return nil, apperr.NotFound("Job")
}

func (r *fakeRepo) FindBySlug(_ context.Context, slug string) (*JobRequest, error) {
	for _, job := range r.jobs {
		if job.Slug == slug {
			copied := *job
			return &copied, nil
		}
	}
	return nil, apperr.NotFound("Job")
}

func (r *fakeRepo) Create(_ context.Context, job *JobRequest) error {
	copied := *job
	r.jobs[job.ID] = &copied
	return nil
}

func (r *fakeRepo) Update(_ context.Context, job *JobRequest) error {
	if _, ok := r.jobs[job.ID]; !ok {
		return apperr.NotFound("Job")
	}
	copied := *job
	r.jobs[job.ID] = &copied
	return nil
}

func (r *fakeRepo) SoftDelete(_ context.Context, id string) error {
	delete(r.jobs, id)
	return nil
}

// newTestService pins the service clock to the given instant.
func newTestService(repo Repository, now time.Time) *Service {
	service := NewService(repo, slog.New(slog.DiscardHandler))
	service.now = func() time.Time { return now }
	return service
}

// # Cancellation Fee Policy

/*
TestJobRequest_CancellationFee walks every tier of the notice-based fee
policy against a fixed quote of $200.00.
*/
func TestJobRequest_CancellationFee(t *testing.T) {
	visit := time.Date(2026, 8, 29, 14, 0, 0, 0, time.UTC)
	quote := int64(20000)

	tests := []struct {
		name         string
		status       JobStatus
		scheduledAt  *time.Time
		cancelAt     time.Time
		wantFeeCents int64
	}{
		{
			name:         "open_job_without_visit_is_free",
			status:       JobStatusOpen,
			scheduledAt:  nil,
			cancelAt:     visit.Add(-time.Hour),
			wantFeeCents: 0,
		},
		{
			name:         "full_day_of_notice_is_free",
			status:       JobStatusScheduled,
			scheduledAt:  &visit,
			cancelAt:     visit.Add(-25 * time.Hour),
			wantFeeCents: 0,
		},
		{
			name:         "exactly_24h_of_notice_is_free",
			status:       JobStatusScheduled,
			scheduledAt:  &visit,
			cancelAt:     visit.Add(-24 * time.Hour),
			wantFeeCents: 0,
		},
		{
			name:         "under_a_day_charges_a_quarter",
			status:       JobStatusScheduled,
			scheduledAt:  &visit,
			cancelAt:     visit.Add(-23 * time.Hour),
			wantFeeCents: 5000,
		},
		{
			name:         "under_two_hours_charges_half",
			status:       JobStatusScheduled,
			scheduledAt:  &visit,
			cancelAt:     visit.Add(-90 * time.Minute),
			wantFeeCents: 10000,
		},
		{
			name:         "after_dispatch_charges_everything",
			status:       JobStatusDispatched,
			scheduledAt:  &visit,
			cancelAt:     visit.Add(-48 * time.Hour), // notice is irrelevant once dispatched
			wantFeeCents: 20000,
		},
		{
			name:         "in_progress_charges_everything",
			status:       JobStatusInProgress,
			scheduledAt:  &visit,
			cancelAt:     visit,
			wantFeeCents: 20000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &JobRequest{
				Status:            tt.status,
				ScheduledAt:       tt.scheduledAt,
				QuotedAmountCents: quote,
			}
			assert.Equal(t, tt.wantFeeCents, job.CancellationFeeCentsAt(tt.cancelAt))
		})
	}
}

// # Lifecycle

/*
TestService_JobLifecycle drives a job from posting through acceptance,
dispatch, and completion, checking the authorization guards along the way.
*/
func TestService_JobLifecycle(t *testing.T) {
	now := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	visit := now.Add(48 * time.Hour)
	repo := newFakeRepo()
	service := newTestService(repo, now)

	job, err := service.CreateJob(context.Background(), 7, CreateInput{
		Title:       "Leaking kitchen tap",
		Description: "Constant drip under the sink, probably a worn washer.",
		Category:    "plumbing",
	})
	require.NoError(t, err)
	assert.Equal(t, JobStatusOpen, job.Status)
	assert.Equal(t, "leaking-kitchen-tap", job.Slug)
	assert.NotEmpty(t, job.ID)

	// Slug lookup resolves to the same job.
	found, err := service.GetJob(context.Background(), "leaking-kitchen-tap")
	require.NoError(t, err)
	assert.Equal(t, job.ID, found.ID)

	accepted, err := service.AcceptJob(context.Background(), job.ID, 42, 20000, visit)
	require.NoError(t, err)
	assert.Equal(t, JobStatusScheduled, accepted.Status)
	require.NotNil(t, accepted.TechnicianID)
	assert.Equal(t, int64(42), *accepted.TechnicianID)

	// A second technician cannot claim it again.
	_, err = service.AcceptJob(context.Background(), job.ID, 43, 18000, visit)
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperr.As(err).Code)

	// Only the assigned technician can dispatch.
	_, err = service.DispatchJob(context.Background(), job.ID, 43)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperr.As(err).Code)

	dispatched, err := service.DispatchJob(context.Background(), job.ID, 42)
	require.NoError(t, err)
	assert.Equal(t, JobStatusDispatched, dispatched.Status)
	require.NotNil(t, dispatched.DispatchedAt)

	completed, err := service.CompleteJob(context.Background(), job.ID, 42)
	require.NoError(t, err)
	assert.Equal(t, JobStatusCompleted, completed.Status)

	// A completed job cannot be cancelled.
	_, err = service.CancelJob(context.Background(), job.ID, 7)
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperr.As(err).Code)
}

/*
TestService_AcceptJob_Validation covers the quote and visit-time guards.
*/
func TestService_AcceptJob_Validation(t *testing.T) {
	now := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	service := newTestService(repo, now)

	job, err := service.CreateJob(context.Background(), 7, CreateInput{
		Title:       "Broken thermostat",
		Description: "Heating stuck at full blast.",
		Category:    "hvac",
	})
	require.NoError(t, err)

	_, err = service.AcceptJob(context.Background(), job.ID, 42, 0, now.Add(time.Hour))
	require.Error(t, err)
	assert.Equal(t, "UNPROCESSABLE", apperr.As(err).Code)

	_, err = service.AcceptJob(context.Background(), job.ID, 42, 10000, now.Add(-time.Hour))
	require.Error(t, err)
	assert.Equal(t, "UNPROCESSABLE", apperr.As(err).Code)
}

/*
TestService_CancelJob verifies ownership, fee bookkeeping, and that the fee
lands on the persisted record.
*/
func TestService_CancelJob(t *testing.T) {
	now := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	visit := now.Add(12 * time.Hour) // under a day of notice -> 25%
	repo := newFakeRepo()
	service := newTestService(repo, now)

	job, err := service.CreateJob(context.Background(), 7, CreateInput{
		Title:       "Fence repair",
		Description: "Two panels blew down in the storm.",
		Category:    "carpentry",
	})
	require.NoError(t, err)

	_, err = service.AcceptJob(context.Background(), job.ID, 42, 20000, visit)
	require.NoError(t, err)

	// A stranger cannot cancel someone else's job.
	_, err = service.CancelJob(context.Background(), job.ID, 8)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperr.As(err).Code)

	outcome, err := service.CancelJob(context.Background(), job.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), outcome.FeeCents)
	assert.Equal(t, JobStatusCancelled, outcome.Job.Status)
	require.NotNil(t, outcome.Job.CancelledAt)

	persisted, err := repo.FindByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), persisted.CancellationFeeCents)
}

/*
TestService_WithdrawJob verifies that only the posting customer can withdraw
an open listing, that accepted jobs must go through cancellation instead, and
that withdrawal removes the listing.
*/
func TestService_WithdrawJob(t *testing.T) {
	now := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	repo := newFakeRepo()
	service := newTestService(repo, now)

	job, err := service.CreateJob(context.Background(), 7, CreateInput{
		Title:       "Gutter cleaning",
		Description: "Front gutters overflowing.",
		Category:    "exterior",
	})
	require.NoError(t, err)

	// A stranger cannot withdraw someone else's listing.
	err = service.WithdrawJob(context.Background(), job.ID, 8)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperr.As(err).Code)

	require.NoError(t, service.WithdrawJob(context.Background(), job.ID, 7))

	_, err = service.GetJob(context.Background(), job.ID)
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperr.As(err).Code)

	// Once a technician has committed, the listing can only be cancelled.
	accepted, err := service.CreateJob(context.Background(), 7, CreateInput{
		Title:       "Roof inspection",
		Description: "Check for loose tiles after the storm.",
		Category:    "roofing",
	})
	require.NoError(t, err)
	_, err = service.AcceptJob(context.Background(), accepted.ID, 42, 15000, now.Add(48*time.Hour))
	require.NoError(t, err)

	err = service.WithdrawJob(context.Background(), accepted.ID, 7)
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", apperr.As(err).Code)
}

/*
TestService_CreateJob_Validation verifies that missing fields are refused
with per-field details.
*/
func TestService_CreateJob_Validation(t *testing.T) {
	service := newTestService(newFakeRepo(), time.Now())

	_, err := service.CreateJob(context.Background(), 7, CreateInput{})
	require.Error(t, err)

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "VALIDATION_ERROR", ae.Code)
	assert.Len(t, ae.Details, 3)
}
