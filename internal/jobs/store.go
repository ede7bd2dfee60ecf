// Copyright (c) 2026 Fixaroo. All rights reserved.
// Author: dev@fixaroo.app

package jobs

import "context"

// Repository defines the data access contract for the jobs domain.
//
// # Architecture
//
// The interface lives in the domain package because the service layer (the
// consumer) defines what it needs; the pgx implementation lives alongside it
// in store_postgres.go.
type Repository interface {
	// List returns a filtered, paginated slice of job requests and the total count.
	//
	// Returns:
	//   - []*JobRequest: The list of jobs matching the filter.
	//   - int: Total count for pagination.
	//   - error: Database or connection errors.
	List(ctx context.Context, f Filter, limit, offset int) ([]*JobRequest, int, error)

	// FindByID returns the job with the given ID.
	//
	// It returns ErrNotFound if the job is absent or soft-deleted.
	FindByID(ctx context.Context, id string) (*JobRequest, error)

	// FindBySlug returns the job with the given slug.
	FindBySlug(ctx context.Context, slug string) (*JobRequest, error)

	// Create persists a new job request.
	//
	// The caller is responsible for generating and setting the ID and Slug
	// before calling this method.
	Create(ctx context.Context, job *JobRequest) error

	// Update persists changes to an existing job's mutable fields, including
	// status transitions and cancellation bookkeeping.
	Update(ctx context.Context, job *JobRequest) error

	// SoftDelete marks a job as deleted without removing the row.
	SoftDelete(ctx context.Context, id string) error
}
