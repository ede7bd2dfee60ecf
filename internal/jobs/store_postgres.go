// Copyright (c) 2026 Fixaroo. All rights reserved.
// Author: dev@fixaroo.app

package jobs

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fixaroo/fixaroo/internal/platform/apperr"
	"github.com/fixaroo/fixaroo/internal/platform/dberr"
)

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository constructs a PostgreSQL backed jobs store.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// jobColumns is the canonical select list shared by the single-row lookups.
const jobColumns = `
	id, customerid, technicianid, title, slug, description, category, status,
	quotedamountcents, scheduledat, dispatchedat, cancelledat,
	cancellationfeecents, createdat, updatedat
`

/*
List returns a filtered and paginated list of job requests.

Description: Uses ILIKE for title search and COUNT(*) OVER() for total metadata.

Parameters:
  - context: context.Context
  - filter: Filter
  - limit: int
  - offset: int

Returns:
  - []*JobRequest: Slice of matching jobs
  - int: Total record count
  - error: Database retrieval failures
*/
func (repository *PostgresRepository) List(context context.Context, filter Filter, limit, offset int) ([]*JobRequest, int, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT
			id, customerid, technicianid, title, slug, description, category, status,
			quotedamountcents, scheduledat, dispatchedat, cancelledat,
			cancellationfeecents, createdat, updatedat,
			COUNT(*) OVER() as total
		FROM jobs.jobrequest
		WHERE deletedat IS NULL
	`)

	args := []any{}
	argID := 1

	if filter.Status != nil {
		queryBuilder.WriteString(fmt.Sprintf(" AND status = $%d", argID))
		args = append(args, *filter.Status)
		argID++
	}

	if filter.CustomerID != nil {
		queryBuilder.WriteString(fmt.Sprintf(" AND customerid = $%d", argID))
		args = append(args, *filter.CustomerID)
		argID++
	}

	if filter.TechnicianID != nil {
		queryBuilder.WriteString(fmt.Sprintf(" AND technicianid = $%d", argID))
		args = append(args, *filter.TechnicianID)
		argID++
	}

	if len(filter.Categories) > 0 {
		queryBuilder.WriteString(fmt.Sprintf(" AND category = ANY($%d)", argID))
		args = append(args, filter.Categories)
		argID++
	}

	if filter.Query != "" {
		queryBuilder.WriteString(fmt.Sprintf(" AND title ILIKE $%d", argID))
		args = append(args, "%"+filter.Query+"%")
		argID++
	}

	queryBuilder.WriteString(fmt.Sprintf(" ORDER BY createdat DESC LIMIT $%d OFFSET $%d", argID, argID+1))
	args = append(args, limit, offset)

	rows, err := repository.db.Query(context, queryBuilder.String(), args...)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_jobs")
	}
	defer rows.Close()

	var results []*JobRequest
	var total int
	for rows.Next() {
		job := &JobRequest{}
		err := rows.Scan(
			&job.ID, &job.CustomerID, &job.TechnicianID, &job.Title, &job.Slug,
			&job.Description, &job.Category, &job.Status,
			&job.QuotedAmountCents, &job.ScheduledAt, &job.DispatchedAt, &job.CancelledAt,
			&job.CancellationFeeCents, &job.CreatedAt, &job.UpdatedAt, &total,
		)
		if err != nil {
			return nil, 0, dberr.Wrap(err, "scan_job")
		}
		results = append(results, job)
	}

	return results, total, nil
}

/*
FindByID retrieves a single job record by its primary key.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - *JobRequest: Hydrated entity
  - error: NotFound or database retrieval failures
*/
func (repository *PostgresRepository) FindByID(context context.Context, id string) (*JobRequest, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs.jobrequest WHERE id = $1 AND deletedat IS NULL`
	return repository.scanOne(context, query, id)
}

/*
FindBySlug retrieves a single job record by its URL slug.

Parameters:
  - context: context.Context
  - slug: string

Returns:
  - *JobRequest: Hydrated entity
  - error: NotFound or database retrieval failures
*/
func (repository *PostgresRepository) FindBySlug(context context.Context, slug string) (*JobRequest, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs.jobrequest WHERE slug = $1 AND deletedat IS NULL`
	return repository.scanOne(context, query, slug)
}

func (repository *PostgresRepository) scanOne(context context.Context, query string, arg any) (*JobRequest, error) {
	job := &JobRequest{}
	err := repository.db.QueryRow(context, query, arg).Scan(
		&job.ID, &job.CustomerID, &job.TechnicianID, &job.Title, &job.Slug,
		&job.Description, &job.Category, &job.Status,
		&job.QuotedAmountCents, &job.ScheduledAt, &job.DispatchedAt, &job.CancelledAt,
		&job.CancellationFeeCents, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Job")
		}
		return nil, dberr.Wrap(err, "find_job")
	}
	return job, nil
}

/*
Create persists a new job request row.

Parameters:
  - context: context.Context
  - job: *JobRequest

Returns:
  - error: Constraint or connection failures
*/
func (repository *PostgresRepository) Create(context context.Context, job *JobRequest) error {
	const query = `
		INSERT INTO jobs.jobrequest (
			id, customerid, title, slug, description, category, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING createdat, updatedat
	`
	err := repository.db.QueryRow(context, query,
		job.ID, job.CustomerID, job.Title, job.Slug,
		job.Description, job.Category, job.Status,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return dberr.Wrap(err, "create_job")
	}
	return nil
}

/*
Update persists the mutable fields of an existing job.

Parameters:
  - context: context.Context
  - job: *JobRequest

Returns:
  - error: NotFound or connection failures
*/
func (repository *PostgresRepository) Update(context context.Context, job *JobRequest) error {
	const query = `
		UPDATE jobs.jobrequest SET
			technicianid = $2, title = $3, description = $4, category = $5,
			status = $6, quotedamountcents = $7, scheduledat = $8,
			dispatchedat = $9, cancelledat = $10, cancellationfeecents = $11,
			updatedat = NOW()
		WHERE id = $1 AND deletedat IS NULL
	`
	tag, err := repository.db.Exec(context, query,
		job.ID, job.TechnicianID, job.Title, job.Description, job.Category,
		job.Status, job.QuotedAmountCents, job.ScheduledAt,
		job.DispatchedAt, job.CancelledAt, job.CancellationFeeCents,
	)
	if err != nil {
		return dberr.Wrap(err, "update_job")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Job")
	}
	return nil
}

/*
SoftDelete marks a job as deleted without removing the row.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - error: NotFound or connection failures
*/
func (repository *PostgresRepository) SoftDelete(context context.Context, id string) error {
	const query = `UPDATE jobs.jobrequest SET deletedat = NOW() WHERE id = $1 AND deletedat IS NULL`
	tag, err := repository.db.Exec(context, query, id)
	if err != nil {
		return dberr.Wrap(err, "delete_job")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Job")
	}
	return nil
}
