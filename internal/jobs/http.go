// Copyright (c) 2026 Fixaroo. All rights reserved.
// Author: dev@fixaroo.app

/*
Package jobs provides the marketplace core of Fixaroo: customers post job
requests, technicians accept and work them, and cancellations are charged
according to the notice-based fee policy.

# Routing Strategy

  - Public (v1): Listing and detail views (GET /jobs).
  - Authenticated: Posting, accepting, dispatching, completing, cancelling.

The handler translates between the REST layer and the [Service] domain.
*/
package jobs

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fixaroo/fixaroo/internal/platform/middleware"
	requestutil "github.com/fixaroo/fixaroo/internal/platform/request"
	"github.com/fixaroo/fixaroo/internal/platform/respond"
	"github.com/fixaroo/fixaroo/pkg/convert"
	"github.com/fixaroo/fixaroo/pkg/pagination"
	"github.com/fixaroo/fixaroo/pkg/pointer"
	"github.com/fixaroo/fixaroo/pkg/query"
	"github.com/fixaroo/fixaroo/pkg/slice"
)

// # Handler Implementation

// Handler implements the HTTP layer for job request operations.
type Handler struct {
	service *Service
}

// NewHandler constructs a new jobs [Handler].
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns a [chi.Router] configured with job-related endpoints.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	// ## Public Discovery
	router.Get("/", handler.listJobs)
	router.Get("/{identifier}", handler.getJob)

	// ## Marketplace Actions (Auth Required)
	router.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth)
		r.Post("/", handler.createJob)
		r.Post("/{id}/accept", handler.acceptJob)
		r.Post("/{id}/dispatch", handler.dispatchJob)
		r.Post("/{id}/complete", handler.completeJob)
		r.Post("/{id}/cancel", handler.cancelJob)
		r.Delete("/{id}", handler.withdrawJob)
	})

	return router
}

// # Wire Shapes

// jobResponse is the public JSON projection of a [JobRequest].
type jobResponse struct {
	ID                   string     `json:"id"`
	CustomerID           int64      `json:"customer_id"`
	TechnicianID         *int64     `json:"technician_id,omitempty"`
	Title                string     `json:"title"`
	Slug                 string     `json:"slug"`
	Description          string     `json:"description"`
	Category             string     `json:"category"`
	Status               JobStatus  `json:"status"`
	QuotedAmountCents    int64      `json:"quoted_amount_cents"`
	ScheduledAt          *time.Time `json:"scheduled_at,omitempty"`
	DispatchedAt         *time.Time `json:"dispatched_at,omitempty"`
	CancelledAt          *time.Time `json:"cancelled_at,omitempty"`
	CancellationFeeCents int64      `json:"cancellation_fee_cents"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

func toResponse(job *JobRequest) jobResponse {
	return jobResponse{
		ID:                   job.ID,
		CustomerID:           job.CustomerID,
		TechnicianID:         job.TechnicianID,
		Title:                job.Title,
		Slug:                 job.Slug,
		Description:          job.Description,
		Category:             job.Category,
		Status:               job.Status,
		QuotedAmountCents:    job.QuotedAmountCents,
		ScheduledAt:          job.ScheduledAt,
		DispatchedAt:         job.DispatchedAt,
		CancelledAt:          job.CancelledAt,
		CancellationFeeCents: job.CancellationFeeCents,
		CreatedAt:            job.CreatedAt,
		UpdatedAt:            job.UpdatedAt,
	}
}

func toResponses(items []*JobRequest) []jobResponse {
	return slice.Map(items, toResponse)
}

// # Discovery Endpoints

/*
GET /api/v1/jobs.

Description: Retrieves a paginated list of job requests.
Supports searching by title and filtering by status, category, and parties.

Request:
  - q: string (Title search)
  - status: string
  - category: string (comma-separated)
  - customer_id: int
  - technician_id: int
  - limit: int
  - page: int

Response:
  - 200: []JobRequest: Paginated list
*/
func (handler *Handler) listJobs(writer http.ResponseWriter, request *http.Request) {
	paginationParams := pagination.FromRequest(request)
	queryParams := request.URL.Query()

	filter := Filter{
		Query:      queryParams.Get("q"),
		Categories: query.StringSlice(queryParams.Get("category")),
	}

	if rawStatus := queryParams.Get("status"); rawStatus != "" {
		status := JobStatus(rawStatus)
		if status.IsValid() {
			filter.Status = &status
		}
	}

	if customerID := convert.ToInt(queryParams.Get("customer_id")); customerID > 0 {
		filter.CustomerID = pointer.To(int64(customerID))
	}
	if technicianID := convert.ToInt(queryParams.Get("technician_id")); technicianID > 0 {
		filter.TechnicianID = pointer.To(int64(technicianID))
	}

	items, total, err := handler.service.ListJobs(request.Context(), filter, paginationParams.Limit, paginationParams.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, toResponses(items), pagination.NewMeta(paginationParams.Page, paginationParams.Limit, total))
}

/*
GET /api/v1/jobs/{identifier}.

Description: Retrieves full details of a job using its UUID or unique slug.

Request:
  - identifier: string (UUID or Slug)

Response:
  - 200: JobRequest: Success
  - 404: 404: ErrNotFound: Job not found
*/
func (handler *Handler) getJob(writer http.ResponseWriter, request *http.Request) {
	identifier := requestutil.Param(request, "identifier")

	job, err := handler.service.GetJob(request.Context(), identifier)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, toResponse(job))
}

// # Marketplace Endpoints

type createJobRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

/*
POST /api/v1/jobs.

Description: Posts a new job request on behalf of the authenticated customer.
Slugs are auto-generated from the title.

Request (Body):
  - title, description, category: string

Response:
  - 201: JobRequest: Created object
  - 400: 400: ErrInvalidJSON/Validation: Invalid input data
  - 401: 401: ErrUnauthorized: Authentication required
*/
func (handler *Handler) createJob(writer http.ResponseWriter, request *http.Request) {
	customerID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input createJobRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	job, err := handler.service.CreateJob(request.Context(), customerID, CreateInput{
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
	})
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Created(writer, toResponse(job))
}

type acceptJobRequest struct {
	QuotedAmountCents int64     `json:"quoted_amount_cents"`
	ScheduledAt       time.Time `json:"scheduled_at"`
}

/*
POST /api/v1/jobs/{id}/accept.

Description: The authenticated technician claims an open job, quoting a price
and booking the visit time.

Response:
  - 200: JobRequest: Updated entity
  - 409: 409: ErrConflict: Job is no longer open
  - 422: 422: ErrUnprocessable: Bad quote or visit time
*/
func (handler *Handler) acceptJob(writer http.ResponseWriter, request *http.Request) {
	technicianID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var input acceptJobRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	job, err := handler.service.AcceptJob(request.Context(), requestutil.ID(request, "id"),
		technicianID, input.QuotedAmountCents, input.ScheduledAt)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, toResponse(job))
}

/*
POST /api/v1/jobs/{id}/dispatch.

Description: The assigned technician marks themselves as on the way.

Response:
  - 200: JobRequest: Updated entity
  - 403: 403: ErrForbidden: Not the assigned technician
  - 409: 409: ErrConflict: Job not in a dispatchable state
*/
func (handler *Handler) dispatchJob(writer http.ResponseWriter, request *http.Request) {
	technicianID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	job, err := handler.service.DispatchJob(request.Context(), requestutil.ID(request, "id"), technicianID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, toResponse(job))
}

/*
POST /api/v1/jobs/{id}/complete.

Description: The assigned technician closes out the finished job.

Response:
  - 200: JobRequest: Updated entity
  - 403: 403: ErrForbidden: Not the assigned technician
  - 409: 409: ErrConflict: Job not in a completable state
*/
func (handler *Handler) completeJob(writer http.ResponseWriter, request *http.Request) {
	technicianID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	job, err := handler.service.CompleteJob(request.Context(), requestutil.ID(request, "id"), technicianID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, toResponse(job))
}

/*
POST /api/v1/jobs/{id}/cancel.

Description: The posting customer withdraws the job. The response carries the
cancellation fee charged under the notice-based policy.

Response:
  - 200: {job, cancellation_fee_cents}
  - 403: 403: ErrForbidden: Not the posting customer
  - 409: 409: ErrConflict: Job can no longer be cancelled
*/
func (handler *Handler) cancelJob(writer http.ResponseWriter, request *http.Request) {
	customerID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	outcome, err := handler.service.CancelJob(request.Context(), requestutil.ID(request, "id"), customerID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, map[string]any{
		"job":                    toResponse(outcome.Job),
		"cancellation_fee_cents": outcome.FeeCents,
	})
}

/*
DELETE /api/v1/jobs/{id}.

Description: The posting customer withdraws an open listing before any
technician has committed. No fee applies; the job is soft-deleted.

Response:
  - 204: Listing removed
  - 403: 403: ErrForbidden: Not the posting customer
  - 409: 409: ErrConflict: Job is no longer open
*/
func (handler *Handler) withdrawJob(writer http.ResponseWriter, request *http.Request) {
	customerID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	if err := handler.service.WithdrawJob(request.Context(), requestutil.ID(request, "id"), customerID); err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
