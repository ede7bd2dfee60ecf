// Copyright (c) 2026 Fixaroo. All rights reserved.
// Author: dev@fixaroo.app

/*
Package authflow drives client-side authentication for Fixaroo tooling.

The [Controller] owns one login attempt at a time: it validates input,
submits credentials to the authentication endpoint, interprets the response
(established identity, verification challenge, definitive rejection, or
transport fault), applies the bounded exponential-backoff retry policy to
transport faults, and persists the resulting [Session] through an injected
[SessionStore].

Attempt lifecycle:

	Idle -> Submitting -> { Authenticated | AwaitingVerification | Rejected | TransientFailure }

AwaitingVerification loops back to Submitting once the user supplies a
verification code. Authenticated, Rejected, and TransientFailure are terminal
for the attempt; a new SubmitLogin call starts a fresh attempt.
*/
package authflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/fixaroo/fixaroo/internal/identity"
	"github.com/fixaroo/fixaroo/internal/platform/sec"
)

// # Configuration

const (
	// DefaultMaxRetries bounds how many extra attempts follow a transient
	// failure before the attempt is surfaced as exhausted.
	DefaultMaxRetries = 3

	// DefaultBaseDelay is the backoff before the first retry; each further
	// retry doubles it (1s, 2s, 4s with the defaults).
	DefaultBaseDelay = 1 * time.Second

	// defaultRequestTimeout caps a single HTTP exchange when the caller does
	// not supply their own client.
	defaultRequestTimeout = 10 * time.Second
)

// Backoff suspends the submission between retries. It must return early with
// the context's error when the context is cancelled. Tests inject a recorder
// here instead of sleeping.
type Backoff func(context context.Context, delay time.Duration) error

// sleepBackoff is the production Backoff.
func sleepBackoff(context context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-context.Done():
		return context.Err()
	case <-timer.C:
		return nil
	}
}

// Config wires the controller's collaborators and retry policy.
type Config struct {
	// LoginURL is the authentication endpoint the controller submits to.
	LoginURL string

	// ResendURL is the verification-code resend endpoint.
	ResendURL string

	// Store receives the Session after a successful authentication.
	Store SessionStore

	// HTTPClient is optional; a timeout-bounded default is used when nil.
	HTTPClient *http.Client

	// MaxRetries and BaseDelay tune the transient-failure retry policy.
	// Zero values select the defaults.
	MaxRetries int
	BaseDelay  time.Duration

	// Backoff is optional; the default sleeps. Tests replace it.
	Backoff Backoff

	// Logger is optional; a no-op logger is used when nil.
	Logger *slog.Logger
}

// # Controller

// Credentials is the input to one login submission. It is held in memory only
// for the duration of the submission.
type Credentials struct {
	Identifier       string
	Secret           string
	VerificationCode string
}

// Outcome names the terminal state a submission reached.
type Outcome string

const (
	OutcomeAuthenticated        Outcome = "authenticated"
	OutcomeAwaitingVerification Outcome = "awaiting_verification"
	OutcomeRejected             Outcome = "rejected"
	OutcomeTransientFailure     Outcome = "transient_failure"
)

// Result reports the terminal state of one submission. Session is set only
// for [OutcomeAuthenticated]; Err is set for every other outcome. Retries
// counts the transient retries the submission consumed.
type Result struct {
	Outcome Outcome
	Session *Session
	Err     *FlowError
	Retries int
}

// Controller owns the login attempt, the verification-challenge sub-flow,
// and the retry policy. One controller drives one logical user; overlapping
// submissions are rejected with [ErrAttemptInFlight].
type Controller struct {
	loginURL   string
	resendURL  string
	store      SessionStore
	httpClient *http.Client
	maxRetries int
	baseDelay  time.Duration
	backoff    Backoff
	logger     *slog.Logger

	mutex             sync.Mutex
	inFlight          bool
	challengeRequired bool
}

// NewController constructs a [Controller], filling unset Config fields with
// the package defaults.
func NewController(config Config) *Controller {
	controller := &Controller{
		loginURL:   config.LoginURL,
		resendURL:  config.ResendURL,
		store:      config.Store,
		httpClient: config.HTTPClient,
		maxRetries: config.MaxRetries,
		baseDelay:  config.BaseDelay,
		backoff:    config.Backoff,
		logger:     config.Logger,
	}
	if controller.store == nil {
		controller.store = NewMemorySessionStore()
	}
	if controller.httpClient == nil {
		controller.httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}
	if controller.maxRetries == 0 {
		controller.maxRetries = DefaultMaxRetries
	}
	if controller.baseDelay == 0 {
		controller.baseDelay = DefaultBaseDelay
	}
	if controller.backoff == nil {
		controller.backoff = sleepBackoff
	}
	if controller.logger == nil {
		controller.logger = slog.New(slog.DiscardHandler)
	}
	return controller
}

// ChallengeRequired reports whether the next submission must carry a
// verification code.
func (controller *Controller) ChallengeRequired() bool {
	controller.mutex.Lock()
	defer controller.mutex.Unlock()
	return controller.challengeRequired
}

// CurrentSession returns the persisted session, if any.
func (controller *Controller) CurrentSession(context context.Context) (*Session, error) {
	return controller.store.Get(context)
}

// ClearSession removes the persisted session (sign-out).
func (controller *Controller) ClearSession(context context.Context) error {
	return controller.store.Clear(context)
}

// # Login Submission

/*
SubmitLogin drives one authentication attempt to a terminal outcome.

Description: Validates the credentials locally, submits them to the login
endpoint, and classifies the response. Verification challenges and definitive
rejections terminate immediately; transport faults are retried with
exponential backoff (BaseDelay doubling per retry) up to MaxRetries extra
attempts. The Session is persisted only after the server returns an
authenticated identity; no failure path writes any state.

Parameters:
  - context: context.Context — cancelling it during a backoff delay abandons
    the attempt with the context's error and no state writes.
  - credentials: Credentials

Returns:
  - *Result: Terminal outcome with Session or FlowError
  - err: [ErrAttemptInFlight], a KindValidation [*FlowError], a context
    error on cancellation, or a session persistence failure
*/
func (controller *Controller) SubmitLogin(context context.Context, credentials Credentials) (*Result, error) {

	// Single-flight: the attempt latch is the only cross-call state besides
	// the challenge flag, and only the owning submission releases it.
	if err := controller.beginAttempt(); err != nil {
		return nil, err
	}
	defer controller.endAttempt()

	// Refuse bad input before any network traffic.
	if err := controller.validate(credentials); err != nil {
		return nil, err
	}

	for attempt := 0; ; attempt++ {
		result, transient := controller.attemptOnce(context, credentials)
		if !transient {
			if result.Session != nil {
				if err := controller.store.Set(context, result.Session); err != nil {
					return nil, fmt.Errorf("authflow_session_persist_failed: %w", err)
				}
			}
			result.Retries = attempt
			return result, nil
		}

		// Transient fault: either schedule a retry or give up.
		if attempt >= controller.maxRetries {
			controller.logger.Warn("login retries exhausted", slog.Int("retries", attempt))
			return &Result{
				Outcome: OutcomeTransientFailure,
				Err:     newFlowError(KindTransport, "Unable to reach the sign-in service; retries exhausted"),
				Retries: attempt,
			}, nil
		}

		delay := controller.baseDelay << attempt
		controller.logger.Debug("login attempt failed, backing off",
			slog.Int("attempt", attempt),
			slog.Duration("delay", delay),
		)
		if err := controller.backoff(context, delay); err != nil {
			// Cancelled mid-backoff: abandon with no state written.
			return nil, err
		}
	}
}

// beginAttempt takes the single-flight latch.
func (controller *Controller) beginAttempt() error {
	controller.mutex.Lock()
	defer controller.mutex.Unlock()

	if controller.inFlight {
		return ErrAttemptInFlight
	}
	controller.inFlight = true
	return nil
}

// endAttempt releases the single-flight latch.
func (controller *Controller) endAttempt() {
	controller.mutex.Lock()
	defer controller.mutex.Unlock()
	controller.inFlight = false
}

// validate enforces the submission preconditions locally.
func (controller *Controller) validate(credentials Credentials) error {
	if credentials.Identifier == "" {
		return newFlowError(KindValidation, "Email is required")
	}
	if credentials.Secret == "" {
		return newFlowError(KindValidation, "Password is required")
	}
	if controller.ChallengeRequired() && credentials.VerificationCode == "" {
		return newFlowError(KindValidation, "Verification code is required")
	}
	return nil
}

// # Response Classification

// loginRequest is the wire shape submitted to the login endpoint.
type loginRequest struct {
	Identifier       string `json:"identifier"`
	Secret           string `json:"secret"`
	VerificationCode string `json:"verification_code,omitempty"`
}

// loginEnvelope covers both server envelopes: success responses populate
// Data, challenge and error responses populate Error/Code.
type loginEnvelope struct {
	Data *struct {
		AccessToken string `json:"access_token"`
		User        *struct {
			ID          int64  `json:"id"`
			Role        string `json:"role"`
			DisplayName string `json:"display_name"`
		} `json:"user"`
	} `json:"data"`
	Error string `json:"error"`
	Code  string `json:"code"`
}

// attemptOnce performs a single HTTP exchange and classifies it. The second
// return reports whether the failure is transient (eligible for retry); a
// transient classification carries no Result.
func (controller *Controller) attemptOnce(context context.Context, credentials Credentials) (*Result, bool) {

	body, err := json.Marshal(loginRequest{
		Identifier:       credentials.Identifier,
		Secret:           credentials.Secret,
		VerificationCode: credentials.VerificationCode,
	})
	if err != nil {
		// Marshalling plain strings cannot fail; treat it as terminal anyway.
		return controller.transportFailure("Could not encode the sign-in request", err), false
	}

	request, err := http.NewRequestWithContext(context, http.MethodPost, controller.loginURL, bytes.NewReader(body))
	if err != nil {
		return controller.transportFailure("Could not build the sign-in request", err), false
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := controller.httpClient.Do(request)
	if err != nil {
		// Network-level fault: no response at all. Retryable.
		return nil, true
	}
	defer response.Body.Close()

	payload, readErr := io.ReadAll(response.Body)

	// A definitive non-success status is a rejection, never retried, no
	// matter what the body looks like. A proxy's bare 502 is still a 502.
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return controller.rejection(payload), false
	}

	if readErr != nil || len(bytes.TrimSpace(payload)) == 0 {
		// A success status with an empty or unreadable body is
		// indistinguishable from a dropped connection. Retryable.
		return nil, true
	}

	var envelope loginEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		// The server answered, but not in the agreed shape. Retrying the
		// same request will not fix a contract mismatch.
		return controller.transportFailure("Sign-in service returned an unreadable response", err), false
	}

	// Challenge descriptors ride a success status.
	if envelope.Code != "" {
		return controller.challenge(envelope), false
	}

	if envelope.Data == nil || envelope.Data.User == nil || envelope.Data.User.ID == 0 {
		return controller.transportFailure("Sign-in service response is missing the account identity", nil), false
	}

	session := &Session{
		SubjectID:   envelope.Data.User.ID,
		Role:        sec.UserRole(envelope.Data.User.Role),
		DisplayName: envelope.Data.User.DisplayName,
		AccessToken: envelope.Data.AccessToken,
	}

	controller.setChallengeRequired(false)
	controller.logger.Info("login succeeded",
		slog.Int64("subject_id", session.SubjectID),
		slog.String("role", string(session.Role)),
	)

	return &Result{Outcome: OutcomeAuthenticated, Session: session}, false
}

// rejection classifies a non-success status, preferring the server-supplied
// message over the generic one.
func (controller *Controller) rejection(payload []byte) *Result {
	message := "Invalid login credentials"

	var envelope loginEnvelope
	if err := json.Unmarshal(payload, &envelope); err == nil && envelope.Error != "" {
		message = envelope.Error
	}

	return &Result{
		Outcome: OutcomeRejected,
		Err:     newFlowError(KindRejectedCredentials, message),
	}
}

// challenge maps a server verification descriptor onto the failure taxonomy
// and arms the challenge requirement for the next submission.
func (controller *Controller) challenge(envelope loginEnvelope) *Result {
	var kind Kind
	switch envelope.Code {
	case identity.DescriptorVerificationRequired:
		kind = KindVerificationRequired
	case identity.DescriptorInvalidVerificationCode:
		kind = KindInvalidVerificationCode
	case identity.DescriptorVerificationExpired:
		kind = KindVerificationExpired
	default:
		// An unknown descriptor on a success status is a contract mismatch.
		return controller.transportFailure("Sign-in service returned an unknown response code", nil)
	}

	controller.setChallengeRequired(true)

	message := envelope.Error
	if message == "" {
		message = "Verification required"
	}

	return &Result{
		Outcome: OutcomeAwaitingVerification,
		Err:     &FlowError{Kind: kind, Message: message},
	}
}

// transportFailure builds a terminal (non-retryable) transport Result.
func (controller *Controller) transportFailure(message string, cause error) *Result {
	return &Result{
		Outcome: OutcomeTransientFailure,
		Err:     &FlowError{Kind: KindTransport, Message: message, Cause: cause},
	}
}

func (controller *Controller) setChallengeRequired(required bool) {
	controller.mutex.Lock()
	defer controller.mutex.Unlock()
	controller.challengeRequired = required
}

// # Verification Resend

// resendRequest is the wire shape submitted to the resend endpoint.
type resendRequest struct {
	Identifier string `json:"identifier"`
}

// resendEnvelope is the resend endpoint's response shape.
type resendEnvelope struct {
	Data *struct {
		Message string `json:"message"`
	} `json:"data"`
	Error string `json:"error"`
}

/*
RequestVerificationResend asks the server to issue a fresh verification code.

Description: Submits the identifier to the resend endpoint. On acceptance the
controller enters challenge-required mode, so the next SubmitLogin call must
carry a verification code. Retry state is never touched: the resend is not
part of any login attempt.

Parameters:
  - context: context.Context
  - identifier: string (account email)

Returns:
  - string: The server's confirmation message
  - err: A KindValidation or KindTransport [*FlowError], or a
    KindRejectedCredentials one carrying the server's error message
*/
func (controller *Controller) RequestVerificationResend(context context.Context, identifier string) (string, error) {

	if identifier == "" {
		return "", newFlowError(KindValidation, "Email is required")
	}

	body, err := json.Marshal(resendRequest{Identifier: identifier})
	if err != nil {
		return "", &FlowError{Kind: KindTransport, Message: "Could not encode the resend request", Cause: err}
	}

	request, err := http.NewRequestWithContext(context, http.MethodPost, controller.resendURL, bytes.NewReader(body))
	if err != nil {
		return "", &FlowError{Kind: KindTransport, Message: "Could not build the resend request", Cause: err}
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := controller.httpClient.Do(request)
	if err != nil {
		return "", &FlowError{Kind: KindTransport, Message: "Unable to reach the sign-in service", Cause: err}
	}
	defer response.Body.Close()

	payload, err := io.ReadAll(response.Body)
	if err != nil {
		return "", &FlowError{Kind: KindTransport, Message: "Unable to read the resend response", Cause: err}
	}

	// A refusal stays a refusal even when the body isn't the agreed JSON;
	// the envelope only upgrades the message when it parses.
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		message := "Could not resend the verification code"
		var refusal resendEnvelope
		if json.Unmarshal(payload, &refusal) == nil && refusal.Error != "" {
			message = refusal.Error
		}
		return "", newFlowError(KindRejectedCredentials, message)
	}

	var envelope resendEnvelope
	if unmarshalErr := json.Unmarshal(payload, &envelope); unmarshalErr != nil {
		return "", &FlowError{Kind: KindTransport, Message: "Resend service returned an unreadable response", Cause: unmarshalErr}
	}

	// Acceptance arms the challenge: the account needs its code next time.
	controller.setChallengeRequired(true)

	if envelope.Data != nil && envelope.Data.Message != "" {
		return envelope.Data.Message, nil
	}
	return "A new verification code has been sent", nil
}
