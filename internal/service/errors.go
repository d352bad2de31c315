package service

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Domain errors. Handlers classify these with errors.Is; the core never
// swallows an inconsistent state.
var (
	// ErrValidation marks caller-fixable input problems.
	ErrValidation = errors.New("validation failed")

	// ErrSessionNotFound means no exam session exists under the given ID.
	ErrSessionNotFound = errors.New("exam session not found")

	// ErrQuestionNotFound means no question exists under the given slug/ID.
	ErrQuestionNotFound = errors.New("question not found")

	// ErrQuestionNotInSession means the question has no slot in the session's
	// fixed sequence.
	ErrQuestionNotInSession = errors.New("question is not part of this exam session")

	// ErrSessionClosed means a mutation was attempted on a completed session.
	// Surfaced as a conflict; not retried.
	ErrSessionClosed = errors.New("exam session is already completed")

	// ErrSessionNotCompleted means results were requested for a session that
	// is still in progress and not yet expired.
	ErrSessionNotCompleted = errors.New("exam session is not completed yet")

	// ErrCertificateUnavailable means the session has no passing result to
	// certify.
	ErrCertificateUnavailable = errors.New("certificate not available for this session")

	// ErrStore marks a persistence failure. Recording and completion are safe
	// for the caller to retry; scoring is not re-run once a result is stored.
	ErrStore = errors.New("upstream store failure")
)

// mapSessionErr translates a session lookup failure into a domain error.
func mapSessionErr(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrSessionNotFound
	}
	return fmt.Errorf("%w: get session: %w", ErrStore, err)
}
