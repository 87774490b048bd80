package model

import "errors"

// ErrNotFound is returned when a report, appeal, action, user or content item
// does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden is returned when the caller may not perform the operation.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when a report or appeal has already been closed.
var ErrConflict = errors.New("already resolved")

// ErrInvalidAction is returned for an unknown moderator action verb.
var ErrInvalidAction = errors.New("invalid moderation action")

// ErrValidation is returned when the caller supplies invalid input.
type ErrValidation struct{ Msg string }

func (e *ErrValidation) Error() string { return e.Msg }

// Outcome is the class of a moderation error, for adapters mapping errors to
// transport status codes.
type Outcome string

const (
	OutcomeOK         Outcome = "ok"
	OutcomeNotFound   Outcome = "not_found"
	OutcomeValidation Outcome = "validation_failed"
	OutcomeBadRequest Outcome = "bad_request"
	OutcomeForbidden  Outcome = "forbidden"
	OutcomeConflict   Outcome = "conflict"
	OutcomeInternal   Outcome = "internal"
)

// Classify maps err to its Outcome. A nil error is OutcomeOK.
func Classify(err error) Outcome {
	var ve *ErrValidation
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, ErrNotFound):
		return OutcomeNotFound
	case errors.As(err, &ve):
		return OutcomeValidation
	case errors.Is(err, ErrInvalidAction):
		return OutcomeBadRequest
	case errors.Is(err, ErrForbidden):
		return OutcomeForbidden
	case errors.Is(err, ErrConflict):
		return OutcomeConflict
	default:
		return OutcomeInternal
	}
}
