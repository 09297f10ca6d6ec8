package errors

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrInvalid      = errors.New("invalid")
	ErrConflict     = errors.New("conflict")
	ErrTooMany      = errors.New("too many requests")
	ErrInternal     = errors.New("internal")

	// ErrRetrieval marks a failed similarity search. Fatal to the chat
	// turn: there is no degraded answer without retrieval.
	ErrRetrieval = errors.New("retrieval failed")
	// ErrGeneration marks a failed answer-generation call. Also fatal.
	ErrGeneration = errors.New("generation failed")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsFatalTurn reports whether err aborts the whole chat turn instead of
// degrading to a conservative default.
func IsFatalTurn(err error) bool {
	return errors.Is(err, ErrRetrieval) || errors.Is(err, ErrGeneration)
}
