package similarity

import (
	"errors"
)

var (
	// ErrUnauthorized means the service rejected or never received a credential.
	// Retrying cannot fix it.
	ErrUnauthorized = errors.New("similarity service rejected the credential")
	// ErrColdStart means the backing model is still initializing.
	ErrColdStart = errors.New("similarity model is still loading")
	// ErrMalformedResponse means the service answered with something that is not a score list.
	ErrMalformedResponse = errors.New("malformed similarity response")
	// ErrModelNotFound means the configured model endpoint does not exist.
	ErrModelNotFound = errors.New("similarity model not found")
)

// Outcome is the classification of a single attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeRetryable
	OutcomeColdStart
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeColdStart:
		return "cold_start"
	case OutcomeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Classify maps an attempt error to an outcome. Credential and model
// configuration errors are fatal, cold starts get their own wait and anything
// else is treated as transient.
func Classify(err error) Outcome {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrModelNotFound):
		return OutcomeFatal
	case errors.Is(err, ErrColdStart):
		return OutcomeColdStart
	default:
		return OutcomeRetryable
	}
}
