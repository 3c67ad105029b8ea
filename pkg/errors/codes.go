package errors

import "net/http"

// Code is the stable, client-visible error identifier.
type Code string

const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeTotalsMismatch     Code = "TOTALS_MISMATCH"
	CodeInvalidTransition  Code = "INVALID_TRANSITION"
	CodeConflict           Code = "CONFLICT"
	CodeNotFound           Code = "NOT_FOUND"
	CodePersistenceFailure Code = "PERSISTENCE_FAILURE"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeForbidden          Code = "FORBIDDEN"
	CodeIdempotency        Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimited        Code = "RATE_LIMITED"
	CodeInternal           Code = "INTERNAL_ERROR"
)

// Metadata is how a code surfaces over HTTP and in logs. Only infrastructure
// failures are Alertable; every other code is an outcome callers handle.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	Alertable      bool
	PublicMessage  string
	DetailsAllowed bool
}

type flag uint8

const (
	retryable flag = 1 << iota
	alertable
	withDetails
)

func describe(status int, msg string, flags flag) Metadata {
	return Metadata{
		HTTPStatus:     status,
		Retryable:      flags&retryable != 0,
		Alertable:      flags&alertable != 0,
		PublicMessage:  msg,
		DetailsAllowed: flags&withDetails != 0,
	}
}

// A totals mismatch is a warning on an accepted order, hence 200.
var metadataByCode = map[Code]Metadata{
	CodeValidation:         describe(http.StatusBadRequest, "validation failed", withDetails),
	CodeTotalsMismatch:     describe(http.StatusOK, "supplied total differs from computed total", withDetails),
	CodeInvalidTransition:  describe(http.StatusUnprocessableEntity, "status transition not allowed", withDetails),
	CodeConflict:           describe(http.StatusConflict, "order was modified concurrently; re-read and retry", retryable|withDetails),
	CodeNotFound:           describe(http.StatusNotFound, "resource not found", 0),
	CodePersistenceFailure: describe(http.StatusServiceUnavailable, "order could not be saved; retry", retryable|alertable),
	CodeUnauthorized:       describe(http.StatusUnauthorized, "authentication required", 0),
	CodeForbidden:          describe(http.StatusForbidden, "access denied", 0),
	CodeIdempotency:        describe(http.StatusConflict, "idempotency key reused", withDetails),
	CodeRateLimited:        describe(http.StatusTooManyRequests, "too many requests", retryable),
	CodeInternal:           describe(http.StatusInternalServerError, "internal server error", retryable|alertable),
}

// MetadataFor falls back to CodeInternal for codes it does not know.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}
