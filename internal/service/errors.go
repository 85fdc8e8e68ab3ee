package service

import "errors"

// Stable failure kinds surfaced by the storage engine. Callers match with
// errors.Is; handlers map them to HTTP statuses.
var (
	ErrNotFound           = errors.New("not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrQuotaExceeded      = errors.New("quota exceeded")
	ErrRateLimited        = errors.New("rate limited")
	ErrConflict           = errors.New("conflict")
)
