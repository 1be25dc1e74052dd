package domain

import "errors"

// Sentinel errors for every caller-visible failure kind. Callers classify with
// errors.Is; wrapping adds the human-readable detail.
var (
	ErrValidation          = errors.New("invalid request")
	ErrRateLimited         = errors.New("too many requests, please retry later")
	ErrNotFound            = errors.New("not found")
	ErrInvalidState        = errors.New("invalid state")
	ErrSoldOut             = errors.New("sold out")
	ErrAlreadyParticipated = errors.New("already participated in this activity")
	ErrSystemBusy          = errors.New("system busy, please retry")
	ErrPersistence         = errors.New("persistence failed")
)
