package domain

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalidInput  = errors.New("invalid input")
	ErrQuotaExceeded = errors.New("quota exceeded")
	ErrTierMismatch  = errors.New("tier mismatch")
	ErrTierForbidden = errors.New("tier not permitted")
	ErrRateLimited   = errors.New("rate limited by store")
	ErrRenderFailure = errors.New("render failure")
)
