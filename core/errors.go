package core

import "errors"

var (
	ErrSecretNotConfigured = errors.New("turn shared secret is not configured")
	ErrClockUnavailable    = errors.New("system clock is unavailable")
	ErrMalformedUsername   = errors.New("malformed turn username")
	ErrCredentialExpired   = errors.New("turn credential has expired")
	ErrInvalidCredential   = errors.New("invalid turn credential")
	ErrRateLimited         = errors.New("credential issuance rate limited")
	ErrInvalidToken        = errors.New("invalid session token")
	ErrTokenExpired        = errors.New("session token has expired")
)
