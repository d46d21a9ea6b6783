package auth

import "errors"

var (
	ErrMissingHeader  = errors.New("missing authorization header")
	ErrBadHeader      = errors.New("bad authorization header")
	ErrInvalidToken   = errors.New("invalid token")
	ErrMissingSubject = errors.New("token has no subject")
	ErrNoVerifier     = errors.New("no token verifier configured")
)
