package auth

import "errors"

var (
	ErrUnauthorized = errors.New("not authenticated")
	ErrExchange     = errors.New("auth code exchange failed")
	ErrAuthRequest  = errors.New("auth request failed")
)
