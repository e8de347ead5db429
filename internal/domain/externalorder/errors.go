package externalorder

import "errors"

var (
	ErrCredentialNotFound = errors.New("marketplace credential not found")
	ErrTokenRefreshFailed = errors.New("marketplace token refresh failed")
	ErrTokenConflict      = errors.New("marketplace token was updated concurrently")
)
