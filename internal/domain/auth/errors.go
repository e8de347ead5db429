package auth

import "errors"

var (
	ErrInvalidToken           = errors.New("invalid or expired token")
	ErrTokenExpired           = errors.New("token has expired")
	ErrMissingCredential      = errors.New("missing bearer credential")
	ErrInvalidSecret          = errors.New("invalid bearer credential")
	ErrAdminPrivilegeRequired = errors.New("admin privilege required")
)
