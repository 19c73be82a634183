package admin

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("too many failed attempts")
	ErrLoginDisabled      = errors.New("admin login is not configured")
)
