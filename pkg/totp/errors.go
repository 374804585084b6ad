package totp

import "errors"

var (
	ErrInvalidSecret = errors.New("totp.invalid_secret")
	ErrInvalidCode   = errors.New("totp.invalid_code")
)
