package account

import "errors"

var (
	ErrMissingCredentials = errors.New("contact number and password are required")
	ErrMissingPasswords   = errors.New("old password and new password are required")
	ErrInvalidEmployeeID  = errors.New("invalid employee id")
	ErrEmployeeNotFound   = errors.New("employee not found")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrPasswordTooLong    = errors.New("new password exceeds 72 bytes")
	ErrLogin              = errors.New("failed to log in")
	ErrChangePassword     = errors.New("failed to change password")
)
