package domain

import "errors"

var (
	ErrInvalidCredentials = errors.New("incorrect username or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserConflict       = errors.New("username or email already exists")
	ErrForbidden          = errors.New("not authorized to update this user")
	ErrInvalidInput       = errors.New("invalid input")
)
