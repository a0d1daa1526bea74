package model

import "errors"

var (
	// ErrInvalidCredentials is returned when no account matches the email and password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailAlreadyRegistered is returned by signup for a taken email.
	ErrEmailAlreadyRegistered = errors.New("email already registered")
	// ErrMissingFields is returned by form validation for empty fields.
	ErrMissingFields = errors.New("please fill in all fields")
	// ErrNotAuthenticated is returned when an operation requires a session.
	ErrNotAuthenticated = errors.New("not signed in")
	// ErrCanceled marks a catalog request that was aborted or superseded.
	ErrCanceled = errors.New("request canceled")
)
