package services

import "errors"

// Sentinel errors returned by the service layer. Handlers map these onto
// HTTP statuses with errors.Is.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when an authenticated requester is not
	// authorized to perform the action.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredentials is returned when a username/password pair or an
	// old password does not match the stored hash.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUsernameTaken is returned when registering with an existing username.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidToken is returned for forged, expired, or already used
	// password reset tokens.
	ErrInvalidToken = errors.New("invalid or expired reset token")
)
