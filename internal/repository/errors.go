// Package repository maps the document collections onto typed operations.
// Sentinel errors let handlers tell the failure classes apart: the *NotFound
// values become 404s, ErrEmailExists a 409, ErrTokenInvalid a 401.
package repository

import "errors"

var (
	ErrMovieNotFound   = errors.New("movie not found")
	ErrBookingNotFound = errors.New("booking not found")
	ErrUserNotFound    = errors.New("user not found")

	// ErrCredentialNotFound is returned when no account uses the email.
	ErrCredentialNotFound = errors.New("credential not found")
	ErrEmailExists        = errors.New("email already exists")

	// ErrTokenInvalid covers unknown, expired, revoked and used tokens alike.
	ErrTokenInvalid = errors.New("token invalid")
)

// Collection names.
const (
	Movies         = "movies"
	Bookings       = "bookings"
	Users          = "users"
	Credentials    = "credentials"
	Emails         = "emails"
	RefreshTokens  = "refresh_tokens"
	PasswordResets = "password_resets"
)
