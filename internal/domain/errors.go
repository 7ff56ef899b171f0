package domain

import "errors"

var (
	// ErrAttemptNotFound is returned when an attempt id does not resolve to a row.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrQuizNotFound indicates the quiz row backing a lookup is missing.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrUserNotFound indicates a recipient lookup found no profile.
	ErrUserNotFound = errors.New("user not found")
	// ErrCertificateNotFound indicates no certificate exists for (user, quiz).
	ErrCertificateNotFound = errors.New("certificate not found")
	// ErrEmptyPatch is returned when an attempt patch carries no updatable field.
	ErrEmptyPatch = errors.New("patch contains no updatable field")
)
