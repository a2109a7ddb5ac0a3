package store

import "errors"

// Sentinel errors for the store package.
var (
	// ErrUserNotFound is returned when a user (and thus their mailbox)
	// cannot be found.
	ErrUserNotFound = errors.New("store: user not found")

	// ErrDuplicateUser is returned when creating a user whose id is taken.
	ErrDuplicateUser = errors.New("store: duplicate user")

	// ErrInvalidID is returned when an invalid user id is provided.
	ErrInvalidID = errors.New("store: invalid id")

	// ErrNotConnected is returned when operations are attempted before Connect().
	ErrNotConnected = errors.New("store: not connected")

	// ErrAlreadyConnected is returned when Connect() is called twice.
	ErrAlreadyConnected = errors.New("store: already connected")
)

// Error checking helpers.

func IsUserNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

func IsDuplicateUser(err error) bool {
	return errors.Is(err, ErrDuplicateUser)
}

func IsNotConnected(err error) bool {
	return errors.Is(err, ErrNotConnected)
}
