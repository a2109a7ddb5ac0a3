package courier

import (
	"errors"
	"fmt"

	"github.com/rbaliyan/courier/store"
)

// Sentinel errors for the courier package.
// Use errors.Is() to check for these errors.
//
// These errors wrap corresponding store-level errors where applicable,
// so errors.Is(err, courier.ErrUnknownUser) will match both courier-level
// and store-level "user not found" errors.
var (
	// ErrUnknownUser is returned when an addressing token does not resolve
	// to any user. Wraps store.ErrUserNotFound for consistent error checking.
	ErrUnknownUser = fmt.Errorf("courier: %w", store.ErrUserNotFound)

	// ErrDuplicateUser is returned when creating a user whose id is taken.
	// Wraps store.ErrDuplicateUser for consistent error checking.
	ErrDuplicateUser = fmt.Errorf("courier: %w", store.ErrDuplicateUser)

	// ErrNotConnected is returned when operations are attempted before Connect().
	// Wraps store.ErrNotConnected for consistent error checking.
	ErrNotConnected = fmt.Errorf("courier: %w", store.ErrNotConnected)

	// ErrAlreadyConnected is returned when Connect() is called twice.
	// Wraps store.ErrAlreadyConnected for consistent error checking.
	ErrAlreadyConnected = fmt.Errorf("courier: %w", store.ErrAlreadyConnected)

	// ErrStoreRequired is returned when no store is configured.
	ErrStoreRequired = errors.New("courier: store is required")

	// ErrInvalidArgument is returned for malformed request parameters,
	// such as a message id that is not a plain non-negative decimal.
	ErrInvalidArgument = errors.New("courier: invalid argument")

	// ErrMissingArgument is returned when a required parameter is absent.
	// Wraps ErrInvalidArgument so both classify the same way.
	ErrMissingArgument = fmt.Errorf("%w: missing argument", ErrInvalidArgument)

	// ErrInvalidRecipient is returned when the recipient token of a send
	// does not resolve to a user.
	ErrInvalidRecipient = errors.New("courier: invalid recipient")

	// ErrInvalidSender is returned when the sender token of a send does not
	// resolve to a user.
	ErrInvalidSender = errors.New("courier: invalid sender")

	// ErrEmptyBody is returned when a message body is empty.
	ErrEmptyBody = errors.New("courier: empty message body")

	// ErrBodyTooLarge is returned when a message body exceeds the maximum size.
	ErrBodyTooLarge = errors.New("courier: message body too large")

	// ErrInvalidUserID is returned when a user id contains invalid characters.
	ErrInvalidUserID = errors.New("courier: invalid user id")
)

// IsNotFound reports whether err means a user could not be found,
// at either the courier or store layer.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrUserNotFound)
}

// IsConflict reports whether err means a uniqueness conflict.
func IsConflict(err error) bool {
	return errors.Is(err, store.ErrDuplicateUser)
}

// IsInvalidArgument reports whether err means the request itself was
// malformed: bad bounds or ids, unresolvable send addressing, an invalid
// or empty body, or an unusable user id.
func IsInvalidArgument(err error) bool {
	for _, target := range []error{
		ErrInvalidArgument,
		ErrInvalidRecipient,
		ErrInvalidSender,
		ErrEmptyBody,
		ErrBodyTooLarge,
		ErrInvalidUserID,
		store.ErrInvalidID,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// EventPublishError is returned when event publishing fails but the
// operation succeeded. The message was stored, fetched, or deleted; only
// the notification failed. Only surfaced when WithEventErrorsFatal is set.
type EventPublishError struct {
	Event  string // The event name (e.g., "MessageSent")
	UserID string // The user the event was about
	Err    error  // The underlying publish error
}

func (e *EventPublishError) Error() string {
	return fmt.Sprintf("courier: event %s publish failed for user %s: %v", e.Event, e.UserID, e.Err)
}

func (e *EventPublishError) Unwrap() error {
	return e.Err
}

// IsEventPublishError checks if the error is an event publish error and
// returns details. Useful when eventErrorsFatal=true but you still need to
// know the underlying operation succeeded.
func IsEventPublishError(err error) (*EventPublishError, bool) {
	var epe *EventPublishError
	if errors.As(err, &epe) {
		return epe, true
	}
	return nil, false
}
