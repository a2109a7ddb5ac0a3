// Package store provides interfaces and types for courier storage.
// The canonical implementation is in store/memory.
//
// A Store owns two pieces of state: the user directory (identity fields plus
// the per-user read cursor) and the per-user mailboxes (ordered message logs
// sharing one monotonically increasing id counter). The two halves are
// exposed as UserStore and MailboxStore so callers can depend on only the
// operations they need.
//
// Concurrency contract: all operations must be safe for concurrent use.
// The id-counter increment and the corresponding mailbox append must be
// atomic as a pair - no two appends may observe the same id, and no id is
// ever skipped or reused, including after deletion. Reads and deletes on the
// same mailbox must not interleave in a way that produces a torn read;
// whole-mailbox synchronization is sufficient, no finer granularity is
// required.
package store

import "context"

// Store is the storage interface for the courier service.
//
// Composed of:
//   - UserStore: user directory operations (create, get, list, cursor)
//   - MailboxStore: message log operations (append, range read, delete)
type Store interface {
	// Lifecycle
	Connect(ctx context.Context) error
	Close(ctx context.Context) error

	UserStore
	MailboxStore
}

// UserStore provides operations on the user directory.
type UserStore interface {
	// CreateUser creates a new user with cursor 0 and an empty mailbox.
	// Returns ErrDuplicateUser if the id is already taken. Creation is
	// serialized: of two concurrent calls with the same id, exactly one
	// succeeds.
	CreateUser(ctx context.Context, data UserData) (User, error)

	// GetUser retrieves a user by canonical id.
	// Returns ErrUserNotFound if the user doesn't exist.
	GetUser(ctx context.Context, id string) (User, error)

	// ListUsers returns the ids of all users. Order is unspecified.
	ListUsers(ctx context.Context) ([]string, error)

	// UpdateCursor overwrites the user's read cursor.
	// Returns ErrUserNotFound if the user doesn't exist.
	UpdateCursor(ctx context.Context, id string, cursor uint64) error

	// LookupToken finds the user whose id, phone, or email exactly equals
	// token. An exact id match always wins; among phone/email matches the
	// user with the smallest id is returned, so resolution is deterministic
	// even when duplicate contact fields exist. An empty token never
	// matches. Returns ErrUserNotFound if nothing matches.
	LookupToken(ctx context.Context, token string) (User, error)
}

// MailboxStore provides operations on the per-user message logs.
type MailboxStore interface {
	// Append assigns the next id from the shared counter and appends the
	// message to the recipient's mailbox. The recipient must already exist;
	// checking that is the caller's responsibility, and implementations
	// return ErrUserNotFound rather than creating a mailbox on the fly.
	Append(ctx context.Context, data MessageData) (Message, error)

	// ReadRange returns the user's messages with ids in r, in ascending id
	// order. Read-only: the user's cursor is not touched.
	// Returns ErrUserNotFound if the user doesn't exist.
	ReadRange(ctx context.Context, userID string, r Range) ([]Message, error)

	// DeleteByIDs removes every message in the user's mailbox whose id is
	// in ids. Ids not present in the mailbox are silently ignored; deletion
	// is idempotent. Returns the count actually removed.
	// Returns ErrUserNotFound if the user doesn't exist.
	DeleteByIDs(ctx context.Context, userID string, ids []uint64) (int64, error)

	// Watermark returns the next message id that will be assigned, which
	// equals the count of messages ever appended across all mailboxes.
	Watermark(ctx context.Context) (uint64, error)

	// MailboxStats returns aggregate statistics for one user's mailbox.
	// Returns ErrUserNotFound if the user doesn't exist.
	MailboxStats(ctx context.Context, userID string) (*MailboxStats, error)
}
