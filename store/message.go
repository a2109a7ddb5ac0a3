package store

import "time"

// Message is a read-only view of a delivered message. Messages are
// append-only: once stored they are never mutated, only deleted.
type Message interface {
	// GetID returns the message id, assigned from the shared counter.
	// Ids are globally unique and strictly increasing across all mailboxes.
	GetID() uint64
	// GetSenderID returns the canonical id of the sending user.
	GetSenderID() string
	// GetRecipientID returns the canonical id of the mailbox owner.
	GetRecipientID() string
	// GetBody returns the opaque text payload.
	GetBody() string
	// GetSentAt returns the time the message was appended.
	GetSentAt() time.Time
}

// MessageData contains the data for appending a new message.
// The id and timestamp are assigned by the store.
type MessageData struct {
	SenderID    string
	RecipientID string
	Body        string
}

// User is a read-only view of a directory entry. The cursor is the only
// mutable field and is updated through UserStore.UpdateCursor.
type User interface {
	// GetID returns the unique stable username (primary key).
	GetID() string
	// GetPhone returns the optional phone identifier ("" if unset).
	GetPhone() string
	// GetEmail returns the optional email identifier ("" if unset).
	GetEmail() string
	// GetCursor returns the smallest message id the user has not yet seen
	// via a fetch of new messages. Starts at 0, never decreases.
	GetCursor() uint64
}

// UserData contains the data for creating a new user.
// Phone and email are optional and are not required to be unique.
type UserData struct {
	ID    string
	Phone string
	Email string
}

// Range selects messages by id. Lower is inclusive. When HasUpper is set,
// Upper is exclusive; otherwise the range is unbounded above. The zero value
// selects every message. An unbounded range is logical - there is no
// machine-word sentinel that could silently truncate results.
type Range struct {
	Lower    uint64
	Upper    uint64
	HasUpper bool
}

// All returns the fully open range.
func All() Range {
	return Range{}
}

// From returns the range [lower, +inf).
func From(lower uint64) Range {
	return Range{Lower: lower}
}

// Between returns the range [lower, upper). An empty or inverted range
// selects nothing.
func Between(lower, upper uint64) Range {
	return Range{Lower: lower, Upper: upper, HasUpper: true}
}

// Contains reports whether id falls inside the range.
func (r Range) Contains(id uint64) bool {
	if id < r.Lower {
		return false
	}
	return !r.HasUpper || id < r.Upper
}

// Empty reports whether the range cannot contain any id.
func (r Range) Empty() bool {
	return r.HasUpper && r.Upper <= r.Lower
}
