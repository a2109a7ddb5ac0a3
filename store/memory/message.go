package memory

import "time"

// message is the internal message representation. Messages are immutable
// after Append, so views handed to callers share the same value.
type message struct {
	id          uint64
	senderID    string
	recipientID string
	body        string
	sentAt      time.Time
}

func (m *message) GetID() uint64          { return m.id }
func (m *message) GetSenderID() string    { return m.senderID }
func (m *message) GetRecipientID() string { return m.recipientID }
func (m *message) GetBody() string        { return m.body }
func (m *message) GetSentAt() time.Time   { return m.sentAt }

// user is the internal directory entry. The cursor is mutated under the
// store's directory lock, so reads hand out clones.
type user struct {
	id     string
	phone  string
	email  string
	cursor uint64
}

func (u *user) clone() *user {
	c := *u
	return &c
}

func (u *user) GetID() string      { return u.id }
func (u *user) GetPhone() string   { return u.phone }
func (u *user) GetEmail() string   { return u.email }
func (u *user) GetCursor() uint64  { return u.cursor }
