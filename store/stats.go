package store

// MailboxStats holds aggregate statistics for one user's mailbox.
type MailboxStats struct {
	// TotalMessages is the number of messages currently in the mailbox.
	TotalMessages int64
	// UnseenCount is the number of messages the user has not yet fetched
	// as new, i.e. messages with id >= Cursor.
	UnseenCount int64
	// Cursor is the user's current read cursor.
	Cursor uint64
}

// Clone returns a copy of the stats.
func (s *MailboxStats) Clone() *MailboxStats {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
