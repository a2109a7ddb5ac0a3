package memory

import (
	"context"
	"time"

	"github.com/rbaliyan/courier/store"
)

// Append assigns the next id and appends to the recipient's mailbox.
// The mailbox lock is acquired before the directory lock is released, so
// the counter increment and the append are atomic as a pair: no duplicate
// or skipped ids, and within a mailbox id order equals log order.
func (s *Store) Append(_ context.Context, data store.MessageData) (store.Message, error) {
	if !s.isConnected() {
		return nil, store.ErrNotConnected
	}

	s.mu.Lock()
	box, ok := s.boxes[data.RecipientID]
	if !ok {
		s.mu.Unlock()
		return nil, store.ErrUserNotFound
	}
	m := &message{
		id:          s.nextID,
		senderID:    data.SenderID,
		recipientID: data.RecipientID,
		body:        data.Body,
		sentAt:      time.Now().UTC(),
	}
	s.nextID++
	box.mu.Lock()
	s.mu.Unlock()

	box.msgs = append(box.msgs, m)
	box.mu.Unlock()

	return m, nil
}

// ReadRange returns the user's messages with ids in r, ascending.
func (s *Store) ReadRange(_ context.Context, userID string, r store.Range) ([]store.Message, error) {
	if !s.isConnected() {
		return nil, store.ErrNotConnected
	}

	s.mu.RLock()
	box, ok := s.boxes[userID]
	s.mu.RUnlock()
	if !ok {
		return nil, store.ErrUserNotFound
	}

	box.mu.RLock()
	defer box.mu.RUnlock()

	if r.Empty() {
		return nil, nil
	}

	// The log is sorted by id, so the selection is one contiguous run.
	var out []store.Message
	for _, m := range box.msgs {
		if m.id < r.Lower {
			continue
		}
		if r.HasUpper && m.id >= r.Upper {
			break
		}
		out = append(out, m)
	}
	return out, nil
}

// DeleteByIDs removes matching messages and eagerly materializes the
// post-delete log. Ids not present are ignored; deleting twice leaves the
// same state as deleting once.
func (s *Store) DeleteByIDs(_ context.Context, userID string, ids []uint64) (int64, error) {
	if !s.isConnected() {
		return 0, store.ErrNotConnected
	}

	s.mu.RLock()
	box, ok := s.boxes[userID]
	s.mu.RUnlock()
	if !ok {
		return 0, store.ErrUserNotFound
	}

	doomed := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		doomed[id] = true
	}

	box.mu.Lock()
	defer box.mu.Unlock()

	kept := box.msgs[:0]
	var deleted int64
	for _, m := range box.msgs {
		if doomed[m.id] {
			deleted++
			continue
		}
		kept = append(kept, m)
	}
	// Drop trailing slots so deleted messages are not retained.
	for i := len(kept); i < len(box.msgs); i++ {
		box.msgs[i] = nil
	}
	box.msgs = kept

	return deleted, nil
}

// Watermark returns the next id to be assigned.
func (s *Store) Watermark(_ context.Context) (uint64, error) {
	if !s.isConnected() {
		return 0, store.ErrNotConnected
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextID, nil
}

// MailboxStats returns aggregate statistics for one user's mailbox.
func (s *Store) MailboxStats(_ context.Context, userID string) (*store.MailboxStats, error) {
	if !s.isConnected() {
		return nil, store.ErrNotConnected
	}

	s.mu.RLock()
	u, ok := s.users[userID]
	if !ok {
		s.mu.RUnlock()
		return nil, store.ErrUserNotFound
	}
	cursor := u.cursor
	box := s.boxes[userID]
	s.mu.RUnlock()

	box.mu.RLock()
	defer box.mu.RUnlock()

	stats := &store.MailboxStats{
		TotalMessages: int64(len(box.msgs)),
		Cursor:        cursor,
	}
	for _, m := range box.msgs {
		if m.id >= cursor {
			stats.UnseenCount++
		}
	}
	return stats, nil
}
