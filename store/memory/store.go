// Package memory provides the in-memory Store implementation.
// This is the canonical backend: the service holds all state in process
// memory and durable persistence is out of scope. A fresh Store is the
// reset operation - there is no ambient process-wide state.
package memory

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rbaliyan/courier/store"
)

// Store implements store.Store with in-memory maps.
// Thread-safe for concurrent use.
//
// Locking: mu guards directory membership, user cursors, and the shared id
// counter. Each mailbox has its own lock for its message log. Appends take
// the mailbox lock while still holding mu, so id order and log order always
// coincide within a mailbox.
type Store struct {
	mu        sync.RWMutex
	users     map[string]*user
	boxes     map[string]*mailbox
	nextID    uint64
	connected int32
}

// mailbox is one user's ordered message log, ascending by id.
type mailbox struct {
	mu   sync.RWMutex
	msgs []*message
}

// New creates a new empty in-memory store with the id counter at 0.
func New() *Store {
	return &Store{
		users: make(map[string]*user),
		boxes: make(map[string]*mailbox),
	}
}

// Connect marks the store as connected.
func (s *Store) Connect(_ context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 0, 1) {
		return store.ErrAlreadyConnected
	}
	return nil
}

// Close marks the store as disconnected.
func (s *Store) Close(_ context.Context) error {
	atomic.StoreInt32(&s.connected, 0)
	return nil
}

func (s *Store) isConnected() bool {
	return atomic.LoadInt32(&s.connected) == 1
}

// =============================================================================
// User Directory Operations
// =============================================================================

// CreateUser creates a new user with cursor 0 and an empty mailbox.
// The mailbox is created here so appends never need to special-case a
// missing log.
func (s *Store) CreateUser(_ context.Context, data store.UserData) (store.User, error) {
	if !s.isConnected() {
		return nil, store.ErrNotConnected
	}
	if data.ID == "" {
		return nil, store.ErrInvalidID
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[data.ID]; ok {
		return nil, store.ErrDuplicateUser
	}

	u := &user{
		id:    data.ID,
		phone: data.Phone,
		email: data.Email,
	}
	s.users[data.ID] = u
	s.boxes[data.ID] = &mailbox{}

	return u.clone(), nil
}

// GetUser retrieves a user by canonical id.
func (s *Store) GetUser(_ context.Context, id string) (store.User, error) {
	if !s.isConnected() {
		return nil, store.ErrNotConnected
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return u.clone(), nil
}

// ListUsers returns all user ids. The contract leaves order unspecified;
// this implementation sorts for stable output.
func (s *Store) ListUsers(_ context.Context) ([]string, error) {
	if !s.isConnected() {
		return nil, store.ErrNotConnected
	}

	s.mu.RLock()
	ids := make([]string, 0, len(s.users))
	for id := range s.users {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sort.Strings(ids)
	return ids, nil
}

// UpdateCursor overwrites the user's read cursor.
func (s *Store) UpdateCursor(_ context.Context, id string, cursor uint64) error {
	if !s.isConnected() {
		return store.ErrNotConnected
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return store.ErrUserNotFound
	}
	u.cursor = cursor
	return nil
}

// LookupToken finds the user whose id, phone, or email equals token.
// An exact id match wins outright. Phone/email duplicates are allowed in
// the directory, so ties are broken by smallest user id to keep resolution
// deterministic.
func (s *Store) LookupToken(_ context.Context, token string) (store.User, error) {
	if !s.isConnected() {
		return nil, store.ErrNotConnected
	}
	if token == "" {
		return nil, store.ErrUserNotFound
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if u, ok := s.users[token]; ok {
		return u.clone(), nil
	}

	var best *user
	for _, u := range s.users {
		if u.phone != token && u.email != token {
			continue
		}
		if best == nil || u.id < best.id {
			best = u
		}
	}
	if best == nil {
		return nil, store.ErrUserNotFound
	}
	return best.clone(), nil
}

// Compile-time check that Store implements store.Store.
var _ store.Store = (*Store)(nil)
