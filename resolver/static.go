// Package resolver provides IdentityResolver implementations.
package resolver

import (
	"context"
	"fmt"

	"github.com/rbaliyan/courier"
)

// Entry holds the addressing identifiers for one user.
type Entry struct {
	Phone string
	Email string
}

// Static is a map-based IdentityResolver for testing and simple deployments.
// It resolves tokens from an in-memory map keyed by user id. Safe for
// concurrent use (read-only after creation).
type Static struct {
	entries map[string]Entry
}

// NewStatic creates a Static resolver from a map of user id to Entry.
// The map is copied to prevent external mutation.
func NewStatic(entries map[string]Entry) *Static {
	m := make(map[string]Entry, len(entries))
	for k, v := range entries {
		m[k] = v
	}
	return &Static{entries: m}
}

// Resolve returns the canonical id of the user matching token by id,
// phone, or email. An exact id match wins; phone/email ties go to the
// smallest user id, keeping resolution deterministic.
func (s *Static) Resolve(_ context.Context, token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("%w: empty token", courier.ErrUnknownUser)
	}
	if _, ok := s.entries[token]; ok {
		return token, nil
	}

	best := ""
	for id, e := range s.entries {
		if e.Phone != token && e.Email != token {
			continue
		}
		if best == "" || id < best {
			best = id
		}
	}
	if best == "" {
		return "", fmt.Errorf("%w: %q", courier.ErrUnknownUser, token)
	}
	return best, nil
}

// Compile-time check that Static implements courier.IdentityResolver.
var _ courier.IdentityResolver = (*Static)(nil)
