package courier

import (
	"context"
	"fmt"

	"github.com/rbaliyan/courier/store"
)

// IdentityResolver resolves an addressing token to a canonical user id.
// A token may be a user id, a phone number, or an email address; the match
// is exact, never fuzzy. An empty token never resolves.
//
// When phone or email duplicates exist, resolution must be deterministic:
// an exact id match always wins, otherwise the matching user with the
// smallest id is chosen.
type IdentityResolver interface {
	Resolve(ctx context.Context, token string) (string, error)
}

// directoryResolver resolves tokens against the store's user directory.
// This is the default resolver.
type directoryResolver struct {
	store store.UserStore
}

// Resolve returns the canonical id of the user matching token.
func (r *directoryResolver) Resolve(ctx context.Context, token string) (string, error) {
	u, err := r.store.LookupToken(ctx, token)
	if err != nil {
		if store.IsUserNotFound(err) {
			return "", fmt.Errorf("%w: %q", ErrUnknownUser, token)
		}
		return "", fmt.Errorf("lookup token: %w", err)
	}
	return u.GetID(), nil
}

// resolveUser resolves token, rewrapping a failed match with sentinel when
// one is given (ErrInvalidRecipient / ErrInvalidSender on the send path).
// With a nil sentinel the resolver's own ErrUnknownUser passes through.
func (s *service) resolveUser(ctx context.Context, token string, sentinel error) (string, error) {
	userID, err := s.resolver.Resolve(ctx, token)
	if err == nil {
		return userID, nil
	}
	if sentinel != nil && IsNotFound(err) {
		return "", fmt.Errorf("%w: %q", sentinel, token)
	}
	return "", err
}
