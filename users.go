package courier

import (
	"context"
	"fmt"
)

// CreateUser registers a new user with an empty mailbox and cursor 0.
// The id must be non-empty and contain only safe characters; phone and
// email are optional and not required to be unique.
func (s *service) CreateUser(ctx context.Context, data UserData) (User, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	if !isValidUserID(data.ID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidUserID, data.ID)
	}

	u, err := s.store.CreateUser(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Debug("user created", "user_id", u.GetID())
	return u, nil
}

// GetUser retrieves a user record by canonical id. Unlike the mailbox
// operations this does not resolve phone/email tokens; the directory is
// keyed by id.
func (s *service) GetUser(ctx context.Context, id string) (User, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// ListUsers returns all registered user ids. Order is unspecified.
func (s *service) ListUsers(ctx context.Context) ([]string, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ids, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return ids, nil
}

// Stats returns mailbox statistics for the user addressed by userToken.
func (s *service) Stats(ctx context.Context, userToken string) (*MailboxStats, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	userID, err := s.resolveUser(ctx, userToken, nil)
	if err != nil {
		return nil, err
	}

	stats, err := s.store.MailboxStats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("mailbox stats: %w", err)
	}
	return stats, nil
}
