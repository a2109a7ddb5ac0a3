package courier

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Delete removes the listed message ids from the user's mailbox.
// The id list must be non-empty and fully well-formed before anything is
// removed; ids that are valid but absent from the mailbox are ignored.
// Returns the number of messages actually removed.
func (s *service) Delete(ctx context.Context, userToken string, ids []string) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}

	userID, err := s.resolveUser(ctx, userToken, nil)
	if err != nil {
		return 0, err
	}

	if len(ids) == 0 {
		return 0, fmt.Errorf("%w: id list", ErrMissingArgument)
	}
	parsed, err := ParseMessageIDs(ids)
	if err != nil {
		return 0, err
	}

	ctx, endSpan := s.otel.startSpan(ctx, "courier.delete",
		attribute.String("user_id", userID),
		attribute.Int("id_count", len(parsed)),
	)
	start := time.Now()
	var deleteErr error
	var deleted int64
	defer func() {
		endSpan(deleteErr)
		s.otel.recordDelete(ctx, time.Since(start), deleted, deleteErr)
	}()

	deleted, err = s.store.DeleteByIDs(ctx, userID, parsed)
	if err != nil {
		deleteErr = fmt.Errorf("delete messages: %w", err)
		return 0, deleteErr
	}

	if deleted > 0 {
		if err := publishEvent(ctx, s.opts.eventPublishRetry, s.events.MessagesDeleted, MessagesDeletedEvent{
			UserID:    userID,
			Deleted:   deleted,
			DeletedAt: time.Now().UTC(),
		}); err != nil {
			if s.opts.eventErrorsFatal {
				deleteErr = &EventPublishError{
					Event:  "MessagesDeleted",
					UserID: userID,
					Err:    err,
				}
				return deleted, deleteErr
			}
			s.opts.safeEventPublishFailure("MessagesDeleted", err)
		}
	}

	return deleted, nil
}
