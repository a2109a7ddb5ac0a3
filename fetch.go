package courier

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/rbaliyan/courier/store"
)

// FetchNew returns the user's unseen messages and advances the read cursor
// to the current watermark. The cursor moves even when nothing is returned,
// so a later send with a fresh id is still picked up exactly once.
//
// Racing calls for the same user are serialized; each delivered message is
// reported as new to exactly one of them.
func (s *service) FetchNew(ctx context.Context, userToken string) ([]Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	userID, err := s.resolveUser(ctx, userToken, nil)
	if err != nil {
		return nil, err
	}

	ctx, endSpan := s.otel.startSpan(ctx, "courier.fetch_new",
		attribute.String("user_id", userID),
	)
	start := time.Now()
	var fetchErr error
	var resultCount int
	defer func() {
		endSpan(fetchErr)
		s.otel.recordFetch(ctx, time.Since(start), "new", resultCount, fetchErr)
	}()

	lock := s.fetchLock(userID)
	lock.Lock()

	msgs, watermark, err := s.readNewLocked(ctx, userID)
	lock.Unlock()
	if err != nil {
		fetchErr = err
		return nil, fetchErr
	}
	resultCount = len(msgs)

	if err := publishEvent(ctx, s.opts.eventPublishRetry, s.events.MailboxRead, MailboxReadEvent{
		UserID: userID,
		Cursor: watermark,
		Count:  len(msgs),
		ReadAt: time.Now().UTC(),
	}); err != nil {
		if s.opts.eventErrorsFatal {
			fetchErr = &EventPublishError{
				Event:  "MailboxRead",
				UserID: userID,
				Err:    err,
			}
			return msgs, fetchErr
		}
		s.opts.safeEventPublishFailure("MailboxRead", err)
	}

	return msgs, nil
}

// readNewLocked performs the cursor-to-watermark read and the cursor update.
// Caller must hold the user's fetch lock. The watermark is captured once so
// messages appended during the read are left for the next fetch.
func (s *service) readNewLocked(ctx context.Context, userID string) ([]Message, uint64, error) {
	u, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("get user: %w", err)
	}

	watermark, err := s.store.Watermark(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("read watermark: %w", err)
	}

	msgs, err := s.store.ReadRange(ctx, userID, store.Between(u.GetCursor(), watermark))
	if err != nil {
		return nil, 0, fmt.Errorf("read new messages: %w", err)
	}

	if err := s.store.UpdateCursor(ctx, userID, watermark); err != nil {
		return nil, 0, fmt.Errorf("update cursor: %w", err)
	}

	return msgs, watermark, nil
}

// FetchRange returns the user's messages with ids in [lowerBound,
// upperBound], both inclusive. An empty string means the bound is open:
// missing lower reads from the start, missing upper reads to the end.
// The read cursor is not touched.
func (s *service) FetchRange(ctx context.Context, userToken, lowerBound, upperBound string) ([]Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	userID, err := s.resolveUser(ctx, userToken, nil)
	if err != nil {
		return nil, err
	}

	r := store.All()
	if lowerBound != "" {
		lb, err := ParseMessageID(lowerBound)
		if err != nil {
			return nil, err
		}
		r.Lower = lb
	}
	if upperBound != "" {
		ub, err := ParseMessageID(upperBound)
		if err != nil {
			return nil, err
		}
		// The store bound is exclusive. An inclusive bound at the top of the
		// id space stays open instead of overflowing.
		if ub < math.MaxUint64 {
			r.Upper = ub + 1
			r.HasUpper = true
		}
	}

	ctx, endSpan := s.otel.startSpan(ctx, "courier.fetch_range",
		attribute.String("user_id", userID),
	)
	start := time.Now()
	var fetchErr error
	var resultCount int
	defer func() {
		endSpan(fetchErr)
		s.otel.recordFetch(ctx, time.Since(start), "range", resultCount, fetchErr)
	}()

	msgs, err := s.store.ReadRange(ctx, userID, r)
	if err != nil {
		fetchErr = fmt.Errorf("read range: %w", err)
		return nil, fetchErr
	}
	resultCount = len(msgs)

	return msgs, nil
}
