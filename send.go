package courier

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/rbaliyan/courier/store"
)

// Send delivers a message to the mailbox of the user addressed by toToken.
// Both tokens are resolved and the body validated before anything is
// stored; a rejected send leaves no trace and consumes no message id.
func (s *service) Send(ctx context.Context, toToken, fromToken, body string) (Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	// Step 1: Resolve addressing. Recipient first, matching the error the
	// caller is most likely to have caused.
	recipientID, err := s.resolveUser(ctx, toToken, ErrInvalidRecipient)
	if err != nil {
		return nil, err
	}
	senderID, err := s.resolveUser(ctx, fromToken, ErrInvalidSender)
	if err != nil {
		return nil, err
	}

	// Step 2: Validate content
	if err := validateBody(body, s.opts.maxBodySize); err != nil {
		return nil, err
	}

	// Setup tracing
	ctx, endSpan := s.otel.startSpan(ctx, "courier.send",
		attribute.String("sender_id", senderID),
		attribute.String("recipient_id", recipientID),
	)
	start := time.Now()
	var sendErr error
	defer func() {
		endSpan(sendErr)
		s.otel.recordSend(ctx, time.Since(start), sendErr)
	}()

	// Step 3: Acquire send semaphore
	if err := s.sendSem.Acquire(ctx, 1); err != nil {
		sendErr = err
		return nil, sendErr
	}
	defer s.sendSem.Release(1)

	// Step 4: Plugin BeforeSend hook
	if err := s.plugins.beforeSend(ctx, senderID, recipientID, body); err != nil {
		sendErr = err
		return nil, sendErr
	}

	// Step 5: Append to the recipient's mailbox
	msg, err := s.store.Append(ctx, store.MessageData{
		SenderID:    senderID,
		RecipientID: recipientID,
		Body:        body,
	})
	if err != nil {
		sendErr = fmt.Errorf("append message: %w", err)
		return nil, sendErr
	}

	// Step 6: Publish event
	if err := publishEvent(ctx, s.opts.eventPublishRetry, s.events.MessageSent, MessageSentEvent{
		MessageID:   msg.GetID(),
		SenderID:    senderID,
		RecipientID: recipientID,
		SentAt:      msg.GetSentAt(),
	}); err != nil {
		if s.opts.eventErrorsFatal {
			// The message WAS delivered; only the notification failed.
			sendErr = &EventPublishError{
				Event:  "MessageSent",
				UserID: recipientID,
				Err:    err,
			}
			return msg, sendErr
		}
		s.opts.safeEventPublishFailure("MessageSent", err)
	}

	// Step 7: Plugin AfterSend hook
	if err := s.plugins.afterSend(ctx, msg); err != nil {
		sendErr = err
		return msg, sendErr
	}

	return msg, nil
}
