package courier

import (
	"context"
	"fmt"
	"time"

	"github.com/rbaliyan/event/v3"

	"github.com/rbaliyan/courier/retry"
)

// Event names for courier events.
const (
	EventNameMessageSent     = "courier.message.sent"
	EventNameMailboxRead     = "courier.mailbox.read"
	EventNameMessagesDeleted = "courier.messages.deleted"
)

// MessageSentEvent is published when a message is delivered to a mailbox.
// This is the primary event for notifying recipients of new messages.
type MessageSentEvent struct {
	MessageID   uint64    `json:"message_id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	SentAt      time.Time `json:"sent_at"`
}

// MailboxReadEvent is published when a user fetches their new messages.
// Cursor is the user's cursor after the fetch.
type MailboxReadEvent struct {
	UserID string    `json:"user_id"`
	Cursor uint64    `json:"cursor"`
	Count  int       `json:"count"`
	ReadAt time.Time `json:"read_at"`
}

// MessagesDeletedEvent is published when messages are deleted from a mailbox.
type MessagesDeletedEvent struct {
	UserID    string    `json:"user_id"`
	Deleted   int64     `json:"deleted"`
	DeletedAt time.Time `json:"deleted_at"`
}

// ServiceEvents provides access to per-service event instances.
// Each service creates its own events bound to its own event bus,
// enabling independent event routing and parallel testing.
//
// Subscribe to events:
//
//	svc.Events().MessageSent.Subscribe(ctx, handler)
//	svc.Events().MailboxRead.Subscribe(ctx, handler)
//	svc.Events().MessagesDeleted.Subscribe(ctx, handler)
type ServiceEvents struct {
	// MessageSent is published when a message is delivered to a mailbox.
	MessageSent event.Event[MessageSentEvent]

	// MailboxRead is published when a user fetches their new messages.
	MailboxRead event.Event[MailboxReadEvent]

	// MessagesDeleted is published when messages are deleted from a mailbox.
	MessagesDeleted event.Event[MessagesDeletedEvent]
}

// newServiceEvents creates per-service event instances with a unique name prefix.
func newServiceEvents(namePrefix string) *ServiceEvents {
	return &ServiceEvents{
		MessageSent:     event.New[MessageSentEvent](namePrefix + "." + EventNameMessageSent),
		MailboxRead:     event.New[MailboxReadEvent](namePrefix + "." + EventNameMailboxRead),
		MessagesDeleted: event.New[MessagesDeletedEvent](namePrefix + "." + EventNameMessagesDeleted),
	}
}

// publishEvent publishes a payload, retrying transient transport failures
// per the configured policy before reporting the error to the caller.
func publishEvent[T any](ctx context.Context, cfg retry.Config, ev event.Event[T], payload T) error {
	return retry.Do(ctx, cfg, func(ctx context.Context) error {
		return ev.Publish(ctx, payload)
	})
}

// registerServiceEvents registers per-service events with the given bus.
func registerServiceEvents(ctx context.Context, bus *event.Bus, events *ServiceEvents) error {
	if err := event.Register(ctx, bus, events.MessageSent); err != nil {
		return fmt.Errorf("register MessageSent: %w", err)
	}
	if err := event.Register(ctx, bus, events.MailboxRead); err != nil {
		return fmt.Errorf("register MailboxRead: %w", err)
	}
	if err := event.Register(ctx, bus, events.MessagesDeleted); err != nil {
		return fmt.Errorf("register MessagesDeleted: %w", err)
	}
	return nil
}
