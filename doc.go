// Package courier provides a minimal message-delivery library for Go.
//
// Senders deposit text messages addressed to a recipient, identified by
// username, phone number, or email. Recipients retrieve messages three
// ways: everything new since their last read, an explicit id range, or
// not at all before bulk-deleting by id. Every message gets an id from a
// single shared counter, so ids are globally unique and strictly
// increasing; each mailbox is an ordered log and each user carries a read
// cursor advanced only by new-message fetches.
//
// # Basic Usage
//
//	// Create in-memory store
//	st := memory.New()
//
//	// Create courier service
//	svc, err := courier.NewService(
//	    courier.WithStore(st),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := svc.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer svc.Close(ctx)
//
//	// Register users and deliver a message
//	svc.CreateUser(ctx, courier.UserData{ID: "alice", Email: "alice@example.com"})
//	svc.CreateUser(ctx, courier.UserData{ID: "bob"})
//	msg, err := svc.Send(ctx, "alice@example.com", "bob", "hello")
//
//	// Read it back
//	msgs, err := svc.FetchNew(ctx, "alice")
//
// # Operations
//
//   - Send: Deliver a message to a recipient's mailbox
//   - FetchNew: Unseen messages; advances the read cursor
//   - FetchRange: Messages in an inclusive id range; cursor untouched
//   - Delete: Bulk delete by id
//   - CreateUser/GetUser/ListUsers/Stats: Directory operations
//
// # Events
//
// Courier provides typed events for delivery lifecycle notifications.
// Events use the github.com/rbaliyan/event/v3 library which supports
// multiple transports (Redis Streams, NATS, Kafka, in-memory channel).
//
// To enable events, pass WithRedisClient or WithEventTransport when
// creating the service:
//
//	svc, err := courier.NewService(
//	    courier.WithStore(st),
//	    courier.WithRedisClient(redisClient),
//	)
//
// Events are automatically registered during Connect(). Access per-service
// events via the Events() method:
//
//	events := svc.Events()
//	events.MessageSent.Subscribe(ctx, handler)
//	events.MailboxRead.Subscribe(ctx, handler)
//	events.MessagesDeleted.Subscribe(ctx, handler)
package courier
