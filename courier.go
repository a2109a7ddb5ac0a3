package courier

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rbaliyan/event/v3"
	"github.com/rbaliyan/event/v3/transport/noop"
	eventredis "github.com/rbaliyan/event/v3/transport/redis"
	"golang.org/x/sync/semaphore"

	"github.com/rbaliyan/courier/store"
)

// Type aliases for commonly used store types.
// These allow users to work with the courier package without importing
// store directly.
type (
	Message      = store.Message
	User         = store.User
	UserData     = store.UserData
	MailboxStats = store.MailboxStats
)

// ServiceHealth provides health and state information about the service.
type ServiceHealth interface {
	// IsConnected returns true if the service is connected and ready.
	IsConnected() bool
}

// Sender delivers messages into mailboxes.
type Sender interface {
	// Send resolves both addressing tokens, validates the body, and appends
	// the message to the recipient's mailbox.
	Send(ctx context.Context, toToken, fromToken, body string) (Message, error)
}

// Fetcher reads messages out of mailboxes.
type Fetcher interface {
	// FetchNew returns the user's unseen messages and advances the read
	// cursor to the current watermark, even when nothing is returned.
	FetchNew(ctx context.Context, userToken string) ([]Message, error)
	// FetchRange returns the user's messages with ids in the inclusive
	// range [lowerBound, upperBound]. Either bound may be "" for open.
	// The read cursor is not touched.
	FetchRange(ctx context.Context, userToken, lowerBound, upperBound string) ([]Message, error)
}

// Deleter removes messages from mailboxes.
type Deleter interface {
	// Delete removes the listed message ids from the user's mailbox and
	// returns how many were actually removed. Absent ids are ignored.
	Delete(ctx context.Context, userToken string, ids []string) (int64, error)
}

// Directory manages and inspects the user directory.
type Directory interface {
	// CreateUser registers a new user with an empty mailbox and cursor 0.
	CreateUser(ctx context.Context, data UserData) (User, error)
	// GetUser retrieves a user record by canonical id.
	GetUser(ctx context.Context, id string) (User, error)
	// ListUsers returns all registered user ids.
	ListUsers(ctx context.Context) ([]string, error)
	// Stats returns mailbox statistics for the user.
	Stats(ctx context.Context, userToken string) (*MailboxStats, error)
}

// Service is the message-delivery service (server-side).
//
// Composed of:
//   - ServiceHealth: Health and state queries (IsConnected)
//   - Sender / Fetcher / Deleter: The mailbox operations
//   - Directory: User directory operations
type Service interface {
	ServiceHealth
	Sender
	Fetcher
	Deleter
	Directory

	// Connect establishes connections to the storage backend.
	Connect(ctx context.Context) error
	// Close closes all connections.
	Close(ctx context.Context) error
	// Events returns per-service event instances for subscribing and publishing.
	// Each service has its own events bound to its own event bus, enabling
	// independent event routing and parallel testing.
	Events() *ServiceEvents
}

// Connection states for the service.
const (
	stateDisconnected int32 = 0
	stateConnecting   int32 = 1
	stateConnected    int32 = 2
)

// service is the default implementation of Service.
type service struct {
	store    store.Store
	resolver IdentityResolver
	logger   *slog.Logger
	opts     *options
	state    int32 // stateDisconnected, stateConnecting, or stateConnected
	plugins  *pluginRegistry
	otel     *otelInstrumentation
	sendSem  *semaphore.Weighted // Limits concurrent sends to prevent resource exhaustion
	eventBus *event.Bus          // Event bus for publishing events
	events   *ServiceEvents      // Per-service event instances

	// fetchLocks serializes FetchNew per user so racing fetches cannot both
	// observe the same cursor and double-deliver messages as new.
	fetchLocks sync.Map // userID -> *sync.Mutex
}

// NewService creates a new courier service.
// Call Connect() to establish connections to backends.
func NewService(opts ...Option) (Service, error) {
	o := newOptions(opts...)

	if o.store == nil {
		return nil, ErrStoreRequired
	}

	plugins := newPluginRegistry(o.logger)
	for _, p := range o.plugins {
		plugins.register(p)
	}

	otelInstr, err := newOtelInstrumentation(o)
	if err != nil {
		return nil, fmt.Errorf("init otel: %w", err)
	}

	s := &service{
		store:   o.store,
		logger:  o.logger,
		opts:    o,
		plugins: plugins,
		otel:    otelInstr,
		sendSem: semaphore.NewWeighted(int64(o.maxConcurrentSends)),
	}

	s.resolver = o.resolver
	if s.resolver == nil {
		s.resolver = &directoryResolver{store: o.store}
	}

	return s, nil
}

// Events returns per-service event instances for subscribing and publishing.
func (s *service) Events() *ServiceEvents {
	return s.events
}

// IsConnected returns true if the service is connected and ready.
func (s *service) IsConnected() bool {
	return atomic.LoadInt32(&s.state) == stateConnected
}

// checkConnected verifies the service is ready for operations.
func (s *service) checkConnected() error {
	if !s.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// Connect establishes connections to the storage backend.
func (s *service) Connect(ctx context.Context) error {
	// Three-state guard so operations never see partial initialization:
	// stateDisconnected -> stateConnecting -> stateConnected
	if !atomic.CompareAndSwapInt32(&s.state, stateDisconnected, stateConnecting) {
		return ErrAlreadyConnected
	}

	// Reset to disconnected on failure, set to connected on success
	success := false
	defer func() {
		if success {
			atomic.StoreInt32(&s.state, stateConnected)
		} else {
			atomic.StoreInt32(&s.state, stateDisconnected)
		}
	}()

	if err := s.store.Connect(ctx); err != nil {
		return fmt.Errorf("connect store: %w", err)
	}

	if err := s.initEventBus(ctx); err != nil {
		s.store.Close(ctx)
		return fmt.Errorf("init event bus: %w", err)
	}

	if err := s.plugins.initAll(ctx); err != nil {
		s.eventBus.Close(ctx)
		s.store.Close(ctx)
		return fmt.Errorf("init plugins: %w", err)
	}

	success = true
	s.logger.Info("courier service connected")
	return nil
}

// initEventBus initializes the event bus for this service.
// Each service creates its own bus under a unique name so that events stay
// bound to the service instance that published them.
func (s *service) initEventBus(ctx context.Context) error {
	serviceName := s.opts.serviceName
	if serviceName == "" {
		serviceName = "courier"
	}
	busName := fmt.Sprintf("%s-%s", serviceName, uuid.NewString())

	var bus *event.Bus
	var err error

	switch {
	case s.opts.eventTransport != nil:
		s.logger.Info("initializing event bus with custom transport")
		bus, err = event.NewBus(busName, event.WithTransport(s.opts.eventTransport))
	case s.opts.redisClient != nil:
		s.logger.Info("initializing event bus with Redis transport")
		t, transportErr := eventredis.New(s.opts.redisClient)
		if transportErr != nil {
			return fmt.Errorf("create redis transport: %w", transportErr)
		}
		bus, err = event.NewBus(busName, event.WithTransport(t))
	default:
		s.logger.Debug("initializing event bus with noop transport")
		bus, err = event.NewBus(busName, event.WithTransport(noop.New()))
	}

	if err != nil {
		return fmt.Errorf("create event bus: %w", err)
	}
	s.eventBus = bus

	s.events = newServiceEvents(busName)
	if err := registerServiceEvents(ctx, bus, s.events); err != nil {
		bus.Close(ctx)
		return fmt.Errorf("register service events: %w", err)
	}

	return nil
}

// Close closes connections to the storage backend.
func (s *service) Close(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.state, stateConnected, stateDisconnected) {
		return nil
	}

	var errs []error

	// Wait for in-flight send operations to complete (graceful shutdown).
	// After the state flips, no new sends can start because checkConnected
	// fails. Acquiring every semaphore slot waits out existing operations.
	s.logger.Info("waiting for in-flight operations to complete...", "timeout", s.opts.shutdownTimeout)
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, s.opts.shutdownTimeout)
	defer shutdownCancel()
	if err := s.sendSem.Acquire(shutdownCtx, int64(s.opts.maxConcurrentSends)); err != nil {
		s.logger.Warn("timeout waiting for in-flight operations, proceeding with shutdown",
			"error", err)
		errs = append(errs, fmt.Errorf("graceful shutdown timeout: %w", err))
	} else {
		s.sendSem.Release(int64(s.opts.maxConcurrentSends))
		s.logger.Info("all in-flight operations completed")
	}

	// Close plugins first (reverse order of init)
	if err := s.plugins.closeAll(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close plugins: %w", err))
	}

	// Close event bus only if using a real transport. The noop bus holds no
	// resources.
	if s.eventBus != nil && (s.opts.eventTransport != nil || s.opts.redisClient != nil) {
		if err := s.eventBus.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close event bus: %w", err))
		}
	}

	if err := s.store.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}

	return errors.Join(errs...)
}

// fetchLock returns the per-user mutex serializing FetchNew.
func (s *service) fetchLock(userID string) *sync.Mutex {
	l, _ := s.fetchLocks.LoadOrStore(userID, &sync.Mutex{})
	return l.(*sync.Mutex)
}
