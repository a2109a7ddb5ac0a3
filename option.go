package courier

import (
	"log/slog"
	"time"

	"github.com/rbaliyan/event/v3/transport"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/rbaliyan/courier/retry"
	"github.com/rbaliyan/courier/store"
)

// Default configuration values.
const (
	// DefaultMaxBodySize is the maximum message body size in bytes.
	DefaultMaxBodySize = 64 * 1024 // 64 KB

	// DefaultMaxConcurrentSends is the maximum number of concurrent send
	// operations per service.
	DefaultMaxConcurrentSends = 10

	DefaultShutdownTimeout = 30 * time.Second // default graceful shutdown timeout
	MinShutdownTimeout     = 1 * time.Second  // minimum shutdown timeout
)

// options holds courier configuration.
type options struct {
	store    store.Store
	logger   *slog.Logger
	resolver IdentityResolver

	plugins []Plugin

	// Message limits
	maxBodySize int

	// Concurrency limits
	maxConcurrentSends int

	// Shutdown
	shutdownTimeout time.Duration

	// OpenTelemetry
	tracingEnabled bool
	metricsEnabled bool
	serviceName    string
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider

	// Event handling
	eventErrorsFatal      bool                    // If true, event publishing failures cause operation to fail
	eventTransport        transport.Transport     // Event transport (optional, uses noop if nil)
	redisClient           redis.UniversalClient   // Redis client for event transport (optional, uses noop if nil)
	eventPublishRetry     retry.Config            // Retry policy for transient publish failures
	onEventPublishFailure EventPublishFailureFunc // Callback for event publish failures (always set)
}

// EventPublishFailureFunc is called when an event fails to publish.
// The eventName is the name of the event (e.g., "MessageSent"), and err is
// the publish error.
type EventPublishFailureFunc func(eventName string, err error)

// safeEventPublishFailure calls the event failure callback with panic recovery.
// If the callback panics, the panic is logged and suppressed to prevent
// cascading failures.
func (o *options) safeEventPublishFailure(eventName string, err error) {
	if o.onEventPublishFailure == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("panic in event publish failure handler",
				"event", eventName,
				"original_error", err,
				"panic", r,
			)
		}
	}()
	o.onEventPublishFailure(eventName, err)
}

// newOptions creates options with defaults and applies provided options.
func newOptions(opts ...Option) *options {
	o := &options{
		logger:             slog.Default(),
		maxBodySize:        DefaultMaxBodySize,
		maxConcurrentSends: DefaultMaxConcurrentSends,
		shutdownTimeout:    DefaultShutdownTimeout,
		eventPublishRetry: retry.Config{
			MaxRetries:     2,
			InitialBackoff: 50 * time.Millisecond,
			MaxBackoff:     time.Second,
		},
	}
	for _, opt := range opts {
		opt(o)
	}

	// Ensure event failure callback is always set
	if o.onEventPublishFailure == nil {
		o.onEventPublishFailure = func(eventName string, err error) {
			o.logger.Error("failed to publish event", "event", eventName, "error", err)
		}
	}

	return o
}

// Option configures a courier service.
type Option func(*options)

// --- Core Options ---

// WithStore sets the storage backend (required).
func WithStore(s store.Store) Option {
	return func(o *options) {
		if s != nil {
			o.store = s
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithResolver sets a custom identity resolver. By default tokens are
// resolved against the store's user directory (id, phone, or email match).
func WithResolver(r IdentityResolver) Option {
	return func(o *options) {
		if r != nil {
			o.resolver = r
		}
	}
}

// --- Plugin/Extension Options ---

// WithPlugin registers a plugin with the courier service.
// Plugins can hook into the send path.
// Multiple plugins can be registered by calling this option multiple times.
func WithPlugin(p Plugin) Option {
	return func(o *options) {
		if p != nil {
			o.plugins = append(o.plugins, p)
		}
	}
}

// WithPlugins registers multiple plugins at once.
func WithPlugins(plugins ...Plugin) Option {
	return func(o *options) {
		for _, p := range plugins {
			if p != nil {
				o.plugins = append(o.plugins, p)
			}
		}
	}
}

// --- Message Limit Options ---

// WithMaxBodySize sets the maximum body size in bytes.
// Default is 64 KB.
func WithMaxBodySize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBodySize = n
		}
	}
}

// --- Concurrency Options ---

// WithMaxConcurrentSends sets the maximum number of concurrent send operations.
// This prevents resource exhaustion when many messages are being sent
// simultaneously. Default is 10.
func WithMaxConcurrentSends(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxConcurrentSends = n
		}
	}
}

// WithShutdownTimeout sets the maximum time to wait for in-flight operations
// during graceful shutdown. When Close() is called, the service waits up to
// this duration for ongoing send operations to complete.
// Default is 30 seconds. Minimum is 1 second.
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		if d >= MinShutdownTimeout {
			o.shutdownTimeout = d
		}
	}
}

// --- OTel Options ---

// WithTracing enables or disables OpenTelemetry tracing.
// When enabled, spans are created for all courier operations.
// Default is disabled.
func WithTracing(enabled bool) Option {
	return func(o *options) {
		o.tracingEnabled = enabled
	}
}

// WithMetrics enables or disables OpenTelemetry metrics.
// When enabled, metrics are collected for all courier operations.
// Default is disabled.
func WithMetrics(enabled bool) Option {
	return func(o *options) {
		o.metricsEnabled = enabled
	}
}

// WithOTel enables both OpenTelemetry tracing and metrics.
// This is a convenience function equivalent to calling
// WithTracing(true) and WithMetrics(true).
func WithOTel(enabled bool) Option {
	return func(o *options) {
		o.tracingEnabled = enabled
		o.metricsEnabled = enabled
	}
}

// WithServiceName sets the service name for OpenTelemetry telemetry and
// event bus naming. Default is "courier".
func WithServiceName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.serviceName = name
		}
	}
}

// WithTracerProvider sets a custom OpenTelemetry tracer provider.
// Default uses the global tracer provider from otel.GetTracerProvider().
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracerProvider = tp
		}
	}
}

// WithMeterProvider sets a custom OpenTelemetry meter provider.
// Default uses the global meter provider from otel.GetMeterProvider().
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		if mp != nil {
			o.meterProvider = mp
		}
	}
}

// --- Event Options ---

// WithEventErrorsFatal configures whether event publishing failures should
// cause the operation to fail. By default, event failures are logged but
// the operation succeeds (the message is still stored).
//
// Set to true if your application requires guaranteed event delivery,
// for example when events drive critical downstream processes.
// Set to false (default) for fire-and-forget event publishing.
func WithEventErrorsFatal(fatal bool) Option {
	return func(o *options) {
		o.eventErrorsFatal = fatal
	}
}

// WithEventTransport sets the event transport for publishing and subscribing.
// When provided, events are published via the given transport for reliable
// delivery. If not provided, a noop transport is used (events are silently
// dropped).
func WithEventTransport(t transport.Transport) Option {
	return func(o *options) {
		if t != nil {
			o.eventTransport = t
		}
	}
}

// WithRedisClient sets a Redis client for the event transport.
// When provided, events are published to Redis Streams for reliable delivery.
// If not provided, a noop transport is used (events are silently dropped).
//
// Compatible with *redis.Client, *redis.ClusterClient, and redis.UniversalClient.
func WithRedisClient(client redis.UniversalClient) Option {
	return func(o *options) {
		if client != nil {
			o.redisClient = client
		}
	}
}

// WithEventPublishRetry sets the retry policy for event publishing.
// Transient transport failures are retried with exponential backoff before
// the failure is surfaced (or logged, depending on WithEventErrorsFatal).
// Default is 2 retries starting at 50ms.
func WithEventPublishRetry(cfg retry.Config) Option {
	return func(o *options) {
		o.eventPublishRetry = cfg
	}
}

// WithEventPublishFailureHandler sets a callback for event publishing failures.
// This callback is invoked whenever an event fails to publish (and
// eventErrorsFatal is false). Use this for custom logging, metrics, or
// alerting on event failures.
//
// By default, failures are logged using the configured logger.
func WithEventPublishFailureHandler(fn EventPublishFailureFunc) Option {
	return func(o *options) {
		if fn != nil {
			o.onEventPublishFailure = fn
		}
	}
}
