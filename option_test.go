package courier

import (
	"log/slog"
	"testing"
	"time"
)

func TestOptionDefaults(t *testing.T) {
	o := newOptions()

	if o.maxBodySize != DefaultMaxBodySize {
		t.Errorf("maxBodySize = %d, want %d", o.maxBodySize, DefaultMaxBodySize)
	}
	if o.maxConcurrentSends != DefaultMaxConcurrentSends {
		t.Errorf("maxConcurrentSends = %d, want %d", o.maxConcurrentSends, DefaultMaxConcurrentSends)
	}
	if o.shutdownTimeout != DefaultShutdownTimeout {
		t.Errorf("shutdownTimeout = %v, want %v", o.shutdownTimeout, DefaultShutdownTimeout)
	}
	if o.logger == nil {
		t.Error("expected default logger")
	}
	if o.onEventPublishFailure == nil {
		t.Error("expected default event failure handler")
	}
}

func TestOptionsApply(t *testing.T) {
	logger := slog.Default().With("test", true)
	o := newOptions(
		WithLogger(logger),
		WithMaxBodySize(128),
		WithMaxConcurrentSends(3),
		WithShutdownTimeout(5*time.Second),
		WithServiceName("courier-test"),
		WithEventErrorsFatal(true),
	)

	if o.logger != logger {
		t.Error("WithLogger not applied")
	}
	if o.maxBodySize != 128 {
		t.Errorf("maxBodySize = %d, want 128", o.maxBodySize)
	}
	if o.maxConcurrentSends != 3 {
		t.Errorf("maxConcurrentSends = %d, want 3", o.maxConcurrentSends)
	}
	if o.shutdownTimeout != 5*time.Second {
		t.Errorf("shutdownTimeout = %v, want 5s", o.shutdownTimeout)
	}
	if o.serviceName != "courier-test" {
		t.Errorf("serviceName = %q, want courier-test", o.serviceName)
	}
	if !o.eventErrorsFatal {
		t.Error("WithEventErrorsFatal not applied")
	}
}

func TestOptionsRejectInvalidValues(t *testing.T) {
	o := newOptions(
		WithStore(nil),
		WithLogger(nil),
		WithMaxBodySize(0),
		WithMaxBodySize(-1),
		WithMaxConcurrentSends(0),
		WithShutdownTimeout(time.Millisecond), // below minimum
	)

	if o.store != nil {
		t.Error("nil store should be ignored")
	}
	if o.logger == nil {
		t.Error("nil logger should be ignored")
	}
	if o.maxBodySize != DefaultMaxBodySize {
		t.Errorf("non-positive body size should be ignored, got %d", o.maxBodySize)
	}
	if o.maxConcurrentSends != DefaultMaxConcurrentSends {
		t.Errorf("non-positive send limit should be ignored, got %d", o.maxConcurrentSends)
	}
	if o.shutdownTimeout != DefaultShutdownTimeout {
		t.Errorf("sub-minimum shutdown timeout should be ignored, got %v", o.shutdownTimeout)
	}
}

func TestSafeEventPublishFailureRecoversPanic(t *testing.T) {
	o := newOptions(
		WithEventPublishFailureHandler(func(string, error) {
			panic("handler bug")
		}),
	)

	// Must not propagate the panic.
	o.safeEventPublishFailure("MessageSent", errTest)
}

var errTest = &PluginError{Plugin: "t", Op: "test", Err: ErrInvalidArgument}
