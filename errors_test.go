package courier

import (
	"errors"
	"fmt"
	"testing"

	"github.com/rbaliyan/courier/store"
)

func TestErrorLayering(t *testing.T) {
	// Courier sentinels match their store-level counterparts through errors.Is.
	if !errors.Is(ErrUnknownUser, store.ErrUserNotFound) {
		t.Error("ErrUnknownUser should wrap store.ErrUserNotFound")
	}
	if !errors.Is(ErrDuplicateUser, store.ErrDuplicateUser) {
		t.Error("ErrDuplicateUser should wrap store.ErrDuplicateUser")
	}
	if !errors.Is(ErrNotConnected, store.ErrNotConnected) {
		t.Error("ErrNotConnected should wrap store.ErrNotConnected")
	}
	if !errors.Is(ErrMissingArgument, ErrInvalidArgument) {
		t.Error("ErrMissingArgument should wrap ErrInvalidArgument")
	}
}

func TestClassificationHelpers(t *testing.T) {
	wrapped := fmt.Errorf("get user: %w", store.ErrUserNotFound)
	if !IsNotFound(wrapped) {
		t.Error("IsNotFound should match wrapped store errors")
	}
	if !IsNotFound(fmt.Errorf("%w: %q", ErrUnknownUser, "x")) {
		t.Error("IsNotFound should match wrapped ErrUnknownUser")
	}
	if IsNotFound(ErrInvalidArgument) {
		t.Error("IsNotFound should not match invalid-argument errors")
	}

	if !IsConflict(fmt.Errorf("create user: %w", store.ErrDuplicateUser)) {
		t.Error("IsConflict should match wrapped duplicate errors")
	}
	if IsConflict(store.ErrUserNotFound) {
		t.Error("IsConflict should not match not-found errors")
	}

	invalids := []error{
		ErrInvalidArgument,
		ErrMissingArgument,
		ErrInvalidRecipient,
		ErrInvalidSender,
		ErrEmptyBody,
		ErrBodyTooLarge,
		ErrInvalidUserID,
		fmt.Errorf("%w: bad message id %q", ErrInvalidArgument, "x"),
	}
	for _, err := range invalids {
		if !IsInvalidArgument(err) {
			t.Errorf("IsInvalidArgument(%v) = false, want true", err)
		}
	}
	if IsInvalidArgument(ErrUnknownUser) {
		t.Error("IsInvalidArgument should not match not-found errors")
	}
}

func TestEventPublishError(t *testing.T) {
	cause := errors.New("transport down")
	err := error(&EventPublishError{Event: "MessageSent", UserID: "alice", Err: cause})

	epe, ok := IsEventPublishError(fmt.Errorf("send: %w", err))
	if !ok {
		t.Fatal("IsEventPublishError should match wrapped EventPublishError")
	}
	if epe.Event != "MessageSent" || epe.UserID != "alice" {
		t.Errorf("unexpected details: %+v", epe)
	}
	if !errors.Is(err, cause) {
		t.Error("EventPublishError should unwrap to the publish error")
	}
}

func TestPluginErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := error(&PluginError{Plugin: "p", Op: "init", Err: cause})
	if !errors.Is(err, cause) {
		t.Error("PluginError should unwrap to the plugin's error")
	}
}
