package courier

import (
	"context"
	"errors"
	"testing"

	"github.com/rbaliyan/courier/store"
	"github.com/rbaliyan/courier/store/memory"
)

// newTestService creates a connected service over a fresh in-memory store.
func newTestService(t *testing.T, opts ...Option) Service {
	t.Helper()
	ctx := context.Background()

	svc, err := NewService(append([]Option{WithStore(memory.New())}, opts...)...)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	if err := svc.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() {
		svc.Close(context.Background())
	})
	return svc
}

// seedUsers registers the given users with empty contact info.
func seedUsers(t *testing.T, svc Service, ids ...string) {
	t.Helper()
	ctx := context.Background()
	for _, id := range ids {
		if _, err := svc.CreateUser(ctx, UserData{ID: id}); err != nil {
			t.Fatalf("CreateUser(%q) failed: %v", id, err)
		}
	}
}

// seedMailbox registers bar, ara, and foo, then has foo send four messages
// to ara (ids 0 through 3).
func seedMailbox(t *testing.T, svc Service) {
	t.Helper()
	ctx := context.Background()
	seedUsers(t, svc, "bar", "ara", "foo")
	for _, body := range []string{"hi", "how are you", "hello", "bye"} {
		if _, err := svc.Send(ctx, "ara", "foo", body); err != nil {
			t.Fatalf("Send failed: %v", err)
		}
	}
}

func messageIDs(msgs []Message) []uint64 {
	ids := make([]uint64, len(msgs))
	for i, m := range msgs {
		ids[i] = m.GetID()
	}
	return ids
}

func TestServiceRequiresStore(t *testing.T) {
	if _, err := NewService(); err != ErrStoreRequired {
		t.Errorf("expected ErrStoreRequired, got %v", err)
	}
}

func TestServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, err := NewService(WithStore(memory.New()))
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	if svc.IsConnected() {
		t.Error("expected not connected before Connect")
	}
	if _, err := svc.ListUsers(ctx); err != ErrNotConnected {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}

	if err := svc.Connect(ctx); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if !svc.IsConnected() {
		t.Error("expected connected after Connect")
	}
	if err := svc.Connect(ctx); err != ErrAlreadyConnected {
		t.Errorf("expected ErrAlreadyConnected, got %v", err)
	}

	if err := svc.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if svc.IsConnected() {
		t.Error("expected disconnected after Close")
	}
	// Close is idempotent.
	if err := svc.Close(ctx); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestCreateUserValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	if _, err := svc.CreateUser(ctx, UserData{ID: "alice", Phone: "555-0100"}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	_, err := svc.CreateUser(ctx, UserData{ID: "alice"})
	if !IsConflict(err) {
		t.Errorf("expected conflict for duplicate user, got %v", err)
	}

	for _, bad := range []string{"", "a b", "a*b", "a/b", "a:b"} {
		if _, err := svc.CreateUser(ctx, UserData{ID: bad}); !IsInvalidArgument(err) {
			t.Errorf("CreateUser(%q): expected invalid argument, got %v", bad, err)
		}
	}
}

func TestSendAndFetchNew(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	seedMailbox(t, svc)

	msgs, err := svc.FetchNew(ctx, "ara")
	if err != nil {
		t.Fatalf("FetchNew failed: %v", err)
	}
	if len(msgs) != 4 {
		t.Fatalf("expected 4 new messages, got %d", len(msgs))
	}
	for i, m := range msgs {
		if m.GetID() != uint64(i) {
			t.Errorf("msgs[%d].id = %d, want %d", i, m.GetID(), i)
		}
		if m.GetSenderID() != "foo" {
			t.Errorf("msgs[%d].sender = %q, want foo", i, m.GetSenderID())
		}
	}

	// Everything was consumed; the second fetch is empty.
	msgs, err = svc.FetchNew(ctx, "ara")
	if err != nil {
		t.Fatalf("second FetchNew failed: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("expected 0 new messages after fetch, got %d", len(msgs))
	}

	// A later send is picked up by the next fetch.
	if _, err := svc.Send(ctx, "ara", "bar", "one more"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	msgs, err = svc.FetchNew(ctx, "ara")
	if err != nil {
		t.Fatalf("third FetchNew failed: %v", err)
	}
	if len(msgs) != 1 || msgs[0].GetID() != 4 {
		t.Errorf("expected message 4, got ids %v", messageIDs(msgs))
	}
}

func TestFetchRange(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	seedMailbox(t, svc)

	tests := []struct {
		name   string
		lb, ub string
		want   []uint64
	}{
		{"open", "", "", []uint64{0, 1, 2, 3}},
		{"lower only", "1", "", []uint64{1, 2, 3}},
		{"upper only", "", "2", []uint64{0, 1, 2}},
		{"both", "1", "2", []uint64{1, 2}},
		{"single", "2", "2", []uint64{2}},
		{"inverted", "3", "1", nil},
		{"past end", "10", "", nil},
	}
	for _, tt := range tests {
		msgs, err := svc.FetchRange(ctx, "ara", tt.lb, tt.ub)
		if err != nil {
			t.Fatalf("%s: FetchRange failed: %v", tt.name, err)
		}
		got := messageIDs(msgs)
		if len(got) != len(tt.want) {
			t.Errorf("%s: got ids %v, want %v", tt.name, got, tt.want)
			continue
		}
		for i := range tt.want {
			if got[i] != tt.want[i] {
				t.Errorf("%s: got ids %v, want %v", tt.name, got, tt.want)
				break
			}
		}
	}

	// Range reads never move the cursor.
	msgs, err := svc.FetchNew(ctx, "ara")
	if err != nil {
		t.Fatalf("FetchNew failed: %v", err)
	}
	if len(msgs) != 4 {
		t.Errorf("expected 4 new messages after range reads, got %d", len(msgs))
	}
}

func TestFetchRangeBadBounds(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	seedMailbox(t, svc)

	for _, bad := range []string{"x", "-1", "+1", "1.5", " 1"} {
		if _, err := svc.FetchRange(ctx, "ara", bad, ""); !IsInvalidArgument(err) {
			t.Errorf("lb=%q: expected invalid argument, got %v", bad, err)
		}
		if _, err := svc.FetchRange(ctx, "ara", "", bad); !IsInvalidArgument(err) {
			t.Errorf("ub=%q: expected invalid argument, got %v", bad, err)
		}
	}
}

func TestFetchUnknownUser(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	if _, err := svc.FetchNew(ctx, "ghost"); !IsNotFound(err) {
		t.Errorf("FetchNew: expected not found, got %v", err)
	}
	if _, err := svc.FetchRange(ctx, "ghost", "", ""); !IsNotFound(err) {
		t.Errorf("FetchRange: expected not found, got %v", err)
	}
	if _, err := svc.Delete(ctx, "ghost", []string{"0"}); !IsNotFound(err) {
		t.Errorf("Delete: expected not found, got %v", err)
	}
	if _, err := svc.Stats(ctx, "ghost"); !IsNotFound(err) {
		t.Errorf("Stats: expected not found, got %v", err)
	}
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	seedMailbox(t, svc)

	n, err := svc.Delete(ctx, "ara", []string{"0", "2", "3"})
	if err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if n != 3 {
		t.Errorf("expected 3 deleted, got %d", n)
	}

	msgs, err := svc.FetchRange(ctx, "ara", "", "")
	if err != nil {
		t.Fatalf("FetchRange failed: %v", err)
	}
	if len(msgs) != 1 || msgs[0].GetID() != 1 {
		t.Errorf("expected only message 1 to remain, got ids %v", messageIDs(msgs))
	}

	// Absent ids are not errors.
	n, err = svc.Delete(ctx, "ara", []string{"0", "99"})
	if err != nil {
		t.Fatalf("Delete with absent ids failed: %v", err)
	}
	if n != 0 {
		t.Errorf("expected 0 deleted, got %d", n)
	}
}

func TestDeleteValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	seedMailbox(t, svc)

	if _, err := svc.Delete(ctx, "ara", nil); !IsInvalidArgument(err) {
		t.Errorf("empty id list: expected invalid argument, got %v", err)
	}
	if _, err := svc.Delete(ctx, "ara", []string{"1", "x"}); !IsInvalidArgument(err) {
		t.Errorf("malformed id: expected invalid argument, got %v", err)
	}

	// A rejected delete removes nothing.
	msgs, err := svc.FetchRange(ctx, "ara", "", "")
	if err != nil {
		t.Fatalf("FetchRange failed: %v", err)
	}
	if len(msgs) != 4 {
		t.Errorf("expected all 4 messages intact, got %d", len(msgs))
	}
}

func TestSendValidation(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t, WithMaxBodySize(8))
	seedUsers(t, svc, "alice", "bob")

	tests := []struct {
		name           string
		to, from, body string
		check          func(error) bool
	}{
		{"unknown recipient", "ghost", "alice", "hi", func(err error) bool {
			return errors.Is(err, ErrInvalidRecipient)
		}},
		{"unknown sender", "alice", "ghost", "hi", func(err error) bool {
			return errors.Is(err, ErrInvalidSender)
		}},
		{"empty body", "alice", "bob", "", func(err error) bool {
			return errors.Is(err, ErrEmptyBody)
		}},
		{"body too large", "alice", "bob", "123456789", func(err error) bool {
			return errors.Is(err, ErrBodyTooLarge)
		}},
	}
	for _, tt := range tests {
		_, err := svc.Send(ctx, tt.to, tt.from, tt.body)
		if err == nil || !tt.check(err) {
			t.Errorf("%s: unexpected error %v", tt.name, err)
		}
		if !IsInvalidArgument(err) {
			t.Errorf("%s: expected invalid-argument classification, got %v", tt.name, err)
		}
	}

	// None of the rejected sends stored anything or consumed an id.
	msgs, err := svc.FetchNew(ctx, "alice")
	if err != nil {
		t.Fatalf("FetchNew failed: %v", err)
	}
	if len(msgs) != 0 {
		t.Errorf("expected empty mailbox after rejected sends, got %d messages", len(msgs))
	}
	msg, err := svc.Send(ctx, "alice", "bob", "ok")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if msg.GetID() != 0 {
		t.Errorf("expected first accepted message to get id 0, got %d", msg.GetID())
	}
}

func TestSendResolvesTokens(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)

	if _, err := svc.CreateUser(ctx, UserData{ID: "alice", Phone: "555-0100", Email: "alice@example.com"}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if _, err := svc.CreateUser(ctx, UserData{ID: "bob", Email: "bob@example.com"}); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	msg, err := svc.Send(ctx, "alice@example.com", "bob@example.com", "hi")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if msg.GetRecipientID() != "alice" || msg.GetSenderID() != "bob" {
		t.Errorf("expected alice<-bob, got %s<-%s", msg.GetRecipientID(), msg.GetSenderID())
	}

	msgs, err := svc.FetchNew(ctx, "555-0100")
	if err != nil {
		t.Fatalf("FetchNew by phone failed: %v", err)
	}
	if len(msgs) != 1 {
		t.Errorf("expected 1 message, got %d", len(msgs))
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	seedMailbox(t, svc)

	stats, err := svc.Stats(ctx, "ara")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalMessages != 4 || stats.UnseenCount != 4 || stats.Cursor != 0 {
		t.Errorf("unexpected stats before fetch: %+v", stats)
	}

	if _, err := svc.FetchNew(ctx, "ara"); err != nil {
		t.Fatalf("FetchNew failed: %v", err)
	}

	stats, err = svc.Stats(ctx, "ara")
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.TotalMessages != 4 || stats.UnseenCount != 0 || stats.Cursor != 4 {
		t.Errorf("unexpected stats after fetch: %+v", stats)
	}
}

func TestListUsers(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	seedUsers(t, svc, "bar", "ara", "foo")

	ids, err := svc.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(ids) != 3 {
		t.Errorf("expected 3 users, got %d", len(ids))
	}

	u, err := svc.GetUser(ctx, "ara")
	if err != nil {
		t.Fatalf("GetUser failed: %v", err)
	}
	if u.GetID() != "ara" {
		t.Errorf("expected ara, got %q", u.GetID())
	}
	if _, err := svc.GetUser(ctx, "ghost"); !IsNotFound(err) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestIDsSharedAcrossMailboxes(t *testing.T) {
	ctx := context.Background()
	svc := newTestService(t)
	seedUsers(t, svc, "alice", "bob")

	m0, err := svc.Send(ctx, "alice", "bob", "to alice")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	m1, err := svc.Send(ctx, "bob", "alice", "to bob")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if m0.GetID() != 0 || m1.GetID() != 1 {
		t.Errorf("expected shared counter ids 0,1, got %d,%d", m0.GetID(), m1.GetID())
	}

	// Deleting from one mailbox never frees an id for reuse.
	if _, err := svc.Delete(ctx, "bob", []string{"1"}); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	m2, err := svc.Send(ctx, "bob", "alice", "again")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if m2.GetID() != 2 {
		t.Errorf("expected id 2 after delete, got %d", m2.GetID())
	}
}

// sendHookPlugin records send hook invocations and can veto sends.
type sendHookPlugin struct {
	rejectBody string
	before     int
	after      int
}

func (p *sendHookPlugin) Name() string                    { return "test-hook" }
func (p *sendHookPlugin) Init(context.Context) error      { return nil }
func (p *sendHookPlugin) Close(context.Context) error     { return nil }
func (p *sendHookPlugin) AfterSend(context.Context, store.Message) error {
	p.after++
	return nil
}

func (p *sendHookPlugin) BeforeSend(_ context.Context, _, _, body string) error {
	p.before++
	if p.rejectBody != "" && body == p.rejectBody {
		return ErrEmptyBody
	}
	return nil
}

func TestSendHooks(t *testing.T) {
	ctx := context.Background()
	hook := &sendHookPlugin{rejectBody: "spam"}
	svc := newTestService(t, WithPlugin(hook))
	seedUsers(t, svc, "alice", "bob")

	if _, err := svc.Send(ctx, "alice", "bob", "ok"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if hook.before != 1 || hook.after != 1 {
		t.Errorf("expected hooks called once, got before=%d after=%d", hook.before, hook.after)
	}

	// A BeforeSend veto aborts the send and stores nothing.
	_, err := svc.Send(ctx, "alice", "bob", "spam")
	var pe *PluginError
	if !errors.As(err, &pe) {
		t.Fatalf("expected PluginError, got %v", err)
	}
	msgs, err := svc.FetchRange(ctx, "alice", "", "")
	if err != nil {
		t.Fatalf("FetchRange failed: %v", err)
	}
	if len(msgs) != 1 {
		t.Errorf("expected vetoed send to store nothing, got %d messages", len(msgs))
	}
}
