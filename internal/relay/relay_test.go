package relay

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/abrarmughal4480/Webrtc-sub001/internal/model"
	"github.com/abrarmughal4480/Webrtc-sub001/internal/registry"
)

type fakeStore struct {
	mu   sync.Mutex
	msgs []model.ChatMessage
}

func (s *fakeStore) SaveMessage(_ context.Context, msg model.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *fakeStore) saved() []model.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.ChatMessage(nil), s.msgs...)
}

func newTestHub(t *testing.T, store TicketStore) (*Hub, registry.Registry, context.CancelFunc) {
	t.Helper()
	reg := registry.New()
	h := NewHub(reg, store, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	return h, reg, cancel
}

func connect(h *Hub, userID string, role model.Role) *Client {
	c := NewClient(model.Identity{UserID: userID, Email: userID + "@example.com", Role: role, Company: "acme"})
	h.Connect(c)
	return c
}

func recv(t *testing.T, c *Client) model.Envelope {
	t.Helper()
	select {
	case env, ok := <-c.Send:
		if !ok {
			t.Fatal("send channel closed while waiting for envelope")
		}
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for envelope")
	}
	return model.Envelope{}
}

func expectSilence(t *testing.T, c *Client) {
	t.Helper()
	select {
	case env := <-c.Send:
		t.Fatalf("unexpected envelope: %+v", env)
	case <-time.After(100 * time.Millisecond):
	}
}

func waitClosed(t *testing.T, c *Client) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-c.Send:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("timed out waiting for send channel to close")
		}
	}
}

func TestRelaySignal_ForwardsToOtherMembersOnly(t *testing.T) {
	h, _, cancel := newTestHub(t, nil)
	defer cancel()

	a := connect(h, "u-a", model.RoleCapturer)
	b := connect(h, "u-b", model.RoleCapturer)
	h.Dispatch(a, model.Envelope{Event: model.EventJoinRoom, Room: "room-1"})
	h.Dispatch(b, model.Envelope{Event: model.EventJoinRoom, Room: "room-1"})

	payload := json.RawMessage(`{"sdp":"v=0 fake offer"}`)
	h.Dispatch(a, model.Envelope{Event: model.EventOffer, Room: "room-1", Payload: payload})

	env := recv(t, b)
	if env.Event != model.EventOffer || env.Room != "room-1" {
		t.Fatalf("got %+v, want offer for room-1", env)
	}
	if string(env.Payload) != string(payload) {
		t.Fatalf("payload altered in transit: %s", env.Payload)
	}
	expectSilence(t, a) // never echoed back to the sender
}

func TestRelaySignal_MissingTargetIsSilentlyDropped(t *testing.T) {
	h, _, cancel := newTestHub(t, nil)
	defer cancel()

	a := connect(h, "u-a", model.RoleCapturer)
	h.Dispatch(a, model.Envelope{Event: model.EventJoinRoom, Room: "lonely"})
	h.Dispatch(a, model.Envelope{Event: model.EventICECandidate, Room: "lonely", Payload: json.RawMessage(`{}`)})

	expectSilence(t, a)
}

func TestWaitingEntry_LastWriterWinsOnNotify(t *testing.T) {
	h, _, cancel := newTestHub(t, nil)
	defer cancel()

	op1 := connect(h, "op-1", model.RoleCapturer)
	op2 := connect(h, "op-2", model.RoleCapturer)
	cap := connect(h, "cap-1", model.RoleCapturer)

	h.Dispatch(op1, model.Envelope{Event: model.EventAdminWaiting, Token: "tok-1"})
	h.Dispatch(op2, model.Envelope{Event: model.EventAdminWaiting, Token: "tok-1"})
	h.Dispatch(cap, model.Envelope{Event: model.EventUserOpenedLink, Room: "tok-1"})

	env := recv(t, op2)
	if env.Event != model.EventUserJoined || env.Room != "tok-1" {
		t.Fatalf("second registrant got %+v, want user-joined for tok-1", env)
	}
	expectSilence(t, op1)
}

func TestUserOpenedLink_NobodyWaitingIsBenign(t *testing.T) {
	h, _, cancel := newTestHub(t, nil)
	defer cancel()

	cap := connect(h, "cap-1", model.RoleCapturer)
	h.Dispatch(cap, model.Envelope{Event: model.EventUserOpenedLink, Room: "tok-unknown"})
	expectSilence(t, cap)
}

func TestDisconnect_CleansUpEverything(t *testing.T) {
	h, reg, cancel := newTestHub(t, nil)
	defer cancel()

	a := connect(h, "u-a", model.RoleCapturer)
	b := connect(h, "u-b", model.RoleCapturer)
	h.Dispatch(a, model.Envelope{Event: model.EventJoinRoom, Room: "room-1"})
	h.Dispatch(b, model.Envelope{Event: model.EventJoinRoom, Room: "room-1"})
	h.Dispatch(a, model.Envelope{Event: model.EventAdminWaiting, Token: "tok-1"})

	h.Disconnect(a)
	waitClosed(t, a)

	// The other room member learns the peer went away.
	env := recv(t, b)
	if env.Event != model.EventUserDisconnected || env.Room != "room-1" {
		t.Fatalf("got %+v, want user-disconnected for room-1", env)
	}

	if _, ok := reg.ResolveWaiting("tok-1"); ok {
		t.Fatal("waiting entry should be cleared on disconnect")
	}
	if _, ok := reg.SocketOf("u-a"); ok {
		t.Fatal("presence should be removed on disconnect")
	}
	for _, m := range reg.RoomMembers("room-1") {
		if m == a.ID {
			t.Fatal("disconnected socket still a room member")
		}
	}
	if rooms := reg.RoomsOf(a.ID); len(rooms) != 0 {
		t.Fatalf("disconnected socket still in rooms %v", rooms)
	}
}

func TestOnlineUsers_RestrictedToOperators(t *testing.T) {
	h, _, cancel := newTestHub(t, nil)
	defer cancel()

	op := connect(h, "op-1", model.RoleOperator)
	// Connect push for the operator's own arrival.
	env := recv(t, op)
	if env.Event != model.EventOnlineUsersUpdate {
		t.Fatalf("got %+v, want online-users-update push", env)
	}

	cap := connect(h, "cap-1", model.RoleCapturer)
	env = recv(t, op) // push triggered by the capturer connecting
	if len(env.Users) != 2 {
		t.Fatalf("snapshot has %d users, want 2", len(env.Users))
	}

	h.Dispatch(cap, model.Envelope{Event: model.EventGetOnlineUsers})
	expectSilence(t, cap)

	h.Dispatch(op, model.Envelope{Event: model.EventGetOnlineUsers})
	env = recv(t, op)
	if env.Event != model.EventOnlineUsersUpdate || len(env.Users) != 2 {
		t.Fatalf("operator snapshot = %+v, want 2 users", env)
	}
}

func TestTicketChat_BroadcastAndPersist(t *testing.T) {
	store := &fakeStore{}
	h, _, cancel := newTestHub(t, store)
	defer cancel()

	a := connect(h, "u-a", model.RoleCapturer)
	b := connect(h, "u-b", model.RoleCapturer)
	h.Dispatch(a, model.Envelope{Event: model.EventJoinTicketChat, TicketID: "42"})
	h.Dispatch(b, model.Envelope{Event: model.EventJoinTicketChat, TicketID: "42"})

	h.Dispatch(a, model.Envelope{
		Event:    model.EventSendTicketMessage,
		TicketID: "42",
		Message:  &model.ChatMessage{Body: "hello"},
	})

	// Chat messages go to all members, sender included.
	for _, c := range []*Client{a, b} {
		env := recv(t, c)
		if env.Event != model.EventTicketMessage {
			t.Fatalf("got event %q, want ticket-message", env.Event)
		}
		if env.Message == nil || env.Message.Body != "hello" {
			t.Fatalf("message = %+v", env.Message)
		}
		if env.Message.SenderID != "u-a" {
			t.Fatalf("sender = %q, want u-a", env.Message.SenderID)
		}
	}

	msgs := store.saved()
	if len(msgs) != 1 {
		t.Fatalf("store has %d messages, want 1", len(msgs))
	}
	if msgs[0].TicketID != "42" || msgs[0].Body != "hello" || msgs[0].ID == "" {
		t.Fatalf("persisted message = %+v", msgs[0])
	}
}

func TestNotificationRoom_OfflineFanout(t *testing.T) {
	h, _, cancel := newTestHub(t, nil)
	defer cancel()

	watcher := connect(h, "u-w", model.RoleCapturer)
	target := connect(h, "u-t", model.RoleCapturer)
	h.Dispatch(watcher, model.Envelope{Event: model.EventJoinNotificationRoom, Email: "u-t@example.com"})

	h.Disconnect(target)
	env := recv(t, watcher)
	if env.Event != model.EventUserOffline || env.Email != "u-t@example.com" {
		t.Fatalf("got %+v, want user-offline for u-t@example.com", env)
	}
}
