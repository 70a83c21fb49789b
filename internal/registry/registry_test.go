package registry

import (
	"sort"
	"testing"
	"time"

	"github.com/abrarmughal4480/Webrtc-sub001/internal/model"
)

func identity(userID string) model.Identity {
	return model.Identity{UserID: userID, Email: userID + "@example.com", Role: model.RoleOperator, Company: "acme"}
}

func TestRegisterPresence_LastWriterWinsPerUser(t *testing.T) {
	r := New()
	now := time.Unix(100, 0)

	r.RegisterPresence("sock-1", identity("u1"), now)
	r.RegisterPresence("sock-2", identity("u1"), now.Add(time.Second))

	if s, ok := r.SocketOf("u1"); !ok || s != "sock-2" {
		t.Fatalf("SocketOf(u1) = %q, %v; want sock-2", s, ok)
	}
	users := r.OnlineUsers()
	if len(users) != 1 {
		t.Fatalf("expected the stale record for sock-1 to be dropped, got %d records", len(users))
	}
	if users[0].SocketID != "sock-2" {
		t.Fatalf("surviving record = %q, want sock-2", users[0].SocketID)
	}
}

func TestRemovePresence_ReturnsRecordAndClearsIndex(t *testing.T) {
	r := New()
	r.RegisterPresence("sock-1", identity("u1"), time.Unix(100, 0))

	rec, ok := r.RemovePresence("sock-1")
	if !ok {
		t.Fatal("expected a removed record")
	}
	if rec.Identity.UserID != "u1" {
		t.Fatalf("removed record user = %q, want u1", rec.Identity.UserID)
	}
	if _, ok := r.SocketOf("u1"); ok {
		t.Fatal("user index entry should be gone")
	}
	if _, ok := r.RemovePresence("sock-1"); ok {
		t.Fatal("second removal should report absence")
	}
}

func TestRemovePresence_KeepsNewerIndexEntry(t *testing.T) {
	r := New()
	r.RegisterPresence("sock-1", identity("u1"), time.Unix(100, 0))
	r.RegisterPresence("sock-2", identity("u1"), time.Unix(101, 0))

	// Removing the superseded socket must not clobber the index entry that
	// now points at sock-2.
	r.RemovePresence("sock-1")
	if s, ok := r.SocketOf("u1"); !ok || s != "sock-2" {
		t.Fatalf("SocketOf(u1) = %q, %v; want sock-2", s, ok)
	}
}

func TestWaiting_OverwriteAndClear(t *testing.T) {
	r := New()
	r.RegisterWaiting("tok-1", "sock-1")
	r.RegisterWaiting("tok-1", "sock-2")

	if s, ok := r.ResolveWaiting("tok-1"); !ok || s != "sock-2" {
		t.Fatalf("ResolveWaiting = %q, %v; want sock-2 (last writer wins)", s, ok)
	}

	r.ClearWaiting("tok-1")
	if _, ok := r.ResolveWaiting("tok-1"); ok {
		t.Fatal("waiting entry should be cleared")
	}
}

func TestClearWaitingBySocket(t *testing.T) {
	r := New()
	r.RegisterWaiting("tok-1", "sock-1")
	r.RegisterWaiting("tok-2", "sock-1")
	r.RegisterWaiting("tok-3", "sock-9")

	tokens := r.ClearWaitingBySocket("sock-1")
	sort.Strings(tokens)
	if len(tokens) != 2 || tokens[0] != "tok-1" || tokens[1] != "tok-2" {
		t.Fatalf("cleared tokens = %v, want [tok-1 tok-2]", tokens)
	}
	if _, ok := r.ResolveWaiting("tok-3"); !ok {
		t.Fatal("unrelated waiting entry must survive")
	}
}

func TestRooms_MembershipAndGC(t *testing.T) {
	r := New()
	r.JoinRoom("sock-1", "room-a")
	r.JoinRoom("sock-2", "room-a")
	r.JoinRoom("sock-1", "room-b")

	members := r.RoomMembers("room-a")
	if len(members) != 2 {
		t.Fatalf("room-a members = %v, want 2", members)
	}
	rooms := r.RoomsOf("sock-1")
	sort.Strings(rooms)
	if len(rooms) != 2 || rooms[0] != "room-a" || rooms[1] != "room-b" {
		t.Fatalf("RoomsOf(sock-1) = %v", rooms)
	}

	r.LeaveRoom("sock-1", "room-b")
	if got := r.RoomMembers("room-b"); len(got) != 0 {
		t.Fatalf("room-b should be garbage collected, got members %v", got)
	}

	left := r.LeaveAllRooms("sock-1")
	if len(left) != 1 || left[0] != "room-a" {
		t.Fatalf("LeaveAllRooms = %v, want [room-a]", left)
	}
	if got := r.RoomMembers("room-a"); len(got) != 1 || got[0] != "sock-2" {
		t.Fatalf("room-a members after leave = %v, want [sock-2]", got)
	}
}
