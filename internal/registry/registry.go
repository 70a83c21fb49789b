// Package registry holds the process-local connection state: who is online,
// which operator is waiting for which session token, and which sockets are in
// which room. It has no locking of its own; every mutation happens on the
// relay's single event loop.
package registry

import (
	"time"

	"github.com/abrarmughal4480/Webrtc-sub001/internal/model"
)

// PresenceRecord is one live connection and its identity.
type PresenceRecord struct {
	SocketID     string
	Identity     model.Identity
	ConnectedAt  time.Time
	LastActivity time.Time
}

// Registry is the relay's view of connection state.
type Registry interface {
	// RegisterPresence upserts the record for socketID. A user already online
	// on another socket loses that record: last registration wins.
	RegisterPresence(socketID string, id model.Identity, now time.Time)
	// TouchPresence bumps LastActivity for socketID if present.
	TouchPresence(socketID string, now time.Time)
	// RemovePresence deletes the record and its user index entry, returning
	// the removed record so the relay can emit an offline notification.
	RemovePresence(socketID string) (PresenceRecord, bool)
	// SocketOf resolves the active socket for a user, if any.
	SocketOf(userID string) (string, bool)
	// OnlineUsers returns a snapshot of all presence records.
	OnlineUsers() []PresenceRecord

	// RegisterWaiting records socketID as the operator waiting for token,
	// overwriting any previous socket for the same token.
	RegisterWaiting(token, socketID string)
	// ResolveWaiting returns the socket currently waiting for token.
	ResolveWaiting(token string) (string, bool)
	// ClearWaiting removes the waiting entry for token.
	ClearWaiting(token string)
	// ClearWaitingBySocket removes every waiting entry held by socketID and
	// returns the affected tokens.
	ClearWaitingBySocket(socketID string) []string

	// JoinRoom / LeaveRoom toggle room membership. A room whose membership
	// becomes empty is deleted.
	JoinRoom(socketID, roomID string)
	LeaveRoom(socketID, roomID string)
	// LeaveAllRooms removes socketID from every room and returns the rooms it
	// was in.
	LeaveAllRooms(socketID string) []string
	// RoomMembers returns the sockets currently in roomID.
	RoomMembers(roomID string) []string
	// RoomsOf returns the rooms socketID belongs to.
	RoomsOf(socketID string) []string
}

type inMemory struct {
	presence map[string]PresenceRecord      // socketID -> record
	userIdx  map[string]string              // userID -> socketID, last wins
	waiting  map[string]string              // token -> socketID
	rooms    map[string]map[string]struct{} // roomID -> set of sockets
	member   map[string]map[string]struct{} // socketID -> set of rooms
}

// New returns an empty in-memory registry.
func New() Registry {
	return &inMemory{
		presence: make(map[string]PresenceRecord),
		userIdx:  make(map[string]string),
		waiting:  make(map[string]string),
		rooms:    make(map[string]map[string]struct{}),
		member:   make(map[string]map[string]struct{}),
	}
}

func (r *inMemory) RegisterPresence(socketID string, id model.Identity, now time.Time) {
	if prev, ok := r.userIdx[id.UserID]; ok && prev != socketID {
		delete(r.presence, prev)
	}
	r.presence[socketID] = PresenceRecord{
		SocketID:     socketID,
		Identity:     id,
		ConnectedAt:  now,
		LastActivity: now,
	}
	r.userIdx[id.UserID] = socketID
}

func (r *inMemory) TouchPresence(socketID string, now time.Time) {
	rec, ok := r.presence[socketID]
	if !ok {
		return
	}
	rec.LastActivity = now
	r.presence[socketID] = rec
}

func (r *inMemory) RemovePresence(socketID string) (PresenceRecord, bool) {
	rec, ok := r.presence[socketID]
	if !ok {
		return PresenceRecord{}, false
	}
	delete(r.presence, socketID)
	// Only drop the index entry if it still points at this socket; the user
	// may have re-registered from a newer one.
	if cur, ok := r.userIdx[rec.Identity.UserID]; ok && cur == socketID {
		delete(r.userIdx, rec.Identity.UserID)
	}
	return rec, true
}

func (r *inMemory) SocketOf(userID string) (string, bool) {
	s, ok := r.userIdx[userID]
	return s, ok
}

func (r *inMemory) OnlineUsers() []PresenceRecord {
	out := make([]PresenceRecord, 0, len(r.presence))
	for _, rec := range r.presence {
		out = append(out, rec)
	}
	return out
}

func (r *inMemory) RegisterWaiting(token, socketID string) {
	r.waiting[token] = socketID
}

func (r *inMemory) ResolveWaiting(token string) (string, bool) {
	s, ok := r.waiting[token]
	return s, ok
}

func (r *inMemory) ClearWaiting(token string) {
	delete(r.waiting, token)
}

func (r *inMemory) ClearWaitingBySocket(socketID string) []string {
	var tokens []string
	for token, s := range r.waiting {
		if s == socketID {
			tokens = append(tokens, token)
		}
	}
	for _, t := range tokens {
		delete(r.waiting, t)
	}
	return tokens
}

func (r *inMemory) JoinRoom(socketID, roomID string) {
	if r.rooms[roomID] == nil {
		r.rooms[roomID] = make(map[string]struct{})
	}
	r.rooms[roomID][socketID] = struct{}{}
	if r.member[socketID] == nil {
		r.member[socketID] = make(map[string]struct{})
	}
	r.member[socketID][roomID] = struct{}{}
}

func (r *inMemory) LeaveRoom(socketID, roomID string) {
	if m, ok := r.rooms[roomID]; ok {
		delete(m, socketID)
		if len(m) == 0 {
			delete(r.rooms, roomID)
		}
	}
	if m, ok := r.member[socketID]; ok {
		delete(m, roomID)
		if len(m) == 0 {
			delete(r.member, socketID)
		}
	}
}

func (r *inMemory) LeaveAllRooms(socketID string) []string {
	rooms := r.RoomsOf(socketID)
	for _, room := range rooms {
		r.LeaveRoom(socketID, room)
	}
	return rooms
}

func (r *inMemory) RoomMembers(roomID string) []string {
	m := r.rooms[roomID]
	out := make([]string, 0, len(m))
	for s := range m {
		out = append(out, s)
	}
	return out
}

func (r *inMemory) RoomsOf(socketID string) []string {
	m := r.member[socketID]
	out := make([]string, 0, len(m))
	for room := range m {
		out = append(out, room)
	}
	return out
}
