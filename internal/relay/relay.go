// Package relay implements the signaling relay: it forwards negotiation
// messages between the members of a room and fans out presence and ticket
// chat. The relay never parses negotiation payloads and never touches media.
package relay

import (
	"context"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/abrarmughal4480/Webrtc-sub001/internal/model"
	"github.com/abrarmughal4480/Webrtc-sub001/internal/registry"
	"github.com/google/uuid"
)

// TicketStore persists ticket-chat messages. The relay treats it as an
// external collaborator: failures are logged, never surfaced to the sender.
type TicketStore interface {
	SaveMessage(ctx context.Context, msg model.ChatMessage) error
}

// Client is one signaling socket attached to the hub. The transport layer
// owns the connection; the hub only writes envelopes into Send. Send is
// closed by the hub when the client disconnects.
type Client struct {
	ID       string
	Identity model.Identity
	Send     chan model.Envelope
}

// NewClient builds a client with a fresh socket id and a buffered send queue.
func NewClient(id model.Identity) *Client {
	return &Client{
		ID:       uuid.New().String(),
		Identity: id,
		Send:     make(chan model.Envelope, 64),
	}
}

type eventKind int

const (
	evConnect eventKind = iota
	evDisconnect
	evMessage
)

type event struct {
	kind eventKind
	c    *Client
	env  model.Envelope
}

// Hub routes signaling events. All state mutation happens on the Run loop,
// one event at a time, so the registry needs no locking.
type Hub struct {
	reg    registry.Registry
	store  TicketStore
	log    *zap.Logger
	events chan event
	// clients is owned by the Run goroutine.
	clients map[string]*Client
	now     func() time.Time
}

// NewHub creates a hub over the given registry. store may be nil (ticket
// chat then fans out without persistence).
func NewHub(reg registry.Registry, store TicketStore, log *zap.Logger) *Hub {
	return &Hub{
		reg:     reg,
		store:   store,
		log:     log,
		events:  make(chan event, 256),
		clients: make(map[string]*Client),
		now:     time.Now,
	}
}

// Connect attaches a client to the hub and registers its presence.
func (h *Hub) Connect(c *Client) { h.events <- event{kind: evConnect, c: c} }

// Disconnect detaches a client, cleaning up every trace of its socket:
// presence record, waiting entries and room memberships.
func (h *Hub) Disconnect(c *Client) { h.events <- event{kind: evDisconnect, c: c} }

// Dispatch hands one inbound envelope to the hub.
func (h *Hub) Dispatch(c *Client, env model.Envelope) {
	h.events <- event{kind: evMessage, c: c, env: env}
}

// Run processes events until ctx is cancelled. Each event is handled to
// completion before the next one.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-h.events:
			switch ev.kind {
			case evConnect:
				h.handleConnect(ev.c)
			case evDisconnect:
				h.handleDisconnect(ev.c)
			case evMessage:
				h.handleMessage(ctx, ev.c, ev.env)
			}
		}
	}
}

func (h *Hub) handleConnect(c *Client) {
	h.clients[c.ID] = c
	h.reg.RegisterPresence(c.ID, c.Identity, h.now())
	h.log.Info("socket connected",
		zap.String("socket_id", c.ID),
		zap.String("user_id", c.Identity.UserID),
		zap.String("role", string(c.Identity.Role)))
	h.pushOnlineUsers()
}

func (h *Hub) handleDisconnect(c *Client) {
	if _, ok := h.clients[c.ID]; !ok {
		return
	}

	// Tell every room this socket was in that the peer went away. Benign for
	// fan-out rooms; the video peer uses it to end the session.
	for _, room := range h.reg.RoomsOf(c.ID) {
		h.broadcast(room, c.ID, model.Envelope{Event: model.EventUserDisconnected, Room: room})
	}
	h.reg.LeaveAllRooms(c.ID)

	for _, token := range h.reg.ClearWaitingBySocket(c.ID) {
		h.log.Debug("waiting entry cleared on disconnect",
			zap.String("socket_id", c.ID), zap.String("token", token))
	}

	if rec, ok := h.reg.RemovePresence(c.ID); ok {
		offline := model.Envelope{Event: model.EventUserOffline, Email: rec.Identity.Email}
		h.broadcast(model.NotificationRoom(rec.Identity.Email), c.ID, offline)
	}

	delete(h.clients, c.ID)
	close(c.Send)
	h.log.Info("socket disconnected",
		zap.String("socket_id", c.ID),
		zap.String("user_id", c.Identity.UserID))
	h.pushOnlineUsers()
}

func (h *Hub) handleMessage(ctx context.Context, c *Client, env model.Envelope) {
	if _, ok := h.clients[c.ID]; !ok {
		return
	}
	h.reg.TouchPresence(c.ID, h.now())

	switch env.Event {
	case model.EventJoinRoom:
		h.reg.JoinRoom(c.ID, env.Room)

	case model.EventAdminWaiting:
		// Last registration wins: a second operator declaring the same token
		// silently replaces the first.
		h.reg.RegisterWaiting(env.Token, c.ID)

	case model.EventUserOpenedLink:
		h.notifyLinkOpened(c, env.Room)

	case model.EventOffer, model.EventAnswer, model.EventICECandidate, model.EventUserDisconnected:
		// Blind relay: payload goes to every other member of the room,
		// never back to the sender.
		h.broadcast(env.Room, c.ID, env)

	case model.EventJoinNotificationRoom:
		h.reg.JoinRoom(c.ID, model.NotificationRoom(env.Email))

	case model.EventLeaveNotificationRoom:
		h.reg.LeaveRoom(c.ID, model.NotificationRoom(env.Email))

	case model.EventJoinTicketChat:
		h.reg.JoinRoom(c.ID, model.TicketRoom(env.TicketID))

	case model.EventLeaveTicketChat:
		h.reg.LeaveRoom(c.ID, model.TicketRoom(env.TicketID))

	case model.EventSendTicketMessage:
		h.ticketMessage(ctx, c, env, model.EventTicketMessage)

	case model.EventUploadMedia:
		h.ticketMessage(ctx, c, env, model.EventTicketMedia)

	case model.EventGetOnlineUsers:
		if c.Identity.Role != model.RoleOperator {
			h.log.Warn("presence snapshot denied",
				zap.String("socket_id", c.ID), zap.String("role", string(c.Identity.Role)))
			return
		}
		h.send(c, model.Envelope{Event: model.EventOnlineUsersUpdate, Users: h.snapshot()})

	default:
		h.log.Warn("unknown event", zap.String("event", string(env.Event)), zap.String("socket_id", c.ID))
	}
}

// notifyLinkOpened tells the operator waiting for this room's token that the
// capturer has arrived. A missing or stale waiting entry is not an error: the
// operator may not be waiting yet, or is already connected.
func (h *Hub) notifyLinkOpened(c *Client, room string) {
	socketID, ok := h.reg.ResolveWaiting(room)
	if !ok {
		h.log.Debug("link opened but nobody waiting", zap.String("room", room))
		return
	}
	target, ok := h.clients[socketID]
	if !ok {
		h.log.Debug("waiting socket no longer live", zap.String("room", room), zap.String("socket_id", socketID))
		return
	}
	h.send(target, model.Envelope{Event: model.EventUserJoined, Room: room})
}

func (h *Hub) ticketMessage(ctx context.Context, c *Client, env model.Envelope, out model.Event) {
	if env.Message == nil {
		h.log.Warn("ticket event without message", zap.String("socket_id", c.ID))
		return
	}
	msg := *env.Message
	msg.ID = uuid.New().String()
	msg.TicketID = env.TicketID
	msg.SenderID = c.Identity.UserID
	msg.SenderEmail = c.Identity.Email
	msg.SentAt = h.now()

	// Persist first, fan out after; a store failure never blocks delivery.
	if h.store != nil {
		saveCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := h.store.SaveMessage(saveCtx, msg); err != nil {
			h.log.Warn("ticket store save failed",
				zap.String("ticket_id", env.TicketID), zap.Error(err))
		}
	}

	h.broadcast(model.TicketRoom(env.TicketID), "", model.Envelope{
		Event:    out,
		TicketID: env.TicketID,
		Message:  &msg,
	})
}

// broadcast sends env to every member of roomID except the socket in except.
// Missing targets are skipped: delivery is at-most-once, best-effort.
func (h *Hub) broadcast(roomID, except string, env model.Envelope) {
	for _, socketID := range h.reg.RoomMembers(roomID) {
		if socketID == except {
			continue
		}
		target, ok := h.clients[socketID]
		if !ok {
			h.log.Debug("relay target gone", zap.String("room", roomID), zap.String("socket_id", socketID))
			continue
		}
		h.send(target, env)
	}
}

func (h *Hub) send(c *Client, env model.Envelope) {
	select {
	case c.Send <- env:
	default:
		h.log.Warn("send buffer full, dropping message",
			zap.String("socket_id", c.ID), zap.String("event", string(env.Event)))
	}
}

func (h *Hub) snapshot() []model.OnlineUser {
	recs := h.reg.OnlineUsers()
	out := make([]model.OnlineUser, 0, len(recs))
	for _, r := range recs {
		out = append(out, model.OnlineUser{
			UserID:      r.Identity.UserID,
			Email:       r.Identity.Email,
			Role:        r.Identity.Role,
			Company:     r.Identity.Company,
			ConnectedAt: r.ConnectedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// pushOnlineUsers pushes the presence snapshot to every connected operator.
func (h *Hub) pushOnlineUsers() {
	users := h.snapshot()
	for _, c := range h.clients {
		if c.Identity.Role == model.RoleOperator {
			h.send(c, model.Envelope{Event: model.EventOnlineUsersUpdate, Users: users})
		}
	}
}
