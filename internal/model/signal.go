package model

import (
	"encoding/json"
	"time"
)

// Role of a connected participant. Operators watch streams and see presence;
// capturers stream a camera into a video room.
type Role string

const (
	RoleOperator Role = "operator"
	RoleCapturer Role = "capturer"
)

// Identity is the already-authenticated participant identity supplied by the
// identity service. The relay trusts it as-is.
type Identity struct {
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
	Role    Role   `json:"role"`
	Company string `json:"company"`
}

// Event names on the signaling socket.
type Event string

const (
	// client -> server
	EventJoinRoom              Event = "join-room"
	EventAdminWaiting          Event = "admin-waiting"
	EventUserOpenedLink        Event = "user-opened-link"
	EventOffer                 Event = "offer"
	EventAnswer                Event = "answer"
	EventICECandidate          Event = "ice-candidate"
	EventUserDisconnected      Event = "user-disconnected"
	EventJoinNotificationRoom  Event = "join-notification-room"
	EventLeaveNotificationRoom Event = "leave-notification-room"
	EventJoinTicketChat        Event = "join-ticket-chat"
	EventSendTicketMessage     Event = "send-ticket-message"
	EventUploadMedia           Event = "upload-media"
	EventLeaveTicketChat       Event = "leave-ticket-chat"
	EventGetOnlineUsers        Event = "get-online-users"

	// server -> client
	EventUserJoined        Event = "user-joined"
	EventUserOffline       Event = "user-offline"
	EventOnlineUsersUpdate Event = "online-users-update"
	EventTicketMessage     Event = "ticket-message"
	EventTicketMedia       Event = "ticket-media"
)

// Envelope is the wire format for every signaling message. Negotiation
// payloads (offer/answer/ICE) stay opaque: the relay forwards Payload without
// parsing it.
type Envelope struct {
	Event    Event           `json:"event"`
	Room     string          `json:"room,omitempty"`
	Token    string          `json:"token,omitempty"`
	Email    string          `json:"email,omitempty"`
	TicketID string          `json:"ticket_id,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Message  *ChatMessage    `json:"message,omitempty"`
	Users    []OnlineUser    `json:"users,omitempty"`
}

// ChatMessage is a ticket-chat text or media message fanned out to a
// ticket-<id> room and persisted through the ticket store.
type ChatMessage struct {
	ID          string    `json:"id"`
	TicketID    string    `json:"ticket_id"`
	SenderID    string    `json:"sender_id"`
	SenderEmail string    `json:"sender_email"`
	Body        string    `json:"body,omitempty"`
	MediaURL    string    `json:"media_url,omitempty"`
	MediaType   string    `json:"media_type,omitempty"`
	SentAt      time.Time `json:"sent_at"`
}

// OnlineUser is one entry of a presence snapshot sent to operators.
type OnlineUser struct {
	UserID      string    `json:"user_id"`
	Email       string    `json:"email"`
	Role        Role      `json:"role"`
	Company     string    `json:"company"`
	ConnectedAt time.Time `json:"connected_at"`
}

// NotificationRoom returns the per-user notification channel name.
func NotificationRoom(email string) string { return "notifications-" + email }

// TicketRoom returns the chat room name for a ticket.
func TicketRoom(ticketID string) string { return "ticket-" + ticketID }
