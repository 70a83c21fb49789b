// Package signaling is the client side of the relay's WebSocket surface:
// typed send helpers for every event, a read loop dispatching inbound
// envelopes.
package signaling

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/abrarmughal4480/Webrtc-sub001/internal/model"
)

// Client is one signaling connection.
type Client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	log     *zap.Logger
}

// Dial connects to the relay, passing the identity as query parameters.
func Dial(ctx context.Context, baseURL string, id model.Identity, log *zap.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("signal url: %w", err)
	}
	q := u.Query()
	q.Set("user_id", id.UserID)
	q.Set("email", id.Email)
	q.Set("role", string(id.Role))
	q.Set("company", id.Company)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("dial signaling: %w", err)
	}
	return &Client{conn: conn, log: log}, nil
}

// Run reads envelopes until the connection drops or ctx is cancelled,
// handing each one to handle.
func (c *Client) Run(ctx context.Context, handle func(model.Envelope)) error {
	go func() {
		<-ctx.Done()
		_ = c.conn.Close()
	}()
	for {
		var env model.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("signaling read: %w", err)
		}
		handle(env)
	}
}

// Close closes the connection.
func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) send(env model.Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(env)
}

// JoinRoom adds this socket to a room.
func (c *Client) JoinRoom(room string) error {
	return c.send(model.Envelope{Event: model.EventJoinRoom, Room: room})
}

// DeclareWaiting registers this socket as the operator waiting for token.
func (c *Client) DeclareWaiting(token string) error {
	return c.send(model.Envelope{Event: model.EventAdminWaiting, Token: token})
}

// NotifyLinkOpened tells the relay the capturer opened its session link.
func (c *Client) NotifyLinkOpened(room string) error {
	return c.send(model.Envelope{Event: model.EventUserOpenedLink, Room: room})
}

// SendOffer relays a session description offer to the room.
func (c *Client) SendOffer(room string, sdp webrtc.SessionDescription) error {
	return c.sendSignal(model.EventOffer, room, sdp)
}

// SendAnswer relays a session description answer to the room.
func (c *Client) SendAnswer(room string, sdp webrtc.SessionDescription) error {
	return c.sendSignal(model.EventAnswer, room, sdp)
}

// SendCandidate relays one ICE candidate to the room.
func (c *Client) SendCandidate(room string, cand webrtc.ICECandidateInit) error {
	return c.sendSignal(model.EventICECandidate, room, cand)
}

// SendDisconnect tells the room this peer is leaving. Tearing down the peer
// connection stays the caller's job.
func (c *Client) SendDisconnect(room string) error {
	return c.send(model.Envelope{Event: model.EventUserDisconnected, Room: room})
}

// RequestOnlineUsers asks for a presence snapshot (operators only).
func (c *Client) RequestOnlineUsers() error {
	return c.send(model.Envelope{Event: model.EventGetOnlineUsers})
}

func (c *Client) sendSignal(event model.Event, room string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event, err)
	}
	return c.send(model.Envelope{Event: event, Room: room, Payload: raw})
}
