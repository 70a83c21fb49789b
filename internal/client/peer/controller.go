// Package peer owns the client-side peer connection lifecycle: media
// acquisition, offer/answer negotiation through the signaling relay, and the
// redirect that ends a session.
package peer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/abrarmughal4480/Webrtc-sub001/internal/client/media"
	"github.com/abrarmughal4480/Webrtc-sub001/internal/model"
)

// State of the peer connection lifecycle.
type State int

const (
	StateIdle State = iota
	StateAcquiringMedia
	StateNegotiating
	StateConnected
	StateDisconnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAcquiringMedia:
		return "acquiring-media"
	case StateNegotiating:
		return "negotiating"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// validNext encodes the lifecycle: acquisition only from idle, negotiation
// after media (or directly for the answering side), terminal states stay
// terminal.
var validNext = map[State][]State{
	StateIdle:           {StateAcquiringMedia, StateNegotiating},
	StateAcquiringMedia: {StateNegotiating, StateFailed},
	StateNegotiating:    {StateConnected, StateDisconnected, StateFailed},
	StateConnected:      {StateDisconnected, StateFailed},
}

// ErrAutoplayBlocked is the recoverable playback condition: the surface
// needs a user gesture before it starts playing.
var ErrAutoplayBlocked = errors.New("peer: playback requires a user gesture")

// Signaler relays negotiation messages; implemented by the signaling client.
type Signaler interface {
	SendOffer(room string, sdp webrtc.SessionDescription) error
	SendAnswer(room string, sdp webrtc.SessionDescription) error
	SendCandidate(room string, cand webrtc.ICECandidateInit) error
	SendDisconnect(room string) error
}

// Playback is the surface remote media is attached to on the operator side.
type Playback interface {
	Play(track *webrtc.TrackRemote) error
}

// Config for one peer session.
type Config struct {
	Role           model.Role
	Room           string
	ICEServers     []webrtc.ICEServer
	FeedbackRoute  string
	DashboardRoute string
	// TailoredExitURL is the session owner's custom exit link, carried to
	// the feedback route as a query parameter when set.
	TailoredExitURL string
}

// Controller drives one peer connection through its lifecycle.
type Controller struct {
	cfg        Config
	sig        Signaler
	device     media.DeviceAPI
	strategies []media.Strategy
	playback   Playback
	log        *zap.Logger

	mu     sync.Mutex
	state  State
	pc     *webrtc.PeerConnection
	stream media.Stream

	// OnRedirect receives the exit route when the session reaches a
	// terminal state. OnPlaybackBlocked fires on the recoverable autoplay
	// condition.
	OnRedirect        func(target string)
	OnPlaybackBlocked func()
}

// NewController creates an idle controller. device and strategies are only
// used by the capturer role; playback only by the operator role.
func NewController(cfg Config, sig Signaler, device media.DeviceAPI, strategies []media.Strategy, playback Playback, log *zap.Logger) *Controller {
	return &Controller{
		cfg:        cfg,
		sig:        sig,
		device:     device,
		strategies: strategies,
		playback:   playback,
		log:        log,
		state:      StateIdle,
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// transition moves to next if the lifecycle allows it. Transitions are
// logged, never persisted.
func (c *Controller) transition(next State) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, allowed := range validNext[c.state] {
		if allowed == next {
			c.log.Info("peer state change",
				zap.String("from", c.state.String()),
				zap.String("to", next.String()))
			c.state = next
			return true
		}
	}
	c.log.Debug("ignored state change",
		zap.String("from", c.state.String()),
		zap.String("to", next.String()))
	return false
}

// StartCapturer acquires media through the constraint cascade, then creates
// and sends the offer. Device failures are terminal for the operation and
// already user-actionable (*media.DeviceError).
func (c *Controller) StartCapturer(ctx context.Context) error {
	if !c.transition(StateAcquiringMedia) {
		return fmt.Errorf("peer: cannot start from state %s", c.State())
	}
	acq, err := media.Acquire(ctx, c.device, c.strategies, c.log)
	if err != nil {
		c.transition(StateFailed)
		return err
	}
	c.mu.Lock()
	c.stream = acq.Stream
	c.mu.Unlock()
	c.log.Info("capture stream ready", zap.String("strategy", acq.Strategy))

	c.transition(StateNegotiating)
	pc, err := c.newPeerConnection()
	if err != nil {
		c.transition(StateFailed)
		return err
	}
	if _, err := pc.AddTrack(acq.Stream.Track()); err != nil {
		c.transition(StateFailed)
		return fmt.Errorf("add track: %w", err)
	}

	offer, err := pc.CreateOffer(nil)
	if err != nil {
		c.transition(StateFailed)
		return fmt.Errorf("create offer: %w", err)
	}
	if err := pc.SetLocalDescription(offer); err != nil {
		c.transition(StateFailed)
		return fmt.Errorf("set local description: %w", err)
	}
	return c.sig.SendOffer(c.cfg.Room, offer)
}

// StartOperator prepares the receiving side: a recv-only peer connection
// waiting for the capturer's offer.
func (c *Controller) StartOperator(ctx context.Context) error {
	if !c.transition(StateNegotiating) {
		return fmt.Errorf("peer: cannot start from state %s", c.State())
	}
	pc, err := c.newPeerConnection()
	if err != nil {
		c.transition(StateFailed)
		return err
	}
	if _, err := pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo,
		webrtc.RTPTransceiverInit{Direction: webrtc.RTPTransceiverDirectionRecvonly}); err != nil {
		c.transition(StateFailed)
		return fmt.Errorf("add transceiver: %w", err)
	}
	return nil
}

// HandleOffer answers the capturer's offer (operator side).
func (c *Controller) HandleOffer(sdp webrtc.SessionDescription) error {
	pc := c.peerConnection()
	if pc == nil {
		return errors.New("peer: no peer connection")
	}
	if err := pc.SetRemoteDescription(sdp); err != nil {
		return fmt.Errorf("set remote description: %w", err)
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		return fmt.Errorf("create answer: %w", err)
	}
	if err := pc.SetLocalDescription(answer); err != nil {
		return fmt.Errorf("set local description: %w", err)
	}
	return c.sig.SendAnswer(c.cfg.Room, answer)
}

// HandleAnswer applies the operator's answer (capturer side).
func (c *Controller) HandleAnswer(sdp webrtc.SessionDescription) error {
	pc := c.peerConnection()
	if pc == nil {
		return errors.New("peer: no peer connection")
	}
	return pc.SetRemoteDescription(sdp)
}

// HandleCandidate applies a relayed ICE candidate.
func (c *Controller) HandleCandidate(cand webrtc.ICECandidateInit) error {
	pc := c.peerConnection()
	if pc == nil {
		return errors.New("peer: no peer connection")
	}
	return pc.AddICECandidate(cand)
}

// HandlePeerDisconnect reacts to an explicit disconnect relayed by the other
// side: the session is over, redirect out.
func (c *Controller) HandlePeerDisconnect() {
	if c.transition(StateDisconnected) {
		c.redirect()
	}
}

// Disconnect ends the session from this side: notify the room, close the
// transport, redirect.
func (c *Controller) Disconnect() {
	if err := c.sig.SendDisconnect(c.cfg.Room); err != nil {
		c.log.Warn("disconnect relay failed", zap.Error(err))
	}
	c.teardown()
	if c.transition(StateDisconnected) {
		c.redirect()
	}
}

func (c *Controller) newPeerConnection() (*webrtc.PeerConnection, error) {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{ICEServers: c.cfg.ICEServers})
	if err != nil {
		return nil, fmt.Errorf("new peer connection: %w", err)
	}

	pc.OnICECandidate(func(cand *webrtc.ICECandidate) {
		if cand == nil {
			return
		}
		if err := c.sig.SendCandidate(c.cfg.Room, cand.ToJSON()); err != nil {
			c.log.Warn("candidate relay failed", zap.Error(err))
		}
	})

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		c.log.Info("transport state", zap.String("state", s.String()))
		switch s {
		case webrtc.PeerConnectionStateConnected:
			c.transition(StateConnected)
		case webrtc.PeerConnectionStateDisconnected, webrtc.PeerConnectionStateClosed:
			if c.transition(StateDisconnected) {
				c.redirect()
			}
		case webrtc.PeerConnectionStateFailed:
			if c.transition(StateFailed) {
				c.redirect()
			}
		}
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		c.log.Info("remote track",
			zap.String("kind", track.Kind().String()),
			zap.String("codec", track.Codec().MimeType))
		if c.playback == nil {
			return
		}
		if err := c.playback.Play(track); err != nil {
			if errors.Is(err, ErrAutoplayBlocked) {
				// Recoverable: the surface starts on the next user gesture.
				c.log.Warn("playback blocked, waiting for user gesture")
				if c.OnPlaybackBlocked != nil {
					c.OnPlaybackBlocked()
				}
				return
			}
			c.log.Error("playback failed", zap.Error(err))
		}
	})

	c.mu.Lock()
	c.pc = pc
	c.mu.Unlock()
	return pc, nil
}

func (c *Controller) peerConnection() *webrtc.PeerConnection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pc
}

func (c *Controller) teardown() {
	c.mu.Lock()
	pc, stream := c.pc, c.stream
	c.pc, c.stream = nil, nil
	c.mu.Unlock()
	if pc != nil {
		_ = pc.Close()
	}
	if stream != nil {
		_ = stream.Close()
	}
}

func (c *Controller) redirect() {
	target := RedirectTarget(c.cfg.Role, c.cfg.FeedbackRoute, c.cfg.DashboardRoute, c.cfg.TailoredExitURL)
	c.log.Info("session ended, redirecting", zap.String("target", target))
	if c.OnRedirect != nil {
		c.OnRedirect(target)
	}
}

// RedirectTarget decides where a participant lands when the session ends:
// operators return to the dashboard; everyone else goes to the feedback
// route, carrying the owner's tailored exit URL as a query parameter when
// one is configured.
func RedirectTarget(role model.Role, feedbackRoute, dashboardRoute, tailoredExitURL string) string {
	if role == model.RoleOperator {
		return dashboardRoute
	}
	if tailoredExitURL != "" {
		return feedbackRoute + "?redirect=" + url.QueryEscape(tailoredExitURL)
	}
	return feedbackRoute
}
