// Package trackio adapts a remote WebRTC track to the capture pipeline: it
// buffers incoming sample payloads so the screenshot taker and the recorder
// can consume them.
package trackio

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/pion/webrtc/v4"
	"go.uber.org/zap"

	"github.com/abrarmughal4480/Webrtc-sub001/internal/capture"
)

// ErrNoFrame is returned when no payload has arrived yet.
var ErrNoFrame = errors.New("trackio: no frame received yet")

// Source drains RTP payloads from one remote track. It implements both
// capture.FrameGrabber (last payload as the current frame) and
// capture.ChunkSource (everything since the previous read).
type Source struct {
	mu        sync.Mutex
	last      []byte
	pending   []byte
	startedAt time.Time
	log       *zap.Logger
}

// NewSource starts draining track in a goroutine until ctx is cancelled or
// the track ends.
func NewSource(ctx context.Context, track *webrtc.TrackRemote, log *zap.Logger) *Source {
	s := &Source{startedAt: time.Now(), log: log}
	go s.drain(ctx, track)
	return s
}

func (s *Source) drain(ctx context.Context, track *webrtc.TrackRemote) {
	for {
		if ctx.Err() != nil {
			return
		}
		pkt, _, err := track.ReadRTP()
		if err != nil {
			if ctx.Err() == nil {
				s.log.Debug("track read ended", zap.Error(err))
			}
			return
		}
		s.mu.Lock()
		s.last = pkt.Payload
		s.pending = append(s.pending, pkt.Payload...)
		s.mu.Unlock()
	}
}

// Grab returns the most recent payload as the current frame.
func (s *Source) Grab(context.Context) (capture.Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return capture.Frame{}, ErrNoFrame
	}
	data := make([]byte, len(s.last))
	copy(data, s.last)
	return capture.Frame{
		Data:      data,
		MimeType:  "video/raw-sample",
		VideoTime: time.Since(s.startedAt),
	}, nil
}

// ReadChunk returns everything received since the previous read.
func (s *Source) ReadChunk(context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chunk := s.pending
	s.pending = nil
	return chunk, nil
}
