// Package capture produces session artifacts from a connected stream:
// deduplicated screenshots and tiered-quality recordings. Artifacts are held
// in memory until handed to the persistence collaborator.
package capture

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Screenshot capture errors.
var (
	ErrCooldown       = errors.New("capture: cooldown window active")
	ErrCaptureInFlight = errors.New("capture: a capture is already executing")
	ErrDuplicateFrame = errors.New("capture: frame already captured in this session")
)

// Clock abstracts time for the cooldown window.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Frame is one raster grabbed from the video surface.
type Frame struct {
	Data      []byte
	MimeType  string
	VideoTime time.Duration
}

// FrameGrabber pulls the current frame from the playback surface.
type FrameGrabber interface {
	Grab(ctx context.Context) (Frame, error)
}

// Screenshot is an accepted, non-duplicate capture.
type Screenshot struct {
	ID          string
	Data        []byte
	MimeType    string
	Timestamp   time.Time
	ContentHash string
	VideoTime   time.Duration
}

// shotState makes the capture lifecycle explicit: a request is only honored
// in stateReady; stateInFlight rejects (not queues) concurrent requests and
// stateCooldown rejects until the window has elapsed.
type shotState int

const (
	stateReady shotState = iota
	stateInFlight
	stateCooldown
)

// ScreenshotTaker captures frames with a request cooldown, a single-in-flight
// guard and content-hash deduplication scoped to the current session.
type ScreenshotTaker struct {
	mu       sync.Mutex
	state    shotState
	lastDone time.Time
	cooldown time.Duration
	clock    Clock
	grabber  FrameGrabber
	seen     map[string]struct{}
	shots    []Screenshot
	log      *zap.Logger
}

// NewScreenshotTaker creates a taker. clock may be nil (wall clock).
func NewScreenshotTaker(grabber FrameGrabber, cooldown time.Duration, clock Clock, log *zap.Logger) *ScreenshotTaker {
	if clock == nil {
		clock = realClock{}
	}
	return &ScreenshotTaker{
		cooldown: cooldown,
		clock:    clock,
		grabber:  grabber,
		seen:     make(map[string]struct{}),
		log:      log,
	}
}

// Capture grabs the current frame. Requests inside the cooldown window or
// while another capture is executing are rejected, not queued. A frame whose
// content hash was already produced in this session is discarded as a
// duplicate: the capture surface returned a stale image.
func (t *ScreenshotTaker) Capture(ctx context.Context) (*Screenshot, error) {
	t.mu.Lock()
	now := t.clock.Now()
	switch t.state {
	case stateInFlight:
		t.mu.Unlock()
		return nil, ErrCaptureInFlight
	case stateCooldown:
		if now.Sub(t.lastDone) < t.cooldown {
			t.mu.Unlock()
			return nil, ErrCooldown
		}
		t.state = stateReady
	}
	t.state = stateInFlight
	t.mu.Unlock()

	frame, err := t.grabber.Grab(ctx)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastDone = t.clock.Now()
	t.state = stateCooldown

	if err != nil {
		return nil, fmt.Errorf("grab frame: %w", err)
	}

	hash := contentHash(frame.Data)
	if _, dup := t.seen[hash]; dup {
		t.log.Info("duplicate frame skipped", zap.String("hash", hash))
		return nil, ErrDuplicateFrame
	}
	t.seen[hash] = struct{}{}

	shot := Screenshot{
		ID:          uuid.New().String(),
		Data:        frame.Data,
		MimeType:    frame.MimeType,
		Timestamp:   t.lastDone,
		ContentHash: hash,
		VideoTime:   frame.VideoTime,
	}
	t.shots = append(t.shots, shot)
	t.log.Info("screenshot captured",
		zap.String("id", shot.ID),
		zap.Duration("video_time", shot.VideoTime))
	return &shot, nil
}

// List returns the accepted screenshots in capture order.
func (t *ScreenshotTaker) List() []Screenshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Screenshot(nil), t.shots...)
}

// Delete removes the screenshot at index.
func (t *ScreenshotTaker) Delete(index int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if index < 0 || index >= len(t.shots) {
		return fmt.Errorf("capture: no screenshot at index %d", index)
	}
	t.shots = append(t.shots[:index], t.shots[index+1:]...)
	return nil
}

// Reset clears screenshots and the dedup set. Call when a new session
// starts: the hash set is scoped to one session, never shared.
func (t *ScreenshotTaker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.seen = make(map[string]struct{})
	t.shots = nil
	t.state = stateReady
	t.lastDone = time.Time{}
}

// hashSampleSize bounds how much of the frame feeds the hash; frames are
// sampled at a fixed stride so the cost stays flat for large rasters.
const hashSampleSize = 4096

func contentHash(data []byte) string {
	h := sha256.New()
	if len(data) <= hashSampleSize {
		h.Write(data)
	} else {
		stride := len(data) / hashSampleSize
		for i := 0; i < len(data); i += stride {
			h.Write(data[i : i+1])
		}
	}
	var lenBuf [8]byte
	for i, n := 0, len(data); i < 8; i, n = i+1, n>>8 {
		lenBuf[i] = byte(n)
	}
	h.Write(lenBuf[:])
	return hex.EncodeToString(h.Sum(nil))
}
