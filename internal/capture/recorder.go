package capture

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/abrarmughal4480/Webrtc-sub001/internal/fallback"
)

// Recorder errors.
var (
	ErrNoSupportedTier  = errors.New("capture: no supported recording tier")
	ErrAlreadyRecording = errors.New("capture: recording already active")
	ErrNotRecording     = errors.New("capture: no active recording")
)

// Tier is one codec/bitrate quality level. Tiers are tried in descending
// quality order; the first supported one wins.
type Tier struct {
	Name          string
	MimeType      string
	BitsPerSecond int
}

// DefaultTiers is the shipped quality ladder.
func DefaultTiers() []Tier {
	return []Tier{
		{Name: "vp9-high", MimeType: "video/webm;codecs=vp9", BitsPerSecond: 2_500_000},
		{Name: "vp8-medium", MimeType: "video/webm;codecs=vp8", BitsPerSecond: 1_000_000},
		{Name: "vp8-low", MimeType: "video/webm;codecs=vp8", BitsPerSecond: 250_000},
		{Name: "h264-low", MimeType: "video/mp4;codecs=h264", BitsPerSecond: 250_000},
	}
}

// SupportChecker reports whether the recording surface can encode a mime
// type.
type SupportChecker interface {
	Supported(mimeType string) bool
}

// StaticSupport is a SupportChecker over a fixed set of mime types.
type StaticSupport map[string]struct{}

func (s StaticSupport) Supported(mimeType string) bool {
	_, ok := s[mimeType]
	return ok
}

// ChunkSource yields the encoded bytes produced since the previous read.
type ChunkSource interface {
	ReadChunk(ctx context.Context) ([]byte, error)
}

// Recording is the finalized artifact: all chunks concatenated into one
// blob.
type Recording struct {
	Data     []byte
	MimeType string
	Tier     string
	Duration time.Duration
}

// recState is Idle or Recording; there are no nested recordings.
type recState int

const (
	recIdle recState = iota
	recActive
)

// Recorder accumulates encoded chunks between Start and Stop. Tier selection
// happens at Start; an unsupported ladder aborts the start and the recorder
// stays inactive.
type Recorder struct {
	mu        sync.Mutex
	state     recState
	tiers     []Tier
	support   SupportChecker
	tier      Tier
	chunks    [][]byte
	startedAt time.Time
	clock     Clock
	log       *zap.Logger
}

// NewRecorder creates a recorder. clock may be nil (wall clock).
func NewRecorder(tiers []Tier, support SupportChecker, clock Clock, log *zap.Logger) *Recorder {
	if clock == nil {
		clock = realClock{}
	}
	return &Recorder{tiers: tiers, support: support, clock: clock, log: log}
}

// Start selects the first supported tier and activates the recorder.
func (r *Recorder) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == recActive {
		return ErrAlreadyRecording
	}

	steps := make([]fallback.Step[Tier], 0, len(r.tiers))
	for _, tier := range r.tiers {
		tier := tier
		steps = append(steps, fallback.Step[Tier]{
			Name: tier.Name,
			Run: func() (Tier, error) {
				if !r.support.Supported(tier.MimeType) {
					return Tier{}, ErrNoSupportedTier
				}
				return tier, nil
			},
		})
	}
	tier, name, err := fallback.First(steps)
	if err != nil {
		r.log.Warn("recording start aborted, no supported tier")
		return ErrNoSupportedTier
	}

	r.tier = tier
	r.chunks = nil
	r.startedAt = r.clock.Now()
	r.state = recActive
	r.log.Info("recording started",
		zap.String("tier", name),
		zap.String("mime_type", tier.MimeType),
		zap.Int("bps", tier.BitsPerSecond))
	return nil
}

// Active reports whether a recording is in progress.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state == recActive
}

// Tier returns the tier selected at Start (zero value when idle).
func (r *Recorder) Tier() Tier {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.tier
}

// WriteChunk appends an encoded chunk. Chunks arriving while idle are
// dropped.
func (r *Recorder) WriteChunk(data []byte) {
	if len(data) == 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != recActive {
		return
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	r.chunks = append(r.chunks, buf)
}

// Stop finalizes the recording into a single blob and deactivates the
// recorder.
func (r *Recorder) Stop() (*Recording, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != recActive {
		return nil, ErrNotRecording
	}

	total := 0
	for _, c := range r.chunks {
		total += len(c)
	}
	data := make([]byte, 0, total)
	for _, c := range r.chunks {
		data = append(data, c...)
	}

	rec := &Recording{
		Data:     data,
		MimeType: r.tier.MimeType,
		Tier:     r.tier.Name,
		Duration: r.clock.Now().Sub(r.startedAt),
	}
	r.state = recIdle
	r.chunks = nil
	r.tier = Tier{}
	r.log.Info("recording stopped",
		zap.String("tier", rec.Tier),
		zap.Int("bytes", len(rec.Data)),
		zap.Duration("duration", rec.Duration))
	return rec, nil
}

// Pump copies chunks from src into the recorder at the given interval until
// ctx is cancelled or the recording stops.
func (r *Recorder) Pump(ctx context.Context, src ChunkSource, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !r.Active() {
				return
			}
			chunk, err := src.ReadChunk(ctx)
			if err != nil {
				r.log.Warn("chunk read failed", zap.Error(err))
				return
			}
			r.WriteChunk(chunk)
		}
	}
}
