package media

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/pion/webrtc/v4"
	pionmedia "github.com/pion/webrtc/v4/pkg/media"
	"github.com/pion/webrtc/v4/pkg/media/ivfreader"
	"go.uber.org/zap"
)

// IVFDevice is the shipped DeviceAPI: a VP8/VP9 IVF file standing in for a
// camera. Headless capture clients point it at a recording or a test
// pattern.
type IVFDevice struct {
	Path string
	Log  *zap.Logger
}

// GetUserMedia opens the file and returns a stream that pumps its frames
// into a sample track at the file's own timebase.
func (d *IVFDevice) GetUserMedia(_ context.Context, c Constraints) (Stream, error) {
	f, err := os.Open(d.Path)
	if err != nil {
		switch {
		case errors.Is(err, os.ErrNotExist):
			return nil, &DeviceError{Kind: FailureNoDevice, Err: err}
		case errors.Is(err, os.ErrPermission):
			return nil, &DeviceError{Kind: FailurePermissionDenied, Err: err}
		default:
			return nil, &DeviceError{Kind: FailureUnknown, Err: err}
		}
	}

	reader, header, err := ivfreader.NewWith(f)
	if err != nil {
		_ = f.Close()
		return nil, &DeviceError{Kind: FailureUnknown, Err: err}
	}

	// A file source has no facing and a fixed resolution; requests it cannot
	// satisfy are constraint failures, not device failures.
	if c.FacingMode == "user" {
		_ = f.Close()
		return nil, &OverconstrainedError{Constraint: "facingMode"}
	}
	if c.Width > int(header.Width) || c.Height > int(header.Height) {
		_ = f.Close()
		return nil, &OverconstrainedError{Constraint: "width"}
	}

	mimeType := webrtc.MimeTypeVP8
	if header.FourCC == "VP90" {
		mimeType = webrtc.MimeTypeVP9
	}
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: mimeType}, "video", "camera")
	if err != nil {
		_ = f.Close()
		return nil, &DeviceError{Kind: FailureUnknown, Err: err}
	}

	frameDur := time.Duration(
		float64(header.TimebaseNumerator) / float64(header.TimebaseDenominator) * float64(time.Second))
	if frameDur <= 0 {
		frameDur = time.Second / 30
	}
	s := &ivfStream{
		track:    track,
		file:     f,
		reader:   reader,
		frameDur: frameDur,
		done:     make(chan struct{}),
		log:      d.Log,
	}
	go s.pump()
	return s, nil
}

type ivfStream struct {
	track    *webrtc.TrackLocalStaticSample
	file     *os.File
	reader   *ivfreader.IVFReader
	frameDur time.Duration
	done     chan struct{}
	log      *zap.Logger
}

func (s *ivfStream) Track() webrtc.TrackLocal { return s.track }

func (s *ivfStream) Close() error {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	return s.file.Close()
}

func (s *ivfStream) pump() {
	ticker := time.NewTicker(s.frameDur)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			frame, _, err := s.reader.ParseNextFrame()
			if err != nil {
				if !errors.Is(err, io.EOF) && s.log != nil {
					s.log.Warn("frame read failed", zap.Error(err))
				}
				return
			}
			if err := s.track.WriteSample(pionmedia.Sample{Data: frame, Duration: s.frameDur}); err != nil {
				if s.log != nil {
					s.log.Warn("sample write failed", zap.Error(err))
				}
				return
			}
		}
	}
}
