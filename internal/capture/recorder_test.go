package capture

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
)

func support(mimeTypes ...string) StaticSupport {
	s := make(StaticSupport, len(mimeTypes))
	for _, m := range mimeTypes {
		s[m] = struct{}{}
	}
	return s
}

func TestRecorder_SelectsHighestSupportedTier(t *testing.T) {
	r := NewRecorder(DefaultTiers(), support("video/webm;codecs=vp9", "video/webm;codecs=vp8"), nil, zap.NewNop())
	if err := r.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if !r.Active() {
		t.Fatal("recorder should be active")
	}
	if got := r.Tier().Name; got != "vp9-high" {
		t.Fatalf("selected tier = %q, want vp9-high", got)
	}
}

func TestRecorder_FallsBackToLowestTier(t *testing.T) {
	r := NewRecorder(DefaultTiers(), support("video/mp4;codecs=h264"), nil, zap.NewNop())
	if err := r.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if got := r.Tier().Name; got != "h264-low" {
		t.Fatalf("selected tier = %q, want h264-low", got)
	}
	if !r.Active() {
		t.Fatal("recorder should be active on the lowest tier")
	}
}

func TestRecorder_NoSupportedTierAbortsStart(t *testing.T) {
	r := NewRecorder(DefaultTiers(), support(), nil, zap.NewNop())
	if err := r.Start(); !errors.Is(err, ErrNoSupportedTier) {
		t.Fatalf("got %v, want ErrNoSupportedTier", err)
	}
	if r.Active() {
		t.Fatal("recorder must stay inactive when no tier is supported")
	}
}

func TestRecorder_NoNestedRecordings(t *testing.T) {
	r := NewRecorder(DefaultTiers(), support("video/webm;codecs=vp8"), nil, zap.NewNop())
	if err := r.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := r.Start(); !errors.Is(err, ErrAlreadyRecording) {
		t.Fatalf("got %v, want ErrAlreadyRecording", err)
	}
}

func TestRecorder_ChunksConcatenateOnStop(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1000, 0)}
	r := NewRecorder(DefaultTiers(), support("video/webm;codecs=vp8"), clk, zap.NewNop())
	if err := r.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	r.WriteChunk([]byte("aaa"))
	r.WriteChunk([]byte("bb"))
	r.WriteChunk(nil) // empty chunks are ignored
	r.WriteChunk([]byte("c"))
	clk.Advance(3 * time.Second)

	rec, err := r.Stop()
	if err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if !bytes.Equal(rec.Data, []byte("aaabbc")) {
		t.Fatalf("blob = %q, want chunks concatenated in order", rec.Data)
	}
	if rec.MimeType != "video/webm;codecs=vp8" || rec.Tier != "vp8-medium" {
		t.Fatalf("artifact = %+v", rec)
	}
	if rec.Duration != 3*time.Second {
		t.Fatalf("duration = %v, want 3s", rec.Duration)
	}
	if r.Active() {
		t.Fatal("recorder should be idle after stop")
	}
}

func TestRecorder_StopWhenIdle(t *testing.T) {
	r := NewRecorder(DefaultTiers(), support("video/webm;codecs=vp8"), nil, zap.NewNop())
	if _, err := r.Stop(); !errors.Is(err, ErrNotRecording) {
		t.Fatalf("got %v, want ErrNotRecording", err)
	}
}

func TestRecorder_ChunksWhileIdleDropped(t *testing.T) {
	r := NewRecorder(DefaultTiers(), support("video/webm;codecs=vp8"), nil, zap.NewNop())
	r.WriteChunk([]byte("stray"))
	if err := r.Start(); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	rec, err := r.Stop()
	if err != nil {
		t.Fatalf("stop failed: %v", err)
	}
	if len(rec.Data) != 0 {
		t.Fatalf("blob = %q, want empty (stray chunk must be dropped)", rec.Data)
	}
}
