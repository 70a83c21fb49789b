package capture

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeGrabber returns frames from a script, one per call.
type fakeGrabber struct {
	frames []Frame
	i      int
}

func (g *fakeGrabber) Grab(context.Context) (Frame, error) {
	if g.i >= len(g.frames) {
		return Frame{}, errors.New("no more frames")
	}
	f := g.frames[g.i]
	g.i++
	return f, nil
}

func frame(fill byte, n int) Frame {
	data := make([]byte, n)
	for i := range data {
		data[i] = fill + byte(i%7)
	}
	return Frame{Data: data, MimeType: "image/png", VideoTime: time.Second}
}

func TestCapture_CooldownRejectsSecondRequest(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1000, 0)}
	g := &fakeGrabber{frames: []Frame{frame(1, 100), frame(2, 100)}}
	taker := NewScreenshotTaker(g, 2*time.Second, clk, zap.NewNop())

	if _, err := taker.Capture(context.Background()); err != nil {
		t.Fatalf("first capture failed: %v", err)
	}

	clk.Advance(500 * time.Millisecond)
	if _, err := taker.Capture(context.Background()); !errors.Is(err, ErrCooldown) {
		t.Fatalf("got %v, want ErrCooldown", err)
	}

	if got := len(taker.List()); got != 1 {
		t.Fatalf("artifact list has %d entries, want exactly 1", got)
	}

	clk.Advance(2 * time.Second)
	if _, err := taker.Capture(context.Background()); err != nil {
		t.Fatalf("capture after cooldown failed: %v", err)
	}
}

func TestCapture_DuplicateFrameRejected(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1000, 0)}
	// Two distinct grabs with identical pixels.
	g := &fakeGrabber{frames: []Frame{frame(9, 8192), frame(9, 8192)}}
	taker := NewScreenshotTaker(g, 0, clk, zap.NewNop())

	first, err := taker.Capture(context.Background())
	if err != nil {
		t.Fatalf("first capture failed: %v", err)
	}
	if first.ContentHash == "" {
		t.Fatal("expected a content hash")
	}

	if _, err := taker.Capture(context.Background()); !errors.Is(err, ErrDuplicateFrame) {
		t.Fatalf("got %v, want ErrDuplicateFrame", err)
	}
	if got := len(taker.List()); got != 1 {
		t.Fatalf("artifact list has %d entries, want exactly 1", got)
	}
}

func TestCapture_DifferentFramesBothAccepted(t *testing.T) {
	g := &fakeGrabber{frames: []Frame{frame(1, 8192), frame(200, 8192)}}
	taker := NewScreenshotTaker(g, 0, &fakeClock{now: time.Unix(1000, 0)}, zap.NewNop())

	if _, err := taker.Capture(context.Background()); err != nil {
		t.Fatalf("first capture failed: %v", err)
	}
	if _, err := taker.Capture(context.Background()); err != nil {
		t.Fatalf("second capture failed: %v", err)
	}
	shots := taker.List()
	if len(shots) != 2 {
		t.Fatalf("artifact list has %d entries, want 2", len(shots))
	}
	if shots[0].ContentHash == shots[1].ContentHash {
		t.Fatal("distinct frames produced identical hashes")
	}
}

func TestCapture_DeleteByIndex(t *testing.T) {
	g := &fakeGrabber{frames: []Frame{frame(1, 100), frame(50, 100), frame(120, 100)}}
	taker := NewScreenshotTaker(g, 0, &fakeClock{now: time.Unix(1000, 0)}, zap.NewNop())
	for i := 0; i < 3; i++ {
		if _, err := taker.Capture(context.Background()); err != nil {
			t.Fatalf("capture %d failed: %v", i, err)
		}
	}
	second := taker.List()[1]

	if err := taker.Delete(1); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	for _, s := range taker.List() {
		if s.ID == second.ID {
			t.Fatal("deleted screenshot still listed")
		}
	}
	if err := taker.Delete(5); err == nil {
		t.Fatal("out-of-range delete should fail")
	}
}

func TestCapture_ResetClearsDedupScope(t *testing.T) {
	g := &fakeGrabber{frames: []Frame{frame(7, 4096), frame(7, 4096)}}
	taker := NewScreenshotTaker(g, 0, &fakeClock{now: time.Unix(1000, 0)}, zap.NewNop())

	if _, err := taker.Capture(context.Background()); err != nil {
		t.Fatalf("capture failed: %v", err)
	}
	taker.Reset()

	// Same pixels again, but a new session: not a duplicate.
	if _, err := taker.Capture(context.Background()); err != nil {
		t.Fatalf("capture after reset failed: %v", err)
	}
	if got := len(taker.List()); got != 1 {
		t.Fatalf("artifact list has %d entries after reset, want 1", got)
	}
}

func TestCapture_GrabErrorStillStartsCooldown(t *testing.T) {
	clk := &fakeClock{now: time.Unix(1000, 0)}
	g := &fakeGrabber{} // empty script: every grab errors
	taker := NewScreenshotTaker(g, 2*time.Second, clk, zap.NewNop())

	if _, err := taker.Capture(context.Background()); err == nil {
		t.Fatal("expected grab error")
	}
	if _, err := taker.Capture(context.Background()); !errors.Is(err, ErrCooldown) {
		t.Fatalf("got %v, want ErrCooldown after failed grab", err)
	}
}
