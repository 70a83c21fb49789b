package fallback

import (
	"errors"
	"testing"
)

func TestFirst_ReturnsFirstSuccessAndName(t *testing.T) {
	fail := errors.New("nope")
	steps := []Step[int]{
		{Name: "a", Run: func() (int, error) { return 0, fail }},
		{Name: "b", Run: func() (int, error) { return 42, nil }},
		{Name: "c", Run: func() (int, error) { t.Fatal("step after success must not run"); return 0, nil }},
	}
	v, name, err := First(steps)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 || name != "b" {
		t.Fatalf("got %d from %q, want 42 from b", v, name)
	}
}

func TestFirst_AllFailReturnsLastError(t *testing.T) {
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	steps := []Step[string]{
		{Name: "a", Run: func() (string, error) { return "", errA }},
		{Name: "b", Run: func() (string, error) { return "", errB }},
	}
	_, _, err := First(steps)
	if !errors.Is(err, errB) {
		t.Fatalf("got %v, want the last error", err)
	}
}

func TestFirst_Empty(t *testing.T) {
	_, _, err := First[int](nil)
	if !errors.Is(err, ErrNoSteps) {
		t.Fatalf("got %v, want ErrNoSteps", err)
	}
}
