// Package fallback runs ordered "first success wins" cascades. Device
// constraint strategies and recording codec tiers both go through it.
package fallback

import "errors"

// ErrNoSteps is returned when a cascade has nothing to try.
var ErrNoSteps = errors.New("fallback: no steps")

// Step is one strategy in an ordered cascade.
type Step[T any] struct {
	Name string
	Run  func() (T, error)
}

// First runs steps in order and returns the first success together with the
// name of the step that produced it. If every step fails, the last error is
// returned.
func First[T any](steps []Step[T]) (T, string, error) {
	var zero T
	if len(steps) == 0 {
		return zero, "", ErrNoSteps
	}
	var lastErr error
	for _, s := range steps {
		v, err := s.Run()
		if err == nil {
			return v, s.Name, nil
		}
		lastErr = err
	}
	return zero, "", lastErr
}
