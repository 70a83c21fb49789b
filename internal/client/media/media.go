// Package media acquires a camera stream for the capture client. Device
// capability requests run through an ordered constraint cascade: the most
// demanding strategy first, down to a bare "any camera" request.
package media

import (
	"context"
	"errors"
	"fmt"

	"github.com/pion/webrtc/v4"
)

// Constraints describe one device capability request. Zero values mean
// "don't care".
type Constraints struct {
	Width      int
	Height     int
	FrameRate  int
	FacingMode string // "user" or "environment"
}

// IsZero reports whether no constraint is set.
func (c Constraints) IsZero() bool {
	return c == Constraints{}
}

// Strategy is a named constraint tier in the acquisition cascade.
type Strategy struct {
	Name        string
	Constraints Constraints
}

// DefaultStrategies is the shipped cascade, most demanding first.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: "hd-rear", Constraints: Constraints{Width: 1280, Height: 720, FrameRate: 30, FacingMode: "environment"}},
		{Name: "sd-rear", Constraints: Constraints{Width: 640, Height: 480, FrameRate: 30, FacingMode: "environment"}},
		{Name: "hd-any", Constraints: Constraints{Width: 1280, Height: 720}},
		{Name: "any-camera", Constraints: Constraints{}},
	}
}

// Stream is an acquired media source. Track is ready to be added to a peer
// connection; Close releases the underlying device.
type Stream interface {
	Track() webrtc.TrackLocal
	Close() error
}

// DeviceAPI requests a stream honoring the given constraints. A request that
// fails because of a specific constraint returns an *OverconstrainedError so
// the cascade can retry once with the constraints stripped.
type DeviceAPI interface {
	GetUserMedia(ctx context.Context, c Constraints) (Stream, error)
}

// FailureKind classifies why acquisition failed for the user.
type FailureKind string

const (
	FailureNoDevice         FailureKind = "no-device-found"
	FailurePermissionDenied FailureKind = "permission-denied"
	FailureDeviceBusy       FailureKind = "device-busy"
	FailureInsecureContext  FailureKind = "insecure-context"
	FailureUnknown          FailureKind = "unknown"
)

// DeviceError is the typed failure surfaced after the whole cascade is
// exhausted, derived from the last underlying error.
type DeviceError struct {
	Kind FailureKind
	Err  error
}

func (e *DeviceError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("media: %s", e.Kind)
	}
	return fmt.Sprintf("media: %s: %v", e.Kind, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// OverconstrainedError marks a constraint-specific failure: the device exists
// but cannot satisfy the named constraint.
type OverconstrainedError struct {
	Constraint string
}

func (e *OverconstrainedError) Error() string {
	return fmt.Sprintf("media: overconstrained on %q", e.Constraint)
}

// Classify derives the user-facing failure kind from an underlying error.
func Classify(err error) *DeviceError {
	var de *DeviceError
	if errors.As(err, &de) {
		return de
	}
	return &DeviceError{Kind: FailureUnknown, Err: err}
}
