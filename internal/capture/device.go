// Package capture drives a camera device through acquisition, preview and
// sampling. Samples leave this package as mirrored, downscaled JPEG bytes
// ready for the verification backend.
package capture

import (
	"context"
	"errors"
	"image"
)

var (
	// ErrDeviceBusy means the camera is held by another application.
	ErrDeviceBusy = errors.New("camera is in use by another application")
	// ErrDevicePermission means access to the camera was denied.
	ErrDevicePermission = errors.New("camera permission denied")
	// ErrNoDevice means no camera satisfied any constraint set.
	ErrNoDevice = errors.New("no camera device available")
)

// Constraints describes one acquisition request. Zero dimensions mean no
// preference.
type Constraints struct {
	FacingFront bool
	Width       int
	Height      int
}

// DefaultConstraints is the fallback ladder, tried in order: ideal front
// camera at 640x480, any front camera, any camera at all.
var DefaultConstraints = []Constraints{
	{FacingFront: true, Width: 640, Height: 480},
	{FacingFront: true},
	{},
}

// Device is an open camera stream.
type Device interface {
	// Frame blocks until the next frame is available.
	Frame(ctx context.Context) (image.Image, error)
	Close() error
}

// Opener acquires a Device for a constraint set. Implementations report
// ErrDeviceBusy and ErrDevicePermission as terminal conditions; any other
// error lets the caller fall through to the next constraint set.
type Opener interface {
	Open(ctx context.Context, c Constraints) (Device, error)
}
