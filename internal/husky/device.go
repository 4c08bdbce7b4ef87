// Package husky talks to the HuskyLens2 vision sensor.
package husky

import (
	"context"
	"errors"

	"github.com/openhusky/huskyd/internal/models"
)

// ErrRecognitionUnavailable indicates the sensor did not return a usable
// snapshot. The scheduler treats it as "no labels present this tick".
var ErrRecognitionUnavailable = errors.New("recognition result unavailable")

// ErrUnknownAlgorithm indicates the requested recognition algorithm does
// not exist on the device.
var ErrUnknownAlgorithm = errors.New("unknown algorithm")

// Device is the call contract against the vision sensor. All calls are
// bounded by the context deadline; none blocks indefinitely.
type Device interface {
	// Recognition returns the sensor's current recognition snapshot.
	Recognition(ctx context.Context) (models.Recognition, error)

	// TakePhoto captures a photo to the device's internal memory.
	TakePhoto(ctx context.Context) (models.CaptureResult, error)

	// Algorithms lists the recognition algorithms the device supports.
	Algorithms(ctx context.Context) ([]string, error)

	// CurrentAlgorithm returns the active recognition algorithm.
	CurrentAlgorithm(ctx context.Context) (string, error)

	// SwitchAlgorithm activates a recognition algorithm by name.
	SwitchAlgorithm(ctx context.Context, name string) error
}
